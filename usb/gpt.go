// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import "github.com/usbarmory/imxrt-usbd/internal/reg"

// GPTMode selects a general-purpose timer's reload behavior.
type GPTMode int

const (
	GPTOneShot GPTMode = iota
	GPTRepeat
)

// GPTInstance selects one of the controller's two embedded timers.
type GPTInstance int

const (
	GPT0 GPTInstance = iota
	GPT1
)

// GPTIMERxCTRL bits (shared layout across GPT0/GPT1).
const (
	bitGPTCTRL_RUN  = 31
	bitGPTCTRL_RST  = 30
	bitGPTCTRL_MODE = 24

	gptLoadMax = 0xFFFFFF
)

// GPT is one of the two 1-microsecond-resolution, 24-bit general-purpose
// timers embedded in the USB controller. It is reached through Bus.GPT,
// which borrows it inside the bus's critical section.
//
// A typical one-shot use (matching how board firmware drives an LED blink
// off this timer): Stop, SetLoad(interval), SetMode(GPTOneShot), Reset,
// Run, then poll IsElapsed until true, ClearElapsed, repeat.
type GPT struct {
	ctrl uint32
	ld   uint32
	sts  uint32
	intr uint32

	tiBit  int
	tieBit int
}

func newGPT(regs registers, instance GPTInstance) GPT {
	if instance == GPT0 {
		return GPT{
			ctrl: regs.gptimer0ctrl, ld: regs.gptimer0ld,
			sts: regs.usbsts, intr: regs.usbintr,
			tiBit: bitSTS_TI0, tieBit: bitSTS_TI0,
		}
	}

	return GPT{
		ctrl: regs.gptimer1ctrl, ld: regs.gptimer1ld,
		sts: regs.usbsts, intr: regs.usbintr,
		tiBit: bitSTS_TI1, tieBit: bitSTS_TI1,
	}
}

// Run starts the timer.
func (g *GPT) Run() {
	reg.Set(g.ctrl, bitGPTCTRL_RUN)
}

// Stop halts the timer.
func (g *GPT) Stop() {
	reg.Clear(g.ctrl, bitGPTCTRL_RUN)
}

// Reset pulses the timer's reset bit, reloading its counter from the load
// register.
func (g *GPT) Reset() {
	reg.Set(g.ctrl, bitGPTCTRL_RST)
}

// IsRunning reports the timer's run bit.
func (g *GPT) IsRunning() bool {
	return reg.Get(g.ctrl, bitGPTCTRL_RUN, 1) == 1
}

// SetMode selects OneShot (stop after elapse) or Repeat (auto-reload from
// the load register).
func (g *GPT) SetMode(mode GPTMode) {
	reg.SetN(g.ctrl, bitGPTCTRL_MODE, 1, uint32(mode))
}

// Mode returns the timer's current mode.
func (g *GPT) Mode() GPTMode {
	if reg.Get(g.ctrl, bitGPTCTRL_MODE, 1) == 1 {
		return GPTRepeat
	}

	return GPTOneShot
}

// SetLoad programs the timer's reload value, clamped to [1, 0xFFFFFF]
// microseconds and stored as us-1, per the hardware's off-by-one load
// register semantics.
func (g *GPT) SetLoad(us uint32) {
	if us > gptLoadMax {
		us = gptLoadMax
	}

	if us < 1 {
		us = 1
	}

	reg.Write(g.ld, us-1)
}

// Load returns the programmed reload value in microseconds.
func (g *GPT) Load() uint32 {
	return reg.Read(g.ld) + 1
}

// IsElapsed reports whether the timer's interrupt-status bit (TI0/TI1 in
// USBSTS) is set.
func (g *GPT) IsElapsed() bool {
	return reg.Get(g.sts, g.tiBit, 1) == 1
}

// ClearElapsed acknowledges the timer's interrupt-status bit. g.sts is
// USBSTS, shared with URI/UI (and the other GPT's TI bit), so this writes
// the exact bit rather than read-modify-write: an OR-in ack here could
// spuriously clear a concurrently pending URI/UI/TI0/TI1.
func (g *GPT) ClearElapsed() {
	reg.Write(g.sts, 1<<g.tiBit)
}

// SetInterruptEnabled sets or clears the timer's interrupt-enable bit in
// USBINTR. This is independent of the bus's own UE/URE interrupt enables
// (Driver.SetInterrupts).
func (g *GPT) SetInterruptEnabled(enabled bool) {
	if enabled {
		reg.Set(g.intr, g.tieBit)
	} else {
		reg.Clear(g.intr, g.tieBit)
	}
}

// IsInterruptEnabled reports the timer's interrupt-enable bit.
func (g *GPT) IsInterruptEnabled() bool {
	return reg.Get(g.intr, g.tieBit, 1) == 1
}
