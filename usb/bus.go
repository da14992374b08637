// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"github.com/usbarmory/imxrt-usbd/internal/critical"
)

// QuirkSetAddressBeforeStatus is true for this controller: hardware
// latches the new device address itself after the status stage, so the
// upper USB stack must write the address before (not after) acknowledging
// the SET_ADDRESS request's status stage.
const QuirkSetAddressBeforeStatus = true

// BusOption configures NewBus.
type BusOption func(*busConfig)

type busConfig struct {
	withoutCriticalSections bool
	speed                   Speed
}

// WithoutCriticalSections builds a Bus whose methods never disable
// interrupts. The caller takes on the obligation of guaranteeing that Bus
// methods are never invoked from more than one context (e.g. the USB
// interrupt is never unmasked).
func WithoutCriticalSections() BusOption {
	return func(c *busConfig) { c.withoutCriticalSections = true }
}

// WithSpeed selects the port speed (default SpeedHigh).
func WithSpeed(speed Speed) BusOption {
	return func(c *busConfig) { c.speed = speed }
}

// Bus is the thread-safe facade over Driver: it wraps Driver access in a
// critical section and adapts to the UsbBus contract a generic USB device
// stack expects (AllocEndpoint, SetDeviceAddress, Enable, Reset, Read,
// Write, SetStalled, IsStalled, Poll, Suspend, Resume), plus Configure,
// SetInterrupts, EnableZLT, and GPT access.
type Bus struct {
	driver *Driver
	sec    *critical.Section

	gptBorrowed bool
}

// NewBus constructs a Bus over the given peripherals, endpoint memory, and
// endpoint state, running the driver's one-time hardware initialization.
// mem and state must not have been claimed by any other Driver; NewBus
// panics if they have (see NewDriver).
func NewBus(p Peripherals, mem *EndpointMemory, state *EndpointState, opts ...BusOption) *Bus {
	cfg := busConfig{speed: SpeedHigh}

	for _, opt := range opts {
		opt(&cfg)
	}

	driver := NewDriver(p, cfg.speed, mem, state)
	driver.Initialize()

	return &Bus{
		driver: driver,
		sec:    critical.New(cfg.withoutCriticalSections),
	}
}

// Configure invokes the driver's on-configured hook: enables every
// allocated non-zero endpoint and primes every OUT endpoint. Must be
// called exactly once per enumeration, typically from the upper stack's
// SET_CONFIGURATION handler.
func (b *Bus) Configure() {
	defer b.sec.Enter()()

	b.driver.OnConfigured()
}

// SetInterrupts writes USBINTR with UE and URE set or cleared together. No
// other interrupt source is enabled by default.
func (b *Bus) SetInterrupts(enabled bool) {
	defer b.sec.Enter()()

	b.driver.SetInterrupts(enabled)
}

// EnableZLT forwards to the driver: clears addr's queue head ZLT-disabled
// bit. Returns ErrInvalidEndpoint if addr is unallocated.
func (b *Bus) EnableZLT(addr EndpointAddress) error {
	defer b.sec.Enter()()

	ep := b.driver.Endpoint(addr)
	if ep == nil {
		return ErrInvalidEndpoint
	}

	ep.EnableZLT()

	return nil
}

// GPT runs f with exclusive access to one of the controller's two embedded
// timers, inside the bus's critical section. Calling GPT again from within
// f panics: GPT borrows are not reentrant, unlike the rest of the critical
// section.
func (b *Bus) GPT(instance GPTInstance, f func(*GPT)) {
	defer b.sec.Enter()()

	if b.gptBorrowed {
		panic("usb: reentrant GPT borrow")
	}

	b.gptBorrowed = true
	defer func() { b.gptBorrowed = false }()

	g := newGPT(b.driver.regs, instance)
	f(&g)
}

// AllocEndpoint allocates an endpoint slot. If index is non-nil, that exact
// index is used (failing with ErrInvalidEndpoint if already taken);
// otherwise the lowest free index in 1..=7 for the requested direction is
// used. Fails with ErrEndpointMemoryOverflow if the buffer allocator cannot
// satisfy maxPacketSize, or ErrEndpointOverflow if no slot is free.
func (b *Bus) AllocEndpoint(dir Direction, index *uint8, kind EndpointKind, maxPacketSize uint16, _interval uint8) (EndpointAddress, error) {
	defer b.sec.Enter()()

	var addr EndpointAddress

	if index != nil {
		addr = NewEndpointAddress(*index, dir)

		if b.driver.Endpoint(addr) != nil {
			return EndpointAddress{}, ErrInvalidEndpoint
		}
	} else {
		found := false

		for i := uint8(1); i <= 7; i++ {
			cand := NewEndpointAddress(i, dir)

			if b.driver.Endpoint(cand) == nil {
				addr = cand
				found = true
				break
			}
		}

		if !found {
			return EndpointAddress{}, ErrEndpointOverflow
		}
	}

	buf, ok := b.driver.AllocateEndpointBuffer(int(maxPacketSize))
	if !ok {
		return EndpointAddress{}, ErrEndpointMemoryOverflow
	}

	if _, ok := b.driver.AllocateEndpoint(addr, buf, kind, maxPacketSize); !ok {
		return EndpointAddress{}, ErrInvalidEndpoint
	}

	return addr, nil
}

// SetDeviceAddress programs the controller to latch addr after the next
// control transfer's status stage (see QuirkSetAddressBeforeStatus).
func (b *Bus) SetDeviceAddress(addr uint8) {
	defer b.sec.Enter()()

	b.driver.SetDeviceAddress(addr)
}

// Enable attaches the controller to the bus (USBCMD.RS=1).
func (b *Bus) Enable() {
	defer b.sec.Enter()()

	b.driver.Attach()
}

// Reset handles a host-asserted bus reset.
func (b *Bus) Reset() {
	defer b.sec.Enter()()

	b.driver.BusReset()
}

// Write writes to an endpoint. For EP0-In this runs the control-write
// algorithm (§4.4.2, including the zero-length status-phase schedule); for
// every other endpoint it's a plain primed write (§4.4.4).
func (b *Bus) Write(addr EndpointAddress, buf []byte) (int, error) {
	defer b.sec.Enter()()

	if addr.Index == 0 && addr.Direction == DirectionIn {
		return b.driver.ControlWrite(buf)
	}

	return b.driver.EndpointWrite(addr, buf)
}

// Read reads from an endpoint. For EP0-Out this runs the control-read
// algorithm (§4.4.1, including the setup tripwire); for every other
// endpoint it consults the latched OUT-completion mask (§4.4.3).
func (b *Bus) Read(addr EndpointAddress, buf []byte) (int, error) {
	defer b.sec.Enter()()

	if addr.Index == 0 && addr.Direction == DirectionOut {
		return b.driver.ControlRead(buf)
	}

	return b.driver.EndpointRead(addr, buf)
}

// SetStalled sets or clears an endpoint's stall bit.
func (b *Bus) SetStalled(addr EndpointAddress, stalled bool) {
	defer b.sec.Enter()()

	b.driver.SetStalled(addr, stalled)
}

// IsStalled reports an endpoint's stall bit.
func (b *Bus) IsStalled(addr EndpointAddress) bool {
	defer b.sec.Enter()()

	return b.driver.IsStalled(addr)
}

// Poll decodes USBSTS into a PollResult: PollReset, PollData with
// per-endpoint activity bitmasks, or PollNone.
func (b *Bus) Poll() PollResult {
	defer b.sec.Enter()()

	return b.driver.Poll()
}

// Suspend is accepted but inert; see the design note on suspend/resume.
func (b *Bus) Suspend() {}

// Resume is accepted but inert; see the design note on suspend/resume.
func (b *Bus) Resume() {}
