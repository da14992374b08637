// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"github.com/usbarmory/imxrt-usbd/internal/reg"
)

// Endpoint couples one queue head, one transfer descriptor, one buffer, and
// an address. Its lifetime is the driver's lifetime: endpoints are
// allocated once by EndpointAllocator and never freed, matching the
// hardware's fixed endpoint table.
type Endpoint struct {
	address EndpointAddress
	kind    EndpointKind

	qh     *qh
	td     *td
	buffer Buffer

	regs registers
}

// Address returns the endpoint's address.
func (e *Endpoint) Address() EndpointAddress {
	return e.address
}

// Kind returns the endpoint's transfer type, fixed at allocation time.
func (e *Endpoint) Kind() EndpointKind {
	return e.kind
}

func (e *Endpoint) isEP0() bool {
	return e.address.Index == 0
}

func (e *Endpoint) isIn() bool {
	return e.address.Direction == DirectionIn
}

// ctrlBits returns the ENDPTCTRL enable/reset/stall bit positions and the
// type field position for this endpoint's direction.
func (e *Endpoint) ctrlBits() (enable, reset, typePos, stall int) {
	if e.isIn() {
		return bitENDPTCTRL_TXE, bitENDPTCTRL_TXR, posENDPTCTRL_TXT, bitENDPTCTRL_TXS
	}

	return bitENDPTCTRL_RXE, bitENDPTCTRL_RXR, posENDPTCTRL_RXT, bitENDPTCTRL_RXS
}

func (e *Endpoint) ctrlType() uint32 {
	switch e.kind {
	case KindControl:
		return epTypeControl
	case KindInterrupt:
		return epTypeInterrupt
	default:
		return epTypeBulk
	}
}

func (e *Endpoint) ctrlAddr() uint32 {
	return e.regs.endptctrl(int(e.address.Index))
}

// Initialize zeroes the endpoint-control register's enable bit and sets the
// direction's type field to Bulk as a neutral default. EP0 is always
// enabled by hardware, so this is a no-op for it.
func (e *Endpoint) Initialize() {
	if e.isEP0() {
		return
	}

	enable, _, typePos, _ := e.ctrlBits()
	addr := e.ctrlAddr()

	reg.Clear(addr, enable)
	reg.SetN(addr, typePos, 0b11, epTypeBulk)
}

// Enable sets the enable bit and configured transfer type, and for every
// endpoint other than EP0 resets the data toggle so the first packet is
// DATA0.
func (e *Endpoint) Enable() {
	enable, reset, typePos, _ := e.ctrlBits()
	addr := e.ctrlAddr()

	reg.SetN(addr, typePos, 0b11, e.ctrlType())

	if !e.isEP0() {
		reg.Set(addr, reset)
	}

	reg.Set(addr, enable)
}

// IsEnabled reports the endpoint's enable bit. EP0 is always enabled.
func (e *Endpoint) IsEnabled() bool {
	if e.isEP0() {
		return true
	}

	enable, _, _, _ := e.ctrlBits()
	return reg.Get(e.ctrlAddr(), enable, 1) == 1
}

// SetStalled sets or clears the per-direction stall bit.
func (e *Endpoint) SetStalled(stalled bool) {
	_, _, _, stall := e.ctrlBits()
	addr := e.ctrlAddr()

	if stalled {
		reg.Set(addr, stall)
	} else {
		reg.Clear(addr, stall)
	}
}

// IsStalled reports the per-direction stall bit.
func (e *Endpoint) IsStalled() bool {
	_, _, _, stall := e.ctrlBits()
	return reg.Get(e.ctrlAddr(), stall, 1) == 1
}

// HasSetup reports whether ENDPTSETUPSTAT has this endpoint's index bit
// set. Only meaningful for EP0-Out.
func (e *Endpoint) HasSetup() bool {
	return reg.Get(e.regs.endptsetupstat, int(e.address.Index), 1) == 1
}

// ReadSetup implements the setup tripwire protocol: set SUTW, snapshot the
// 8-byte setup buffer the controller latched into the queue head, then
// check SUTW again. If it was cleared while we were reading, a new setup
// packet arrived mid-read and overwrote the buffer, so we retry. Once a
// read completes without the tripwire firing, SUTW is cleared and the
// latched word is returned.
//
// The reference manual is ambiguous about clearing ENDPTSETUPSTAT before or
// after this read; this driver clears it before, matching historical
// behavior of the stack it was ported from.
func (e *Endpoint) ReadSetup() uint64 {
	reg.WriteBack(e.regs.endptsetupstat)

	for {
		reg.Set(e.regs.usbcmd, bitUSBCMD_SUTW)

		if readSetupHook != nil {
			readSetupHook()
		}

		setup := e.qh.setup8()

		if reg.Get(e.regs.usbcmd, bitUSBCMD_SUTW, 1) == 0 {
			continue
		}

		reg.Clear(e.regs.usbcmd, bitUSBCMD_SUTW)

		return setup
	}
}

// readSetupHook, when non-nil, runs after the tripwire bit is armed and
// before the queue head's setup word is sampled. Production never sets it;
// it exists so a test can deterministically land a new setup packet in
// that window instead of racing the real loop to do it.
var readSetupHook func()

// IsPrimed reports whether this endpoint has an in-flight transfer, via its
// bit in ENDPTSTAT (ERBR for Out, ETBR for In).
func (e *Endpoint) IsPrimed() bool {
	pos := posERxx
	if e.isIn() {
		pos = posETxx
	}

	return reg.Get(e.regs.endptstat, pos+int(e.address.Index), 1) == 1
}

// CheckErrors inspects the owning TD's status and returns ErrInvalidState
// if the controller reported a halt, bus error, or transaction error.
func (e *Endpoint) CheckErrors() error {
	status := e.td.status()

	if status&(tdStatusHalted|tdStatusDataBusError|tdStatusTransactionError) != 0 {
		return ErrInvalidState
	}

	return nil
}

// ClearComplete acknowledges this endpoint's bit in ENDPTCOMPLETE.
//
// ENDPTCOMPLETE is write-1-to-clear and packs all 16 OUT/IN endpoints into
// one register, so this must write the exact target bit rather than read
// the live register and OR it in: a read-modify-write would also clear any
// other endpoint's completion bit that happened to be pending at the read,
// before Poll or EndpointRead ever observed it.
func (e *Endpoint) ClearComplete() {
	pos := posERxx
	if e.isIn() {
		pos = posETxx
	}

	reg.Write(e.regs.endptcomplete, 1<<(pos+int(e.address.Index)))
}

// ClearNack acknowledges this endpoint's bit in ENDPTNAK. Same write-exact-
// bit requirement as ClearComplete: ENDPTNAK is also a shared write-1-to-
// clear register across all 16 endpoints.
func (e *Endpoint) ClearNack() {
	pos := posERxx
	if e.isIn() {
		pos = posETxx
	}

	reg.Write(e.regs.endptnak, 1<<(pos+int(e.address.Index)))
}

// Flush writes this endpoint's bit in ENDPTFLUSH and spins until the
// controller clears it.
func (e *Endpoint) Flush() {
	pos := posERxx
	if e.isIn() {
		pos = posETxx
	}

	bit := pos + int(e.address.Index)

	reg.Set(e.regs.endptflush, bit)
	reg.Wait(e.regs.endptflush, bit, 1, 0)
}

// Read copies min(max_packet, len(buf), bytes_transferred) bytes from the
// endpoint's buffer into buf and returns the count.
func (e *Endpoint) Read(buf []byte) int {
	n := int(e.td.bytesTransferred())

	if max := int(e.qh.maxPacketLen()); max < n {
		n = max
	}

	if len(buf) < n {
		n = len(buf)
	}

	return e.buffer.VolatileRead(buf[:n])
}

// Write copies min(max_packet, len(buf)) bytes from buf into the endpoint's
// buffer, cleans the corresponding cache range, and returns the count.
func (e *Endpoint) Write(buf []byte) int {
	n := len(buf)

	if max := int(e.qh.maxPacketLen()); max < n {
		n = max
	}

	written := e.buffer.VolatileWrite(buf[:n])
	e.buffer.CleanInvalidate(written)

	return written
}

// ScheduleTransfer arms the TD for a transfer of size bytes out of the
// endpoint's buffer, publishes the TD and QH to DRAM, and primes the
// endpoint, spinning until the controller acknowledges the prime.
func (e *Endpoint) ScheduleTransfer(size int) {
	e.td.setTerminate()
	e.td.setBuffer(e.buffer.addr(), size)
	e.td.setInterruptOnComplete(true)
	e.td.setActive()

	e.td.cleanInvalidate()
	e.qh.cleanInvalidate()

	pos := posERxx
	if e.isIn() {
		pos = posETxx
	}

	bit := pos + int(e.address.Index)

	reg.Set(e.regs.endptprime, bit)
	reg.Wait(e.regs.endptprime, bit, 1, 0)
}

// EnableZLT clears the queue head's "zero-length-termination disabled" bit,
// so hardware emits a ZLP when a transfer's byte count is an exact multiple
// of the max packet size. Idempotent.
func (e *Endpoint) EnableZLT() {
	e.qh.setZeroLengthTerminationDisabled(false)
}

// setMaxPacketLen configures the queue head's max packet length.
func (e *Endpoint) setMaxPacketLen(n uint16) {
	e.qh.setMaxPacketLen(n)
}

func (e *Endpoint) maxPacketLen() uint16 {
	return e.qh.maxPacketLen()
}
