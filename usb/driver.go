// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"runtime"

	"github.com/usbarmory/imxrt-usbd/internal/reg"
	"github.com/usbarmory/imxrt-usbd/internal/trace"
)

// Speed selects the port speed the controller negotiates with the host.
// The historical driver this was ported from always forced full-speed by
// setting PORTSC1.PFSC; that is now an explicit choice instead of a
// hard-coded side effect.
type Speed int

const (
	SpeedHigh Speed = iota
	SpeedFullLow
)

// Peripherals is the pair of register blocks a Driver needs. The caller
// retains ownership and must guarantee the driver has it exclusively; board
// bring-up (clock gates, PLL) is the caller's responsibility, not the
// driver's (see the boardsupport package for an optional helper).
type Peripherals struct {
	// Base is the USB core controller register block's base address.
	Base uint32
	// PHY is the USBPHY register block's base address.
	PHY uint32
}

// Driver is the single-threaded controller logic: PHY/core initialization,
// bus reset handling, EP0 control read/write, per-endpoint read/write, and
// poll status decoding. It holds no locks of its own; callers (ordinarily
// Bus) are responsible for serializing access.
type Driver struct {
	regs  registers
	speed Speed

	allocator *EndpointAllocator
	bufAlloc  *BufferAllocator

	// epOutMask is a 16-bit latch of OUT endpoints whose most recent
	// completion has been observed by Poll but not yet consumed by Read.
	// It must persist across Poll calls: without it, a caller that polls
	// again before reading would see the latch clear and conclude
	// (wrongly) that the packet was lost.
	epOutMask uint16
}

// NewDriver constructs a Driver over the given peripherals, claiming mem and
// state for its exclusive use. It panics if either has already been claimed
// (see EndpointMemory.Allocator and EndpointState.Allocator).
func NewDriver(p Peripherals, speed Speed, mem *EndpointMemory, state *EndpointState) *Driver {
	bufAlloc := mem.Allocator()
	if bufAlloc == nil {
		panic("usb: endpoint memory already taken")
	}

	allocator, ok := state.Allocator()
	if !ok {
		panic("usb: endpoint state already taken")
	}

	return &Driver{
		regs:      newRegisters(p.Base, p.PHY),
		speed:     speed,
		allocator: allocator,
		bufAlloc:  bufAlloc,
	}
}

// Initialize runs the one-time PHY and core bring-up sequence. It must run
// once, before the first Attach.
func (d *Driver) Initialize() {
	r := d.regs

	// PHY: pulse soft-reset, clear clock gate, zero power-down.
	reg.Set(r.phyCtrl, bitUSBPHY_CTRL_SFTRST)
	reg.Clear(r.phyCtrl, bitUSBPHY_CTRL_SFTRST)
	reg.Clear(r.phyCtrl, bitUSBPHY_CTRL_CLKGATE)
	reg.Write(r.phyPwd, 0)

	// Core: reset and wait.
	reg.Set(r.usbcmd, bitUSBCMD_RST)
	reg.Wait(r.usbcmd, bitUSBCMD_RST, 1, 0)
	reg.SetN(r.usbcmd, posUSBCMD_ITC, maskUSBCMD_ITC, 0)

	// Device mode, setup lockout.
	reg.SetN(r.usbmode, posUSBMODE_CM, maskUSBMODE_CM, cmDevice)
	reg.Set(r.usbmode, bitUSBMODE_SLOM)

	if d.speed == SpeedFullLow {
		reg.Set(r.portsc1, bitPORTSC_PFSC)
	} else {
		reg.Clear(r.portsc1, bitPORTSC_PFSC)
	}

	// Ack all status, mask all interrupts.
	reg.Write(r.usbsts, 0xffffffff)
	reg.Write(r.usbintr, 0)

	reg.Write(r.endptlistaddr, d.allocator.QhListAddr())
}

// SetInterrupts writes USBINTR with UE and URE set or cleared together; no
// other interrupt source is enabled by default.
func (d *Driver) SetInterrupts(enabled bool) {
	if enabled {
		reg.Write(d.regs.usbintr, 1<<bitSTS_UI|1<<bitSTS_URI)
	} else {
		reg.Write(d.regs.usbintr, 0)
	}
}

// Attach sets USBCMD.RS, letting the controller respond on the bus.
func (d *Driver) Attach() {
	reg.Set(d.regs.usbcmd, bitUSBCMD_RS)
}

// SetDeviceAddress programs DEVICEADDR with USBADRA=1, so the controller
// itself latches the new address after the next control transfer's status
// stage (QuirkSetAddressBeforeStatus).
func (d *Driver) SetDeviceAddress(addr uint8) {
	reg.Set(d.regs.deviceaddr, bitDEVICEADDR_USBADRA)
	reg.SetN(d.regs.deviceaddr, posDEVICEADDR_USBADR, int(maskDEVICEADDR_USBADR), uint32(addr))
}

// BusReset handles a host-asserted bus reset: acknowledges pending setup
// and completion state, disables NAK interrupts, flushes every endpoint,
// and reinitializes every allocated non-zero endpoint.
func (d *Driver) BusReset() {
	r := d.regs

	reg.WriteBack(r.endptsetupstat)
	reg.WriteBack(r.endptcomplete)
	reg.WriteBack(r.endptnak)
	reg.Write(r.endptnaken, 0)

	for reg.Read(r.endptprime) != 0 {
		runtime.Gosched()
	}

	reg.Write(r.endptflush, 0xffffffff)

	for reg.Read(r.endptflush) != 0 {
		runtime.Gosched()
	}

	d.allocator.NonzeroEndpoints(func(ep *Endpoint) {
		ep.Initialize()
	})

	d.epOutMask = 0

	if reg.Get(r.portsc1, bitPORTSC_PR, 1) != 1 {
		trace.Debugf("bus reset handled without PORTSC1.PR asserted")
	}
}

// AllocateEndpointBuffer carves size bytes out of the bump allocator.
func (d *Driver) AllocateEndpointBuffer(size int) (Buffer, bool) {
	return d.bufAlloc.Allocate(size)
}

// AllocateEndpoint constructs the endpoint at addr with the given kind and
// buffer and sets its queue head's max packet length. For EP0-Out it also
// clears the ZLT-disabled bit and sets interrupt-on-setup.
func (d *Driver) AllocateEndpoint(addr EndpointAddress, buf Buffer, kind EndpointKind, maxPacket uint16) (*Endpoint, bool) {
	ep, ok := d.allocator.AllocateEndpoint(addr, buf, kind, d.regs)
	if !ok {
		return nil, false
	}

	ep.setMaxPacketLen(maxPacket)
	ep.td.setTerminate()
	ep.td.clearStatus()

	if addr.Index == 0 && addr.Direction == DirectionOut {
		ep.qh.setZeroLengthTerminationDisabled(false)
		ep.qh.setInterruptOnSetup(true)
	}

	return ep, true
}

// Endpoint returns the endpoint at addr, or nil if unallocated.
func (d *Driver) Endpoint(addr EndpointAddress) *Endpoint {
	return d.allocator.Endpoint(addr)
}

// OnConfigured enables every non-zero endpoint and primes every OUT
// endpoint with a fresh max-packet receive. Must be called exactly once per
// enumeration.
func (d *Driver) OnConfigured() {
	d.allocator.NonzeroEndpoints(func(ep *Endpoint) {
		ep.Enable()
	})

	d.allocator.NonzeroEndpoints(func(ep *Endpoint) {
		if ep.address.Direction == DirectionOut {
			ep.ScheduleTransfer(int(ep.maxPacketLen()))
		}
	})
}

func ep0(dir Direction) EndpointAddress {
	return EndpointAddress{Index: 0, Direction: dir}
}

// ControlRead implements §4.4.1's EP0 control-read algorithm.
func (d *Driver) ControlRead(buf []byte) (int, error) {
	out := d.allocator.Endpoint(ep0(DirectionOut))

	if out.HasSetup() && len(buf) >= 8 {
		setup := out.ReadSetup()
		putSetup(buf, setup)

		if !out.IsPrimed() {
			out.ClearNack()
			out.ScheduleTransfer(int(out.maxPacketLen()))
		}

		return 8, nil
	}

	if err := out.CheckErrors(); err != nil {
		return 0, err
	}

	if out.IsPrimed() {
		return 0, ErrWouldBlock
	}

	out.ClearComplete()
	out.ClearNack()

	n := out.Read(buf)
	out.ScheduleTransfer(int(out.maxPacketLen()))

	return n, nil
}

// ControlWrite implements §4.4.2's EP0 control-write algorithm, including
// scheduling the zero-length OUT status phase.
func (d *Driver) ControlWrite(buf []byte) (int, error) {
	in := d.allocator.Endpoint(ep0(DirectionIn))

	if err := in.CheckErrors(); err != nil {
		return 0, err
	}

	if in.IsPrimed() {
		return 0, ErrWouldBlock
	}

	in.ClearNack()

	n := in.Write(buf)
	in.ScheduleTransfer(n)

	out := d.allocator.Endpoint(ep0(DirectionOut))

	if !out.IsPrimed() {
		out.ClearComplete()
		out.ClearNack()
		out.ScheduleTransfer(0)
	}

	return n, nil
}

// EndpointRead implements §4.4.3's non-zero endpoint read algorithm.
func (d *Driver) EndpointRead(addr EndpointAddress, buf []byte) (int, error) {
	ep := d.allocator.Endpoint(addr)
	if ep == nil {
		return 0, ErrInvalidEndpoint
	}

	if err := ep.CheckErrors(); err != nil {
		return 0, err
	}

	bit := uint16(1) << addr.Index

	if ep.IsPrimed() || d.epOutMask&bit == 0 {
		return 0, ErrWouldBlock
	}

	ep.ClearComplete()
	ep.ClearNack()

	n := ep.Read(buf)
	ep.ScheduleTransfer(int(ep.maxPacketLen()))

	return n, nil
}

// EndpointWrite implements §4.4.4's non-zero endpoint write algorithm.
func (d *Driver) EndpointWrite(addr EndpointAddress, buf []byte) (int, error) {
	ep := d.allocator.Endpoint(addr)
	if ep == nil {
		return 0, ErrInvalidEndpoint
	}

	if err := ep.CheckErrors(); err != nil {
		return 0, err
	}

	if ep.IsPrimed() {
		return 0, ErrWouldBlock
	}

	ep.ClearNack()

	n := ep.Write(buf)
	ep.ScheduleTransfer(n)

	return n, nil
}

// SetStalled sets or clears an endpoint's stall bit. Unallocated addresses
// are silent no-ops (defensive, per the error handling design). When
// unstalling an OUT endpoint with no primed transfer, a fresh max-packet
// receive is scheduled (§4.4.5).
func (d *Driver) SetStalled(addr EndpointAddress, stalled bool) {
	ep := d.allocator.Endpoint(addr)
	if ep == nil {
		return
	}

	ep.SetStalled(stalled)

	if !stalled && addr.Direction == DirectionOut && !ep.IsPrimed() {
		ep.ScheduleTransfer(int(ep.maxPacketLen()))
	}
}

// IsStalled reports an endpoint's stall bit; unallocated addresses report
// false.
func (d *Driver) IsStalled(addr EndpointAddress) bool {
	ep := d.allocator.Endpoint(addr)
	if ep == nil {
		return false
	}

	return ep.IsStalled()
}

// PollEvent is the decoded result of a Poll call.
type PollEvent int

const (
	PollNone PollEvent = iota
	PollReset
	PollData
)

// PollResult is what Poll returns: an event kind, and for PollData, the
// per-endpoint activity bitmasks.
type PollResult struct {
	Event        PollEvent
	EPOut        uint16
	EPInComplete uint16
	EPSetup      uint16
}

// Poll reads USBSTS and decodes it in priority order: reset, then transfer
// activity, then idle. See §4.4.6.
func (d *Driver) Poll() PollResult {
	status := reg.Read(d.regs.usbsts)

	if status&(1<<bitSTS_URI) != 0 {
		// USBSTS is write-1-to-clear and shared by URI, UI, TI0, TI1, and
		// more; a read-modify-write ack here would also clear whatever
		// else happened to be pending at the read. Write the exact bit
		// instead.
		reg.Write(d.regs.usbsts, 1<<bitSTS_URI)
		return PollResult{Event: PollReset}
	}

	if status&(1<<bitSTS_UI) != 0 {
		reg.Write(d.regs.usbsts, 1<<bitSTS_UI)

		complete := reg.Read(d.regs.endptcomplete)

		epOut := uint16(complete >> posERxx)
		epInComplete := uint16(complete >> posETxx)

		// ENDPTCOMPLETE.ERCE bits are left set in hardware until an
		// endpoint's ClearComplete runs (inside EndpointRead), so a
		// direct assignment here naturally reflects "still pending"
		// vs. "already consumed" without any extra bookkeeping.
		d.epOutMask = epOut

		// Acknowledge only the IN-complete bits we observed; OUT
		// completion stays latched in epOutMask until Read consumes
		// it, and is acked there via Endpoint.ClearComplete.
		reg.Write(d.regs.endptcomplete, uint32(epInComplete)<<posETxx)

		setup := uint16(reg.Read(d.regs.endptsetupstat))

		return PollResult{
			Event:        PollData,
			EPOut:        epOut,
			EPInComplete: epInComplete,
			EPSetup:      setup,
		}
	}

	return PollResult{Event: PollNone}
}

func putSetup(buf []byte, setup uint64) {
	for i := 0; i < 8 && i < len(buf); i++ {
		buf[i] = byte(setup >> (8 * i))
	}
}
