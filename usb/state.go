// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"sync/atomic"
	"unsafe"
)

// MaxEndpoints is the hardware's fixed endpoint slot capacity: 8 indices,
// each with an OUT and an IN direction.
const MaxEndpoints = 16

// Direction is an endpoint's transfer direction, from the device's point of
// view.
type Direction int

const (
	DirectionOut Direction = iota
	DirectionIn
)

// EndpointKind is the USB transfer type an endpoint was allocated for. Only
// Control, Bulk, and Interrupt are supported; there is no isochronous kind.
type EndpointKind int

const (
	KindControl EndpointKind = iota
	KindBulk
	KindInterrupt
)

// EndpointAddress identifies one endpoint-direction pair.
type EndpointAddress struct {
	Index     uint8
	Direction Direction
}

// NewEndpointAddress validates and constructs an EndpointAddress. index must
// be in 0..=7.
func NewEndpointAddress(index uint8, dir Direction) EndpointAddress {
	if index > 7 {
		panic("usb: endpoint index out of range")
	}

	return EndpointAddress{Index: index, Direction: dir}
}

// linearIndex is 2*index + (direction==In ? 1 : 0), the table index used by
// both the QH/TD arena and the allocation bitmask.
func (a EndpointAddress) linearIndex() int {
	n := 2 * int(a.Index)

	if a.Direction == DirectionIn {
		n++
	}

	return n
}

func linearIndexAddress(idx int) EndpointAddress {
	dir := DirectionOut
	if idx%2 == 1 {
		dir = DirectionIn
	}

	return EndpointAddress{Index: uint8(idx / 2), Direction: dir}
}

// allocatorTakenBit marks, within EndpointState's allocation mask, that an
// EndpointAllocator has already been handed out. It shares the mask word
// with the 16 per-slot allocation bits (bits 0..15) rather than using a
// separate flag, exactly as the source does.
const allocatorTakenBit = uint32(1) << 31

// EndpointState owns the 16 queue heads, 16 transfer descriptors, and 16
// endpoint slots backing this driver, plus the atomic mask gating access to
// all of them. It is meant to be a single process-lifetime static value;
// Allocator() may be claimed by exactly one Bus.
type EndpointState struct {
	qhArena [MaxEndpoints*qhSize + qhAlign]byte
	tdArena [MaxEndpoints*tdSize + tdAlign]byte

	endpoints [MaxEndpoints]Endpoint

	allocMask atomic.Uint32
}

// NewEndpointState constructs a fresh, unclaimed endpoint state arena.
func NewEndpointState() *EndpointState {
	return &EndpointState{}
}

func fetchOrUint32(v *atomic.Uint32, mask uint32) uint32 {
	for {
		old := v.Load()

		if v.CompareAndSwap(old, old|mask) {
			return old
		}
	}
}

func alignUp(addr, align uint32) uint32 {
	return (addr + align - 1) &^ (align - 1)
}

func (s *EndpointState) qhBase() uint32 {
	raw := uint32(uintptr(unsafe.Pointer(&s.qhArena[0])))
	return alignUp(raw, qhAlign)
}

func (s *EndpointState) tdBase() uint32 {
	raw := uint32(uintptr(unsafe.Pointer(&s.tdArena[0])))
	return alignUp(raw, tdAlign)
}

func (s *EndpointState) qhAt(idx int) *qh {
	return (*qh)(unsafe.Pointer(uintptr(s.qhBase() + uint32(idx)*qhSize)))
}

func (s *EndpointState) tdAt(idx int) *td {
	return (*td)(unsafe.Pointer(uintptr(s.tdBase() + uint32(idx)*tdSize)))
}

// Allocator claims this state for one Bus. Only the first caller succeeds;
// every later call returns (nil, false), preventing two Bus instances from
// sharing the same QH/TD/slot arena.
func (s *EndpointState) Allocator() (*EndpointAllocator, bool) {
	old := fetchOrUint32(&s.allocMask, allocatorTakenBit)

	if old&allocatorTakenBit != 0 {
		return nil, false
	}

	return &EndpointAllocator{state: s}, true
}

// EndpointAllocator lends out endpoint slots from the state it was claimed
// from. Exactly one mutable reference to each slot exists at a time; the
// atomic bit in EndpointState.allocMask is the sole gate enforcing that.
type EndpointAllocator struct {
	state *EndpointState
}

// QhListAddr is the QH table's base address, to be programmed into the
// controller's ASYNCLISTADDR.
func (a *EndpointAllocator) QhListAddr() uint32 {
	return a.state.qhBase()
}

// AllocateEndpoint constructs the endpoint at addr in place and marks its
// slot bit. It returns (nil, false) if the slot was already allocated.
func (a *EndpointAllocator) AllocateEndpoint(addr EndpointAddress, buf Buffer, kind EndpointKind, regs registers) (*Endpoint, bool) {
	idx := addr.linearIndex()
	bit := uint32(1) << uint(idx)

	old := fetchOrUint32(&a.state.allocMask, bit)
	if old&bit != 0 {
		return nil, false
	}

	ep := &a.state.endpoints[idx]
	*ep = Endpoint{
		address: addr,
		kind:    kind,
		qh:      a.state.qhAt(idx),
		td:      a.state.tdAt(idx),
		buffer:  buf,
		regs:    regs,
	}

	return ep, true
}

// Endpoint returns the endpoint at addr, or nil if its slot is unallocated.
func (a *EndpointAllocator) Endpoint(addr EndpointAddress) *Endpoint {
	idx := addr.linearIndex()
	bit := uint32(1) << uint(idx)

	if a.state.allocMask.Load()&bit == 0 {
		return nil
	}

	return &a.state.endpoints[idx]
}

// NonzeroEndpoints calls f for every allocated endpoint with index > 0 (all
// endpoints except EP0-Out and EP0-In), in linear index order.
func (a *EndpointAllocator) NonzeroEndpoints(f func(*Endpoint)) {
	mask := a.state.allocMask.Load()

	for idx := 2; idx < MaxEndpoints; idx++ {
		if mask&(uint32(1)<<uint(idx)) != 0 {
			f(&a.state.endpoints[idx])
		}
	}
}
