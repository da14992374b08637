// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import (
	"unsafe"

	"github.com/usbarmory/imxrt-usbd/internal/cache"
	"github.com/usbarmory/imxrt-usbd/internal/vcell"
)

// qhSize is the hardware-visible size of a queue head. The struct below is
// smaller than this; EndpointState's qhArena gives each slot qhSize bytes so
// that 16 consecutive queue heads land on 64-byte boundaries with room to
// spare, matching the controller's fixed per-slot stride.
const qhSize = 64

// qhAlign is required by ASYNCLISTADDR: the queue head table's base address
// must be 4096-byte (page) aligned, and qhSize-aligned per entry.
const qhAlign = 4096

// Capabilities field bit layout.
const (
	qhCapZLT           = 29
	qhCapMaxPacketPos  = 16
	qhCapMaxPacketMask = 0x7ff
	qhCapIOS           = 15

	maxPacketLenLimit = 1024
)

// qh is the per-endpoint-direction queue head the controller reads via DMA
// to discover configuration and the in-flight transfer. Every field the
// controller can read or write goes through vcell.Cell; this struct must
// never be copied by value once in use (only addressed through a pointer
// into the aligned qhArena backing array).
type qh struct {
	capabilities vcell.Cell[uint32]
	currentTD    vcell.Cell[uint32]
	overlay      td
	setup        vcell.Cell[uint64]
}

func (q *qh) addr() uint32 {
	return uint32(uintptr(unsafe.Pointer(q)))
}

// setMaxPacketLen clamps to the hardware limit of 1024 bytes.
func (q *qh) setMaxPacketLen(n uint16) {
	if n > maxPacketLenLimit {
		n = maxPacketLenLimit
	}

	c := q.capabilities.Read()
	c = (c &^ (qhCapMaxPacketMask << qhCapMaxPacketPos)) | (uint32(n) << qhCapMaxPacketPos)
	q.capabilities.Write(c)
}

func (q *qh) maxPacketLen() uint16 {
	c := q.capabilities.Read()
	return uint16((c >> qhCapMaxPacketPos) & qhCapMaxPacketMask)
}

// setZeroLengthTerminationDisabled sets or clears the capabilities bit that
// tells hardware NOT to emit a zero-length packet when a transfer's size is
// an exact multiple of the max packet length. The bit's sense is inverted
// from "ZLT enabled": EnableZLT (see endpoint.go) clears this bit.
func (q *qh) setZeroLengthTerminationDisabled(disabled bool) {
	c := q.capabilities.Read()

	if disabled {
		c |= 1 << qhCapZLT
	} else {
		c &^= 1 << qhCapZLT
	}

	q.capabilities.Write(c)
}

// setInterruptOnSetup controls whether the controller raises USBSTS.UI when
// this endpoint (control OUT only, in practice) receives a setup packet.
func (q *qh) setInterruptOnSetup(ios bool) {
	c := q.capabilities.Read()

	if ios {
		c |= 1 << qhCapIOS
	} else {
		c &^= 1 << qhCapIOS
	}

	q.capabilities.Write(c)
}

// setup8 returns the 8-byte setup buffer latched by the controller.
func (q *qh) setup8() uint64 {
	return q.setup.Read()
}

// cleanInvalidate pushes software's writes out to DRAM and drops any stale
// cached copy of controller-written fields (current_td_pointer, overlay).
func (q *qh) cleanInvalidate() {
	cache.CleanInvalidateRange(q.addr(), qhSize)
}
