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

// tdSize is the hardware-visible size of a transfer descriptor.
const tdSize = 32

// tdAlign is the required alignment of a transfer descriptor's address.
const tdAlign = 32

// tdPageSize bounds each of the five buffer pointers to a 4 KiB page.
const tdPageSize = 4096

// tdMaxTransfer is the largest transfer a single TD can describe: five
// pointers each covering up to one page.
const tdMaxTransfer = 5 * tdPageSize

// Token status bits.
const (
	tdStatusActive           = 1 << 7
	tdStatusHalted           = 1 << 6
	tdStatusDataBusError     = 1 << 5
	tdStatusTransactionError = 1 << 3

	tdTokenIOCBit         = 15
	tdTokenTotalBytesPos  = 16
	tdTokenTotalBytesMask = 0x7fff
)

// td is a single packet's transfer descriptor. Exactly one is ever in use
// per endpoint-direction; software recycles it for each new packet rather
// than allocating a new one.
type td struct {
	next    vcell.Cell[uint32]
	token   vcell.Cell[uint32]
	buffers [5]vcell.Cell[uint32]

	// lastTransferSize is software-only bookkeeping, never touched by the
	// controller, so unlike the fields above it needs no volatile access:
	// it exists purely so bytesTransferred can diff against the token's
	// live total-bytes field after completion.
	lastTransferSize uint32
}

func (t *td) addr() uint32 {
	return uint32(uintptr(unsafe.Pointer(t)))
}

func (t *td) status() uint32 {
	return t.token.Read() & 0xff
}

func (t *td) clearStatus() {
	tok := t.token.Read()
	t.token.Write(tok &^ 0xff)
}

func (t *td) setTerminate() {
	t.next.Write(1)
}

func (t *td) setNext(ptr uint32) {
	t.next.Write(ptr &^ 0x1f)
}

func (t *td) setActive() {
	tok := t.token.Read()
	t.token.Write(tok | tdStatusActive)
}

func (t *td) setInterruptOnComplete(ioc bool) {
	tok := t.token.Read()

	if ioc {
		tok |= 1 << tdTokenIOCBit
	} else {
		tok &^= 1 << tdTokenIOCBit
	}

	t.token.Write(tok)
}

func (t *td) totalBytes() uint32 {
	return (t.token.Read() >> tdTokenTotalBytesPos) & tdTokenTotalBytesMask
}

func (t *td) setTotalBytes(n uint32) {
	tok := t.token.Read()
	tok = (tok &^ (tdTokenTotalBytesMask << tdTokenTotalBytesPos)) | ((n & tdTokenTotalBytesMask) << tdTokenTotalBytesPos)
	t.token.Write(tok)
}

// bytesTransferred is last_size - token.total_bytes: the controller
// decrements total_bytes as it moves data, so the difference between what
// software asked for and what's left is what actually moved.
func (t *td) bytesTransferred() uint32 {
	return t.lastTransferSize - t.totalBytes()
}

// setBuffer programs the TD to describe a transfer of size bytes starting
// at ptr, and remembers size so bytesTransferred can be computed later. Each
// successive buffer pointer is the previous one rounded up to the next 4 KiB
// page boundary, per the controller's scatter layout.
func (t *td) setBuffer(ptr uint32, size int) {
	t.setTotalBytes(uint32(size))
	t.lastTransferSize = uint32(size)

	p := ptr
	for i := range t.buffers {
		t.buffers[i].Write(p)
		p = (p + tdPageSize) &^ (tdPageSize - 1)
	}
}

func (t *td) cleanInvalidate() {
	cache.CleanInvalidateRange(t.addr(), tdSize)
}
