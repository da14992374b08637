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

	"github.com/usbarmory/imxrt-usbd/internal/cache"
)

// EndpointMemory wraps a caller-provided, process-lifetime byte slice that
// backs every endpoint's data buffer. It is handed to exactly one allocator:
// Allocator swaps an atomic flag and returns nil on the second attempt, the
// same "take it once" discipline EndpointState uses for QH/TD/slot memory.
//
// Go has no const-generic array size, so unlike the source's
// EndpointMemory<const SIZE: usize>, this wraps a runtime-sized slice that
// the caller owns and sizes: a //go:align-backed static array at the call
// site, or any other process-lifetime allocation.
type EndpointMemory struct {
	buffer []byte
	taken  atomic.Bool
}

// NewEndpointMemory wraps buf for one-time allocation. buf must outlive the
// driver; it is never freed.
func NewEndpointMemory(buf []byte) *EndpointMemory {
	return &EndpointMemory{buffer: buf}
}

// Allocator hands out the bump allocator over this memory's backing slice.
// Only the first call returns a non-nil allocator; every subsequent call
// returns nil, mirroring the Rust crate's Option<Allocator> return rather
// than panicking. EndpointState.Allocator likewise reports failure instead
// of panicking; NewDriver is what panics when either has already been
// claimed.
func (m *EndpointMemory) Allocator() *BufferAllocator {
	if m.taken.Swap(true) {
		return nil
	}

	base := uint32(uintptr(unsafe.Pointer(&m.buffer[0])))

	return &BufferAllocator{
		start: base,
		ptr:   base + uint32(len(m.buffer)),
	}
}

// BufferAllocator is a LIFO bump allocator: each Allocate call carves a
// region off the top (highest address) of the remaining space and moves the
// top pointer down. It never frees. It is safe to hand to a single Driver;
// it is never used concurrently because construction happens before the bus
// (and therefore before any interrupt that could race it) exists.
type BufferAllocator struct {
	start uint32
	ptr   uint32
}

// Allocate carves size bytes off the top of the remaining region. It
// returns false, leaving the allocator unchanged, if the request would
// underflow the backing slice's start address.
func (a *BufferAllocator) Allocate(size int) (Buffer, bool) {
	if uint32(size) > a.ptr-a.start {
		return Buffer{}, false
	}

	a.ptr -= uint32(size)

	return Buffer{ptr: a.ptr, length: size}, true
}

// Buffer is one endpoint's exclusively-owned data buffer: a pointer into the
// EndpointMemory pool and a length. All access is volatile (it's read and
// written by controller DMA) and cache-maintained around DMA publication.
type Buffer struct {
	ptr    uint32
	length int
}

// Len returns the buffer's capacity in bytes.
func (b Buffer) Len() int {
	return b.length
}

func (b Buffer) bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(b.ptr))), b.length)
}

// VolatileRead copies up to min(b.Len(), len(dst)) bytes into dst and
// returns the count copied.
func (b Buffer) VolatileRead(dst []byte) int {
	n := copy(dst, b.bytes())
	return n
}

// VolatileWrite copies up to min(b.Len(), len(src)) bytes from src into the
// buffer and returns the count copied. The caller is responsible for
// calling CleanInvalidate afterwards before the controller is told about
// the transfer (Endpoint.Write does this for endpoint writes).
func (b Buffer) VolatileWrite(src []byte) int {
	n := copy(b.bytes(), src)
	return n
}

// CleanInvalidate performs cache maintenance over the first n bytes of the
// buffer (or the whole buffer if n exceeds its length).
func (b Buffer) CleanInvalidate(n int) {
	if n > b.length {
		n = b.length
	}

	cache.CleanInvalidateRange(b.ptr, uint32(n))
}

func (b Buffer) addr() uint32 {
	return b.ptr
}
