// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cache provides data cache maintenance for memory regions shared
// with the USB controller's DMA engine.
//
// QH and TD descriptors, and the endpoint buffers they reference, live in
// ordinary DRAM backed by the Cortex-M7 data cache. The controller reads and
// writes that memory directly, bypassing the cache, so software must clean
// dirty lines before the controller can see them and invalidate stale lines
// before software re-reads controller-written state. This package is the
// only place in the driver that reasons about the cache; everywhere else,
// QH/TD access goes through internal/vcell and assumes coherency has already
// been arranged here.
package cache

// line is the Cortex-M7 data cache line size in bytes. Cache maintenance by
// address operates one line at a time; a range is rounded out to whole
// lines on both ends before the line loop runs.
const line = 32

// defined in cache_arm.s
func dccimvac(addr uint32)
func dsb()
func isb()

// CleanInvalidateRange cleans and invalidates the data cache lines covering
// [addr, addr+size). A clean pushes dirty lines out to DRAM so the
// controller's DMA reads see software's writes; the accompanying invalidate
// drops the now-stale cached copy so a subsequent software read is forced
// back to DRAM to observe what the controller wrote.
//
// Call this after publishing a TD or QH update and before priming, and again
// before reading back a TD's post-completion status.
func CleanInvalidateRange(addr uint32, size uint32) {
	if size == 0 {
		return
	}

	start := addr &^ (line - 1)
	end := (addr + size + line - 1) &^ (line - 1)

	dsb()

	for a := start; a < end; a += line {
		dccimvac(a)
	}

	dsb()
	isb()
}
