// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !arm

package cache

// Off-target builds (unit tests running on the host architecture) have no
// Cortex-M7 cache to maintain; addresses in these tests are plain Go memory
// observed directly by the same goroutine, so cache maintenance is a no-op.

func dccimvac(addr uint32) {}
func dsb()                 {}
func isb()                 {}
