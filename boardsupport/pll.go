// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package boardsupport holds the clock and PLL bring-up the core driver
// deliberately does not perform itself (see usb.Peripherals): enabling
// PLL_USB is a board/SoC concern shared with other clients of the analog
// clock controller, not something a USB-only package should own.
package boardsupport

import "github.com/usbarmory/imxrt-usbd/internal/reg"

// CCM_ANALOG.PLL_USB1/PLL_USB2 bit positions.
const (
	bitPLL_USB_ENABLE      = 13
	bitPLL_USB_POWER       = 12
	bitPLL_USB_LOCK        = 31
	bitPLL_USB_BYPASS      = 16
	bitPLL_USB_EN_USB_CLKS = 6
)

// pllOffset1 and pllOffset2 are PLL_USB1 and PLL_USB2's offsets from the
// CCM_ANALOG base; the SET/CLR alias registers used below sit at fixed
// +0x4/+0x8 offsets from each, per the i.MX RT memory map.
const (
	pllOffset1 = 0x10
	pllOffset2 = 0x20
)

// EnableUSBPLL brings up PLL_USB for the given USB core instance (1 or 2):
// enables the PLL, powers it, waits for lock, clears bypass, then enables
// the USB clocks gated by it. ccmAnalog is the CCM_ANALOG register block's
// base address; usbInstance selects PLL_USB1 (1) or PLL_USB2 (2).
//
// This mirrors the sequence the historical driver ran once during board
// bring-up, before handing the core registers to the driver proper.
func EnableUSBPLL(ccmAnalog uint32, usbInstance int) error {
	var offset uint32

	switch usbInstance {
	case 1:
		offset = pllOffset1
	case 2:
		offset = pllOffset2
	default:
		return errInvalidInstance
	}

	base := ccmAnalog + offset
	set := base + 0x4
	clr := base + 0x8

	for {
		if reg.Get(base, bitPLL_USB_ENABLE, 1) == 0 {
			reg.Set(set, bitPLL_USB_ENABLE)
			continue
		}

		if reg.Get(base, bitPLL_USB_POWER, 1) == 0 {
			reg.Set(set, bitPLL_USB_POWER)
			continue
		}

		if reg.Get(base, bitPLL_USB_LOCK, 1) == 0 {
			continue
		}

		if reg.Get(base, bitPLL_USB_BYPASS, 1) == 1 {
			reg.Set(clr, bitPLL_USB_BYPASS)
			continue
		}

		if reg.Get(base, bitPLL_USB_EN_USB_CLKS, 1) == 0 {
			reg.Set(set, bitPLL_USB_EN_USB_CLKS)
			continue
		}

		return nil
	}
}
