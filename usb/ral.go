// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

// Register offsets relative to the USB core register block base address,
// and PHY register offsets relative to the USBPHY block base address.
// Bit-exact with the i.MX RT / i.MX6ULL EHCI-derived USB core register map.
const (
	regUSBCMD  = 0x140
	regUSBSTS  = 0x144
	regUSBINTR = 0x148
	regDEVICEADDR    = 0x154
	regENDPTLISTADDR = 0x158
	regPORTSC1       = 0x184
	regUSBMODE       = 0x1a8
	regENDPTSETUPSTAT = 0x1ac
	regENDPTPRIME     = 0x1b0
	regENDPTFLUSH     = 0x1b4
	regENDPTSTAT      = 0x1b8
	regENDPTCOMPLETE  = 0x1bc
	regENDPTCTRL0     = 0x1c0
	regENDPTNAK       = 0x178
	regENDPTNAKEN     = 0x17c

	regGPTIMER0CTRL = 0x340
	regGPTIMER0LD   = 0x344
	regGPTIMER1CTRL = 0x348
	regGPTIMER1LD   = 0x34c
)

// USBCMD bits
const (
	bitUSBCMD_RS   = 0
	bitUSBCMD_RST  = 1
	bitUSBCMD_SUTW = 13
	posUSBCMD_ITC  = 16
	maskUSBCMD_ITC = 0xff
)

// USBSTS / USBINTR bits (shared bit layout)
const (
	bitSTS_UI  = 0
	bitSTS_UEI = 1
	bitSTS_PCI = 2
	bitSTS_URI = 6
	bitSTS_TI0 = 24
	bitSTS_TI1 = 25
)

// USBMODE bits
const (
	posUSBMODE_CM   = 0
	maskUSBMODE_CM  = 0b11
	cmDevice        = 0b10
	bitUSBMODE_SLOM = 3
)

// DEVICEADDR bits
const (
	posDEVICEADDR_USBADR = 25
	maskDEVICEADDR_USBADR = 0x7f
	bitDEVICEADDR_USBADRA = 24
)

// PORTSC1 bits
const (
	bitPORTSC_PR   = 8
	bitPORTSC_PFSC = 24
)

// ENDPTPRIME / ENDPTFLUSH / ENDPTSTAT / ENDPTCOMPLETE / ENDPTNAK* share a
// "bit i = OUT endpoint i, bit 16+i = IN endpoint i" layout.
const (
	posERxx = 0  // ERBR/ERCE/FERB/PERB/EPRN base: OUT endpoints
	posETxx = 16 // ETBR/ETCE/FETB/PETB/EPTN base: IN endpoints
)

// USBPHY register offsets (relative to the PHY base address)
const (
	regUSBPHY_PWD  = 0x00
	regUSBPHY_CTRL = 0x30
)

const (
	bitUSBPHY_CTRL_SFTRST      = 31
	bitUSBPHY_CTRL_CLKGATE     = 30
	bitUSBPHY_CTRL_ENUTMILEVEL3 = 15
	bitUSBPHY_CTRL_ENUTMILEVEL2 = 14
)

// ENDPTCTRL0..7 bits
const (
	bitENDPTCTRL_TXE = 23
	bitENDPTCTRL_TXR = 22
	posENDPTCTRL_TXT = 18
	bitENDPTCTRL_TXS = 16
	bitENDPTCTRL_RXE = 7
	bitENDPTCTRL_RXR = 6
	posENDPTCTRL_RXT = 2
	bitENDPTCTRL_RXS = 0
)

// endpointControlType values for ENDPTCTRL{TXT,RXT}.
const (
	epTypeControl   = 0
	epTypeIso       = 1
	epTypeBulk      = 2
	epTypeInterrupt = 3
)

// registers holds the absolute addresses of every register this driver
// touches, computed once at Driver construction the way the teacher's
// USB.Init precomputes hw.cmd, hw.sts, and friends from hw.Base.
type registers struct {
	usbcmd         uint32
	usbsts         uint32
	usbintr        uint32
	deviceaddr     uint32
	endptlistaddr  uint32
	portsc1        uint32
	usbmode        uint32
	endptsetupstat uint32
	endptprime     uint32
	endptflush     uint32
	endptstat      uint32
	endptcomplete  uint32
	endptctrl0     uint32
	endptnak       uint32
	endptnaken     uint32
	gptimer0ctrl   uint32
	gptimer0ld     uint32
	gptimer1ctrl   uint32
	gptimer1ld     uint32

	phyCtrl uint32
	phyPwd  uint32
}

func newRegisters(base, phyBase uint32) registers {
	return registers{
		usbcmd:         base + regUSBCMD,
		usbsts:         base + regUSBSTS,
		usbintr:        base + regUSBINTR,
		deviceaddr:     base + regDEVICEADDR,
		endptlistaddr:  base + regENDPTLISTADDR,
		portsc1:        base + regPORTSC1,
		usbmode:        base + regUSBMODE,
		endptsetupstat: base + regENDPTSETUPSTAT,
		endptprime:     base + regENDPTPRIME,
		endptflush:     base + regENDPTFLUSH,
		endptstat:      base + regENDPTSTAT,
		endptcomplete:  base + regENDPTCOMPLETE,
		endptctrl0:     base + regENDPTCTRL0,
		endptnak:       base + regENDPTNAK,
		endptnaken:     base + regENDPTNAKEN,
		gptimer0ctrl:   base + regGPTIMER0CTRL,
		gptimer0ld:     base + regGPTIMER0LD,
		gptimer1ctrl:   base + regGPTIMER1CTRL,
		gptimer1ld:     base + regGPTIMER1LD,
		phyCtrl:        phyBase + regUSBPHY_CTRL,
		phyPwd:         phyBase + regUSBPHY_PWD,
	}
}

// endptctrl returns the address of ENDPTCTRL<index>, index in 0..=7. Each
// register is 4 bytes wide and they are laid out consecutively starting at
// ENDPTCTRL0, matching the i.MX RT register map.
func (r registers) endptctrl(index int) uint32 {
	if index < 0 || index > 7 {
		panic("usb: invalid ENDPTCTRL index")
	}

	return r.endptctrl0 + uint32(index)*4
}
