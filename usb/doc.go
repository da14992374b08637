// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package usb implements a device-mode driver for the EHCI-derived USB 2.0
// controller found in the i.MX RT family of Cortex-M7 microcontrollers.
//
// The driver exposes the controller as a Bus implementing the UsbBus
// contract expected by a generic USB device stack: endpoint allocation,
// device address assignment, bus reset handling, per-endpoint read/write,
// stall control, and a Poll loop that decodes raw controller status into
// reset and per-endpoint activity events.
//
// Three ideas run through the whole package:
//
//   - A static lattice of Queue Heads (Qh) and Transfer Descriptors (Td)
//     that the controller's DMA engine walks directly. Software never frees
//     a Qh or Td; it recycles the single TD belonging to each endpoint for
//     that endpoint's next packet; transfers are never chained across
//     several TDs.
//   - A "take it once" static allocator for endpoint memory and endpoint
//     slots, gated by an atomic flag rather than a mutex, so the same
//     process-lifetime arena can be handed to exactly one Driver.
//   - A critical section standing in for a mutex: this driver runs on a
//     single core with a single interrupt line, so "acquire the bus" means
//     "disable that interrupt for the duration of the call," not "block on
//     a lock."
package usb
