// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package usb

import "errors"

// Errors returned by Bus and Driver operations. Every error here is
// surfaced to the caller unchanged; the driver never retries internally.
var (
	// ErrInvalidEndpoint is returned when an endpoint address refers to an
	// unallocated slot, or AllocEndpoint is asked to reuse a taken index.
	ErrInvalidEndpoint = errors.New("usb: invalid endpoint")

	// ErrEndpointMemoryOverflow is returned when the bump buffer allocator
	// cannot satisfy a requested endpoint buffer size.
	ErrEndpointMemoryOverflow = errors.New("usb: endpoint memory overflow")

	// ErrEndpointOverflow is returned when no free endpoint slot exists in
	// the requested direction.
	ErrEndpointOverflow = errors.New("usb: endpoint overflow")

	// ErrInvalidState is returned when a transfer descriptor's status
	// shows a bus error, transaction error, or halt. The caller must
	// stall or otherwise recover the endpoint.
	ErrInvalidState = errors.New("usb: invalid endpoint state")

	// ErrWouldBlock is returned when an endpoint is primed (Write) or has
	// no completed packet waiting (Read); retry after the next Poll.
	ErrWouldBlock = errors.New("usb: would block")
)
