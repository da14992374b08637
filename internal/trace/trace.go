// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package trace provides an optional, development-only trace point for
// conditions this driver expects but cannot economically verify on every
// call (e.g. a register bit that should still be set given the caller
// followed the documented sequencing). It mirrors the source's defmt-gated
// log.rs: silent by default, and never a substitute for returning a proper
// error from the stable interface.
package trace

import "log"

// Enabled turns Debugf from a no-op into a log.Printf call. Off by default;
// firmware that wants this driver's internal consistency checks surfaced
// sets it once at startup.
var Enabled bool

// Debugf reports a development-time inconsistency. It never panics and
// never affects control flow; callers that need to fail must return an
// error instead.
func Debugf(format string, args ...any) {
	if !Enabled {
		return
	}

	log.Printf("usb: "+format, args...)
}
