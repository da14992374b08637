// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package critical implements the "mutex = disable interrupts" model this
// driver's Bus relies on: on a cooperative, single-core, single-interrupt-
// line target, the only thing that can race a Bus method is the USB
// controller's own interrupt handler, and the cheapest way to exclude it is
// to disable interrupts for the duration of the call rather than spin on a
// lock (which would deadlock an ISR against the main loop).
package critical

// defined in critical_arm.s
func disableIRQ() uint32
func enableIRQ(prior uint32)

// Section models one critical-section-protected value. When noop is true
// (the Bus was built WithoutCriticalSections), Enter does nothing and
// trusts the caller to guarantee single-context access itself.
type Section struct {
	noop bool
}

// New constructs a Section. If noop is true, Enter and the function it
// returns become no-ops.
func New(noop bool) *Section {
	return &Section{noop: noop}
}

// Enter disables interrupts (unless this is a no-op section) and returns a
// function that restores the prior interrupt state. Call sites should
// always `defer sec.Enter()()`.
func (s *Section) Enter() func() {
	if s.noop {
		return func() {}
	}

	prior := disableIRQ()

	return func() {
		enableIRQ(prior)
	}
}
