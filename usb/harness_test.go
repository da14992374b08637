package usb

import (
	"runtime"
	"unsafe"

	"github.com/usbarmory/imxrt-usbd/internal/reg"
)

// newFakePeripherals backs a Peripherals with ordinary Go memory, standing in
// for the USB core and USBPHY register blocks on the host architecture. The
// backing slices are returned so callers can keep them reachable for the
// duration of the test.
func newFakePeripherals() (Peripherals, []byte, []byte) {
	core := make([]byte, 0x400)
	phy := make([]byte, 0x40)

	return Peripherals{
		Base: uint32(uintptr(unsafe.Pointer(&core[0]))),
		PHY:  uint32(uintptr(unsafe.Pointer(&phy[0]))),
	}, core, phy
}

// startFakeHardware simulates the controller behavior the fake register
// block cannot reproduce passively: clearing ENDPTPRIME and ENDPTFLUSH once
// a prime or flush request "completes", self-clearing USBCMD.RST, and
// giving the shared write-1-to-clear registers (USBSTS, ENDPTCOMPLETE,
// ENDPTNAK) real clear-on-write behavior via simulateW1C. Real code spins
// on ENDPTPRIME/ENDPTFLUSH/RST reading back zero, and depends on a W1C ack
// leaving unrelated pending bits alone; plain backing memory does neither
// on its own. Returns a stop function the caller must call before the
// backing memory goes out of scope.
func startFakeHardware(base uint32) func() {
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}

			if reg.Read(base+regENDPTPRIME) != 0 {
				reg.Write(base+regENDPTPRIME, 0)
			}
			if reg.Read(base+regENDPTFLUSH) != 0 {
				reg.Write(base+regENDPTFLUSH, 0)
			}
			if reg.Get(base+regUSBCMD, bitUSBCMD_RST, 1) == 1 {
				reg.Clear(base+regUSBCMD, bitUSBCMD_RST)
			}

			runtime.Gosched()
		}
	}()

	go simulateW1C(base, done)

	return func() { close(done) }
}

// w1cOffsets are the register offsets that pack multiple independent
// write-1-to-clear status bits into one word: USBSTS (URI, UI, TI0, TI1,
// SRI, SLI), ENDPTCOMPLETE and ENDPTNAK (8 OUT + 8 IN endpoints each).
var w1cOffsets = []uint32{regUSBSTS, regENDPTCOMPLETE, regENDPTNAK}

// simulateW1C gives the registers named in w1cOffsets real clear-on-write
// semantics against fake memory. A software write lands in plain RAM as a
// literal word, so without this a single-bit ack that happens to equal the
// register's current value is a silent no-op, and an ack alongside other
// pending bits wipes them instead of leaving them alone.
//
// It tracks the last value it published for each register and, whenever
// the raw word changes, classifies the change: if the new value carries
// any bit outside the tracked value, that's new hardware/test state being
// asserted (e.g. a test's reg.Set), and is adopted verbatim. Otherwise the
// new value is a subset of what's tracked, which is exactly the shape of a
// write-1-to-clear ack (production code's exact-bitmask reg.Write): those
// bits are cleared out of the tracked value and the result is republished.
func simulateW1C(base uint32, done <-chan struct{}) {
	last := make(map[uint32]uint32, len(w1cOffsets))
	for _, off := range w1cOffsets {
		last[off] = reg.Read(base + off)
	}

	for {
		select {
		case <-done:
			return
		default:
		}

		for _, off := range w1cOffsets {
			addr := base + off
			cur := reg.Read(addr)

			if cur == last[off] {
				continue
			}

			next := cur
			if cur&^last[off] == 0 {
				next = last[off] &^ cur
			}

			last[off] = next
			reg.Write(addr, next)
		}

		runtime.Gosched()
	}
}

func newTestEndpointMemory(size int) (Buffer, *BufferAllocator) {
	mem := NewEndpointMemory(make([]byte, size))
	alloc := mem.Allocator()

	buf, ok := alloc.Allocate(size)
	if !ok {
		panic("newTestEndpointMemory: allocate failed")
	}

	return buf, alloc
}
