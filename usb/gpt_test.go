package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/usbarmory/imxrt-usbd/internal/reg"
)

func TestGPTRunStopReset(t *testing.T) {
	p, _, _ := newFakePeripherals()
	regs := newRegisters(p.Base, p.Base)
	g := newGPT(regs, GPT0)

	assert.False(t, g.IsRunning())

	g.Run()
	assert.True(t, g.IsRunning())

	g.Stop()
	assert.False(t, g.IsRunning())

	g.Reset()
	assert.Equal(t, uint32(1), reg.Get(g.ctrl, bitGPTCTRL_RST, 1))
}

func TestGPTSetLoadClampsAndStoresOffByOne(t *testing.T) {
	p, _, _ := newFakePeripherals()
	regs := newRegisters(p.Base, p.Base)
	g := newGPT(regs, GPT0)

	g.SetLoad(1000)
	assert.Equal(t, uint32(1000), g.Load())

	g.SetLoad(0)
	assert.Equal(t, uint32(1), g.Load())

	g.SetLoad(gptLoadMax + 1000)
	assert.Equal(t, uint32(gptLoadMax), g.Load())
}

func TestGPTModeDefaultsToOneShot(t *testing.T) {
	p, _, _ := newFakePeripherals()
	regs := newRegisters(p.Base, p.Base)
	g := newGPT(regs, GPT0)

	assert.Equal(t, GPTOneShot, g.Mode())

	g.SetMode(GPTRepeat)
	assert.Equal(t, GPTRepeat, g.Mode())

	g.SetMode(GPTOneShot)
	assert.Equal(t, GPTOneShot, g.Mode())
}

func TestGPTElapsedLatch(t *testing.T) {
	p, _, _ := newFakePeripherals()
	regs := newRegisters(p.Base, p.Base)
	g := newGPT(regs, GPT1)

	assert.False(t, g.IsElapsed())

	g.ClearElapsed()
	assert.True(t, g.IsElapsed())
}

func TestGPTInterruptEnable(t *testing.T) {
	p, _, _ := newFakePeripherals()
	regs := newRegisters(p.Base, p.Base)
	g := newGPT(regs, GPT0)

	assert.False(t, g.IsInterruptEnabled())

	g.SetInterruptEnabled(true)
	assert.True(t, g.IsInterruptEnabled())

	g.SetInterruptEnabled(false)
	assert.False(t, g.IsInterruptEnabled())
}

func TestGPT0AndGPT1AreDistinctRegisters(t *testing.T) {
	p, _, _ := newFakePeripherals()
	regs := newRegisters(p.Base, p.Base)

	g0 := newGPT(regs, GPT0)
	g1 := newGPT(regs, GPT1)

	g0.Run()
	assert.True(t, g0.IsRunning())
	assert.False(t, g1.IsRunning())
}
