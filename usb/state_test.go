package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointAddressLinearIndex(t *testing.T) {
	assert.Equal(t, 0, NewEndpointAddress(0, DirectionOut).linearIndex())
	assert.Equal(t, 1, NewEndpointAddress(0, DirectionIn).linearIndex())
	assert.Equal(t, 2, NewEndpointAddress(1, DirectionOut).linearIndex())
	assert.Equal(t, 15, NewEndpointAddress(7, DirectionIn).linearIndex())
}

func TestEndpointAddressIndexOutOfRangePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewEndpointAddress(8, DirectionOut)
	})
}

func TestEndpointStateAllocatorAcquireOnce(t *testing.T) {
	state := NewEndpointState()

	a1, ok := state.Allocator()
	require.True(t, ok)
	require.NotNil(t, a1)

	for i := 0; i < 10; i++ {
		a, ok := state.Allocator()
		assert.False(t, ok)
		assert.Nil(t, a)
	}
}

func TestEndpointAllocatorAllocateEndpointRejectsDoubleAlloc(t *testing.T) {
	state := NewEndpointState()
	alloc, ok := state.Allocator()
	require.True(t, ok)

	regs := registers{}
	addr := NewEndpointAddress(1, DirectionOut)

	ep1, ok := alloc.AllocateEndpoint(addr, Buffer{}, KindBulk, regs)
	require.True(t, ok)
	require.NotNil(t, ep1)

	ep2, ok := alloc.AllocateEndpoint(addr, Buffer{}, KindBulk, regs)
	assert.False(t, ok)
	assert.Nil(t, ep2)

	// A distinct address still succeeds.
	other := NewEndpointAddress(1, DirectionIn)
	ep3, ok := alloc.AllocateEndpoint(other, Buffer{}, KindBulk, regs)
	assert.True(t, ok)
	assert.NotNil(t, ep3)
}

func TestEndpointAllocatorEndpointLookup(t *testing.T) {
	state := NewEndpointState()
	alloc, _ := state.Allocator()

	addr := NewEndpointAddress(2, DirectionOut)
	assert.Nil(t, alloc.Endpoint(addr))

	alloc.AllocateEndpoint(addr, Buffer{}, KindBulk, registers{})
	assert.NotNil(t, alloc.Endpoint(addr))
}

func TestEndpointAllocatorNonzeroEndpointsSkipsEP0(t *testing.T) {
	state := NewEndpointState()
	alloc, _ := state.Allocator()

	alloc.AllocateEndpoint(NewEndpointAddress(0, DirectionOut), Buffer{}, KindControl, registers{})
	alloc.AllocateEndpoint(NewEndpointAddress(0, DirectionIn), Buffer{}, KindControl, registers{})
	alloc.AllocateEndpoint(NewEndpointAddress(1, DirectionOut), Buffer{}, KindBulk, registers{})
	alloc.AllocateEndpoint(NewEndpointAddress(3, DirectionIn), Buffer{}, KindInterrupt, registers{})

	var seen []EndpointAddress
	alloc.NonzeroEndpoints(func(ep *Endpoint) {
		seen = append(seen, ep.Address())
	})

	require.Len(t, seen, 2)
	assert.Equal(t, uint8(1), seen[0].Index)
	assert.Equal(t, uint8(3), seen[1].Index)
}

func TestQhTdArenaAlignment(t *testing.T) {
	state := NewEndpointState()

	assert.Zero(t, state.qhBase()%qhAlign)
	assert.Zero(t, state.tdBase()%tdAlign)

	for i := 0; i < MaxEndpoints; i++ {
		assert.Zero(t, uint32(uintptrOfQh(state, i))%qhSize)
	}
}

func uintptrOfQh(s *EndpointState, idx int) uint32 {
	return s.qhAt(idx).addr()
}
