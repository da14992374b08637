package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointMemoryAllocatorTakenOnce(t *testing.T) {
	mem := NewEndpointMemory(make([]byte, 256))

	a1 := mem.Allocator()
	require.NotNil(t, a1)

	a2 := mem.Allocator()
	assert.Nil(t, a2)
}

func TestBufferAllocatorAllocateEntireBuffer(t *testing.T) {
	mem := NewEndpointMemory(make([]byte, 128))
	alloc := mem.Allocator()
	require.NotNil(t, alloc)

	buf, ok := alloc.Allocate(128)
	require.True(t, ok)
	assert.Equal(t, 128, buf.Len())

	_, ok = alloc.Allocate(1)
	assert.False(t, ok)
}

func TestBufferAllocatorAllocatePartialBuffersLIFO(t *testing.T) {
	mem := NewEndpointMemory(make([]byte, 128))
	alloc := mem.Allocator()
	require.NotNil(t, alloc)

	first, ok := alloc.Allocate(64)
	require.True(t, ok)

	second, ok := alloc.Allocate(32)
	require.True(t, ok)

	// LIFO from the top: the second allocation's address is strictly
	// below the first's.
	assert.Less(t, second.ptr, first.ptr)

	third, ok := alloc.Allocate(32)
	require.True(t, ok)
	assert.Less(t, third.ptr, second.ptr)

	_, ok = alloc.Allocate(1)
	assert.False(t, ok)
}

func TestBufferAllocatorAllocateEmpty(t *testing.T) {
	mem := NewEndpointMemory(make([]byte, 16))
	alloc := mem.Allocator()
	require.NotNil(t, alloc)

	buf, ok := alloc.Allocate(0)
	require.True(t, ok)
	assert.Equal(t, 0, buf.Len())
}

func TestBufferVolatileReadWrite(t *testing.T) {
	mem := NewEndpointMemory(make([]byte, 64))
	alloc := mem.Allocator()
	buf, ok := alloc.Allocate(16)
	require.True(t, ok)

	src := []byte("0123456789abcdef")
	n := buf.VolatileWrite(src)
	assert.Equal(t, 16, n)

	dst := make([]byte, 16)
	n = buf.VolatileRead(dst)
	assert.Equal(t, 16, n)
	assert.Equal(t, src, dst)
}

func TestBufferVolatileWriteBoundedByLength(t *testing.T) {
	mem := NewEndpointMemory(make([]byte, 64))
	alloc := mem.Allocator()
	buf, ok := alloc.Allocate(4)
	require.True(t, ok)

	n := buf.VolatileWrite([]byte("abcdefgh"))
	assert.Equal(t, 4, n)
}
