package usb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTdSetBufferPageRounding(t *testing.T) {
	var tr td

	tr.setBuffer(tdPageSize-16, 64)

	assert.Equal(t, uint32(tdPageSize-16), tr.buffers[0].Read())
	// Every pointer after the first rounds up to the next page boundary.
	for i := 1; i < 5; i++ {
		assert.Equal(t, uint32(tdPageSize*uint32(i)), tr.buffers[i].Read())
	}
}

func TestTdBytesTransferred(t *testing.T) {
	var tr td

	tr.setBuffer(0x1000, 64)
	require.Equal(t, uint32(64), tr.totalBytes())

	// Controller consumed 40 bytes, leaving 24 in total_bytes.
	tr.setTotalBytes(24)

	assert.Equal(t, uint32(40), tr.bytesTransferred())
}

func TestTdStatusBits(t *testing.T) {
	var tr td

	tr.setActive()
	assert.NotZero(t, tr.status()&tdStatusActive)

	tr.clearStatus()
	assert.Zero(t, tr.status())
}

func TestTdTerminateAndNext(t *testing.T) {
	var tr td

	tr.setTerminate()
	assert.Equal(t, uint32(1), tr.next.Read())

	tr.setNext(0x2000)
	assert.Equal(t, uint32(0x2000), tr.next.Read())
}

func TestTdInterruptOnComplete(t *testing.T) {
	var tr td

	tr.setInterruptOnComplete(true)
	assert.NotZero(t, tr.token.Read()&(1<<tdTokenIOCBit))

	tr.setInterruptOnComplete(false)
	assert.Zero(t, tr.token.Read()&(1<<tdTokenIOCBit))
}
