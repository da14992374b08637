package trace

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugfSilentByDefault(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	Enabled = false
	Debugf("unexpected state %d", 7)

	assert.Empty(t, buf.String())
}

func TestDebugfLogsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	Enabled = true
	defer func() { Enabled = false }()

	Debugf("unexpected state %d", 7)

	assert.True(t, strings.Contains(buf.String(), "usb: unexpected state 7"))
}
