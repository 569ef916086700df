package logging

import (
	"bytes"
	"testing"

	clog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapLogger points L at a buffer for the duration of the test.
func swapLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := L
	L = clog.New(&buf)
	t.Cleanup(func() { L = prev })
	return &buf
}

func TestHelpersWriteToLogger(t *testing.T) {
	buf := swapLogger(t)
	L.SetLevel(clog.DebugLevel)

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")

	out := buf.String()
	assert.Contains(t, out, "hello dbg")
	assert.Contains(t, out, "info 1")
	assert.Contains(t, out, "warn")
	assert.Contains(t, out, "err E")
}

func TestSetLevelFiltersDebug(t *testing.T) {
	buf := swapLogger(t)

	require.NoError(t, SetLevel("warn"))
	Infof("quiet")
	Warnf("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	swapLogger(t)
	assert.Error(t, SetLevel("chatty"))
}

func TestSetOutput(t *testing.T) {
	swapLogger(t)
	var other bytes.Buffer
	SetOutput(&other)

	Errorf("redirected")
	assert.Contains(t, other.String(), "redirected")
}
