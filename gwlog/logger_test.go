package gwlog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaygate/gateway/core"
)

func TestNewDefaultConfig(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestLoggerImplementsComponentAwareLogger(t *testing.T) {
	var _ core.ComponentAwareLogger = NewNop()
}

func TestWithComponentTagsEntries(t *testing.T) {
	l := NewNop()
	sub := l.WithComponent("router")
	require.NotNil(t, sub)

	typed, ok := sub.(*Logger)
	require.True(t, ok)
	require.Equal(t, "router", typed.component)
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	require.Equal(t, parseLevel("bogus").String(), "info")
	require.Equal(t, parseLevel("debug").String(), "debug")
	require.Equal(t, parseLevel("error").String(), "error")
}

func TestLoggingDoesNotPanicWithNilFields(t *testing.T) {
	l := NewNop()
	l.Info("hello", nil)
	l.Warn("hello", nil)
	l.Error("hello", nil)
	l.Debug("hello", nil)
}
