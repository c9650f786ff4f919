package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLog(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "codesuggest.log"), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func readLog(t *testing.T, f *os.File) string {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(data)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"trace":   LogLevelTrace,
		"DEBUG":   LogLevelDebug,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"bogus":   LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestLevelFiltering(t *testing.T) {
	f := openLog(t)
	ll := NewLimitedLogger(f, LogLevelInfo)

	ll.Debug("hidden %d", 1)
	ll.Info("suggest[%d]: shown", 7)
	Warn("package level %s", "warn")

	out := readLog(t, f)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "suggest[7]: shown")
	assert.Contains(t, out, "package level warn")
	assert.Equal(t, 2, strings.Count(out, "\n"), "one line per message")
}

func TestTraceDisabledIsNoop(t *testing.T) {
	f := openLog(t)
	NewLimitedLogger(f, LogLevelDebug)

	Trace("fetch")()
	assert.NotContains(t, readLog(t, f), "fetch")

	NewLimitedLogger(f, LogLevelTrace)
	Trace("fetch")()
	assert.Contains(t, readLog(t, f), "trace fetch:")
}

func TestCountsExistingLines(t *testing.T) {
	f := openLog(t)
	_, err := f.WriteString("a\nb\nc\n")
	require.NoError(t, err)

	ll := NewLimitedLogger(f, LogLevelInfo)
	assert.Equal(t, 3, ll.lineCount)
}

func TestRotation(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "rotate.log"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	ll := NewLimitedLogger(f, LogLevelInfo)
	for i := 0; i <= MaxLogLines; i++ {
		_, err := ll.Write([]byte("line\n"))
		require.NoError(t, err)
	}

	assert.Equal(t, MaxLogLines/2, ll.lineCount)
	assert.Equal(t, MaxLogLines/2, strings.Count(readLog(t, f), "\n"))

	// a second rotation keeps the count in step with the file
	for i := 0; i <= MaxLogLines/2; i++ {
		_, err := ll.Write([]byte("next\n"))
		require.NoError(t, err)
	}
	log := readLog(t, f)
	assert.Equal(t, MaxLogLines/2, ll.lineCount)
	assert.Equal(t, MaxLogLines/2, strings.Count(log, "\n"))
	assert.True(t, strings.HasSuffix(log, "next\n"))
}

func TestCloseUninstallsGlobal(t *testing.T) {
	first := NewLimitedLogger(openLog(t), LogLevelInfo)
	second := NewLimitedLogger(openLog(t), LogLevelInfo)

	require.NoError(t, first.Close())
	assert.Same(t, second, getLogger(), "closing a replaced logger keeps the current one")

	require.NoError(t, second.Close())
	assert.Same(t, defaultLogger, getLogger())
}
