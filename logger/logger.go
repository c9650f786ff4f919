package logger

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// noopFunc is a reusable no-op function to avoid allocations
var noopFunc = func() {}

// Trace returns a function that logs operation duration when called.
// Returns a no-op function when TRACE level is disabled to avoid overhead.
// Usage: defer logger.Trace("operation")()
func Trace(name string) func() {
	gl := globalLoggerPtr.Load()
	if gl == nil || !gl.shouldLog(LogLevelTrace) {
		return noopFunc
	}
	start := time.Now()
	return func() {
		gl.logWithLevel(LogLevelTrace, "%s: %v", name, time.Since(start))
	}
}

// defaultLogger is used before the global logger is initialized
var defaultLogger = newLimited(os.Stderr, LogLevelInfo)

// MaxLogLines defines the maximum number of lines to keep in the log file
const MaxLogLines = 5000

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "TRACE":
		return LogLevelTrace
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LimitedLogger formats through a charm logger and writes to a file that is
// trimmed once it grows past MaxLogLines.
type LimitedLogger struct {
	file      *os.File
	lineCount int
	level     LogLevel
	mutex     sync.Mutex
	charm     *log.Logger
}

// Global logger instance (atomic for safe concurrent access)
var globalLoggerPtr atomic.Pointer[LimitedLogger]

func newLimited(file *os.File, level LogLevel) *LimitedLogger {
	ll := &LimitedLogger{file: file, level: level}
	// level filtering happens in shouldLog so TRACE can pass through
	ll.charm = log.NewWithOptions(ll, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
		Formatter:       log.TextFormatter,
		Level:           log.DebugLevel,
	})
	return ll
}

// NewLimitedLogger creates a new LimitedLogger and installs it as the global logger
func NewLimitedLogger(file *os.File, level LogLevel) *LimitedLogger {
	ll := newLimited(file, level)

	// Count existing lines in the file
	ll.countExistingLines()
	globalLoggerPtr.Store(ll)
	return ll
}

// shouldLog returns true if the given level should be logged
func (ll *LimitedLogger) shouldLog(level LogLevel) bool {
	return level >= ll.level
}

// logWithLevel logs a message at the specified level
func (ll *LimitedLogger) logWithLevel(level LogLevel, format string, v ...any) {
	if !ll.shouldLog(level) {
		return
	}
	switch level {
	case LogLevelTrace:
		ll.charm.Debugf("trace "+format, v...)
	case LogLevelDebug:
		ll.charm.Debugf(format, v...)
	case LogLevelInfo:
		ll.charm.Infof(format, v...)
	case LogLevelWarn:
		ll.charm.Warnf(format, v...)
	default:
		ll.charm.Errorf(format, v...)
	}
}

// Debug logs a debug message
func (ll *LimitedLogger) Debug(format string, v ...any) {
	ll.logWithLevel(LogLevelDebug, format, v...)
}

// Info logs an info message
func (ll *LimitedLogger) Info(format string, v ...any) {
	ll.logWithLevel(LogLevelInfo, format, v...)
}

// Warn logs a warning message
func (ll *LimitedLogger) Warn(format string, v ...any) {
	ll.logWithLevel(LogLevelWarn, format, v...)
}

// Error logs an error message
func (ll *LimitedLogger) Error(format string, v ...any) {
	ll.logWithLevel(LogLevelError, format, v...)
}

// Fatal logs an error message and exits with code 1
func (ll *LimitedLogger) Fatal(format string, v ...any) {
	ll.logWithLevel(LogLevelError, format, v...)
	os.Exit(1)
}

// getLogger returns the global logger or the default fallback.
func getLogger() *LimitedLogger {
	if gl := globalLoggerPtr.Load(); gl != nil {
		return gl
	}
	return defaultLogger
}

// Package-level logging functions that use the global logger (or default if not initialized)
func Debug(format string, v ...any) { getLogger().Debug(format, v...) }
func Info(format string, v ...any)  { getLogger().Info(format, v...) }
func Warn(format string, v ...any)  { getLogger().Warn(format, v...) }
func Error(format string, v ...any) { getLogger().Error(format, v...) }
func Fatal(format string, v ...any) { getLogger().Fatal(format, v...) }

// countExistingLines counts the number of lines in the current log file
func (ll *LimitedLogger) countExistingLines() {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	ll.file.Seek(0, io.SeekStart)
	scanner := bufio.NewScanner(ll.file)

	count := 0
	for scanner.Scan() {
		count++
	}

	ll.lineCount = count
	ll.file.Seek(0, io.SeekEnd)
}

// Write implements io.Writer interface
func (ll *LimitedLogger) Write(p []byte) (n int, err error) {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	n, err = ll.file.Write(p)
	if err != nil {
		return n, err
	}

	ll.lineCount += strings.Count(string(p), "\n")
	if ll.lineCount > MaxLogLines {
		ll.rotateLogFile()
	}

	return n, err
}

// rotateLogFile trims the log file to keep only the last MaxLogLines/2 lines.
// Scans bytes from the end to find the cut point, avoiding loading all lines into memory.
func (ll *LimitedLogger) rotateLogFile() {
	keepLines := MaxLogLines / 2

	size, err := ll.file.Seek(0, io.SeekEnd)
	if err != nil || size == 0 {
		return
	}

	buf := make([]byte, min(int(size), 64*1024))
	newlineCount := 0
	cutOffset := int64(0)

	for pos := size; pos > 0; {
		readSize := min(int64(len(buf)), pos)
		pos -= readSize
		ll.file.Seek(pos, io.SeekStart)
		n, err := ll.file.Read(buf[:readSize])
		if err != nil || n == 0 {
			break
		}
		for i := n - 1; i >= 0; i-- {
			if buf[i] == '\n' {
				// the terminator of the last line does not start a kept line
				if pos+int64(i) == size-1 {
					continue
				}
				newlineCount++
				if newlineCount == keepLines {
					cutOffset = pos + int64(i) + 1
					goto found
				}
			}
		}
	}

found:
	ll.file.Seek(cutOffset, io.SeekStart)
	kept, err := io.ReadAll(ll.file)
	if err != nil {
		return
	}

	ll.file.Truncate(0)
	ll.file.Seek(0, io.SeekStart)
	ll.file.Write(kept)

	ll.lineCount = bytes.Count(kept, []byte("\n"))
}

// Close closes the underlying file. A global logger is uninstalled first so
// later messages fall back to stderr.
func (ll *LimitedLogger) Close() error {
	globalLoggerPtr.CompareAndSwap(ll, nil)
	return ll.file.Close()
}
