// Package logger provides levelled, categorized logging
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level determines which messages are logged
type Level int

const (
	// LevelDebug logs everything including voice lifecycle details
	LevelDebug Level = iota
	// LevelInfo logs informational messages, warnings, and errors
	LevelInfo
	// LevelWarning logs warnings and errors only
	LevelWarning
	// LevelError logs only errors
	LevelError
	// LevelSilent disables all logging
	LevelSilent
)

// Category names the subsystem a message comes from
type Category string

const (
	// CategoryAudio for output device and mixing bus logs
	CategoryAudio Category = "AUDIO"
	// CategorySynth for voice registry logs
	CategorySynth Category = "SYNTH"
	// CategoryUI for terminal front-end logs
	CategoryUI Category = "UI"
	// CategoryApp for general application logs
	CategoryApp Category = "APP"
)

var (
	mu           sync.Mutex
	currentLevel = LevelInfo
	output       io.Writer = os.Stderr
	std          = log.New(os.Stderr, "", 0)

	// Suppress repetitive errors
	lastError  string
	errorCount int
)

// SetLevel changes the current logging level
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

// ParseLevel converts a level name ("debug", "info", "warn", "error", "silent")
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "silent", "off":
		return LevelSilent, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// SetOutput changes where logs are written
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	std.SetOutput(w)
}

// Output returns the current log destination
func Output() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "SILENT"
}

func formatLog(level Level, category Category, message string) string {
	timestamp := time.Now().Format("2006/01/02 15:04:05.000")
	return fmt.Sprintf("%s [%s] [%s] %s", timestamp, level, category, message)
}

func enabled(level Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return level >= currentLevel && currentLevel != LevelSilent
}

// Debug logs at debug level
func Debug(category Category, format string, args ...interface{}) {
	logf(LevelDebug, category, format, args...)
}

// Info logs at info level
func Info(category Category, format string, args ...interface{}) {
	logf(LevelInfo, category, format, args...)
}

// Warning logs at warning level
func Warning(category Category, format string, args ...interface{}) {
	logf(LevelWarning, category, format, args...)
}

// Error logs at error level. Identical consecutive errors are only written
// every fifth time.
func Error(category Category, format string, args ...interface{}) {
	if !enabled(LevelError) {
		return
	}
	message := fmt.Sprintf(format, args...)

	mu.Lock()
	if message == lastError {
		errorCount++
		if errorCount%5 != 0 {
			mu.Unlock()
			return
		}
		message = fmt.Sprintf("%s (repeated %d times)", message, errorCount)
	} else {
		lastError = message
		errorCount = 1
	}
	mu.Unlock()

	std.Println(formatLog(LevelError, category, message))
}

func logf(level Level, category Category, f string, args ...interface{}) {
	if !enabled(level) {
		return
	}
	std.Println(formatLog(level, category, fmt.Sprintf(f, args...)))
}

// Writer returns an io.Writer whose lines are logged at the given level and
// category, for handing to libraries that expect a *log.Logger.
func Writer(level Level, category Category) io.Writer {
	return &logWriter{level: level, category: category}
}

type logWriter struct {
	level    Level
	category Category
}

// Write implements io.Writer
func (w *logWriter) Write(p []byte) (n int, err error) {
	logf(w.level, w.category, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}
