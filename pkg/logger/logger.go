package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Minimal leveled logger shared by the routing-engine services.
// - provides Debug/Info/Warn/Error/Fatal variants and Init(level)
// - supports plain text and JSON line output (LOG_FORMAT=json)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu       sync.RWMutex
	out      io.Writer = os.Stdout
	level    Level     = LevelInfo
	jsonMode bool
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	s := strings.ToLower(strings.TrimSpace(l))
	switch s {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

// SetJSON switches the encoder between plain text and JSON lines.
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonMode = enabled
}

// SetOutput redirects log output; used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func emit(name, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	ts := time.Now().Format(time.RFC3339)
	if jsonMode {
		line, err := json.Marshal(map[string]string{"ts": ts, "level": name, "msg": msg})
		if err == nil {
			fmt.Fprintln(out, string(line))
			return
		}
	}
	fmt.Fprintf(out, "%s [%s] %s\n", ts, strings.ToUpper(name), msg)
}

func Debugf(format string, v ...interface{}) {
	if !shouldLog(LevelDebug) {
		return
	}
	emit("debug", fmt.Sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	emit("info", fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	if !shouldLog(LevelWarn) {
		return
	}
	emit("warn", fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	if !shouldLog(LevelError) {
		return
	}
	emit("error", fmt.Sprintf(format, v...))
}

func Fatalf(format string, v ...interface{}) {
	emit("fatal", fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
