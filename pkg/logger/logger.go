package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled logger shared by the service packages.
// - package-level Debug/Info/Warn/Error/Fatal variants and Init(level)
// - backed by a zap SugaredLogger whose level can be changed at runtime

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = newSugar(newConsoleCore(level))
)

func newConsoleCore(enab zapcore.LevelEnabler) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), enab)
}

func newSugar(core zapcore.Core) *zap.SugaredLogger {
	return zap.New(core).Sugar()
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// replaceCore swaps the output core; the level stays governed by Init.
func replaceCore(build func(enab zapcore.LevelEnabler) zapcore.Core) (restore func()) {
	mu.Lock()
	defer mu.Unlock()
	prev := sugar
	sugar = newSugar(build(level))
	return func() {
		mu.Lock()
		sugar = prev
		mu.Unlock()
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Named returns a child logger tagged with the component name.
func Named(component string) *zap.SugaredLogger {
	return current().Named(component)
}

func Debugf(format string, v ...interface{}) { current().Debugf(format, v...) }
func Infof(format string, v ...interface{})  { current().Infof(format, v...) }
func Warnf(format string, v ...interface{})  { current().Warnf(format, v...) }
func Errorf(format string, v ...interface{}) { current().Errorf(format, v...) }

// Fatalf logs and terminates the process.
func Fatalf(format string, v ...interface{}) { current().Fatalf(format, v...) }

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	current().Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// Sync flushes buffered entries; call before exit.
func Sync() { _ = current().Sync() }

// LevelString returns the current level as text.
func LevelString() string {
	switch level.Level() {
	case zapcore.DebugLevel:
		return "debug"
	case zapcore.WarnLevel:
		return "warn"
	case zapcore.ErrorLevel:
		return "error"
	case zapcore.FatalLevel:
		return "fatal"
	}
	return "info"
}
