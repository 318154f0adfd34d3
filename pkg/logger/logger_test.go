package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitAndLevelString(t *testing.T) {
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFilteringAndPrintln(t *testing.T) {
	var logs *observer.ObservedLogs
	restore := replaceCore(func(enab zapcore.LevelEnabler) zapcore.Core {
		core, observed := observer.New(enab)
		logs = observed
		return core
	})
	defer restore()
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")

	if n := logs.FilterMessage("debug-msg").Len(); n != 0 {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if n := logs.FilterMessage("info-msg").Len(); n != 0 {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if n := logs.FilterMessage("warn-msg").Len(); n != 1 {
		t.Fatalf("warn message missing: %v", logs.All())
	}
	if n := logs.FilterMessage("error-msg").Len(); n != 1 {
		t.Fatalf("error message missing: %v", logs.All())
	}

	Println("hello")
	if logs.FilterMessage("hello").Len() != 0 {
		t.Fatalf("Println should be suppressed at warn level")
	}

	Init("info")
	Println("hello")
	if logs.FilterMessage("hello").Len() != 1 {
		t.Fatalf("Println expected at info level, got: %v", logs.All())
	}
}

func TestNamedCarriesComponent(t *testing.T) {
	var logs *observer.ObservedLogs
	restore := replaceCore(func(enab zapcore.LevelEnabler) zapcore.Core {
		core, observed := observer.New(enab)
		logs = observed
		return core
	})
	defer restore()

	Init("info")
	Named("versions").Infof("created %d", 3)
	entries := logs.FilterMessage("created 3").All()
	if len(entries) != 1 || entries[0].LoggerName != "versions" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
