package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestInfoWritesKeyValues(t *testing.T) {
	buf := capture(t)
	Info("window resolved", "mode", "month", "days", 31)
	out := buf.String()
	for _, want := range []string{"level=INFO", `msg="window resolved"`, "mode=month", "days=31"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestErrorPrependsErr(t *testing.T) {
	buf := capture(t)
	Error("persist failed", errors.New("boom"), "id", "t1")
	out := buf.String()
	if !strings.Contains(out, "err=boom") || !strings.Contains(out, "id=t1") {
		t.Fatalf("output %q missing err/id", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}
	SetLevel(LevelDebug)
	Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("debug not written at debug level: %q", buf.String())
	}
}

func TestOddKeyValueDropped(t *testing.T) {
	buf := capture(t)
	Info("odd", "k", "v", "dangling")
	if strings.Contains(buf.String(), "dangling") {
		t.Fatalf("dangling key written: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug, "WARN": LevelWarn, "error": LevelError, "": LevelInfo, "verbose": LevelInfo,
	} {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): got %q, want %q", in, got, want)
		}
	}
}
