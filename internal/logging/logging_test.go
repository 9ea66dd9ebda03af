package logging

import (
	"bytes"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

// swapLogger replaces L with a buffer-backed logger for the duration of t.
func swapLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := L
	L = newLogger(&buf)
	t.Cleanup(func() { L = prev })
	return &buf
}

func TestHelpers_WriteToBuffer(t *testing.T) {
	buf := swapLogger(t)
	L.SetLevel(clog.DebugLevel)

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E", "rsatext"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output: %s", want, out)
		}
	}
}

func TestDefaultLevelIsQuiet(t *testing.T) {
	buf := swapLogger(t)

	Debugf("retry %d", 1)
	Infof("info")
	if buf.Len() != 0 {
		t.Errorf("expected no output at default level, got %q", buf.String())
	}
	Warnf("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("warnings should be printed by default")
	}
}

func TestSetVerbose(t *testing.T) {
	buf := swapLogger(t)

	SetVerbose(true)
	Debugf("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("debug output missing after SetVerbose(true)")
	}

	buf.Reset()
	SetVerbose(false)
	Debugf("hidden again")
	if buf.Len() != 0 {
		t.Errorf("debug output after SetVerbose(false): %q", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	swapLogger(t)

	if err := SetLevel("info"); err != nil {
		t.Fatalf("SetLevel(info) failed: %v", err)
	}
	if L.GetLevel() != clog.InfoLevel {
		t.Errorf("level = %v, want info", L.GetLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Error("SetLevel should reject unknown names")
	}
}

func TestSetOutput(t *testing.T) {
	swapLogger(t)
	var other bytes.Buffer
	SetOutput(&other)
	Errorf("redirected")
	if !strings.Contains(other.String(), "redirected") {
		t.Errorf("output not redirected: %q", other.String())
	}
}
