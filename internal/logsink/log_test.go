package logsink

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", Warn)
	l.SetOutput(&buf)
	l.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected Info below Warn threshold to be dropped, got %q", buf.String())
	}
	l.Warnf("count=%d", 3)
	if !strings.Contains(buf.String(), "count=3") {
		t.Fatalf("expected warn message in output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Fatalf("expected level tag, got %q", buf.String())
	}
}

func TestWithPreservesLevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New("boot", Debug)
	l.SetOutput(&buf)
	core0 := l.With("core0")
	core0.Debug("hello")
	if !strings.Contains(buf.String(), "[core0]") {
		t.Fatalf("expected prefix from With, got %q", buf.String())
	}
}
