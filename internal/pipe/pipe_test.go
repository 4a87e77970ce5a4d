package pipe

import (
	"errors"
	"testing"

	"nanokern/internal/kernelerr"
)

func TestWriteReadRoundTrip(t *testing.T) {
	p := New()
	n, err := p.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	buf := make([]byte, 5)
	n, err = p.Read(buf)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("read: n=%d err=%v buf=%q", n, err, buf)
	}
}

func TestWritePartialWhenFull(t *testing.T) {
	p := New()
	big := make([]byte, Capacity)
	n, err := p.Write(big)
	if err != nil || n != Capacity {
		t.Fatalf("expected full fill, got n=%d err=%v", n, err)
	}
	n, err = p.Write([]byte("more"))
	if !errors.Is(err, kernelerr.ErrQueueFull) || n != 0 {
		t.Fatalf("expected (0, ErrQueueFull), got (%d, %v)", n, err)
	}
}

func TestClosedPipeRejectsWrite(t *testing.T) {
	p := New()
	p.Close()
	if _, err := p.Write([]byte("x")); !errors.Is(err, kernelerr.ErrAlreadyDead) {
		t.Fatalf("expected ErrAlreadyDead, got %v", err)
	}
}

func TestClosedEmptyPipeReadReportsDead(t *testing.T) {
	p := New()
	p.Write([]byte("x"))
	p.Close()
	buf := make([]byte, 1)
	n, err := p.Read(buf)
	if err != nil || n != 1 {
		t.Fatalf("expected to drain buffered byte first, got n=%d err=%v", n, err)
	}
	n, err = p.Read(buf)
	if n != 0 || !errors.Is(err, kernelerr.ErrAlreadyDead) {
		t.Fatalf("expected (0, ErrAlreadyDead) once drained, got (%d, %v)", n, err)
	}
}
