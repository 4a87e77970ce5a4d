package future

import (
	"errors"
	"testing"
	"time"
)

func TestAwaitReturnsComputedValue(t *testing.T) {
	f := New(func() (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 7, nil
	})
	v, err := f.Await()
	if err != nil || v != 7 {
		t.Fatalf("expected (7, nil), got (%d, %v)", v, err)
	}
}

func TestFromErrorPropagates(t *testing.T) {
	want := errors.New("boom")
	f := FromError[int](want)
	_, err := f.Await()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestAwaitTimeoutExpires(t *testing.T) {
	f := New(func() (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	_, _, ok := f.AwaitTimeout(5 * time.Millisecond)
	if ok {
		t.Fatalf("expected timeout before completion")
	}
}

func TestAwaitTimeoutCompletesInTime(t *testing.T) {
	f := FromValue(9)
	v, err, ok := f.AwaitTimeout(50 * time.Millisecond)
	if !ok || err != nil || v != 9 {
		t.Fatalf("expected (9, nil, true), got (%d, %v, %v)", v, err, ok)
	}
}

func TestMapChainsOnSuccess(t *testing.T) {
	f := FromValue(3)
	doubled := Map(f, func(v int) (int, error) { return v * 2, nil })
	v, err := doubled.Await()
	if err != nil || v != 6 {
		t.Fatalf("expected (6, nil), got (%d, %v)", v, err)
	}
}

func TestMapPropagatesInputError(t *testing.T) {
	want := errors.New("bad input")
	f := FromError[int](want)
	mapped := Map(f, func(v int) (int, error) { return v + 1, nil })
	_, err := mapped.Await()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestAllCollectsInOrder(t *testing.T) {
	all := All(FromValue(1), FromValue(2), FromValue(3))
	vs, err := all.Await()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int{1, 2, 3} {
		if vs[i] != want {
			t.Fatalf("index %d: expected %d, got %d", i, want, vs[i])
		}
	}
}

func TestAllShortCircuitsOnFirstError(t *testing.T) {
	want := errors.New("failed")
	all := All(FromValue(1), FromError[int](want), FromValue(3))
	_, err := all.Await()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := FromValue(1)
	f.complete(2, nil) // second completion must be a no-op
	v, _ := f.Await()
	if v != 1 {
		t.Fatalf("expected first completion to win, got %d", v)
	}
}
