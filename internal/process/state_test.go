package process

import "testing"

func TestAtomicStateCAS(t *testing.T) {
	var s atomicState
	s.store(Ready)
	if !s.cas(Ready, Running) {
		t.Fatalf("expected CAS Ready->Running to succeed")
	}
	if s.load() != Running {
		t.Fatalf("expected Running, got %v", s.load())
	}
	if s.cas(Ready, Blocked) {
		t.Fatalf("expected CAS from stale Ready to fail once state is Running")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{Ready: "Ready", Running: "Running", Blocked: "Blocked", Sleeping: "Sleeping", Dead: "Dead"}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
