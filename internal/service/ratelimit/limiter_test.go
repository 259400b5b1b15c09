package ratelimit

import "testing"

func TestAllowExhaustsBucket(t *testing.T) {
	l := New(3, 0)
	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within capacity was denied", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("request over capacity was allowed")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 0)
	if !l.Allow("a") {
		t.Fatalf("first request for a denied")
	}
	if l.Allow("a") {
		t.Fatalf("second request for a allowed")
	}
	if !l.Allow("b") {
		t.Fatalf("exhausting a must not affect b")
	}
}

func TestResetRestoresCapacity(t *testing.T) {
	l := New(1, 0)
	l.Allow("a")
	if l.Allow("a") {
		t.Fatalf("bucket not exhausted")
	}
	l.Reset("a")
	if !l.Allow("a") {
		t.Fatalf("reset must restore a full bucket")
	}
}
