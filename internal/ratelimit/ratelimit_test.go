package ratelimit

import (
	"testing"
	"time"
)

func TestAllowUnderLimit(t *testing.T) {
	l := New(10)
	for i := 0; i < 10; i++ {
		if !l.Allow("+919900000001") {
			t.Fatalf("message %d unexpectedly blocked", i)
		}
	}
}

func TestBlockOverLimit(t *testing.T) {
	l := New(3)
	for i := 0; i < 3; i++ {
		l.Allow("+919900000002")
	}
	if l.Allow("+919900000002") {
		t.Fatal("expected message over limit to be blocked")
	}
}

func TestPhonesTrackedSeparately(t *testing.T) {
	l := New(2)
	l.Allow("+911")
	l.Allow("+911")
	if l.Allow("+911") {
		t.Fatal("expected +911 blocked")
	}
	if !l.Allow("+912") {
		t.Fatal("expected +912 allowed")
	}
}

func TestWindowSlides(t *testing.T) {
	l := New(2)
	base := time.Now()
	l.now = func() time.Time { return base }

	l.Allow("+913")
	l.Allow("+913")
	if l.Allow("+913") {
		t.Fatal("expected blocked inside window")
	}

	l.now = func() time.Time { return base.Add(61 * time.Second) }
	if !l.Allow("+913") {
		t.Fatal("expected allowed after window slid")
	}
}
