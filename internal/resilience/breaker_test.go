package resilience

import (
	"errors"
	"testing"
	"time"
)

var (
	errTransport = errors.New("service unavailable")
	errRejected  = errors.New("bad request")
)

func fail(err error) func() error { return func() error { return err } }

func ok() error { return nil }

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)
	for range 3 {
		_ = b.Execute(fail(errTransport))
	}

	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
}

func TestHalfOpenProbeCloses(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(fail(errTransport))
	_ = b.Execute(fail(errTransport))

	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(2 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half_open", b.State())
	}
	if err := b.Execute(ok); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed after successful trial call", b.State())
	}
}

func TestHalfOpenAllowsSingleProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(fail(errTransport))
	now = now.Add(2 * time.Second)

	inProbe := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(func() error {
			close(inProbe)
			<-release
			return nil
		})
	}()
	<-inProbe

	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second call during trial call: expected ErrCircuitOpen, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial call: %v", err)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(fail(errTransport))
	_ = b.Execute(fail(errTransport))
	now = now.Add(2 * time.Second)

	_ = b.Execute(fail(errTransport))
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open after failed trial call", b.State())
	}
	if err := b.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	_ = b.Execute(fail(errTransport))
	_ = b.Execute(fail(errTransport))
	_ = b.Execute(ok)
	_ = b.Execute(fail(errTransport))
	_ = b.Execute(fail(errTransport))

	if err := b.Execute(ok); err != nil {
		t.Fatalf("expected closed breaker, got %v", err)
	}
}

func TestFailureFilterIgnoresRejections(t *testing.T) {
	b := NewBreaker(1, time.Minute, WithFailureFilter(func(err error) bool {
		return !errors.Is(err, errRejected)
	}))

	for range 5 {
		if err := b.Execute(fail(errRejected)); !errors.Is(err, errRejected) {
			t.Fatalf("expected rejection to pass through, got %v", err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}

	_ = b.Execute(fail(errTransport))
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
}
