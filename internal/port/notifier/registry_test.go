package notifier

import (
	"context"
	"slices"
	"testing"
)

type stubNotifier struct{ url string }

func (s *stubNotifier) Name() string                             { return "stub" }
func (s *stubNotifier) Capabilities() Capabilities               { return Capabilities{} }
func (s *stubNotifier) Send(context.Context, Notification) error { return nil }

func TestRegistry(t *testing.T) {
	Register("stub-registry-test", func(cfg map[string]string) (Notifier, error) {
		return &stubNotifier{url: cfg["webhook_url"]}, nil
	})

	if !slices.Contains(Available(), "stub-registry-test") {
		t.Fatalf("expected stub in %v", Available())
	}

	n, err := New("stub-registry-test", map[string]string{"webhook_url": "http://hook"})
	if err != nil {
		t.Fatal(err)
	}
	if n.(*stubNotifier).url != "http://hook" {
		t.Error("factory did not receive config")
	}

	if _, err := New("missing", nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	factory := func(map[string]string) (Notifier, error) { return &stubNotifier{}, nil }
	Register("stub-duplicate-test", factory)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("stub-duplicate-test", factory)
}
