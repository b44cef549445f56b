package natskv

import (
	"context"
	"os"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/AccessDesk/internal/port/kvslot"
	"github.com/Strob0t/AccessDesk/internal/port/kvslot/kvslottest"
)

var _ kvslot.Store = (*Store)(nil)

func TestEncodeKey(t *testing.T) {
	tests := map[string]string{
		"employeeStatusHistory": "employeeStatusHistory",
		"a b:c":                 "a_b_c",
		"tenant/slot.v1":        "tenant/slot.v1",
	}
	for in, want := range tests {
		if got := encodeKey(in); got != want {
			t.Errorf("encodeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping NATS KV integration test")
	}

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	s, err := Open(ctx, js, "ACCESSDESK_TEST_SLOTS", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = js.DeleteKeyValue(ctx, "ACCESSDESK_TEST_SLOTS") }()

	kvslottest.RunComplianceTests(t, s)
}
