// Package kvslottest provides a compliance suite for kvslot.Store adapters.
package kvslottest

import (
	"context"
	"testing"

	"github.com/Strob0t/AccessDesk/internal/port/kvslot"
)

// RunComplianceTests runs the standard compliance suite against any Store.
// Adapters call it from their own tests.
func RunComplianceTests(t *testing.T, s kvslot.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := s.Put(ctx, "compliance-key", []byte("compliance-val")); err != nil {
			t.Fatal(err)
		}
		val, found, err := s.Get(ctx, "compliance-key")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Put")
		}
		if string(val) != "compliance-val" {
			t.Fatalf("expected compliance-val, got %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := s.Get(ctx, "nonexistent-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = s.Put(ctx, "del-key", []byte("del-val"))
		if err := s.Delete(ctx, "del-key"); err != nil {
			t.Fatal(err)
		}
		_, found, err := s.Get(ctx, "del-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := s.Delete(ctx, "never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = s.Put(ctx, "ow-key", []byte("v1"))
		_ = s.Put(ctx, "ow-key", []byte("v2"))
		val, found, err := s.Get(ctx, "ow-key")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})

	t.Run("ValueIsCopied", func(t *testing.T) {
		buf := []byte("original")
		_ = s.Put(ctx, "copy-key", buf)
		copy(buf, "mutated!")
		val, _, err := s.Get(ctx, "copy-key")
		if err != nil {
			t.Fatal(err)
		}
		if string(val) != "original" {
			t.Fatalf("store kept a reference to the caller's buffer: %s", val)
		}
	})
}
