// Package cachetest provides the compliance suite every cache.Cache adapter runs.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/Strob0t/dexcache/internal/port/cache"
)

// RunComplianceTests runs the standard compliance test suite against any Cache implementation.
func RunComplianceTests(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "evolution.10", []byte(`{"id":10}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "evolution.10")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"id":10}` {
			t.Fatalf("expected stored chain, got %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "evolution.never-set")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "evolution.del", []byte("chain"), time.Minute)
		if err := c.Delete(ctx, "evolution.del"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "evolution.del")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "evolution.never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "evolution.ow", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "evolution.ow", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "evolution.ow")
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
}
