package driver_test

import (
	"bytes"
	"testing"

	"cflow/internal/driver"
	"cflow/internal/ir"
)

func printed(t *testing.T, f *ir.Function) string {
	t.Helper()
	var buf bytes.Buffer
	if err := ir.FprintFunction(&buf, f); err != nil {
		t.Fatalf("print: %v", err)
	}
	return buf.String()
}

func TestLowerModule_CacheHit(t *testing.T) {
	cache, err := driver.OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	opts := driver.Options{Cache: cache}

	first := lower(t, &ir.Module{Funcs: []*ir.Function{counter(), classify()}}, opts)
	for _, fr := range first.Funcs {
		if fr.Cached {
			t.Fatalf("%s cached on a cold cache", fr.Name)
		}
	}

	second := lower(t, &ir.Module{Funcs: []*ir.Function{counter(), classify()}}, opts)
	for i, fr := range second.Funcs {
		if !fr.Cached {
			t.Fatalf("%s missed a warm cache", fr.Name)
		}
		if got, want := printed(t, fr.Func), printed(t, first.Funcs[i].Func); got != want {
			t.Fatalf("cached %s differs:\n%s\nwant:\n%s", fr.Name, got, want)
		}
		if fr.Generator != first.Funcs[i].Generator || fr.Switch != first.Funcs[i].Switch {
			t.Fatalf("cached stats differ for %s", fr.Name)
		}
	}
}

func TestLowerModule_CacheKeyedByOptions(t *testing.T) {
	cache, err := driver.OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	lower(t, &ir.Module{Funcs: []*ir.Function{classify()}}, driver.Options{Cache: cache})
	res := lower(t, &ir.Module{Funcs: []*ir.Function{classify()}}, driver.Options{Cache: cache, EqualsMethod: "LooseEquals"})
	if res.Funcs[0].Cached {
		t.Fatalf("a different equality method must not hit the cache")
	}
}

func TestDiskCache_DropAll(t *testing.T) {
	cache, err := driver.OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	opts := driver.Options{Cache: cache}
	lower(t, &ir.Module{Funcs: []*ir.Function{counter()}}, opts)
	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if res := lower(t, &ir.Module{Funcs: []*ir.Function{counter()}}, opts); res.Funcs[0].Cached {
		t.Fatalf("hit after DropAll")
	}
}
