package lookupcache

import (
	"context"
	"path/filepath"
	"testing"

	"stagehand/internal/tracking"
)

func testFixture() tracking.Project {
	return tracking.Project{
		Name:   "demo",
		Assets: []tracking.Asset{{ID: 11, Code: "hero", Type: "character"}},
		Steps:  []tracking.Step{{ID: 31, Code: "model"}},
		Tasks:  []tracking.Task{{ID: 41, Content: "modeling", AssetID: 11, StepID: 31}},
	}
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookup_cache.json")

	cache := NewCache(path, nil)
	if err := cache.Store("asset_id_from_name/hero", "11"); err != nil {
		t.Fatalf("store: %v", err)
	}

	reloaded := NewCache(path, nil)
	value, found := reloaded.Lookup("asset_id_from_name/hero")
	if !found || value != "11" {
		t.Fatalf("expected persisted entry, got %q found=%v", value, found)
	}
	if reloaded.Count() != 1 {
		t.Fatalf("expected 1 entry, got %d", reloaded.Count())
	}
}

func TestCacheWithoutPathIsNoop(t *testing.T) {
	cache := NewCache("", nil)
	if err := cache.Store("key", "value"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, found := cache.Lookup("key"); found {
		t.Fatal("expected no-op cache to stay empty")
	}
}

func TestServiceMemoizesLookups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookup_cache.json")
	inner := tracking.NewMemory(testFixture())
	svc := Wrap(inner, NewCache(path, nil))
	ctx := context.Background()

	id, err := svc.AssetIDFromName(ctx, "hero")
	if err != nil || id != 11 {
		t.Fatalf("lookup: got %d err %v", id, err)
	}

	// Second call must come from the cache: wrap a fresh empty inner
	// service and confirm the cached answer survives.
	empty := Wrap(tracking.NewMemory(tracking.Project{Name: "demo"}), NewCache(path, nil))
	id, err = empty.AssetIDFromName(ctx, "hero")
	if err != nil || id != 11 {
		t.Fatalf("cached lookup: got %d err %v", id, err)
	}
}

func TestServiceForceBypassesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookup_cache.json")
	cache := NewCache(path, nil)
	if err := cache.Store("asset_id_from_name/hero", "999"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := Wrap(tracking.NewMemory(testFixture()), cache)
	svc.SetForce(true)

	id, err := svc.AssetIDFromName(context.Background(), "hero")
	if err != nil || id != 11 {
		t.Fatalf("forced lookup should hit the service: got %d err %v", id, err)
	}

	// Forced result overwrites the stale entry.
	if value, _ := cache.Lookup("asset_id_from_name/hero"); value != "11" {
		t.Fatalf("expected cache refresh, got %q", value)
	}
}

func TestServiceDoesNotPinMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookup_cache.json")
	cache := NewCache(path, nil)
	svc := Wrap(tracking.NewMemory(tracking.Project{Name: "demo"}), cache)

	id, err := svc.AssetIDFromName(context.Background(), "hero")
	if err != nil || id != 0 {
		t.Fatalf("miss: got %d err %v", id, err)
	}
	if cache.Count() != 0 {
		t.Fatal("misses must not be cached")
	}
}
