package ledger

import (
	"context"
	"errors"
	"testing"

	"stagehand/internal/config"
)

func testStore(t *testing.T) (*Store, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, cfg
}

func TestRecordAndList(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	id, err := store.Record(ctx, Entry{
		TaskID:   41,
		Template: "usd_asset_publish",
		Version:  1,
		Path:     "/jobs/demo/hero.usd",
		Comment:  "hero.usd version 1.",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated publish id")
	}

	if _, err := store.Record(ctx, Entry{TaskID: 41, Template: "usd_asset_publish", Version: 2, Path: "/jobs/demo/hero2.usd"}); err != nil {
		t.Fatalf("record second: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].PublishID != id || entries[0].Version != 1 {
		t.Fatalf("first entry: %+v", entries[0])
	}
	if entries[0].FileType != "usd" {
		t.Fatalf("file type should default to usd: %q", entries[0].FileType)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatal("created_at should round-trip")
	}
}

func TestListForTaskAndNextVersion(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	for version := 1; version <= 3; version++ {
		if _, err := store.Record(ctx, Entry{TaskID: 41, Template: "usd_asset_publish", Version: version, Path: "/jobs/x"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := store.Record(ctx, Entry{TaskID: 42, Template: "usd_shot_publish", Version: 7, Path: "/jobs/y"}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := store.ListForTask(ctx, 41)
	if err != nil {
		t.Fatalf("list for task: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries for task 41, got %d", len(entries))
	}

	next, err := store.NextVersion(ctx, "usd_asset_publish", 41)
	if err != nil {
		t.Fatalf("next version: %v", err)
	}
	if next != 4 {
		t.Fatalf("next version: got %d want 4", next)
	}

	next, err = store.NextVersion(ctx, "usd_asset_publish", 99)
	if err != nil {
		t.Fatalf("next version: %v", err)
	}
	if next != 1 {
		t.Fatalf("unrecorded task should start at 1, got %d", next)
	}
}

func TestPersistsAcrossOpens(t *testing.T) {
	store, cfg := testStore(t)
	ctx := context.Background()

	if _, err := store.Record(ctx, Entry{TaskID: 41, Template: "usd_asset_publish", Version: 1, Path: "/jobs/x"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(&cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d", len(entries))
	}
}

func TestSchemaMismatchIsHardError(t *testing.T) {
	store, cfg := testStore(t)
	ctx := context.Background()

	if _, err := store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("force version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := Open(&cfg)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestClear(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	if _, err := store.Record(ctx, Entry{TaskID: 41, Template: "usd_asset_publish", Version: 1, Path: "/jobs/x"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ledger should be empty, got %d entries", len(entries))
	}
}
