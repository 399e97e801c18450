package nodecache

import (
	"errors"
	"testing"
)

func TestGetOrCreateBuildsOnce(t *testing.T) {
	cache := New[int]()
	builds := 0
	build := func() (int, error) {
		builds++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		value, err := cache.GetOrCreate("/stage/usd_publish1", build)
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if value != 42 {
			t.Fatalf("value = %d, want 42", value)
		}
	}
	if builds != 1 {
		t.Fatalf("build ran %d times, want 1", builds)
	}
}

func TestGetOrCreateRetriesAfterError(t *testing.T) {
	cache := New[string]()
	fail := true
	build := func() (string, error) {
		if fail {
			return "", errors.New("tracking unavailable")
		}
		return "rig", nil
	}

	if _, err := cache.GetOrCreate("/stage/read1", build); err == nil {
		t.Fatal("expected build error")
	}
	fail = false
	value, err := cache.GetOrCreate("/stage/read1", build)
	if err != nil || value != "rig" {
		t.Fatalf("retry failed: %v %q", err, value)
	}
}

func TestInvalidate(t *testing.T) {
	cache := New[int]()
	if _, err := cache.GetOrCreate("a", func() (int, error) { return 1, nil }); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	cache.Invalidate("a")
	if _, ok := cache.Peek("a"); ok {
		t.Fatal("expected entry to be dropped")
	}
}
