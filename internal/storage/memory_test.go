package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, "event/a", []byte("alpha")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := s.Get(ctx, "event/a")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(got) != "alpha" {
		t.Errorf("Get() = %q, want %q", got, "alpha")
	}
}

func TestMemoryStore_GetMissingKey(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	original := []byte("alpha")
	if err := s.Save(ctx, "event/a", original); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// Mutating the caller's slice must not corrupt the stored record.
	original[0] = 'X'

	got, err := s.Get(ctx, "event/a")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(got) != "alpha" {
		t.Errorf("stored value mutated through caller slice: got %q", got)
	}

	// Mutating the returned slice must not corrupt the stored record either.
	got[0] = 'Y'
	again, err := s.Get(ctx, "event/a")
	if err != nil {
		t.Fatalf("second Get() failed: %v", err)
	}
	if string(again) != "alpha" {
		t.Errorf("stored value mutated through returned slice: got %q", again)
	}
}

func TestMemoryStore_EnumerateSortsKeys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"event/c", "event/a", "event/b", "other/x"} {
		if err := s.Save(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Save(%q) failed: %v", key, err)
		}
	}

	records, err := s.Enumerate(ctx, "event/")
	if err != nil {
		t.Fatalf("Enumerate() failed: %v", err)
	}

	want := []string{"event/a", "event/b", "event/c"}
	if len(records) != len(want) {
		t.Fatalf("Enumerate() returned %d records, want %d", len(records), len(want))
	}
	for i, key := range want {
		if records[i].Key != key {
			t.Errorf("records[%d].Key = %q, want %q", i, records[i].Key, key)
		}
	}
}

func TestMemoryStore_RespectsCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Save(ctx, "event/a", []byte("alpha")); err == nil {
		t.Error("Save() with cancelled context succeeded, want error")
	}
	if _, err := s.Get(ctx, "event/a"); err == nil {
		t.Error("Get() with cancelled context succeeded, want error")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				_ = s.Save(ctx, "event/"+key, []byte(key))
				_, _ = s.Get(ctx, "event/"+key)
				_, _ = s.Enumerate(ctx, "event/")
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 8 {
		t.Errorf("Len() = %d, want 8", s.Len())
	}
}
