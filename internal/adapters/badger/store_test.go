package badger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/wayfarer/internal/adapters/badger"
	"github.com/samirrijal/wayfarer/internal/core/ports"
)

var _ ports.CacheService = (*badger.Store)(nil)

func TestStore_SetGetDelete(t *testing.T) {
	s, err := badger.Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, err := s.Get(ctx, "boundary:doc:th"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
	if err := s.Set(ctx, "boundary:doc:th", []byte(`{"type":"Topology"}`), 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "boundary:doc:th")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"type":"Topology"}` {
		t.Errorf("unexpected value %s", got)
	}

	if err := s.Delete(ctx, "boundary:doc:th"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "boundary:doc:th"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	s, err := badger.Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	for _, k := range []string{"boundary:doc:th", "boundary:doc:vn", "legs:1,1;2,2"} {
		if err := s.Set(ctx, k, []byte("x"), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	keys, err := s.Keys("boundary:doc:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "boundary:doc:th" || keys[1] != "boundary:doc:vn" {
		t.Errorf("unexpected keys %v", keys)
	}
}
