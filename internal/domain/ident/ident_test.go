package ident

import (
	"sort"
	"testing"
)

func TestNew_LexicographicOrdering(t *testing.T) {
	ids := make([]string, 0, 5)
	times := []int64{1000, 1001, 1002, 2000, 3000}
	for _, ts := range times {
		id, err := New(ts)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		ids = append(ids, id)
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for i := range ids {
		if ids[i] != sorted[i] {
			t.Fatalf("identifiers not in lexicographic creation order: %v", ids)
		}
	}
}

func TestNew_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := New(5000)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if seen[id] {
			t.Fatalf("collision detected: %s", id)
		}
		seen[id] = true
	}
}

func TestTimestampMillis_RoundTrip(t *testing.T) {
	const want = int64(1_700_000_000_123)
	id, err := New(want)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, err := TimestampMillis(id)
	if err != nil {
		t.Fatalf("TimestampMillis() error = %v", err)
	}
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}
