package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/plateful/recipe-companion/internal/cache"
)

// NewTestStore creates an in-memory cache store with all migrations
// applied. It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *cache.Store {
	t.Helper()

	s, err := cache.NewStore(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
