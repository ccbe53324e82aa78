// Package testutil provides shared test helpers for setting up history stores.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/fiche/internal/history"
)

// TestStore creates a temporary SQLite-backed history store that is
// automatically cleaned up.
func TestStore(t *testing.T) *history.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fiche-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
