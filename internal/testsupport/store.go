package testsupport

import (
	"context"
	"testing"

	"mediadup/internal/config"
	"mediadup/internal/media"
	"mediadup/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustUpsertFile registers a file observation for tests using the provided store.
func MustUpsertFile(t testing.TB, st *store.Store, ref media.FileRef) media.File {
	t.Helper()

	file, err := st.UpsertFile(context.Background(), ref)
	if err != nil {
		t.Fatalf("store.UpsertFile: %v", err)
	}
	return file
}
