package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/milhasrod/gateway/internal/attempt"
	"github.com/milhasrod/gateway/internal/storage/storagetest"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	driver := New(filepath.Join(t.TempDir(), "attempts.db"))
	if err := driver.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(driver.Close)
	return driver
}

func TestAttemptRepository(t *testing.T) {
	storagetest.RunAttemptRepository(t, func(t *testing.T) attempt.Repository {
		return newTestDriver(t).Attempts()
	})
}

func TestAttemptsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attempts.db")
	ctx := context.Background()

	driver := New(path)
	if err := driver.Initialize(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := driver.Attempts().Save(ctx, &attempt.Attempt{Ref: "search_1", UserID: "user-a", Status: attempt.StatusConsumed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	driver.Close()

	reopened := New(path)
	if err := reopened.Initialize(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reopened.Close()

	obj, err := reopened.Attempts().GetByRef(ctx, "search_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj == nil || obj.Status != attempt.StatusConsumed {
		t.Fatalf("expected persisted attempt, got %+v", obj)
	}
}
