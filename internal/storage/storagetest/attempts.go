// Package storagetest provides a behavioural test suite every attempt.Repository implementation has to pass
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/milhasrod/gateway/internal/attempt"
)

// RunAttemptRepository runs the repository test suite against fresh repositories created by newRepo
func RunAttemptRepository(t *testing.T, newRepo func(t *testing.T) attempt.Repository) {
	t.Run("missing reference", func(t *testing.T) {
		repo := newRepo(t)
		obj, err := repo.GetByRef(context.Background(), "search_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if obj != nil {
			t.Fatalf("expected no attempt, got %+v", obj)
		}
	})

	t.Run("save updates by reference", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

		first := &attempt.Attempt{
			Ref:       "search_1",
			UserID:    "user-a",
			Origin:    "GRU",
			Status:    attempt.StatusConsumed,
			CreatedAt: created,
			UpdatedAt: created,
		}
		if err := repo.Save(ctx, first); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second := &attempt.Attempt{
			Ref:             "search_1",
			UserID:          "user-a",
			Origin:          "GRU",
			Status:          attempt.StatusRefundUncertain,
			RefundUncertain: true,
			Cause:           "refund failed",
			CreatedAt:       created.Add(time.Minute),
			UpdatedAt:       created.Add(time.Minute),
		}
		if err := repo.Save(ctx, second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stored, err := repo.GetByRef(ctx, "search_1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored == nil {
			t.Fatal("expected stored attempt")
		}
		if stored.Status != attempt.StatusRefundUncertain || !stored.RefundUncertain {
			t.Fatalf("expected updated state, got %+v", stored)
		}
		if !stored.CreatedAt.Equal(created) {
			t.Fatalf("expected creation time to be kept, got %v", stored.CreatedAt)
		}

		_, n, err := repo.GetByUserID(ctx, "user-a", 0, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected a single attempt, got %d", n)
		}
	})

	t.Run("user listing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

		refs := []string{"search_1", "search_2", "search_3"}
		for i, ref := range refs {
			obj := &attempt.Attempt{
				Ref:       ref,
				UserID:    "user-a",
				Status:    attempt.StatusConsumed,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
				UpdatedAt: base.Add(time.Duration(i) * time.Second),
			}
			if err := repo.Save(ctx, obj); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		other := &attempt.Attempt{Ref: "search_4", UserID: "user-b", Status: attempt.StatusRejected, CreatedAt: base, UpdatedAt: base}
		if err := repo.Save(ctx, other); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		page, n, err := repo.GetByUserID(ctx, "user-a", 1, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 3 {
			t.Fatalf("expected total of 3, got %d", n)
		}
		if len(page) != 1 || page[0].Ref != "search_2" {
			t.Fatalf("expected the second most recent attempt, got %+v", page)
		}

		page, _, err = repo.GetByUserID(ctx, "user-a", 5, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page) != 0 {
			t.Fatalf("expected an empty page past the end, got %d", len(page))
		}
	})

	t.Run("count uncertain", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		objs := []*attempt.Attempt{
			{Ref: "search_1", UserID: "user-a", Status: attempt.StatusRefundUncertain, RefundUncertain: true},
			{Ref: "search_2", UserID: "user-a", Status: attempt.StatusRefunded},
			{Ref: "search_3", UserID: "user-b", Status: attempt.StatusRefundUncertain, RefundUncertain: true},
		}
		for _, obj := range objs {
			obj.CreatedAt, obj.UpdatedAt = now, now
			if err := repo.Save(ctx, obj); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		n, err := repo.CountUncertain(ctx, "user-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 uncertain attempt, got %d", n)
		}
	})
}
