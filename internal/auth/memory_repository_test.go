package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestInMemoryRepositoryUpsertKeepsID(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := repo.UpsertUser(ctx, UpsertUserInput{GoogleSubject: "sub", Email: "a@example.com", LoginAt: first})
	if err != nil {
		t.Fatalf("UpsertUser returned error: %v", err)
	}
	updated, err := repo.UpsertUser(ctx, UpsertUserInput{GoogleSubject: "sub", Email: "b@example.com", LoginAt: first.Add(time.Hour)})
	if err != nil {
		t.Fatalf("UpsertUser returned error: %v", err)
	}

	if created.ID != updated.ID {
		t.Fatalf("expected stable id, got %s and %s", created.ID, updated.ID)
	}
	if updated.Email != "b@example.com" || !updated.LastLoginAt.Equal(first.Add(time.Hour)) {
		t.Fatalf("unexpected updated user: %+v", updated)
	}
	if !updated.CreatedAt.Equal(first) {
		t.Fatalf("expected created_at to be preserved, got %s", updated.CreatedAt)
	}
}

func TestInMemoryRepositoryConcurrentUpsertSingleRecord(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := repo.UpsertUser(ctx, UpsertUserInput{GoogleSubject: "same", Name: fmt.Sprintf("n%d", i)})
			if err != nil {
				t.Errorf("UpsertUser returned error: %v", err)
				return
			}
			ids <- user.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	var first uuid.UUID
	for id := range ids {
		if first == uuid.Nil {
			first = id
		}
		if id != first {
			t.Fatalf("expected every upsert to return %s, got %s", first, id)
		}
	}
	if repo.Len() != 1 {
		t.Fatalf("expected one record, got %d", repo.Len())
	}
}

func TestInMemoryRepositoryFindUserByIDMissing(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.FindUserByID(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
