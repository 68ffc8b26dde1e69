package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository stores users in process memory, ideal for local development or tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]User
	bySubject map[string]uuid.UUID
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:      make(map[uuid.UUID]User),
		bySubject: make(map[string]uuid.UUID),
	}
}

// UpsertUser creates the user for the subject on first sight and refreshes
// the profile on every call.
func (r *InMemoryRepository) UpsertUser(_ context.Context, input UpsertUserInput) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := loginTime(input)
	id, ok := r.bySubject[input.GoogleSubject]
	user := r.byID[id]
	if !ok {
		user = User{
			ID:            uuid.New(),
			GoogleSubject: input.GoogleSubject,
			CreatedAt:     now,
		}
		r.bySubject[input.GoogleSubject] = user.ID
	}

	user.Email = input.Email
	user.Name = input.Name
	user.AvatarURL = input.AvatarURL
	user.UpdatedAt = now
	user.LastLoginAt = now
	r.byID[user.ID] = user

	return user, nil
}

// FindUserByID returns the user or ErrUserNotFound.
func (r *InMemoryRepository) FindUserByID(_ context.Context, id uuid.UUID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// Len reports how many users are stored.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
