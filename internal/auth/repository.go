package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UpsertUserInput carries the profile fields refreshed on every login.
type UpsertUserInput struct {
	GoogleSubject string
	Email         string
	Name          string
	AvatarURL     string
	LoginAt       time.Time
}

// Repository is the user directory. UpsertUser must be a single atomic
// create-or-update keyed by GoogleSubject so that concurrent logins for one
// subject never produce two rows.
type Repository interface {
	UpsertUser(ctx context.Context, input UpsertUserInput) (User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (User, error)
}
