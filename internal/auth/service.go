package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssertionVerifier turns a raw provider assertion into a trusted identity claim.
type AssertionVerifier interface {
	Verify(ctx context.Context, rawIDToken string, expected Audience) (*IdentityClaim, error)
}

// LoginInput is the body of a login request.
type LoginInput struct {
	IDToken  string
	Platform string
}

// LoginResult is an issued session together with the reconciled user.
type LoginResult struct {
	User        User
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   int
}

// Service provides authentication business logic.
type Service struct {
	repo      Repository
	verifier  AssertionVerifier
	tokens    *TokenIssuer
	audiences Audiences
	now       func() time.Time
}

// NewService creates a new auth Service.
func NewService(repo Repository, verifier AssertionVerifier, tokens *TokenIssuer, audiences Audiences) *Service {
	return &Service{
		repo:      repo,
		verifier:  verifier,
		tokens:    tokens,
		audiences: audiences,
		now:       time.Now,
	}
}

// Login verifies the assertion for the requesting platform, reconciles the
// user record and issues an access token. Missing input fails with
// ErrValidation; every later failure is reported as ErrAuthFailed with the
// cause wrapped alongside it.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	rawToken := strings.TrimSpace(input.IDToken)
	if rawToken == "" {
		return nil, fmt.Errorf("%w: idToken is required", ErrValidation)
	}
	platform := ParsePlatform(input.Platform)
	if platform == "" {
		return nil, fmt.Errorf("%w: platform is required", ErrValidation)
	}

	claim, err := s.verifier.Verify(ctx, rawToken, s.audiences.For(platform))
	if err != nil {
		return nil, fmt.Errorf("%w: verify assertion: %w", ErrAuthFailed, err)
	}

	// A completed upsert is kept even if issuing the token fails below.
	user, err := s.repo.UpsertUser(ctx, UpsertUserInput{
		GoogleSubject: claim.Subject,
		Email:         claim.Email,
		Name:          claim.Name,
		AvatarURL:     claim.Picture,
		LoginAt:       s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reconcile user: %w", ErrAuthFailed, err)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %w", ErrAuthFailed, err)
	}

	return &LoginResult{
		User:        user,
		AccessToken: token,
		ExpiresAt:   expiresAt,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

// Authenticate resolves an access token to the user id it was issued for.
func (s *Service) Authenticate(token string) (uuid.UUID, error) {
	return s.tokens.Verify(token)
}

// Profile returns the current record for an authenticated user.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
