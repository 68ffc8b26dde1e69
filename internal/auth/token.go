package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultAccessTokenTTL = time.Hour

// accessTokenClaims is the payload of a locally issued access token.
type accessTokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// TokenIssuer mints and verifies HS256 access tokens bound to a user id.
// The secret is fixed for the life of the issuer.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenClock overrides the clock used for issuing and verifying tokens.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithTokenIssuer sets the iss claim written into access tokens.
func WithTokenIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) {
		t.issuer = strings.TrimSpace(issuer)
	}
}

// NewTokenIssuer creates a TokenIssuer. A zero ttl falls back to one hour.
func NewTokenIssuer(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token issuer: secret is required")
	}
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}

	t := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL is the fixed lifetime of every issued token.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token for userID valid from now until now+TTL.
func (t *TokenIssuer) Issue(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, errors.New("issue token: user id is required")
	}

	now := t.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(t.ttl)
	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID.String(),
	}
	if t.issuer != "" {
		claims.Issuer = t.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and validity window and returns the bound user id.
// It fails with ErrExpiredCredential once the window has passed and with
// ErrInvalidCredential for anything else.
func (t *TokenIssuer) Verify(token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, ErrInvalidCredential
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
		jwt.WithStrictDecoding(),
	}
	if t.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.issuer))
	}

	var claims accessTokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, parserOpts...)
	if err != nil {
		return uuid.Nil, mapJWTError(err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, ErrInvalidCredential
	}
	if claims.UserID != "" && claims.UserID != claims.Subject {
		return uuid.Nil, ErrInvalidCredential
	}
	return userID, nil
}

// mapJWTError collapses library errors into the two credential categories.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %w", ErrExpiredCredential, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
}
