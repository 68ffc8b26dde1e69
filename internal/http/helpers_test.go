package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"sessiongate/internal/auth"
)

const (
	testWebClientID     = "web-client.apps.googleusercontent.com"
	testAndroidClientID = "android-client.apps.googleusercontent.com"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// verifierStub accepts the tokens it knows and enforces the audience.
type verifierStub struct {
	claims map[string]auth.IdentityClaim
}

func (v *verifierStub) Verify(_ context.Context, raw string, expected auth.Audience) (*auth.IdentityClaim, error) {
	claim, ok := v.claims[raw]
	if !ok {
		return nil, errors.New("token signature invalid")
	}
	if claim.Audience != expected.ClientID {
		return nil, auth.ErrAudienceMismatch
	}
	return &claim, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokenIssuer(t *testing.T, secret []byte) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(secret, time.Hour, auth.WithTokenIssuer("sessiongate"))
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	return issuer
}

func newTestService(t *testing.T, repo auth.Repository) *auth.Service {
	t.Helper()
	verifier := &verifierStub{claims: map[string]auth.IdentityClaim{
		"web-token": {
			Subject:  "google-sub-1",
			Email:    "ada@example.com",
			Name:     "Ada Lovelace",
			Picture:  "https://example.com/ada.png",
			Audience: testWebClientID,
		},
		"android-token": {
			Subject:  "google-sub-2",
			Email:    "grace@example.com",
			Name:     "Grace Hopper",
			Audience: testAndroidClientID,
		},
	}}
	return auth.NewService(repo, verifier, newTestTokenIssuer(t, testSecret), auth.NewAudiences(testWebClientID, testAndroidClientID))
}

func mustParseUUID(t *testing.T, value string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(value)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", value, err)
	}
	return id
}
