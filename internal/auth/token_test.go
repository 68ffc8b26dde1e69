package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, clock *fakeClock) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, time.Hour, WithTokenClock(clock.Now), WithTokenIssuer("sessiongate"))
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	return issuer
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)
	userID := uuid.New()

	token, expiresAt, err := issuer.Issue(userID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if want := clock.now.Add(time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, expiresAt)
	}

	for _, offset := range []time.Duration{0, 30 * time.Minute, time.Hour - time.Second} {
		clock.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset)
		got, err := issuer.Verify(token)
		if err != nil {
			t.Fatalf("Verify at +%s returned error: %v", offset, err)
		}
		if got != userID {
			t.Fatalf("expected user %s, got %s", userID, got)
		}
	}
}

func TestTokenIssuerExpired(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	issuer := newTestIssuer(t, clock)

	token, _, err := issuer.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	clock.now = start.Add(time.Hour + time.Second)
	_, err = issuer.Verify(token)
	if !errors.Is(err, ErrExpiredCredential) {
		t.Fatalf("expected ErrExpiredCredential, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expired token must not be reported as invalid: %v", err)
	}
}

func TestTokenIssuerRejectsOtherSecret(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)
	other, err := NewTokenIssuer([]byte("another-secret-another-secret-xx"), time.Hour, WithTokenClock(clock.Now), WithTokenIssuer("sessiongate"))
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	token, _, err := other.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestTokenIssuerTamperSensitivity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	for n := 0; n < 20; n++ {
		token, _, err := issuer.Issue(uuid.New())
		if err != nil {
			t.Fatalf("Issue returned error: %v", err)
		}

		for i := range token {
			for bit := 0; bit < 8; bit++ {
				tampered := []byte(token)
				tampered[i] ^= 1 << bit
				if _, err := issuer.Verify(string(tampered)); !errors.Is(err, ErrInvalidCredential) {
					t.Fatalf("token %d: flipping bit %d of %q at %d: expected ErrInvalidCredential, got %v", n, bit, token[i], i, err)
				}
			}
		}
	}
}

func TestTokenIssuerRejectsNoneAndOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)
	userID := uuid.New()

	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "sessiongate",
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
		UserID: userID.String(),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := issuer.Verify(unsigned); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for alg=none, got %v", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign HS512 token: %v", err)
	}
	if _, err := issuer.Verify(hs512); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for HS512, got %v", err)
	}
}

func TestTokenIssuerRejectsMissingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	issuer := newTestIssuer(t, clock)
	userID := uuid.New()

	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), Issuer: "sessiongate"},
		UserID:           userID.String(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential without exp, got %v", err)
	}
}

func TestTokenIssuerRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t, &fakeClock{now: time.Now()})

	for _, raw := range []string{"", "   ", "not-a-token", strings.Repeat("a.", 3)} {
		if _, err := issuer.Verify(raw); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("Verify(%q): expected ErrInvalidCredential, got %v", raw, err)
		}
	}
}

func TestNewTokenIssuerValidation(t *testing.T) {
	if _, err := NewTokenIssuer(nil, time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}

	issuer, err := NewTokenIssuer(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	if issuer.TTL() != time.Hour {
		t.Fatalf("expected default TTL of 1h, got %s", issuer.TTL())
	}

	if _, _, err := issuer.Issue(uuid.Nil); err == nil {
		t.Fatal("expected error when issuing for nil user id")
	}
}
