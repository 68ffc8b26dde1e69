package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const defaultVerifyTimeout = 10 * time.Second

// GoogleIssuers are the issuer strings Google writes into ID tokens.
var GoogleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// idTokenVerifier is satisfied by *oidc.IDTokenVerifier.
type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// GoogleVerifier validates Google ID tokens and enforces local issuer,
// audience and authorized-party policy on top of the signature and
// expiry checks done by go-oidc.
type GoogleVerifier struct {
	verifier        idTokenVerifier
	issuers         map[string]struct{}
	rejectAZPChange bool
	timeout         time.Duration
	logger          *slog.Logger
}

// GoogleVerifierOption customizes a GoogleVerifier.
type GoogleVerifierOption func(*GoogleVerifier)

// WithRejectAuthorizedPartyMismatch turns an azp mismatch into a hard failure
// instead of a logged warning.
func WithRejectAuthorizedPartyMismatch(reject bool) GoogleVerifierOption {
	return func(g *GoogleVerifier) {
		g.rejectAZPChange = reject
	}
}

// WithVerifyTimeout bounds every call that may reach the provider.
func WithVerifyTimeout(timeout time.Duration) GoogleVerifierOption {
	return func(g *GoogleVerifier) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithIssuers replaces the accepted issuer strings.
func WithIssuers(issuers ...string) GoogleVerifierOption {
	return func(g *GoogleVerifier) {
		g.issuers = issuerSet(issuers)
	}
}

// NewGoogleVerifier discovers the provider at issuerURL and returns a verifier
// backed by its cached remote key set. Discovery and key fetches go through an
// http.Client bounded by the verify timeout.
func NewGoogleVerifier(ctx context.Context, issuerURL string, logger *slog.Logger, opts ...GoogleVerifierOption) (*GoogleVerifier, error) {
	g := newGoogleVerifier(nil, logger, opts...)

	client := &http.Client{Timeout: g.timeout}
	providerCtx := context.WithValue(ctx, oauth2.HTTPClient, client)

	discoverCtx, cancel := context.WithTimeout(providerCtx, g.timeout)
	defer cancel()

	provider, err := oidc.NewProvider(discoverCtx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	// Issuer and audience are enforced locally so that both Google issuer
	// spellings are accepted and the audience is chosen per request.
	g.verifier = provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
		SkipIssuerCheck:   true,
	})
	return g, nil
}

func newGoogleVerifier(verifier idTokenVerifier, logger *slog.Logger, opts ...GoogleVerifierOption) *GoogleVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	g := &GoogleVerifier{
		verifier: verifier,
		issuers:  issuerSet(GoogleIssuers),
		timeout:  defaultVerifyTimeout,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Verify validates rawIDToken for the expected audience and returns the
// identity it asserts.
func (g *GoogleVerifier) Verify(ctx context.Context, rawIDToken string, expected Audience) (*IdentityClaim, error) {
	rawIDToken = strings.TrimSpace(rawIDToken)
	if rawIDToken == "" {
		return nil, fmt.Errorf("%w: empty id token", ErrMalformedAssertion)
	}
	if strings.TrimSpace(expected.ClientID) == "" {
		return nil, fmt.Errorf("%w: no expected audience configured", ErrAudienceMismatch)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	idToken, err := g.verifier.Verify(verifyCtx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var raw googleClaims
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("%w: parse claims: %w", ErrMalformedAssertion, err)
	}

	subject := strings.TrimSpace(idToken.Subject)
	if subject == "" {
		subject = strings.TrimSpace(raw.Sub)
	}
	switch {
	case subject == "":
		return nil, fmt.Errorf("%w: missing sub", ErrMalformedAssertion)
	case idToken.Issuer == "":
		return nil, fmt.Errorf("%w: missing iss", ErrMalformedAssertion)
	case len(idToken.Audience) == 0:
		return nil, fmt.Errorf("%w: missing aud", ErrMalformedAssertion)
	}

	if _, ok := g.issuers[idToken.Issuer]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUntrustedIssuer, idToken.Issuer)
	}

	// Google issues single-audience tokens; the audience must be exactly the
	// client id of the platform making the request.
	if len(idToken.Audience) != 1 || idToken.Audience[0] != expected.ClientID {
		return nil, fmt.Errorf("%w: got %v", ErrAudienceMismatch, idToken.Audience)
	}

	if expected.AuthorizedParty != "" && raw.AZP != "" && raw.AZP != expected.AuthorizedParty {
		if g.rejectAZPChange {
			return nil, fmt.Errorf("%w: %q", ErrAuthorizedPartyMismatch, raw.AZP)
		}
		g.logger.Warn("id token authorized party mismatch", "azp", raw.AZP, "expected", expected.AuthorizedParty)
	}

	return &IdentityClaim{
		Subject:         subject,
		Email:           strings.TrimSpace(raw.Email),
		EmailVerified:   raw.EmailVerified,
		Name:            strings.TrimSpace(raw.Name),
		Picture:         strings.TrimSpace(raw.Picture),
		Issuer:          idToken.Issuer,
		Audience:        idToken.Audience[0],
		AuthorizedParty: raw.AZP,
	}, nil
}

func issuerSet(issuers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(issuers))
	for _, iss := range issuers {
		if iss = strings.TrimSpace(iss); iss != "" {
			set[iss] = struct{}{}
		}
	}
	return set
}
