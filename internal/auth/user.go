package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the durable local identity for one Google account.
type User struct {
	ID            uuid.UUID
	GoogleSubject string
	Email         string
	Name          string
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   time.Time
}

// IdentityClaim is what a verified Google ID token says about its bearer.
// Only GoogleVerifier produces it.
type IdentityClaim struct {
	Subject         string
	Email           string
	EmailVerified   bool
	Name            string
	Picture         string
	Issuer          string
	Audience        string
	AuthorizedParty string
}

// googleClaims mirrors the JSON payload of a Google ID token.
type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	AZP           string `json:"azp"`
}

// Platform identifies the first-party client application asking to log in.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformAndroid Platform = "android"
)

// ParsePlatform normalizes a client-supplied platform name.
func ParsePlatform(value string) Platform {
	return Platform(strings.ToLower(strings.TrimSpace(value)))
}

// Label names the platform for metrics and logs. Unrecognized values, which
// are verified against the web audience, collapse to "other".
func (p Platform) Label() string {
	switch p {
	case PlatformWeb, PlatformAndroid, "":
		return string(p)
	default:
		return "other"
	}
}

// Audience is the expectation an assertion is checked against.
// AuthorizedParty is optional; when set, a differing azp claim is reported.
type Audience struct {
	ClientID        string
	AuthorizedParty string
}

// Audiences maps each supported platform to exactly one expected audience.
type Audiences struct {
	Web     Audience
	Android Audience
}

// NewAudiences builds the platform mapping from the configured OAuth client ids.
// Android assertions additionally carry the android client id as azp.
func NewAudiences(webClientID, androidClientID string) Audiences {
	return Audiences{
		Web:     Audience{ClientID: webClientID},
		Android: Audience{ClientID: androidClientID, AuthorizedParty: androidClientID},
	}
}

// For returns the audience expected for the platform. Unrecognized
// platforms fall back to the web audience.
func (a Audiences) For(p Platform) Audience {
	if p == PlatformAndroid {
		return a.Android
	}
	return a.Web
}
