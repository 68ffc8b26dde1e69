package auth

import "strings"

const bearerScheme = "Bearer"

// ParseBearer extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched case-insensitively.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[1] == "" {
		return "", ErrMalformedHeader
	}
	if !strings.EqualFold(parts[0], bearerScheme) {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}
