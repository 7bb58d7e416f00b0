package auth

import "strings"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. A missing header and a header with the wrong scheme (or an empty
// token) are distinct failures so the gateway can report them separately.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedCredential
	}
	if parts[1] == "" {
		return "", ErrMalformedCredential
	}

	return parts[1], nil
}
