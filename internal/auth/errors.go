package auth

import "errors"

var (
	// ErrMissingCredential means the request carried no Authorization header.
	ErrMissingCredential = errors.New("missing credential")

	// ErrMalformedCredential means the Authorization header did not carry a
	// non-empty Bearer token.
	ErrMalformedCredential = errors.New("malformed credential")
)
