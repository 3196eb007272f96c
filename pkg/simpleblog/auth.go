package simpleblog

import (
	"crypto/subtle"
)

// SharedSecret is the server-held credential guarding mutating operations.
type SharedSecret string

// Configured reports whether a server secret is set.
func (s SharedSecret) Configured() bool {
	return s != ""
}

// Verify compares credential against the server secret in constant time.
// An empty server secret is a configuration error, reported separately
// from a wrong or missing credential.
func (s SharedSecret) Verify(credential string) error {
	if s == "" {
		return ErrSecretNotConfigured
	}
	if credential == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s), []byte(credential)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
