package solver

import (
	"crypto/subtle"
	"net/http"

	"github.com/BaSui01/quizflow/types"
)

// Verifier checks inbound requests against the configured student identity.
// The secret is never logged anywhere; comparison is constant-time so the
// check leaks nothing about the expected value.
type Verifier struct {
	email  string
	secret string
}

// NewVerifier creates a Verifier for the configured credentials.
func NewVerifier(email, secret string) *Verifier {
	return &Verifier{email: email, secret: secret}
}

// Verify returns an AUTHENTICATION error unless both email and secret match.
func (v *Verifier) Verify(email, secret string) error {
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(v.secret)) == 1
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(v.email)) == 1

	if !secretOK {
		return types.NewError(types.ErrAuthentication, "invalid secret").
			WithHTTPStatus(http.StatusForbidden)
	}
	if !emailOK {
		return types.NewError(types.ErrAuthentication, "invalid email").
			WithHTTPStatus(http.StatusForbidden)
	}
	return nil
}
