package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenParser does not verify signatures. Verification is the server's job;
// the client only needs the expiry claim to schedule proactive refreshes.
var tokenParser = jwt.NewParser()

// Expiry returns the expiration time encoded in a JWT access token.
// Returns an error for malformed tokens or tokens without an exp claim.
func Expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return exp.Time, nil
}

// ExpiresWithin reports whether the token expires within the given window.
// Malformed tokens report true: a token the client cannot read is treated as
// due for refresh rather than trusted.
func ExpiresWithin(token string, window time.Duration) bool {
	exp, err := Expiry(token)
	if err != nil {
		return true
	}
	return time.Until(exp) <= window
}
