package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reports the exp claim of a JWT-shaped token without verifying it.
// Tokens are opaque to the client; this exists only so the current identity can be
// displayed with its expiry. ok is false when the token carries no readable expiry.
func TokenExpiry(token string) (expiry time.Time, ok bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
