package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims holds what the client cares about in an access token.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// inspectToken reads the subject, role and expiry from a JWT access token
// without verifying its signature; the client has no key and only uses the
// values for display and for discarding an expired persisted record. Opaque
// (non-JWT) tokens yield zero values.
func inspectToken(token string) (subject, role string, expiresAt time.Time) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", "", time.Time{}
	}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return claims.Subject, claims.Role, expiresAt
}
