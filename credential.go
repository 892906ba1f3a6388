package storefront

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseCredential builds a Credential from a bearer token. When the token is a
// JWT its sub and exp claims are copied without verifying the signature.
// Opaque tokens are accepted as-is.
func ParseCredential(token string) (Credential, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Credential{}, ValidationError("token must not be empty")
	}
	cred := Credential{Token: token}
	if strings.Count(token, ".") != 2 {
		return cred, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return cred, nil
	}
	if sub, err := claims.GetSubject(); err == nil {
		cred.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		cred.ExpiresAt = exp.Time.UTC()
	}
	return cred, nil
}

// Expired reports whether the credential carries an expiry at or before now.
// Credentials without one never expire client-side.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Usable reports whether c can be attached to a request at now.
func (c *Credential) Usable(now time.Time) bool {
	return c != nil && c.Token != "" && !c.Expired(now)
}
