// Package auth inspects the shopper's bearer credential. The storefront never
// verifies signatures: the commerce API is the authority and the token is
// forwarded unchanged. Claims are read only to enrich logs.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "bearer "

// Credential is the optional authorization a shopper session may hold.
type Credential struct {
	Token     string
	Subject   string
	ExpiresAt *time.Time
}

// IsZero reports whether no credential is present (anonymous checkout).
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// Header renders the Authorization header value.
func (c Credential) Header() string {
	if c.IsZero() {
		return ""
	}
	return "Bearer " + c.Token
}

// Expired reports whether the token carries an exp claim in the past.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// FromHeader parses an Authorization header. Non-bearer or empty values yield
// the zero credential.
func FromHeader(header string) Credential {
	header = strings.TrimSpace(header)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return Credential{}
	}
	return FromToken(header[len(bearerPrefix):])
}

// FromToken wraps a raw token, reading subject and expiry when the token is a JWT.
func FromToken(token string) Credential {
	token = strings.TrimSpace(token)
	if token == "" {
		return Credential{}
	}
	cred := Credential{Token: token}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return cred
	}
	cred.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		cred.ExpiresAt = &exp
	}
	return cred
}
