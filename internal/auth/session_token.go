package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	errNoToken      = errors.New("auth: token missing")
	errMissingEmail = errors.New("auth: token has no email claim")
)

// SessionTokens verifies storefront session tokens shared across the shop's
// subdomains. The only claim checkout cares about is the verified customer
// email, used to prefill the billing email.
type SessionTokens struct {
	Secret    []byte
	Issuer    string
	ClockSkew time.Duration
}

// Email verifies the token and returns its email claim.
func (s SessionTokens) Email(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", errNoToken
	}
	if len(s.Secret) == 0 {
		return "", errors.New("auth: session token secret not configured")
	}
	opts := []jwt.ParseOption{jwt.WithKey(jwa.HS256, s.Secret)}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}
	if s.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(s.ClockSkew))
	}
	parsed, err := jwt.ParseString(trimmed, opts...)
	if err != nil {
		return "", err
	}
	raw, ok := parsed.Get("email")
	if !ok {
		return "", errMissingEmail
	}
	email, ok := raw.(string)
	if !ok || strings.TrimSpace(email) == "" {
		return "", errMissingEmail
	}
	return strings.TrimSpace(email), nil
}
