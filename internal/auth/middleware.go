package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yesviral/checkout-api/internal/common"
)

// Middleware attaches the verified customer email to the request context when
// a storefront session token is present. Checkout works for anonymous buyers
// too, so an absent or invalid token never blocks the request.
type Middleware struct {
	Tokens SessionTokens
	Cookie string
	Log    zerolog.Logger
}

// Attach implements the http.Handler middleware interface.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		email, err := m.Tokens.Email(token)
		if err != nil {
			m.Log.Debug().Err(err).Msg("storefront session token rejected")
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithCustomerEmail(r.Context(), email)))
	})
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if m.Cookie != "" {
		if cookie, err := r.Cookie(m.Cookie); err == nil {
			return strings.TrimSpace(cookie.Value)
		}
	}
	return ""
}
