package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/httputil"
)

// TokenVerifier turns a bearer token into the caller it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token, userAgent string) (*auth.Caller, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier TokenVerifier, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			unauthorizedResponse(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			unauthorizedResponse(w, "invalid authorization header format")
			return
		}

		caller, err := m.verifier.Verify(r.Context(), parts[1], r.UserAgent())
		if err != nil {
			unauthorizedResponse(w, "invalid or expired token")
			return
		}

		audit.EntryFrom(r.Context()).SetActor(caller.UserName)
		next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
	})
}

// GetCaller extracts the authenticated caller from the request
func GetCaller(r *http.Request) *auth.Caller {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		return nil
	}
	return caller
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	httputil.WriteUnauthorized(w, message)
}
