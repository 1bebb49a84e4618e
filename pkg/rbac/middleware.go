package rbac

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/observability"
)

// Middleware enforces the Authorizer on every request it wraps. It must
// run after authentication and inside the audit middleware.
type Middleware struct {
	authorizer *Authorizer
	log        *observability.Logger
}

// NewMiddleware creates the authorization middleware.
func NewMiddleware(authorizer *Authorizer, log *observability.Logger) *Middleware {
	return &Middleware{authorizer: authorizer, log: log}
}

// Handler checks the route-derived permission.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return m.Require("")(next)
}

// Require checks permission instead of the route-derived one when
// permission is non-empty.
func (m *Middleware) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, _ := auth.CallerFrom(r.Context())

			decision, err := m.authorizer.Authorize(r.Context(), caller, r.Method, r.URL.Path, permission)

			entry := audit.EntryFrom(r.Context())
			entry.SetAction(decision.Label)
			if caller != nil {
				entry.SetActor(caller.UserName)
			}

			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrUnauthenticated):
				httputil.WriteUnauthorized(w, err.Error())
			case errors.Is(err, ErrForbidden):
				httputil.WriteForbidden(w)
			default:
				m.log.WithError(err).WithField("path", r.URL.Path).Error("authorization failed")
				entry.SetError(err.Error())
				httputil.WriteBadRequest(w, httputil.MessageSomethingWentWrong)
			}
		})
	}
}
