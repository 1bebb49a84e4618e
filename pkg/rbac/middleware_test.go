package rbac

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (l *captureLogger) Log(_ context.Context, rec *audit.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *captureLogger) Close() error { return nil }

// serveGuarded runs req through audit, an injected caller and the RBAC
// middleware, and returns the response and the audit record.
func serveGuarded(t *testing.T, source PermissionSource, caller *auth.Caller, override string, req *http.Request) (*httptest.ResponseRecorder, *audit.Record) {
	t.Helper()
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sink := &captureLogger{}
	auditMW := audit.NewMiddleware(sink, "test", log)
	rbacMW := NewMiddleware(NewAuthorizer(DefaultRegistry(), source, DefaultSuperuserProfile), log)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	inject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller != nil {
				r = r.WithContext(auth.WithCaller(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}

	w := httptest.NewRecorder()
	auditMW.Handler(inject(rbacMW.Require(override)(ok))).ServeHTTP(w, req)
	auditMW.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.records, 1)
	return w, sink.records[0]
}

func TestMiddleware_Allowed(t *testing.T) {
	source := &staticSource{perms: map[string][]string{"p1": {"EDIT_REGION"}}}

	w, rec := serveGuarded(t, source, callerWith("p1", "EDITOR"), "", httptest.NewRequest("PUT", "/regions/"+testID, nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Update region", rec.Action)
	assert.Equal(t, "jdoe", rec.Actor)
	assert.Equal(t, audit.StateSuccess, rec.State)
}

func TestMiddleware_Forbidden(t *testing.T) {
	source := &staticSource{perms: map[string][]string{"p1": {"LIST_REGION"}}}

	w, rec := serveGuarded(t, source, callerWith("p1", "EDITOR"), "", httptest.NewRequest("DELETE", "/regions/"+testID, nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"code":403,"error":{"message":"Forbidden"}}`, w.Body.String())
	assert.Equal(t, "Delete region", rec.Action)
	assert.Equal(t, "jdoe", rec.Actor)
	assert.Equal(t, audit.StateClientError, rec.State)
}

func TestMiddleware_Superuser(t *testing.T) {
	w, _ := serveGuarded(t, &staticSource{}, callerWith("p0", DefaultSuperuserProfile), "", httptest.NewRequest("POST", "/users/delete/all", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMiddleware_Unauthenticated(t *testing.T) {
	w, rec := serveGuarded(t, &staticSource{}, nil, "", httptest.NewRequest("GET", "/regions/all", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "List all regions", rec.Action)
	assert.Equal(t, audit.Anonymous, rec.Actor)
}

func TestMiddleware_UnknownRoute(t *testing.T) {
	w, rec := serveGuarded(t, &staticSource{}, callerWith("p0", DefaultSuperuserProfile), "", httptest.NewRequest("GET", "/admin/"+testID, nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "GET /admin/:id", rec.Action)
}

func TestMiddleware_Override(t *testing.T) {
	source := &staticSource{perms: map[string][]string{"p1": {"LIST_LOG"}}}

	w, _ := serveGuarded(t, source, callerWith("p1", "AUDITOR"), "LIST_LOG", httptest.NewRequest("GET", "/reports", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = serveGuarded(t, source, callerWith("p1", "AUDITOR"), "EXPORT_LOG", httptest.NewRequest("GET", "/logs/export", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMiddleware_SourceFailure(t *testing.T) {
	w, rec := serveGuarded(t, &staticSource{err: assert.AnError}, callerWith("p1", "EDITOR"), "", httptest.NewRequest("GET", "/regions/all", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Something went wrong")
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	assert.Equal(t, audit.StateClientError, rec.State)
}
