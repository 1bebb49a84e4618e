package audit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu      sync.Mutex
	records []*Record
	err     error
	closed  bool
}

func (l *recordingLogger) Log(ctx context.Context, record *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return l.err
}

func (l *recordingLogger) Close() error {
	l.closed = true
	return nil
}

func (l *recordingLogger) all() []*Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Record(nil), l.records...)
}

func testLog() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func serve(t *testing.T, m *Middleware, h http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, *Record) {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler(h).ServeHTTP(w, req)
	m.Wait()

	rl := m.logger.(*recordingLogger)
	records := rl.all()
	require.Len(t, records, 1)
	return w, records[0]
}

func TestMiddleware_Success(t *testing.T) {
	sink := &recordingLogger{}
	m := NewMiddleware(sink, "1.2.3", testLog())
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(15 * time.Millisecond)
		return tick
	}

	req := httptest.NewRequest("POST", "/regions?x=1", nil)
	req.Header.Set("User-Agent", "admin-ui")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	w, rec := serve(t, m, func(w http.ResponseWriter, r *http.Request) {
		entry := EntryFrom(r.Context())
		entry.SetAction("Create region")
		entry.SetActor("admin")
		httputil.WriteCreated(w, map[string]string{"name": "Dakar"})
	}, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Create region", rec.Action)
	assert.Equal(t, "admin", rec.Actor)
	assert.Equal(t, StateSuccess, rec.State)
	assert.Equal(t, "POST", rec.Method)
	assert.Equal(t, "/regions?x=1", rec.URL)
	assert.Equal(t, "admin-ui", rec.UserAgent)
	assert.Equal(t, "203.0.113.9", rec.IP)
	assert.Equal(t, 201, rec.Code)
	assert.Equal(t, int64(15), rec.Duration)
	assert.Equal(t, "1.2.3", rec.Version)
	assert.Empty(t, rec.Error)
}

func TestMiddleware_DefaultsForUnlabelledRequest(t *testing.T) {
	m := NewMiddleware(&recordingLogger{}, "1.0.0", testLog())

	_, rec := serve(t, m, func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w)
	}, httptest.NewRequest("GET", "/nowhere", nil))

	assert.Equal(t, "GET /nowhere", rec.Action)
	assert.Equal(t, Anonymous, rec.Actor)
	assert.Equal(t, StateClientError, rec.State)
	assert.Equal(t, httputil.MessageNotFound, rec.Error)
	assert.Equal(t, "192.0.2.1", rec.IP)
}

func TestMiddleware_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		state   State
		message string
	}{
		{
			name: "single message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				httputil.WriteBadRequest(w, "Region already exists")
			},
			state:   StateClientError,
			message: "Region already exists",
		},
		{
			name: "validation messages",
			handler: func(w http.ResponseWriter, r *http.Request) {
				httputil.WriteValidationError(w, []string{"name is required", "region is required"})
			},
			state:   StateClientError,
			message: "name is required; region is required",
		},
		{
			name: "explicit message wins",
			handler: func(w http.ResponseWriter, r *http.Request) {
				EntryFrom(r.Context()).SetError("database unreachable")
				httputil.WriteInternalError(w)
			},
			state:   StateServerError,
			message: "database unreachable",
		},
		{
			name: "plain text body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			state:   StateServerError,
			message: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware(&recordingLogger{}, "1.0.0", testLog())
			_, rec := serve(t, m, tt.handler, httptest.NewRequest("PUT", "/regions/1", nil))

			assert.Equal(t, tt.state, rec.State)
			assert.Equal(t, tt.message, rec.Error)
		})
	}
}

func TestMiddleware_SinkFailureDoesNotFailRequest(t *testing.T) {
	sink := &recordingLogger{err: errors.New("disk full")}
	var failures []error
	var mu sync.Mutex
	m := NewMiddleware(sink, "1.0.0", testLog(), WithErrorHandler(func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}), WithWriteTimeout(time.Second))

	w, _ := serve(t, m, func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, nil)
	}, httptest.NewRequest("GET", "/regions/all", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.EqualError(t, failures[0], "disk full")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.1 ")
	assert.Equal(t, "203.0.113.1", ClientIP(req))
}
