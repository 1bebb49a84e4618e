package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/civicbase/pkg/observability"
)

// maxCapturedBody bounds the error body kept to extract the failure message
const maxCapturedBody = 4096

// Middleware emits one audit record per request. Records are written in
// the background so a failing sink never fails the request.
type Middleware struct {
	logger  Logger
	version string
	log     *observability.Logger
	onError func(error)
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// MiddlewareOption configures the audit middleware
type MiddlewareOption func(*Middleware)

// WithErrorHandler is called when a record could not be written
func WithErrorHandler(fn func(error)) MiddlewareOption {
	return func(m *Middleware) { m.onError = fn }
}

// WithWriteTimeout bounds each background write (default 5s)
func WithWriteTimeout(d time.Duration) MiddlewareOption {
	return func(m *Middleware) { m.timeout = d }
}

// NewMiddleware creates a new audit middleware
func NewMiddleware(logger Logger, version string, log *observability.Logger, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		logger:  logger,
		version: version,
		log:     log,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// the body of error responses
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.statusCode >= 400 && rw.body.Len() < maxCapturedBody {
		rw.body.Write(b[:min(len(b), maxCapturedBody-rw.body.Len())])
	}
	return rw.ResponseWriter.Write(b)
}

// errorMessage extracts error.message from an enveloped error body
func (rw *responseWriter) errorMessage() string {
	if rw.body.Len() == 0 {
		return ""
	}
	var body struct {
		Error struct {
			Message interface{} `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rw.body.Bytes(), &body); err != nil {
		return ""
	}
	switch msg := body.Error.Message.(type) {
	case string:
		return msg
	case []interface{}:
		parts := make([]string, 0, len(msg))
		for _, p := range msg {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// Handler wraps an HTTP handler with audit logging
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.now()
		entry := NewEntry()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r.WithContext(WithEntry(r.Context(), entry)))

		m.emit(m.buildRecord(r, entry, wrapped, m.now().Sub(start)))
	})
}

func (m *Middleware) buildRecord(r *http.Request, entry *Entry, rw *responseWriter, elapsed time.Duration) *Record {
	action, actor, message := entry.snapshot()
	if action == "" {
		action = r.Method + " " + r.URL.Path
	}
	if actor == "" {
		actor = Anonymous
	}
	if message == "" && rw.statusCode >= 400 {
		message = rw.errorMessage()
	}

	return &Record{
		Action:    action,
		Actor:     actor,
		State:     StateFor(rw.statusCode),
		Method:    r.Method,
		URL:       r.URL.RequestURI(),
		Host:      r.Host,
		UserAgent: r.UserAgent(),
		IP:        ClientIP(r),
		Code:      rw.statusCode,
		Duration:  elapsed.Milliseconds(),
		Error:     message,
		Version:   m.version,
	}
}

// emit writes the record in the background
func (m *Middleware) emit(record *Record) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer observability.RecoverPanic(m.log, "audit write")

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		if err := m.logger.Log(ctx, record); err != nil {
			m.log.WithError(err).WithField("action", record.Action).Warn("failed to write audit log")
			if m.onError != nil {
				m.onError(err)
			}
		}
	}()
}

// Wait blocks until every pending record has been written
func (m *Middleware) Wait() {
	m.wg.Wait()
}

// ClientIP returns the first X-Forwarded-For address, else the remote host
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
