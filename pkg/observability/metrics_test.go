package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)

	assert.Panics(t, func() { NewMetrics(registry) }, "second registration must collide")
}

func TestMetrics_ObserveSync(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	var observer crud.SyncObserver = m
	observer.ObserveSync("regions", crud.StateValidating)
	observer.ObserveSync("regions", crud.StateTransacting)
	observer.ObserveSync("regions", crud.StateCommitted)
	observer.ObserveSync("regions", crud.StateCommitted)
	observer.ObserveSync("departments", crud.StateAborted)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncOutcomesTotal.WithLabelValues("regions", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncOutcomesTotal.WithLabelValues("departments", "aborted")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.SyncOutcomesTotal))
}

func TestMetrics_AuditDropped(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AuditDropped(assert.AnError)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDroppedTotal))
}

func TestMetrics_RecordDBStats(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordDBStats(sql.DBStats{OpenConnections: 7, InUse: 3, Idle: 4, WaitCount: 2, WaitDuration: 1500 * time.Millisecond})

	assert.Equal(t, 7.0, testutil.ToFloat64(m.DBConnectionsOpen))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DBConnectionsInUse))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.DBConnectionsWaitDuration))
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/regions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("ok"))
	})

	for _, id := range []string{"65e1a2b3c4d5e6f708192a3b", "65e1a2b3c4d5e6f708192a3c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/regions/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/regions/{id}", "201")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestsTotal))
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordsTotal.WithLabelValues("regions").Set(4)

	w := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `civicbase_records_total{collection="regions"} 4`))
}
