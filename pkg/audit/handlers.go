package audit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/observability"
)

// Handlers provides the audit export endpoint
type Handlers struct {
	store *Store
	log   *observability.Logger
	now   func() time.Time
}

// NewHandlers creates new audit handlers
func NewHandlers(store *Store, log *observability.Logger) *Handlers {
	return &Handlers{store: store, log: log, now: time.Now}
}

// RegisterRoutes registers audit log routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/logs/export", h.exportLogs).Methods(http.MethodGet)
}

// exportLogs handles GET /logs/export?format=csv|json
func (h *Handlers) exportLogs(w http.ResponseWriter, r *http.Request) {
	format, err := ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		httputil.WriteValidationError(w, []string{err.Error()})
		return
	}

	cond, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		var verr *crud.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteValidationError(w, verr.Messages)
			return
		}
		httputil.WriteBadRequest(w, httputil.MessageSomethingWentWrong)
		return
	}

	records, err := h.store.Search(r.Context(), cond)
	if err != nil {
		h.log.WithError(err).Error("failed to export audit logs")
		EntryFrom(r.Context()).SetError(err.Error())
		httputil.WriteBadRequest(w, httputil.MessageSomethingWentWrong)
		return
	}

	filename := fmt.Sprintf("logs-%s.%s", h.now().UTC().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)

	if err := WriteExport(w, format, records); err != nil {
		h.log.WithError(err).Error("failed to write audit export")
	}
}
