package audit

import (
	"time"

	"github.com/platinummonkey/civicbase/pkg/crud"
)

// State is the outcome of an audited request
type State string

const (
	StateSuccess     State = "SUCCESS"
	StateClientError State = "CLIENT_ERROR"
	StateServerError State = "SERVER_ERROR"
)

// Anonymous is the actor recorded for unauthenticated requests
const Anonymous = "anonymous"

// StateFor derives the outcome from the response code. Codes from 200 up to
// 298 succeed, 5xx are server errors and everything else is a client error.
func StateFor(code int) State {
	switch {
	case code >= 200 && code < 299:
		return StateSuccess
	case code >= 500:
		return StateServerError
	default:
		return StateClientError
	}
}

// Record is one audit log entry. It is written once per request and never
// updated.
type Record struct {
	ID        string    `json:"id,omitempty"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	State     State     `json:"state"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Host      string    `json:"host"`
	UserAgent string    `json:"userAgent"`
	IP        string    `json:"ip"`
	Code      int       `json:"code"`
	Duration  int64     `json:"duration"`
	Error     string    `json:"error,omitempty"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document converts the record into a logs collection document
func (r *Record) Document() crud.Document {
	doc := crud.Document{
		"action":    r.Action,
		"actor":     r.Actor,
		"state":     string(r.State),
		"method":    r.Method,
		"url":       r.URL,
		"host":      r.Host,
		"userAgent": r.UserAgent,
		"ip":        r.IP,
		"code":      int64(r.Code),
		"duration":  r.Duration,
		"version":   r.Version,
	}
	if r.Error != "" {
		doc["error"] = r.Error
	} else {
		doc["error"] = nil
	}
	return doc
}

// RecordFromDocument converts a logs collection document into a Record
func RecordFromDocument(doc crud.Document) *Record {
	rec := &Record{
		ID:        doc.ID(),
		Action:    doc.String("action"),
		Actor:     doc.String("actor"),
		State:     State(doc.String("state")),
		Method:    doc.String("method"),
		URL:       doc.String("url"),
		Host:      doc.String("host"),
		UserAgent: doc.String("userAgent"),
		IP:        doc.String("ip"),
		Error:     doc.String("error"),
		Version:   doc.String("version"),
	}
	if n, ok := doc["code"].(int64); ok {
		rec.Code = int(n)
	}
	if n, ok := doc["duration"].(int64); ok {
		rec.Duration = n
	}
	if t, ok := doc["createdAt"].(time.Time); ok {
		rec.CreatedAt = t
	}
	return rec
}

// ExportFormat represents the format for exporting audit logs
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
)
