package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/platinummonkey/civicbase/pkg/rbac"
)

var errBodyTooLarge = errors.New("request body too large")

// writeError maps err onto the error envelope. Errors without a client
// facing message are logged and answered with the generic 400. Only a
// recovered panic answers 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid  *crud.ValidationError
		rejected *crud.RejectedError
	)
	switch {
	case errors.As(err, &invalid):
		httputil.WriteValidationError(w, invalid.Messages)
	case errors.As(err, &rejected):
		httputil.WriteBadRequest(w, rejected.Message)
	case errors.Is(err, httputil.ErrEmptyBody):
		httputil.WriteValidationError(w, []string{err.Error()})
	case errors.Is(err, errBodyTooLarge):
		httputil.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, crud.ErrUnknownField):
		httputil.WriteValidationError(w, []string{err.Error()})
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrAccountNotFound):
		httputil.WriteUnauthorized(w, err.Error())
	case errors.Is(err, rbac.ErrForbidden):
		httputil.WriteForbidden(w)
	case errors.Is(err, crud.ErrSomethingWentWrong), errors.Is(err, crud.ErrSyncAborted):
		somethingWentWrong(w, r, err, "persistence failed")
	default:
		somethingWentWrong(w, r, err, "request failed")
	}
}

func somethingWentWrong(w http.ResponseWriter, r *http.Request, err error, msg string) {
	observability.FromContext(r.Context()).
		WithError(err).
		WithField("path", r.URL.Path).
		Error(msg)
	audit.EntryFrom(r.Context()).SetError(err.Error())
	httputil.WriteBadRequest(w, httputil.MessageSomethingWentWrong)
}

// notFoundMessage is the 400 message for an id that matches no record.
func notFoundMessage(desc *crud.Descriptor) string {
	return strings.ToUpper(desc.Entity[:1]) + desc.Entity[1:] + " not found"
}

// decodeError turns a body decoding failure into a ValidationError.
func decodeError(err error) error {
	if errors.Is(err, httputil.ErrEmptyBody) {
		return err
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return crud.NewValidationError(err.Error())
}
