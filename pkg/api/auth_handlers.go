package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/civicbase/pkg/audit"
	"github.com/platinummonkey/civicbase/pkg/auth"
	"github.com/platinummonkey/civicbase/pkg/crud"
	"github.com/platinummonkey/civicbase/pkg/httputil"
	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/platinummonkey/civicbase/pkg/rbac"
)

// LoginAction is the audit label of POST /auth/login
const LoginAction = "Login"

// Authenticator is the part of auth.Authenticator the handlers use
type Authenticator interface {
	Login(ctx context.Context, login, password, userAgent string) (*auth.LoginResult, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authn      Authenticator
	authorizer *rbac.Authorizer
	tokenTTL   time.Duration
	metrics    *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance. metrics may be nil.
func NewAuthHandlers(authn Authenticator, authorizer *rbac.Authorizer, tokenTTL time.Duration, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		authn:      authn,
		authorizer: authorizer,
		tokenTTL:   tokenTTL,
		metrics:    metrics,
	}
}

// RegisterPublicRoutes registers the routes reachable without a token
func (h *AuthHandlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
}

// RegisterRoutes registers the routes of the authenticated caller
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)
	router.HandleFunc("/auth/password", h.changePassword).Methods(http.MethodPut)
	router.HandleFunc("/permissions", h.permissions).Methods(http.MethodGet)
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	entry := audit.EntryFrom(r.Context())
	entry.SetAction(LoginAction)

	var req LoginRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		writeError(w, r, decodeError(err))
		return
	}
	if err := crud.ValidateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	entry.SetActor(req.Login)

	result, err := h.authn.Login(r.Context(), req.Login, req.Password, r.UserAgent())
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.countLogin("invalid_credentials")
		httputil.WriteUnauthorized(w, err.Error())
		return
	case errors.Is(err, auth.ErrAccountDisabled):
		h.countLogin("disabled")
		httputil.WriteUnauthorized(w, err.Error())
		return
	case errors.Is(err, auth.ErrAccountBlocked):
		h.countLogin("blocked")
		httputil.WriteUnauthorized(w, err.Error())
		return
	default:
		h.countLogin("error")
		writeError(w, r, err)
		return
	}

	h.countLogin("success")
	caller := result.Account.Caller()
	entry.SetActor(caller.UserName)
	httputil.WriteSuccess(w, LoginResponse{
		Token:     result.Token,
		ExpiresIn: int64(h.tokenTTL.Seconds()),
		User:      caller,
	})
}

// MeResponse is the caller with the permission tags it holds
type MeResponse struct {
	*auth.Caller
	Permissions []string `json:"permissions"`
}

// me handles GET /auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	perms, err := h.authorizer.Granted(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, MeResponse{Caller: caller, Permissions: perms})
}

// changePassword handles PUT /auth/password
func (h *AuthHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	var req ChangePasswordRequest
	if err := httputil.ParseJSON(r, &req); err != nil {
		writeError(w, r, decodeError(err))
		return
	}
	if err := crud.ValidateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	err := h.authn.ChangePassword(r.Context(), caller.UserID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		httputil.WriteBadRequest(w, "Current password is incorrect")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "Password updated"})
}

// permissions handles GET /permissions
func (h *AuthHandlers) permissions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.authorizer.Registry().Permissions())
}

func (h *AuthHandlers) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}
