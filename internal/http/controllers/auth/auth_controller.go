// Package auth contiene los controllers del flujo de autenticación.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	dto "github.com/agrotm/accessguard/internal/http/dto/auth"
	httperrors "github.com/agrotm/accessguard/internal/http/errors"
	"github.com/agrotm/accessguard/internal/http/middlewares"
	svc "github.com/agrotm/accessguard/internal/http/services/auth"
	"github.com/agrotm/accessguard/internal/observability/logger"
)

// maxBodyBytes acota el body de los requests de auth.
const maxBodyBytes = 16 << 10

// Controller maneja los endpoints /v1/auth/*.
type Controller struct {
	service svc.Service
}

// NewController crea el controller de autenticación.
func NewController(service svc.Service) *Controller {
	return &Controller{service: service}
}

// Challenge maneja POST /v1/auth/challenge.
func (c *Controller) Challenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Auth.Challenge"))

	var req dto.ChallengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Challenge(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Login maneja POST /v1/auth/login.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	c.authenticate(w, r, "Auth.Login", c.service.Login)
}

// Register maneja POST /v1/auth/register.
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	c.authenticate(w, r, "Auth.Register", c.service.Register)
}

type authFunc func(ctx context.Context, in dto.AuthenticateRequest) (*dto.SessionResponse, error)

func (c *Controller) authenticate(w http.ResponseWriter, r *http.Request, op string, fn authFunc) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op(op))

	var req dto.AuthenticateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := fn(ctx, req)
	if err != nil {
		c.handleError(w, err, log)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Session maneja GET /v1/auth/session. Requiere WithSession.
func (c *Controller) Session(w http.ResponseWriter, r *http.Request) {
	principal := middlewares.GetPrincipal(r.Context())

	// El principal es red:dirección
	address := principal
	if i := strings.IndexByte(principal, ':'); i >= 0 {
		address = principal[i+1:]
	}

	writeJSON(w, http.StatusOK, dto.SessionInfoResponse{Address: address, Active: true})
}

// Logout maneja POST /v1/auth/logout. Requiere WithSession.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	c.service.Logout(r.Context(), middlewares.GetSessionToken(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll maneja POST /v1/auth/logout-all. Requiere WithSession.
func (c *Controller) LogoutAll(w http.ResponseWriter, r *http.Request) {
	c.service.LogoutAll(r.Context(), middlewares.GetPrincipal(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// handleError mapea errores del service a respuestas HTTP.
func (c *Controller) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	var locked *svc.AccountLockedError
	if errors.As(err, &locked) {
		secs := int64(locked.Remaining.Seconds())
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		httperrors.WriteError(w, httperrors.ErrAccountLocked.WithDetail(
			"reintente en "+strconv.FormatInt(secs, 10)+" segundos"))
		return
	}

	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrUnknownNetwork):
		httperrors.WriteError(w, httperrors.ErrUnknownNetwork)
	case errors.Is(err, svc.ErrRateLimited):
		httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
	case errors.Is(err, svc.ErrInvalidNonce):
		httperrors.WriteError(w, httperrors.ErrInvalidNonce)
	case errors.Is(err, svc.ErrInvalidSignature):
		httperrors.WriteError(w, httperrors.ErrInvalidSignature)
	default:
		log.Error("unexpected auth error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
