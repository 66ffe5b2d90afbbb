// Package auth contiene los services del flujo de autenticación por wallet.
package auth

import (
	"context"
	"time"

	"github.com/agrotm/accessguard/internal/alert"
	dto "github.com/agrotm/accessguard/internal/http/dto/auth"
	"github.com/agrotm/accessguard/internal/security/attempt"
	"github.com/agrotm/accessguard/internal/security/lockout"
	"github.com/agrotm/accessguard/internal/security/nonce"
	"github.com/agrotm/accessguard/internal/security/wallet"
	"github.com/agrotm/accessguard/internal/session"
)

// Service expone las operaciones de autenticación.
type Service interface {
	Challenge(ctx context.Context, in dto.ChallengeRequest) (*dto.ChallengeResponse, error)
	Login(ctx context.Context, in dto.AuthenticateRequest) (*dto.SessionResponse, error)
	Register(ctx context.Context, in dto.AuthenticateRequest) (*dto.SessionResponse, error)
	Logout(ctx context.Context, token string)
	LogoutAll(ctx context.Context, principalID string)
}

// Deps contiene las dependencias para crear el service.
type Deps struct {
	Nonces   *nonce.Service
	Attempts *attempt.Tracker
	Locks    *lockout.Manager
	Sessions *session.Store
	Verifier wallet.Verifier
	Notifier alert.Notifier // nil = NoOp

	NonceTTL    time.Duration
	IdleTimeout time.Duration
}

// NewService crea el service de autenticación.
func NewService(d Deps) Service {
	if d.Notifier == nil {
		d.Notifier = alert.NoopNotifier{}
	}
	if d.NonceTTL <= 0 {
		d.NonceTTL = nonce.DefaultTTL
	}
	if d.IdleTimeout <= 0 {
		d.IdleTimeout = session.DefaultIdleTimeout
	}
	return &service{deps: d}
}
