package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agrotm/accessguard/internal/honeypot"
	dto "github.com/agrotm/accessguard/internal/http/dto/auth"
	"github.com/agrotm/accessguard/internal/http/middlewares"
	"github.com/agrotm/accessguard/internal/metrics"
	"github.com/agrotm/accessguard/internal/observability/logger"
	"github.com/agrotm/accessguard/internal/security/attempt"
	"github.com/agrotm/accessguard/internal/security/wallet"
)

// Errores del service
var (
	ErrMissingFields    = fmt.Errorf("missing required fields")
	ErrUnknownNetwork   = fmt.Errorf("unknown wallet network")
	ErrRateLimited      = fmt.Errorf("too many attempts")
	ErrInvalidNonce     = fmt.Errorf("invalid or expired nonce")
	ErrInvalidSignature = fmt.Errorf("signature verification failed")
)

// AccountLockedError indica que el identificador está bloqueado.
// Remaining es el único dato del lock que se expone al cliente.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked for %s", e.Remaining.Round(time.Second))
}

type service struct {
	deps Deps
}

func (s *service) Challenge(ctx context.Context, in dto.ChallengeRequest) (*dto.ChallengeResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Challenge"),
	)

	address := strings.TrimSpace(in.Address)
	if address == "" || strings.TrimSpace(in.Network) == "" {
		return nil, ErrMissingFields
	}
	network, ok := wallet.ParseNetwork(in.Network)
	if !ok {
		return nil, ErrUnknownNetwork
	}

	message, err := s.deps.Nonces.Issue(principalID(network, address))
	if err != nil {
		log.Error("no se pudo emitir el desafío", logger.Err(err))
		return nil, err
	}

	log.Debug("desafío emitido", logger.Address(maskAddress(address)), logger.Network(string(network)))
	return &dto.ChallengeResponse{
		Message:   message,
		ExpiresIn: int64(s.deps.NonceTTL.Seconds()),
	}, nil
}

func (s *service) Login(ctx context.Context, in dto.AuthenticateRequest) (*dto.SessionResponse, error) {
	return s.authenticate(ctx, in, attempt.PurposeLogin)
}

func (s *service) Register(ctx context.Context, in dto.AuthenticateRequest) (*dto.SessionResponse, error) {
	return s.authenticate(ctx, in, attempt.PurposeRegistration)
}

// authenticate es el camino compartido de login y registro. El orden de las
// verificaciones importa: lockout antes que rate limit, rate limit antes de
// gastar el nonce, y el nonce se consume aunque la firma después falle.
func (s *service) authenticate(ctx context.Context, in dto.AuthenticateRequest, purpose attempt.Purpose) (*dto.SessionResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Purpose(string(purpose)),
	)

	// Paso 0: Normalización y validación mínima
	address := strings.TrimSpace(in.Address)
	if address == "" || strings.TrimSpace(in.Network) == "" || strings.TrimSpace(in.Signature) == "" {
		metrics.RecordAuthAttempt(string(purpose), "invalid_request")
		return nil, ErrMissingFields
	}
	network, ok := wallet.ParseNetwork(in.Network)
	if !ok {
		metrics.RecordAuthAttempt(string(purpose), "invalid_request")
		return nil, ErrUnknownNetwork
	}

	id := principalID(network, address)
	log = log.With(logger.Address(maskAddress(address)), logger.Network(string(network)))

	// Paso 1: Campos trampa. Un bot que los completó no merece más detalle
	// que una firma inválida.
	if fields := honeypot.DetectTrapFields(in.TrapFields()); len(fields) > 0 {
		for _, f := range fields {
			metrics.RecordTrapField(f)
		}
		log.Warn("campos trampa completados en la solicitud",
			logger.Reason(strings.Join(fields, ",")),
			logger.IP(middlewares.GetClientIP(ctx)),
		)
		metrics.RecordAuthAttempt(string(purpose), "invalid_signature")
		return nil, ErrInvalidSignature
	}

	// Paso 2: Lockout vigente
	if s.deps.Locks.IsLocked(id) {
		metrics.RecordAuthAttempt(string(purpose), "locked")
		return nil, &AccountLockedError{Remaining: s.deps.Locks.Remaining(id)}
	}

	// Paso 3: Presupuesto de intentos. Agotarlo dispara el lockout.
	if !s.deps.Attempts.CheckAndRecord(id, purpose) {
		s.deps.Locks.Lock(id)
		metrics.RecordLockout()
		metrics.RecordAuthAttempt(string(purpose), "rate_limited")
		log.Warn("límite de intentos agotado, identificador bloqueado")

		s.notifyLockout(ctx, network, address, purpose)
		return nil, ErrRateLimited
	}

	// Paso 4: Consumir el desafío. Es de un solo uso: si la firma falla,
	// el cliente debe pedir otro.
	message, ok := s.deps.Nonces.Redeem(id)
	if !ok {
		metrics.RecordAuthAttempt(string(purpose), "invalid_nonce")
		return nil, ErrInvalidNonce
	}

	// Paso 5: Verificar la firma
	if !s.deps.Verifier.Verify(network, message, in.Signature, address) {
		metrics.RecordAuthAttempt(string(purpose), "invalid_signature")
		log.Info("firma inválida")
		return nil, ErrInvalidSignature
	}

	// Paso 6: Éxito. Limpiar intentos fallidos y crear la sesión.
	s.deps.Attempts.Clear(id)

	token, err := s.deps.Sessions.Create(id)
	if err != nil {
		log.Error("no se pudo crear la sesión", logger.Err(err))
		return nil, err
	}

	metrics.RecordAuthAttempt(string(purpose), "success")
	log.Info("autenticación exitosa", logger.PrincipalID(maskAddress(id)))

	return &dto.SessionResponse{
		Token:     token,
		Address:   strings.ToLower(address),
		Network:   string(network),
		ExpiresIn: int64(s.deps.IdleTimeout.Seconds()),
	}, nil
}

func (s *service) Logout(ctx context.Context, token string) {
	s.deps.Sessions.Revoke(token)
	logger.From(ctx).Info("sesión cerrada", logger.Op("Logout"))
}

func (s *service) LogoutAll(ctx context.Context, principalID string) {
	s.deps.Sessions.RevokeAll(principalID)
	logger.From(ctx).Info("todas las sesiones cerradas",
		logger.Op("LogoutAll"),
		logger.PrincipalID(maskAddress(principalID)),
	)
}

// notifyLockout avisa al equipo de seguridad. Best-effort: el resultado de
// la autenticación no depende del canal de alertas.
func (s *service) notifyLockout(ctx context.Context, network wallet.Network, address string, purpose attempt.Purpose) {
	msg := fmt.Sprintf("Identificador: %s\nRed: %s\nPropósito: %s\nHorário: %s",
		maskAddress(address), network, purpose, time.Now().UTC().Format(time.RFC3339))
	if err := s.deps.Notifier.Notify(ctx, "Cuenta bloqueada por intentos fallidos", msg); err != nil {
		logger.From(ctx).Error("fallo al notificar lockout", logger.Err(err))
	}
}

// principalID forma el identificador canónico red:dirección.
// Incluir la red evita colisiones entre direcciones de redes distintas.
func principalID(network wallet.Network, address string) string {
	return string(network) + ":" + strings.ToLower(strings.TrimSpace(address))
}

// maskAddress deja visibles solo los extremos de la dirección en los logs.
func maskAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "…" + address[len(address)-4:]
}
