package middlewares

import (
	"context"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	// ctxPrincipalKey guarda el principal autenticado (address normalizada)
	ctxPrincipalKey ctxKey = "principal"
	// ctxSessionKey guarda el token de sesión presentado
	ctxSessionKey ctxKey = "session_token"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
	// ctxClientIPKey guarda la IP del cliente ya resuelta
	ctxClientIPKey ctxKey = "client_ip"
)

// =================================================================================
// CONTEXT SETTERS (Internos, usados por middlewares)
// =================================================================================

// WithPrincipal inyecta el principal autenticado en el contexto
func WithPrincipal(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, principalID)
}

// WithSessionToken inyecta el token de sesión en el contexto
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxSessionKey, token)
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

func setClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey, ip)
}

// =================================================================================
// CONTEXT GETTERS (Públicos, usados por controllers/services)
// =================================================================================

// GetPrincipal obtiene el principal autenticado del contexto.
// Retorna cadena vacía si la sesión no fue validada.
func GetPrincipal(ctx context.Context) string {
	if v := ctx.Value(ctxPrincipalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetSessionToken obtiene el token de sesión presentado.
func GetSessionToken(ctx context.Context) string {
	if v := ctx.Value(ctxSessionKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRequestID obtiene el request ID del contexto.
// Retorna cadena vacía si no hay request ID.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetClientIP obtiene la IP del cliente resuelta por WithClientIP.
func GetClientIP(ctx context.Context) string {
	if v := ctx.Value(ctxClientIPKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
