// Package kv provee la abstracción de key-value store con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Además de get/set/delete expone primitivas atómicas (Incr, SAdd) que el
// tracker de honeypot necesita para no sub-contar hits concurrentes.
package kv

import (
	"context"
	"time"
)

// Client define las operaciones del key-value store.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL opcional.
	// Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key.
	Delete(ctx context.Context, key string) error

	// Incr incrementa atómicamente un contador y retorna el nuevo valor.
	// Si la key no existe, arranca en 1.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire fija el TTL de una key existente.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SAdd agrega un miembro a un set. Retorna cuántos miembros fueron
	// efectivamente agregados (0 si ya estaba: la operación es idempotente).
	SAdd(ctx context.Context, set, member string) (int64, error)

	// SIsMember verifica pertenencia a un set.
	SIsMember(ctx context.Context, set, member string) (bool, error)

	// SMembers retorna todos los miembros de un set.
	SMembers(ctx context.Context, set string) ([]string, error)

	// SCard retorna la cardinalidad de un set.
	SCard(ctx context.Context, set string) (int64, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// Config configuración para crear un cliente.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// Errores del store.
var (
	ErrNotFound = errNotFound{}
)

type errNotFound struct{}

func (e errNotFound) Error() string { return "kv: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New crea un cliente según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return NewMemory(cfg.Prefix), nil
	}
}
