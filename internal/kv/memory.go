package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client en memoria, respaldado por go-cache para las
// keys con TTL y un map protegido por mutex para los sets.
// Útil para desarrollo y testing, y como fallback cuando Redis no está
// disponible (el honeypot degrada a este driver en vez de bloquear requests).
type memoryClient struct {
	prefix string
	cache  *gocache.Cache
	mu     sync.RWMutex
	sets   map[string]map[string]struct{}
}

// NewMemory crea un cliente en memoria.
func NewMemory(prefix string) *memoryClient {
	return &memoryClient{
		prefix: prefix,
		cache:  gocache.New(gocache.NoExpiration, 10*time.Minute),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (c *memoryClient) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *memoryClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.cache.Get(c.key(key))
	if !ok {
		return "", ErrNotFound
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", v), nil
}

func (c *memoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.cache.Set(c.key(key), value, ttl)
	return nil
}

func (c *memoryClient) Delete(ctx context.Context, key string) error {
	c.cache.Delete(c.key(key))
	return nil
}

// Incr incrementa bajo lock propio: go-cache no permite crear e incrementar
// en una sola operación atómica.
func (c *memoryClient) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(key)
	var n int64
	if v, ok := c.cache.Get(k); ok {
		switch t := v.(type) {
		case int64:
			n = t
		case string:
			fmt.Sscanf(t, "%d", &n)
		}
	}
	n++

	// Preservar el TTL original si la entrada ya existía
	ttl := time.Duration(gocache.NoExpiration)
	if _, exp, ok := c.cache.GetWithExpiration(k); ok && !exp.IsZero() {
		ttl = time.Until(exp)
	}
	c.cache.Set(k, n, ttl)
	return n, nil
}

func (c *memoryClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(key)
	v, ok := c.cache.Get(k)
	if !ok {
		return nil
	}
	c.cache.Set(k, v, ttl)
	return nil
}

func (c *memoryClient) SAdd(ctx context.Context, set, member string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(set)
	s, ok := c.sets[k]
	if !ok {
		s = make(map[string]struct{})
		c.sets[k] = s
	}
	if _, exists := s[member]; exists {
		return 0, nil
	}
	s[member] = struct{}{}
	return 1, nil
}

func (c *memoryClient) SIsMember(ctx context.Context, set, member string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sets[c.key(set)]
	if !ok {
		return false, nil
	}
	_, exists := s[member]
	return exists, nil
}

func (c *memoryClient) SMembers(ctx context.Context, set string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sets[c.key(set)]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	return out, nil
}

func (c *memoryClient) SCard(ctx context.Context, set string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sets[c.key(set)]
	if !ok {
		return 0, nil
	}
	return int64(len(s)), nil
}

func (c *memoryClient) Ping(ctx context.Context) error {
	return nil
}

func (c *memoryClient) Close() error {
	c.cache.Flush()
	return nil
}
