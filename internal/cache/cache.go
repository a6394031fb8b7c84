// Package cache provides a small multi-backend cache used for the
// state-token replay guard.
//
// Backends:
//   - Memory (in-process, dev/testing)
//   - Redis (shared, production with more than one replica)
package cache

import (
	"context"
	"time"
)

// Client defines the cache operations the service needs.
type Client interface {
	// Get returns a value. ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Add stores a value only if the key is absent and reports whether
	// it was stored. This is the single-use primitive for state tokens.
	Add(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Kind   string // "memory" | "redis"
	Addr   string
	DB     int
	Prefix string

	MemoryDefaultTTL time.Duration
}

// ErrNotFound is returned by Get for absent keys.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err is the cache miss error.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New builds a cache client for the configuration.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix, cfg.MemoryDefaultTTL), nil
	default:
		return NewMemory(cfg.Prefix, cfg.MemoryDefaultTTL), nil
	}
}
