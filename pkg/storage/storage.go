// Package storage provides the durable key/value backends that hold shopper
// state between visits. Values are opaque byte slices; callers own encoding.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store is the minimal durable key/value surface.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that depend on a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type scoped struct {
	base      Store
	namespace string
}

// Scoped prefixes every key with namespace so many shoppers can share one backend.
func Scoped(base Store, namespace string) Store {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return base
	}
	return &scoped{base: base, namespace: namespace}
}

func (s *scoped) key(key string) string {
	return s.namespace + ":" + key
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.base.Get(ctx, s.key(key))
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.base.Set(ctx, s.key(key), value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.base.Delete(ctx, s.key(key))
}

// Ping forwards to the wrapped backend when it supports health checks.
func Ping(ctx context.Context, store Store) error {
	if s, ok := store.(*scoped); ok {
		store = s.base
	}
	if p, ok := store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type healthCheck struct {
	store Store
}

func (h healthCheck) Ping(ctx context.Context) error {
	return Ping(ctx, h.store)
}

// HealthCheck adapts any store to a Pinger for readiness probes.
func HealthCheck(store Store) Pinger {
	return healthCheck{store: store}
}
