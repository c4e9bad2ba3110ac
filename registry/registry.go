// Package registry maps session ids to stateful solver instances, one
// registry per solver kind. An entry is created on first resolution and
// lives for the process lifetime; the registry never evicts.
package registry

import (
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gtgate.dev/gtgate/clientpool"
	"gtgate.dev/gtgate/common"
)

// ErrPoisoned is returned when a previous caller panicked inside the
// registry's critical section. The stored instances for this kind can
// no longer be trusted, so every later resolution against this
// registry fails the same way. Other registries and the pool are
// unaffected.
var ErrPoisoned = errors.New("instance registry poisoned")

// Registry holds the instances of one solver kind, keyed by session id.
// T must be a value type whose copies share no mutable state with the
// original beyond the HTTP clients they reference.
type Registry[T any] struct {
	pool      *clientpool.Pool
	construct func(proxied, direct *http.Client) T
	rebind    func(*T, *http.Client)

	mu sync.Mutex
	// +checklocks:mu
	poisoned bool
	// +checklocks:mu
	instances map[string]T
}

// New creates a Registry backed by pool. construct seeds a fresh
// instance from a proxied and a direct client; rebind replaces the
// active proxied client on a per-request copy.
func New[T any](pool *clientpool.Pool, construct func(proxied, direct *http.Client) T, rebind func(*T, *http.Client)) *Registry[T] {
	return &Registry[T]{
		pool:      pool,
		construct: construct,
		rebind:    rebind,
		instances: make(map[string]T),
	}
}

// Resolve returns a working instance for the session, creating and
// storing one on first use. The returned value is a copy for the
// exclusive use of the current request.
//
// When proxy is non-empty the copy's active client is rebound to the
// pooled client for that proxy. The rebind never touches the stored
// entry: a later resolution without a proxy observes the original
// no-proxy binding.
func (r *Registry[T]) Resolve(sessionID, proxy string) (T, error) {
	var zero T
	if sessionID == "" {
		sessionID = common.DefaultSessionKey
	}

	// Both clients are resolved before taking the registry lock; the
	// pool has its own.
	proxied, err := r.pool.Get(proxy)
	if err != nil {
		return zero, err
	}
	direct, err := r.pool.Get("")
	if err != nil {
		return zero, err
	}

	instance, err := r.lookupOrCreate(sessionID, direct)
	if err != nil {
		return zero, err
	}

	if proxy != "" {
		r.rebind(&instance, proxied)
	}
	return instance, nil
}

// lookupOrCreate holds the lock only across the map access and, on a
// miss, instance construction. It is never held across operation
// execution.
//
// A stored entry is always seeded with the direct client as its active
// binding, even when the creating request carried a proxy; the
// per-request proxy is applied to the creator's copy afterwards. This
// keeps a creation that races with proxied callers from persisting a
// proxied binding into the registry.
func (r *Registry[T]) lookupOrCreate(sessionID string, direct *http.Client) (instance T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned {
		return instance, ErrPoisoned
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.poisoned = true
			err = errors.Wrapf(ErrPoisoned, "panic constructing instance: %v", rec)
		}
	}()

	stored, ok := r.instances[sessionID]
	if ok {
		return stored, nil
	}
	created := r.construct(direct, direct)
	r.instances[sessionID] = created
	logrus.Debugf("registry: created instance for session %q", sessionID)
	return created, nil
}

// Len reports the number of stored instances.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
