// Package clientpool caches one outbound HTTP client per proxy
// configuration. Clients are shared across requests and live for the
// lifetime of the process; the pool never evicts.
package clientpool

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"gtgate.dev/gtgate/common"
)

// ErrBadProxy is returned when a proxy URL cannot be parsed or a client
// cannot be constructed for it. It is a configuration error and is not
// retryable.
var ErrBadProxy = errors.New("invalid proxy configuration")

// ErrPoolPoisoned is returned when a previous caller panicked inside
// the pool's critical section, leaving the cache contents untrusted.
// The error is scoped to this pool; it does not terminate the process.
var ErrPoolPoisoned = errors.New("client pool poisoned")

// Pool maps proxy keys to shared HTTP clients. The zero value is not
// usable; construct with New.
type Pool struct {
	mu sync.Mutex
	// +checklocks:mu
	poisoned bool
	// +checklocks:mu
	clients map[string]*http.Client
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{
		clients: make(map[string]*http.Client),
	}
}

// Get returns the shared client for the given proxy URL, constructing
// and caching it on first use. An empty proxy maps to the "default"
// (direct) client. Every call with the same proxy value returns the
// same *http.Client.
func (p *Pool) Get(proxy string) (c *http.Client, err error) {
	key := proxy
	if key == "" {
		key = common.DefaultSessionKey
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.poisoned {
		return nil, ErrPoolPoisoned
	}
	// A panic between here and unlock leaves the map in an unknown
	// state. Mark the pool unusable and fail this request only.
	defer func() {
		if r := recover(); r != nil {
			p.poisoned = true
			c, err = nil, errors.Wrapf(ErrPoolPoisoned, "panic building client: %v", r)
		}
	}()

	if c, ok := p.clients[key]; ok {
		return c, nil
	}
	c, err = build(proxy)
	if err != nil {
		return nil, err
	}
	p.clients[key] = c
	logrus.Debugf("clientpool: built client for key %q", key)
	return c, nil
}

func build(proxy string) (*http.Client, error) {
	if proxy == "" {
		return &http.Client{}, nil
	}
	u, err := url.Parse(proxy)
	if err != nil {
		return nil, errors.Wrapf(ErrBadProxy, "parsing %q: %s", proxy, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(ErrBadProxy, "proxy %q missing scheme or host", proxy)
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(u),
		},
	}, nil
}

// Len reports the number of cached clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
