// Package orchestrator runs account workflows concurrently: a bounded worker
// pool, per-worker proxy assignment with quarantine, idempotent completion
// tracking and durable result logging.
package orchestrator

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
)

// ErrNoProxies means every endpoint in a static pool is quarantined, or the
// pool was empty to begin with.
var ErrNoProxies = fmt.Errorf("orchestrator: no usable proxies")

// Endpoint is one upstream HTTP proxy, optionally authenticated.
type Endpoint struct {
	Host     string
	Port     string
	Username string
	Password string
}

// ParseEndpoint accepts "host:port" or "host:port:user:pass".
func ParseEndpoint(raw string) (Endpoint, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	switch len(parts) {
	case 2:
		return Endpoint{Host: parts[0], Port: parts[1]}, nil
	case 4:
		return Endpoint{Host: parts[0], Port: parts[1], Username: parts[2], Password: parts[3]}, nil
	default:
		return Endpoint{}, fmt.Errorf("orchestrator: proxy %q: want host:port or host:port:user:pass", raw)
	}
}

// URL renders the endpoint as an http proxy URL with escaped credentials.
func (e Endpoint) URL() string {
	u := url.URL{Scheme: "http", Host: e.Host + ":" + e.Port}
	if e.Username != "" {
		u.User = url.UserPassword(e.Username, e.Password)
	}
	return u.String()
}

// Display identifies the endpoint in logs without leaking credentials.
func (e Endpoint) Display() string {
	return e.Host + ":" + e.Port
}

// LoadProxies reads one endpoint per line, skipping blanks and # comments.
func LoadProxies(path string) ([]Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open proxy list: %w", err)
	}
	defer f.Close()

	var endpoints []Endpoint
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ep, err := ParseEndpoint(line)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("orchestrator: read proxy list: %w", err)
	}
	return endpoints, nil
}

// Rotation hands out proxies round-robin. In rotating-gateway mode the
// endpoints cycle fresh exits themselves, so quarantine is a no-op; in static
// mode a quarantined endpoint is skipped for the rest of the run.
type Rotation struct {
	mu          sync.Mutex
	endpoints   []Endpoint
	next        int
	rotating    bool
	quarantined map[string]struct{}
}

// NewRotation builds a rotation over the pool. rotating marks the pool as
// rotating-gateway endpoints.
func NewRotation(endpoints []Endpoint, rotating bool) *Rotation {
	return &Rotation{
		endpoints:   append([]Endpoint(nil), endpoints...),
		rotating:    rotating,
		quarantined: map[string]struct{}{},
	}
}

// Empty reports a rotation with no endpoints at all. Workflows then run
// without a proxy.
func (r *Rotation) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.endpoints) == 0
}

// Next returns the next non-quarantined endpoint, or ErrNoProxies when the
// whole pool is dead.
func (r *Rotation) Next() (Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.endpoints) == 0 {
		return Endpoint{}, ErrNoProxies
	}
	for range r.endpoints {
		ep := r.endpoints[r.next%len(r.endpoints)]
		r.next++
		if _, dead := r.quarantined[ep.Display()]; !dead {
			return ep, nil
		}
	}
	return Endpoint{}, ErrNoProxies
}

// Quarantine removes a static endpoint from circulation. Rotating gateways
// are never quarantined; the failure belonged to one transient exit, not the
// gateway.
func (r *Rotation) Quarantine(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rotating {
		return
	}
	r.quarantined[ep.Display()] = struct{}{}
}

// Live counts endpoints still in circulation.
func (r *Rotation) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.endpoints) - len(r.quarantined)
}
