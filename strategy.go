package secretkeep

import (
	"fmt"
	"net/http"
)

// Strategy is a pluggable verifier for one authentication mechanism. Initiate
// starts the flow (for OAuth a redirect to the provider's consent screen; for
// local a no-op, the form is presented directly) and Complete turns a
// credential presentation or provider callback into a resolved identity.
//
// Complete must fully resolve and persist the identity before returning; the
// caller serializes it into the session only afterwards.
type Strategy interface {
	Name() string
	Initiate(w http.ResponseWriter, r *http.Request)
	Complete(w http.ResponseWriter, r *http.Request) (*Identity, error)
}

// Registry holds one configured strategy per provider. It is built once at
// startup and passed to the route handlers; it performs no auth logic itself.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry registers the given strategies by name. Names must be unique.
func NewRegistry(list ...Strategy) *Registry {
	m := make(map[string]Strategy)
	for _, s := range list {
		m[s.Name()] = s
	}
	return &Registry{strategies: m}
}

// Get returns the strategy for the given provider name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown auth strategy: %s", name)
	}
	return s, nil
}
