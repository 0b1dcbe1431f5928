// Package registry maps logical service names to backend base URLs. The
// mapping is built once at startup and never mutated afterwards.
package registry

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/campushub/gateway/internal/interfaces"
)

// Static is an immutable name -> endpoint table
type Static struct {
	endpoints map[string]interfaces.Endpoint
	names     []string
}

// NewStatic builds a registry from a name -> base URL map, validating every
// URL up front so proxying never has to re-parse them
func NewStatic(services map[string]string) (*Static, error) {
	if len(services) == 0 {
		return nil, fmt.Errorf("registry: no services configured")
	}

	endpoints := make(map[string]interfaces.Endpoint, len(services))
	names := make([]string, 0, len(services))

	for name, base := range services {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("registry: service %q has invalid base URL %q: %w", name, base, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("registry: service %q base URL %q must include scheme and host", name, base)
		}

		endpoints[name] = interfaces.Endpoint{
			Name:    name,
			BaseURL: strings.TrimRight(base, "/"),
		}
		names = append(names, name)
	}

	sort.Strings(names)

	return &Static{
		endpoints: endpoints,
		names:     names,
	}, nil
}

// Lookup implements interfaces.Registry
func (s *Static) Lookup(name string) (interfaces.Endpoint, bool) {
	ep, ok := s.endpoints[name]
	return ep, ok
}

// All returns every endpoint in name order
func (s *Static) All() []interfaces.Endpoint {
	out := make([]interfaces.Endpoint, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.endpoints[name])
	}
	return out
}
