package probe

import (
	"fmt"
	"strings"
)

// Registry is the set of adapters assembled at startup. It is read only
// after construction and shared between requests.
type Registry struct {
	adapters map[string]Adapter
	names    []string
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		name := a.Name()
		if name == "" {
			return nil, fmt.Errorf("adapter with empty name")
		}
		if _, dup := r.adapters[name]; dup {
			return nil, fmt.Errorf("adapter %q registered twice", name)
		}
		r.adapters[name] = a
		r.names = append(r.names, name)
	}
	return r, nil
}

// DefaultRegistry registers every adapter this build knows about. The order
// is the default fallback order for SQL Server targets.
func DefaultRegistry(encrypt string) (*Registry, error) {
	adapters := []Adapter{NewTDS(encrypt), NewODBC(encrypt)}
	engine, err := NewEngine("engine", "sqlserver", encrypt)
	if err != nil {
		return nil, err
	}
	adapters = append(adapters, engine)
	for _, dialect := range []string{"postgres", "mysql", "sqlite"} {
		e, err := NewEngine("", dialect, encrypt)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, e)
	}
	adapters = append(adapters, NewPgx())
	return NewRegistry(adapters...)
}

// With returns a new registry holding r's adapters followed by extra.
func (r *Registry) With(extra ...Adapter) (*Registry, error) {
	all := make([]Adapter, 0, len(r.names)+len(extra))
	for _, name := range r.names {
		all = append(all, r.adapters[name])
	}
	return NewRegistry(append(all, extra...)...)
}

func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns adapter names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Order resolves names into adapters, preserving the given order.
func (r *Registry) Order(names ...string) ([]Adapter, error) {
	out := make([]Adapter, 0, len(names))
	var unknown []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		a, ok := r.adapters[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, a)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown adapters %v (registered: %v)", unknown, r.names)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no adapters selected")
	}
	return out, nil
}
