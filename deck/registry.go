package deck

import (
	"go.uber.org/zap"
)

// Registry maps note model identifiers to model definitions. It only grows:
// merges overwrite entries sharing a key (so deck local models shadow root
// models by load order) and nothing is ever deleted during a session.
type Registry struct {
	log    *zap.Logger
	models map[string]*Model
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		log:    log.Named("models"),
		models: make(map[string]*Model),
	}
}

// Merge registers every model under each identifier scheme it carries.
// Re-merging a key replaces the prior entry.
func (r *Registry) Merge(models []*Model) {
	for _, m := range models {
		if m == nil {
			continue
		}
		for _, key := range m.Keys() {
			if prev, ok := r.models[key]; ok && prev != m {
				r.log.Debug("Replacing note model", zap.String("key", key), zap.String("name", m.Name))
			}
			r.models[key] = m
		}
	}
}

// Lookup performs exact key match only.
func (r *Registry) Lookup(id string) (*Model, bool) {
	m, ok := r.models[id]
	return m, ok
}

// Resolve finds the model for a note trying its reference candidates in
// order. A note without a resolvable model forces raw rendering.
func (r *Registry) Resolve(n *Note) (*Model, bool) {
	for _, ref := range n.ModelRefs() {
		if m, ok := r.models[ref]; ok {
			return m, true
		}
	}
	return nil, false
}

func (r *Registry) Len() int {
	return len(r.models)
}

// Models returns the distinct registered models. The same model sits behind
// several keys, so entries are deduplicated by identity.
func (r *Registry) Models() []*Model {
	seen := make(map[*Model]struct{}, len(r.models))
	var out []*Model
	for _, m := range r.models {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
