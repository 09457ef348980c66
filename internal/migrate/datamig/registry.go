package datamig

import (
	"github.com/redisom/redisom/internal/keycodec"
	"github.com/redisom/redisom/internal/schema"
)

// RecordType is the subset of a record type's compiled schema the data
// migrator needs: where its keys live, which storage layout they use, and
// the field specs a migration can inspect (e.g. to find its datetime
// fields). Distinct from schemamig.RecordType, which carries the full
// schema.Compiled for index rebuilds; datamig only ever reads field shape,
// never rebuilds an index.
type RecordType struct {
	Name      string
	Prefix    keycodec.Prefix
	Layout    schema.Layout
	Fields    []schema.FieldSpec
	IndexName string
}

// Registry holds the record types a data migration may target.
type Registry struct {
	targets map[string]RecordType
	order   []string
}

// NewRegistry constructs an empty record-type registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]RecordType)}
}

// Register adds or replaces a record type.
func (r *Registry) Register(rt RecordType) {
	if _, exists := r.targets[rt.Name]; !exists {
		r.order = append(r.order, rt.Name)
	}
	r.targets[rt.Name] = rt
}

// Get looks up a record type by name.
func (r *Registry) Get(name string) (RecordType, bool) {
	rt, ok := r.targets[name]
	return rt, ok
}

// Targets returns every registered record type in registration order.
func (r *Registry) Targets() []RecordType {
	out := make([]RecordType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.targets[name])
	}
	return out
}
