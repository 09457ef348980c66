package schemamig

import (
	"sort"

	"github.com/redisom/redisom/internal/schema"
)

// RecordType is one registered record type's compiled shape, the unit
// `status`/`create`/`run` iterate (spec.md §4.8 "for each registered
// record type").
type RecordType struct {
	// Name identifies the record type across migration files (a
	// module-qualified name or user-provided alias, spec.md §4.8).
	Name     string
	Compiled *schema.Compiled
	Meta     schema.Meta
}

// Registry holds the record types a Manager migrates, keyed by Name.
type Registry struct {
	types map[string]RecordType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]RecordType{}}
}

// Register adds rt to the registry, replacing any existing entry with the
// same name.
func (r *Registry) Register(rt RecordType) {
	r.types[rt.Name] = rt
}

// Get looks up a record type by name.
func (r *Registry) Get(name string) (RecordType, bool) {
	rt, ok := r.types[name]
	return rt, ok
}

// Names returns every registered record type name in insertion-independent
// sorted order, for deterministic iteration in Status/Create.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
