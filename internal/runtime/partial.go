package runtime

import (
	"reflect"

	"github.com/redisom/redisom/internal/schema"
)

// Partial wraps a record loaded through only(...) (spec.md §4.7): direct
// struct access still works for Go code that doesn't care, but Field
// lets callers that need to respect the projection boundary fail loudly
// on an unrequested field instead of silently reading its zero value.
type Partial[T any] struct {
	Value      *T
	projection *Projection
	fields     map[string]schema.FieldSpec
}

// Field returns the decoded value of a requested query-time field name,
// or ErrPartial if it wasn't included in the only(...) projection.
func (p *Partial[T]) Field(queryName string) (any, error) {
	f, ok := p.fields[queryName]
	if !ok {
		return nil, ErrPartial
	}
	// the primary key always rides along on the wire regardless of the
	// projection, so it's always safe to read back.
	if !f.PrimaryKey && !p.projection.allowed(queryName) {
		return nil, ErrPartial
	}
	v := fieldByGoPath(reflect.ValueOf(p.Value).Elem(), f.GoPath)
	return v.Interface(), nil
}

func newPartial[T any](value *T, c *schema.Compiled, p *Projection) *Partial[T] {
	fields := make(map[string]schema.FieldSpec, len(c.Fields))
	for _, f := range c.Fields {
		fields[f.Name] = f
	}
	return &Partial[T]{Value: value, projection: p, fields: fields}
}
