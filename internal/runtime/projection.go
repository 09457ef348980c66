package runtime

import (
	"strings"

	"github.com/redisom/redisom/internal/schema"
)

// Projection holds the set of paths a query's values()/only() restricted
// the result to (spec.md §4.7). A nil Projection means "load everything".
type Projection struct {
	Paths   []string
	Partial bool // set by Only(); Values() loads the same fields without marking partial
}

// deep reports whether any requested path is a dotted document path
// (e.g. "address.city"), which can't be satisfied by a server-side
// RETURN alias and instead requires loading the full document body.
func (p *Projection) deep() bool {
	if p == nil {
		return false
	}
	for _, path := range p.Paths {
		if strings.Contains(path, ".") {
			return true
		}
	}
	return false
}

// returnFields computes the db.SearchArgs.Return list for a shallow
// projection: each requested path is translated to its compiled query
// name (spec.md §4.7 "emit RETURN on the server"). A deep projection (or
// no projection at all) returns nil, meaning "fetch the full row".
func returnFields(p *Projection, c *schema.Compiled) []string {
	if p == nil || len(p.Paths) == 0 || p.deep() {
		return nil
	}
	out := make([]string, 0, len(p.Paths))
	for _, path := range p.Paths {
		out = append(out, schema.QueryName(path))
	}
	if c.PrimaryKey != nil {
		out = append(out, c.PrimaryKey.Name)
	}
	return out
}

// allowed reports whether queryName was included in an only()
// projection. Always true when p is nil or it was a values() projection.
func (p *Projection) allowed(queryName string) bool {
	if p == nil || !p.Partial {
		return true
	}
	for _, path := range p.Paths {
		if schema.QueryName(path) == queryName {
			return true
		}
	}
	return false
}
