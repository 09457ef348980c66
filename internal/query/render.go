package query

import (
	"fmt"
	"strings"
)

// Render produces a deterministic ASCII rendering of an expression tree
// for diagnostic printing (spec.md §4.5's "debug contract").
func Render(e Expr) string {
	var b strings.Builder
	render(&b, e)
	return b.String()
}

func render(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *LeafCompare:
		renderLeaf(b, n)

	case *And:
		renderJoin(b, "AND", n.Clauses)

	case *Or:
		renderJoin(b, "OR", n.Clauses)

	case *Not:
		b.WriteString("NOT(")
		render(b, n.Child)
		b.WriteString(")")

	case *KNN:
		fmt.Fprintf(b, "KNN(%s, k=%d, dim=%d", n.Field, n.K, len(n.Vector))
		if n.PreFilter != nil {
			b.WriteString(", filter=")
			render(b, n.PreFilter)
		}
		b.WriteString(")")

	case *GeoWithin:
		fmt.Fprintf(b, "GEO(%s, lat=%g, lon=%g, radius=%g%s)", n.Field, n.Lat, n.Lon, n.Radius, n.Unit)

	default:
		b.WriteString("<?>")
	}
}

func renderLeaf(b *strings.Builder, l *LeafCompare) {
	switch l.Op {
	case In, NotIn:
		fmt.Fprintf(b, "%s(%s, [%s])", opSymbol(l.Op), l.Field, strings.Join(l.Values, ", "))
	case Fuzzy:
		fmt.Fprintf(b, "FUZZY(%s, %v, distance=%d)", l.Field, l.Value, l.Distance)
	default:
		fmt.Fprintf(b, "%s(%s, %v)", opSymbol(l.Op), l.Field, l.Value)
	}
}

func renderJoin(b *strings.Builder, op string, clauses []Expr) {
	b.WriteString(op)
	b.WriteString("(")
	for i, c := range clauses {
		if i > 0 {
			b.WriteString(", ")
		}
		render(b, c)
	}
	b.WriteString(")")
}

func opSymbol(op Op) string {
	switch op {
	case Eq:
		return "EQ"
	case Ne:
		return "NE"
	case Gt:
		return "GT"
	case Gte:
		return "GTE"
	case Lt:
		return "LT"
	case Lte:
		return "LTE"
	case Match:
		return "MATCH"
	case Fuzzy:
		return "FUZZY"
	case In:
		return "IN"
	case NotIn:
		return "NOT_IN"
	default:
		return "?"
	}
}
