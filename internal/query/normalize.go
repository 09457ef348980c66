package query

// Normalize canonicalizes an expression tree per spec.md §4.5: AND is
// associative and commutative at compile time (nested And nodes flatten
// into their parent), and a double negation collapses. Normalization
// never changes the expression's meaning, only its shape, so the
// compiler sees a minimal tree regardless of how the caller built it.
func Normalize(e Expr) Expr {
	switch n := e.(type) {
	case *And:
		flat := flattenAnd(n.Clauses)
		if len(flat) == 1 {
			return flat[0]
		}
		return &And{Clauses: flat}

	case *Or:
		flat := flattenOr(n.Clauses)
		if len(flat) == 1 {
			return flat[0]
		}
		return &Or{Clauses: flat}

	case *Not:
		child := Normalize(n.Child)
		if inner, ok := child.(*Not); ok {
			return inner.Child
		}
		return &Not{Child: child}

	case *KNN:
		if n.PreFilter == nil {
			return n
		}
		return &KNN{Field: n.Field, K: n.K, Vector: n.Vector, PreFilter: Normalize(n.PreFilter)}

	default:
		return e
	}
}

func flattenAnd(clauses []Expr) []Expr {
	out := make([]Expr, 0, len(clauses))
	for _, c := range clauses {
		nc := Normalize(c)
		if inner, ok := nc.(*And); ok {
			out = append(out, inner.Clauses...)
			continue
		}
		out = append(out, nc)
	}
	return out
}

func flattenOr(clauses []Expr) []Expr {
	out := make([]Expr, 0, len(clauses))
	for _, c := range clauses {
		nc := Normalize(c)
		if inner, ok := nc.(*Or); ok {
			out = append(out, inner.Clauses...)
			continue
		}
		out = append(out, nc)
	}
	return out
}
