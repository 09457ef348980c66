// Package query implements the query expression tree (C5) and its
// lowering to FT.SEARCH argument vectors (C6).
package query

// Op is a leaf comparison operator (spec.md §4.5's symbol table).
type Op int

const (
	Eq Op = iota
	Ne
	Gt
	Gte
	Lt
	Lte
	Match    // % stemmed full-text
	Fuzzy    // %%value%% / distance-N fuzzy full-text, a supplement beyond spec.md
	In       // << containment
	NotIn    // >> non-containment
)

// Expr is one node of the query expression tree. The set of
// implementations is closed to this package.
type Expr interface {
	isExpr()
}

// LeafCompare compares one field against a value (or value list, for
// In/NotIn).
type LeafCompare struct {
	Field string
	Op    Op
	Value any
	// Values holds the operand list for In/NotIn; Value is unused there.
	Values []string
	// Distance is the edit distance for Fuzzy; ignored otherwise.
	Distance int
}

// And is a conjunction of clauses, variadic so normalization can flatten
// nested And nodes without rebuilding a binary tree.
type And struct{ Clauses []Expr }

// Or is a disjunction of clauses.
type Or struct{ Clauses []Expr }

// Not negates its child.
type Not struct{ Child Expr }

// KNN is a vector similarity leaf. PreFilter, if non-nil, restricts the
// candidate set before the KNN pass (spec.md §4.6 rule 8).
type KNN struct {
	Field     string
	K         int
	Vector    []float32
	PreFilter Expr
}

// GeoWithin restricts a GEO field to points within radius of (lat, lon).
type GeoWithin struct {
	Field  string
	Lat    float64
	Lon    float64
	Radius float64
	Unit   string // m, km, mi, ft
}

func (*LeafCompare) isExpr() {}
func (*And) isExpr()         {}
func (*Or) isExpr()          {}
func (*Not) isExpr()         {}
func (*KNN) isExpr()         {}
func (*GeoWithin) isExpr()   {}

// EqExpr builds an equality leaf.
func EqExpr(field string, value any) Expr { return &LeafCompare{Field: field, Op: Eq, Value: value} }

// NeExpr builds an inequality leaf.
func NeExpr(field string, value any) Expr { return &LeafCompare{Field: field, Op: Ne, Value: value} }

// GtExpr builds a "greater than" range leaf.
func GtExpr(field string, value any) Expr { return &LeafCompare{Field: field, Op: Gt, Value: value} }

// GteExpr builds a "greater than or equal" range leaf.
func GteExpr(field string, value any) Expr { return &LeafCompare{Field: field, Op: Gte, Value: value} }

// LtExpr builds a "less than" range leaf.
func LtExpr(field string, value any) Expr { return &LeafCompare{Field: field, Op: Lt, Value: value} }

// LteExpr builds a "less than or equal" range leaf.
func LteExpr(field string, value any) Expr { return &LeafCompare{Field: field, Op: Lte, Value: value} }

// MatchExpr builds a stemmed full-text match leaf (the `%` operator).
func MatchExpr(field, value string) Expr {
	return &LeafCompare{Field: field, Op: Match, Value: value}
}

// FuzzyExpr builds a fuzzy (Levenshtein) full-text match leaf, the
// `%%value%%`-style operator the original Python exposes that spec.md's
// distillation dropped (SPEC_FULL.md §11 C5/C6 supplement). distance must
// be 1, 2, or 3 (the server's maximum fuzzy edit distance).
func FuzzyExpr(field, value string, distance int) Expr {
	return &LeafCompare{Field: field, Op: Fuzzy, Value: value, Distance: distance}
}

// InExpr builds a containment leaf (`<<`): value must be one of values.
func InExpr(field string, values ...string) Expr {
	return &LeafCompare{Field: field, Op: In, Values: values}
}

// NotInExpr builds a non-containment leaf (`>>`).
func NotInExpr(field string, values ...string) Expr {
	return &LeafCompare{Field: field, Op: NotIn, Values: values}
}

// AndExpr conjoins clauses. A single clause is returned unwrapped.
func AndExpr(clauses ...Expr) Expr {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return &And{Clauses: clauses}
}

// OrExpr disjoins clauses. A single clause is returned unwrapped.
func OrExpr(clauses ...Expr) Expr {
	if len(clauses) == 1 {
		return clauses[0]
	}
	return &Or{Clauses: clauses}
}

// NotExpr negates child.
func NotExpr(child Expr) Expr { return &Not{Child: child} }

// KNNExpr builds a vector similarity leaf, optionally pre-filtered.
func KNNExpr(field string, k int, vector []float32, preFilter Expr) Expr {
	return &KNN{Field: field, K: k, Vector: vector, PreFilter: preFilter}
}

// GeoWithinExpr builds a GEO radius leaf.
func GeoWithinExpr(field string, lat, lon, radius float64, unit string) Expr {
	return &GeoWithin{Field: field, Lat: lat, Lon: lon, Radius: radius, Unit: unit}
}
