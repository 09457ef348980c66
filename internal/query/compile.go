package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/redisom/redisom/internal/codec"
	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/schema"
)

// defaultLimit is the "high but finite default" spec.md §4.6 requires
// when the caller doesn't paginate.
const defaultLimit = 10000

// knnScoreAlias is the RETURN field RediSearch reports a KNN leaf's
// vector distance under, and the default sort key for a query whose
// expression tree contains one.
const knnScoreAlias = "__vec_score"

// CompileOptions carries the pagination/sort/projection knobs the
// runtime (C7) layers on top of the expression tree.
type CompileOptions struct {
	Offset     int
	Limit      int
	HasLimit   bool
	SortBy     string
	SortDesc   bool
	Return     []string
	WithScores bool
}

// Compile normalizes expr and lowers it, together with opts, into an
// FT.SEARCH argument set validated against the compiled schema
// (spec.md §4.6).
func Compile(c *schema.Compiled, indexName string, expr Expr, opts CompileOptions) (*db.SearchArgs, error) {
	fields := fieldsByName(c)

	args := &db.SearchArgs{
		Index:      indexName,
		Offset:     opts.Offset,
		Limit:      opts.Limit,
		HasLimit:   opts.HasLimit,
		Return:     opts.Return,
		WithScores: opts.WithScores,
		Dialect:    2,
	}
	if !args.HasLimit {
		args.Limit = defaultLimit
		args.HasLimit = true
	}

	normalized := Normalize(expr)

	if opts.SortBy != "" {
		f, ok := fields[opts.SortBy]
		if !ok {
			return nil, newError(E9, opts.SortBy, "sort field does not exist on the compiled schema")
		}
		if !f.Sortable {
			return nil, newError(E2, opts.SortBy, "sort field is not sortable")
		}
		args.SortBy = opts.SortBy
		args.SortDesc = opts.SortDesc
	} else if containsKNN(normalized) {
		// a KNN leaf orders by vector distance unless the caller asked
		// for something else (spec.md §4.7 hybrid default ordering).
		args.SortBy = knnScoreAlias
		args.SortDesc = false
	}

	queryStr, vecParam, err := compileNode(normalized, fields)
	if err != nil {
		return nil, err
	}
	if queryStr == "" {
		queryStr = "*"
	}
	args.Query = queryStr
	args.VectorParam = vecParam

	return args, nil
}

// containsKNN reports whether a KNN leaf appears anywhere in expr,
// including inside a PreFilter (a PreFilter can't itself nest a KNN,
// since compileKNN lowers it through the non-KNN compileNode path, but
// And/Or/Not siblings of a KNN leaf are fair game).
func containsKNN(e Expr) bool {
	switch n := e.(type) {
	case *KNN:
		return true
	case *And:
		for _, c := range n.Clauses {
			if containsKNN(c) {
				return true
			}
		}
		return false
	case *Or:
		for _, c := range n.Clauses {
			if containsKNN(c) {
				return true
			}
		}
		return false
	case *Not:
		return containsKNN(n.Child)
	default:
		return false
	}
}

func fieldsByName(c *schema.Compiled) map[string]schema.FieldSpec {
	m := make(map[string]schema.FieldSpec, len(c.Fields))
	for _, f := range c.Fields {
		if f.PrimaryKey {
			continue
		}
		m[f.Name] = f
	}
	return m
}

func compileNode(e Expr, fields map[string]schema.FieldSpec) (string, []byte, error) {
	if e == nil {
		return "*", nil, nil
	}

	switch n := e.(type) {
	case *LeafCompare:
		s, err := compileLeaf(n, fields)
		return s, nil, err

	case *And:
		parts, err := compileJoin(n.Clauses, fields, E7, "AND")
		if err != nil {
			return "", nil, err
		}
		return strings.Join(parts, " "), nil, nil

	case *Or:
		parts, err := compileJoin(n.Clauses, fields, E7, "OR")
		if err != nil {
			return "", nil, err
		}
		return "(" + strings.Join(parts, " | ") + ")", nil, nil

	case *Not:
		if n.Child == nil {
			return "", nil, newError(E7, "", "NOT with no child")
		}
		s, _, err := compileNode(n.Child, fields)
		if err != nil {
			return "", nil, err
		}
		return "-(" + s + ")", nil, nil

	case *GeoWithin:
		f, ok := fields[n.Field]
		if !ok {
			return "", nil, newError(E6, n.Field, "field does not exist or is not indexed")
		}
		if f.Kind != schema.Geo {
			return "", nil, newError(E10, n.Field, "field is not a GEO field")
		}
		unit := n.Unit
		if unit == "" {
			unit = "km"
		}
		return fmt.Sprintf("@%s:[%g %g %g %s]", f.Name, n.Lon, n.Lat, n.Radius, unit), nil, nil

	case *KNN:
		return compileKNN(n, fields)

	default:
		return "", nil, newError(E8, "", "unrecognized expression node")
	}
}

func compileJoin(clauses []Expr, fields map[string]schema.FieldSpec, emptyCode Code, combinator string) ([]string, error) {
	if len(clauses) == 0 {
		return nil, newError(emptyCode, "", combinator+" with no clauses")
	}
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c == nil {
			return nil, newError(E7, "", combinator+" clause is nil")
		}
		s, _, err := compileNode(c, fields)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return parts, nil
}

func compileLeaf(l *LeafCompare, fields map[string]schema.FieldSpec) (string, error) {
	f, ok := fields[l.Field]
	if !ok {
		return "", newError(E6, l.Field, "field does not exist or is not indexed")
	}

	switch l.Op {
	case In, NotIn:
		return compileContainment(l, f)
	case Match, Fuzzy:
		return compileTextMatch(l, f)
	default:
		return compileScalarCompare(l, f)
	}
}

// compileContainment implements spec.md §4.6 rule 5. The target must be
// a list/tuple TAG field (spec.md §3.7's E1 invariant), checked here
// since schema compilation can't know which operators a query will use.
func compileContainment(l *LeafCompare, f schema.FieldSpec) (string, error) {
	if f.Kind != schema.Tag || !f.IsList {
		return "", &schema.Error{Code: schema.E1, Field: l.Field, Msg: "containment operator requires a list/tuple TAG field"}
	}
	escaped := make([]string, len(l.Values))
	for i, v := range l.Values {
		escaped[i] = escapeTag(v)
	}
	clause := fmt.Sprintf("@%s:{%s}", f.Name, strings.Join(escaped, "|"))
	if l.Op == NotIn {
		clause = "-" + clause
	}
	return clause, nil
}

// compileTextMatch implements spec.md §4.6 rule 2's TEXT `%` row, plus
// the `%%` fuzzy supplement. The target must carry full_text_search=true
// (spec.md §3.7's E3 invariant).
func compileTextMatch(l *LeafCompare, f schema.FieldSpec) (string, error) {
	if f.Kind != schema.Text || !f.FullTextSearch {
		return "", &schema.Error{Code: schema.E3, Field: l.Field, Msg: "text-match operator requires full_text_search=true"}
	}
	value := fmt.Sprintf("%v", l.Value)
	escaped := escapeText(value)
	if l.Op == Fuzzy {
		pct := strings.Repeat("%", clampFuzzyDistance(l.Distance))
		return fmt.Sprintf("@%s:(%s%s%s)", f.Name, pct, escaped, pct), nil
	}
	return fmt.Sprintf("@%s:(%s)", f.Name, escaped), nil
}

func clampFuzzyDistance(d int) int {
	if d < 1 {
		return 1
	}
	if d > 3 {
		return 3
	}
	return d
}

// compileScalarCompare implements spec.md §4.6 rules 2-4 for
// Eq/Ne/Gt/Gte/Lt/Lte. A full-text field only accepts Eq/Ne here
// (spec.md §3.7's E5 invariant); everything else is checked by kind.
func compileScalarCompare(l *LeafCompare, f schema.FieldSpec) (string, error) {
	if f.Kind == schema.Text && f.FullTextSearch {
		switch l.Op {
		case Eq, Ne:
		default:
			return "", &schema.Error{Code: schema.E5, Field: l.Field, Msg: "full-text fields only support equality, inequality, and text-match operators"}
		}
	}

	switch f.Kind {
	case schema.Tag:
		return compileTagCompare(l, f)
	case schema.Text:
		return compileTextEquality(l, f)
	case schema.Numeric:
		return compileNumericCompare(l, f)
	default:
		return "", newError(E10, l.Field, "operator not supported for this field kind")
	}
}

func compileTagCompare(l *LeafCompare, f schema.FieldSpec) (string, error) {
	if l.Op != Eq && l.Op != Ne {
		return "", newError(E10, l.Field, "only equality/inequality are supported for TAG fields")
	}
	value := tagValueString(l.Value)
	clause := fmt.Sprintf("@%s:{%s}", f.Name, escapeTag(value))
	if l.Op == Ne {
		clause = "-" + clause
	}
	return clause, nil
}

func compileTextEquality(l *LeafCompare, f schema.FieldSpec) (string, error) {
	value := fmt.Sprintf("%v", l.Value)
	clause := fmt.Sprintf("@%s:(%s)", f.Name, escapeText(strings.ToLower(value)))
	if l.Op == Ne {
		clause = "-" + clause
	}
	return clause, nil
}

func compileNumericCompare(l *LeafCompare, f schema.FieldSpec) (string, error) {
	num := numericString(l.Value)

	switch l.Op {
	case Eq:
		return fmt.Sprintf("@%s:[%s %s]", f.Name, num, num), nil
	case Ne:
		return fmt.Sprintf("-@%s:[%s %s]", f.Name, num, num), nil
	case Gt:
		return fmt.Sprintf("@%s:[(%s +inf]", f.Name, num), nil
	case Gte:
		return fmt.Sprintf("@%s:[%s +inf]", f.Name, num), nil
	case Lt:
		return fmt.Sprintf("@%s:[-inf (%s]", f.Name, num), nil
	case Lte:
		return fmt.Sprintf("@%s:[-inf %s]", f.Name, num), nil
	default:
		return "", newError(E10, l.Field, "unsupported operator for a NUMERIC field")
	}
}

func compileKNN(n *KNN, fields map[string]schema.FieldSpec) (string, []byte, error) {
	f, ok := fields[n.Field]
	if !ok {
		return "", nil, newError(E6, n.Field, "field does not exist or is not indexed")
	}
	if f.Kind != schema.Vector {
		return "", nil, newError(E10, n.Field, "KNN leaf requires a VECTOR field")
	}
	if f.Vector == nil {
		return "", nil, newError(E11, n.Field, "vector field missing options")
	}

	filterStr := "*"
	if n.PreFilter != nil {
		s, _, err := compileNode(n.PreFilter, fields)
		if err != nil {
			return "", nil, err
		}
		filterStr = s
	}

	query := fmt.Sprintf("(%s)=>[KNN %d @%s $BLOB AS %s]", filterStr, n.K, f.Name, knnScoreAlias)

	var vecParam []byte
	if f.Vector.DType == schema.VectorFloat64 {
		vec64 := make([]float64, len(n.Vector))
		for i, v := range n.Vector {
			vec64[i] = float64(v)
		}
		vecParam = []byte(codec.EncodeVectorFloat64Hash(vec64))
	} else {
		vecParam = []byte(codec.EncodeVectorFloat32Hash(n.Vector))
	}

	return query, vecParam, nil
}

func tagValueString(v any) string {
	if b, ok := v.(bool); ok {
		if b {
			return "1"
		}
		return "0"
	}
	return fmt.Sprintf("%v", v)
}

func numericString(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
