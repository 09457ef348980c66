package schema

import (
	"strconv"
	"strings"
)

// tagSpec is the parsed form of one field's `redisom:"..."` struct tag,
// before it's dispatched to a Kind (spec.md §3.1's field option table).
type tagSpec struct {
	Skip bool

	Name string

	IndexSet   bool // true if "index" or "index=false" appeared explicitly
	Index      bool
	Sortable   bool
	FullText   bool
	CaseSens   bool
	Separator  string
	PrimaryKey bool
	NoStem     bool

	Vector *VectorOptions
}

// parseTag parses a struct tag's redisom value. fieldName is the Go
// struct field name, used as the default query name when the tag omits
// one ("" or "-,..." leading token).
func parseTag(fieldName, raw string) (tagSpec, error) {
	spec := tagSpec{Separator: DefaultSeparator}

	if raw == "-" {
		spec.Skip = true
		return spec, nil
	}

	body, vecRaw, hasVec := extractVector(raw)

	tokens := splitTopLevel(body)
	if len(tokens) == 0 {
		spec.Name = fieldName
		return spec, nil
	}

	first := strings.TrimSpace(tokens[0])
	if first != "" && first != "-" && !strings.Contains(first, "=") && !isKnownFlag(first) {
		spec.Name = first
		tokens = tokens[1:]
	} else {
		spec.Name = fieldName
	}

	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key, val, hasVal := strings.Cut(tok, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "index":
			spec.IndexSet = true
			if hasVal {
				b, err := strconv.ParseBool(val)
				if err != nil {
					return spec, newError(E4, fieldName, "invalid index value: "+val)
				}
				spec.Index = b
			} else {
				spec.Index = true
			}
		case "sortable":
			spec.Sortable = true
		case "full_text_search":
			spec.FullText = true
		case "case_sensitive":
			spec.CaseSens = true
		case "no_stem":
			spec.NoStem = true
		case "separator":
			if hasVal && val != "" {
				spec.Separator = val
			}
		case "primary_key":
			spec.PrimaryKey = true
		default:
			// unrecognized modifiers are ignored rather than rejected,
			// so additive tag options never break older records.
		}
	}

	if hasVec {
		v, err := parseVector(fieldName, vecRaw)
		if err != nil {
			return spec, err
		}
		spec.Vector = v
	}

	return spec, nil
}

func isKnownFlag(tok string) bool {
	switch tok {
	case "index", "sortable", "full_text_search", "case_sensitive", "no_stem", "primary_key":
		return true
	default:
		return false
	}
}

// extractVector pulls a "vector(...)" modifier out of a raw tag body,
// since its argument list contains commas that would otherwise be
// mistaken for tag-option separators.
func extractVector(raw string) (rest, vecArgs string, ok bool) {
	idx := strings.Index(raw, "vector(")
	if idx < 0 {
		return raw, "", false
	}
	end := strings.Index(raw[idx:], ")")
	if end < 0 {
		return raw, "", false
	}
	end += idx
	vecArgs = raw[idx+len("vector(") : end]
	rest = raw[:idx] + raw[end+1:]
	return rest, vecArgs, true
}

// splitTopLevel splits a comma-separated tag body, trimming stray commas
// left behind by extractVector.
func splitTopLevel(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseVector(fieldName, args string) (*VectorOptions, error) {
	v := &VectorOptions{
		Algorithm: VectorFlat,
		DType:     VectorFloat32,
		Metric:    MetricCosine,
	}
	for _, kv := range strings.Split(args, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		key, val, _ := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "algorithm":
			v.Algorithm = VectorAlgorithm(strings.ToUpper(val))
		case "dtype":
			v.DType = VectorDType(strings.ToUpper(val))
		case "dim", "dimension":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, newError(E12, fieldName, "invalid vector dim: "+val)
			}
			v.Dimension = n
		case "metric":
			v.Metric = VectorMetric(strings.ToUpper(val))
		case "initial_cap":
			v.InitialCap, _ = strconv.Atoi(val)
		case "block_size":
			v.BlockSize, _ = strconv.Atoi(val)
		case "m":
			v.M, _ = strconv.Atoi(val)
		case "ef_construction":
			v.EFConstruct, _ = strconv.Atoi(val)
		case "ef_runtime":
			v.EFRuntime, _ = strconv.Atoi(val)
		case "epsilon":
			f, _ := strconv.ParseFloat(val, 64)
			v.Epsilon = f
		}
	}
	if v.Dimension <= 0 {
		return nil, newError(E12, fieldName, "vector field requires dimension >= 1")
	}
	return v, nil
}
