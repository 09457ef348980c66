package redisom

import (
	"fmt"
	"strconv"
	"strings"
)

// evalQuery evaluates an FT.SEARCH query string (the exact grammar
// internal/query/compile.go emits: TAG {a|b}, TEXT (value), NUMERIC
// [min max], space-joined AND, "(a | b)" OR, "-(...)" NOT, and bare "*")
// against one flattened field row, so fakeServerStore.Search can drive
// C5/C6/C7 end-to-end without a real server.
func evalQuery(query string, row map[string]string) (bool, error) {
	if query == "" || query == "*" {
		return true, nil
	}
	return evalAnd(query, row)
}

func evalAnd(s string, row map[string]string) (bool, error) {
	for _, term := range splitTopLevel(s, ' ') {
		if term == "" {
			continue
		}
		ok, err := evalTerm(term, row)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalTerm(term string, row map[string]string) (bool, error) {
	switch {
	case term == "*":
		return true, nil
	case strings.HasPrefix(term, "-(") && strings.HasSuffix(term, ")"):
		ok, err := evalAnd(term[2:len(term)-1], row)
		return !ok, err
	case strings.HasPrefix(term, "(") && strings.HasSuffix(term, ")"):
		for _, part := range splitTopLevel(term[1:len(term)-1], '|') {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ok, err := evalAnd(part, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case strings.HasPrefix(term, "-@"):
		ok, err := evalLeaf(term[1:], row)
		return !ok, err
	case strings.HasPrefix(term, "@"):
		return evalLeaf(term, row)
	default:
		return false, fmt.Errorf("cannot evaluate query term %q", term)
	}
}

// evalLeaf handles one "@field:<op-body>" clause: {tag|tag}, [min max],
// or (text).
func evalLeaf(term string, row map[string]string) (bool, error) {
	idx := strings.Index(term, ":")
	if idx < 0 || len(term) < idx+3 {
		return false, fmt.Errorf("malformed leaf %q", term)
	}
	field := term[1:idx]
	rest := term[idx+1:]
	inner := rest[1 : len(rest)-1]
	v := row[field]

	switch rest[0] {
	case '{':
		for _, cand := range strings.Split(inner, "|") {
			if unescapeQueryValue(cand) == v {
				return true, nil
			}
		}
		return false, nil
	case '[':
		parts := strings.Fields(inner)
		if len(parts) != 2 {
			return false, fmt.Errorf("malformed numeric range %q", term)
		}
		fv, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return false, nil
		}
		return numericInRange(fv, parts[0], parts[1]), nil
	case '(':
		needle := strings.ToLower(unescapeQueryValue(strings.Trim(inner, "%")))
		return strings.Contains(strings.ToLower(v), needle), nil
	default:
		return false, fmt.Errorf("unsupported leaf operator in %q", term)
	}
}

// unescapeQueryValue undoes internal/query/escape.go's tagEscapeChars
// backslash-escaping.
func unescapeQueryValue(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}

func numericInRange(v float64, minStr, maxStr string) bool {
	if minStr != "-inf" {
		excl := strings.HasPrefix(minStr, "(")
		m, _ := strconv.ParseFloat(strings.TrimPrefix(minStr, "("), 64)
		if excl {
			if !(v > m) {
				return false
			}
		} else if v < m {
			return false
		}
	}
	if maxStr != "+inf" {
		excl := strings.HasPrefix(maxStr, "(")
		m, _ := strconv.ParseFloat(strings.TrimPrefix(maxStr, "("), 64)
		if excl {
			if !(v < m) {
				return false
			}
		} else if v > m {
			return false
		}
	}
	return true
}

// splitTopLevel splits s on sep, ignoring occurrences nested inside
// (), [] or {} (FT.SEARCH clauses never escape these delimiters, only
// the characters inside a TAG/TEXT value).
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}
