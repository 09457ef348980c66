package query

import "fmt"

// Code identifies one of the query-compile errors spec.md §7 classifies
// as QueryError.
type Code string

const (
	// E2: the requested sort field isn't sortable=true on the compiled
	// schema.
	E2 Code = "E2"
	// E6: a field named in a query expression doesn't exist, or isn't
	// index=true, on the compiled schema.
	E6 Code = "E6"
	// E7: the expression tree is malformed (nil node, empty And/Or).
	E7 Code = "E7"
	// E8: a node carries a combinator this compiler doesn't recognize.
	E8 Code = "E8"
	// E9: could not resolve the requested sort field on the compiled
	// schema.
	E9 Code = "E9"
	// E10: could not resolve the field's kind for the requested operator.
	E10 Code = "E10"
	// E11: could not resolve ancillary field info (e.g. vector options)
	// needed to compile the leaf.
	E11 Code = "E11"
)

// Error is a query-compile failure.
type Error struct {
	Code  Code
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("query[%s]: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("query[%s]: field %q: %s", e.Code, e.Field, e.Msg)
}

func newError(code Code, field, msg string) *Error {
	return &Error{Code: code, Field: field, Msg: msg}
}
