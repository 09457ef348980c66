package schema

import "fmt"

// Code identifies one of the eager schema-compile errors spec.md §3.7
// enumerates.
type Code string

const (
	// E1: a containment operator (`<<`/`>>`) target isn't a list/tuple TAG
	// field. Declared on this type per spec.md §7's SchemaError grouping,
	// but the check itself can only fire once a query references the
	// field, so internal/query raises this code directly.
	E1 Code = "E1"
	// E3: a text-match (`%`) operator target lacks full_text_search=true.
	// Same deferred-check pattern as E1: internal/query raises it.
	E3 Code = "E3"
	// E4: two fields compiled to the same query-time name.
	E4 Code = "E4"
	// E5: a full-text field was used with an operator other than
	// equality, inequality, or text-match. Deferred like E1/E3.
	E5 Code = "E5"
	// E12: list/tuple field with a non-string element type.
	E12 Code = "E12"
	// E13: list/tuple field with full_text_search set.
	E13 Code = "E13"

	// NestedInFlatRecord: a flat (Hash) record declares a container or
	// embedded-record field, which is only legal on document records.
	// Unnumbered: spec.md's SchemaError bullet groups this with "missing
	// primary key, duplicate primary key" rather than an E-series code.
	NestedInFlatRecord Code = "NESTED_IN_FLAT_RECORD"
	// SortableNotIndexed: sortable declared on a non-indexed field.
	// Unnumbered for the same reason as NestedInFlatRecord -- E2 and E6
	// are QueryError codes (non-sortable sort key, query on non-indexed
	// field), not this eager compile-time check.
	SortableNotIndexed Code = "SORTABLE_NOT_INDEXED"
	// FullTextRequiresString: full_text_search was set on a non-string
	// field. Unnumbered for the same reason as the above two -- E3 is
	// reserved for the query-time "text-match target" check.
	FullTextRequiresString Code = "FULL_TEXT_REQUIRES_STRING"
	// FullTextCaseSensitiveConflict: full_text_search and case_sensitive
	// both set. Unnumbered -- E5 is reserved for the query-time
	// "full-text field, disallowed operator" check.
	FullTextCaseSensitiveConflict Code = "FULL_TEXT_CASE_SENSITIVE_CONFLICT"
)

// Error is a schema-compile failure, always eager: it fires while
// registering a record type, never on first use.
type Error struct {
	Code  Code
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema[%s]: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("schema[%s]: field %q: %s", e.Code, e.Field, e.Msg)
}

func newError(code Code, field, msg string) *Error {
	return &Error{Code: code, Field: field, Msg: msg}
}
