package db

// SearchArgs is the fully-lowered FT.SEARCH argument set produced by the
// query compiler (C6). Nothing in this package knows about the expression
// tree; it only knows how to turn SearchArgs into wire arguments.
type SearchArgs struct {
	Index string
	Query string

	Offset int
	Limit  int
	// HasLimit distinguishes "LIMIT 0 0" (count-only) from "no LIMIT clause
	// supplied" so the caller's default page size can be applied once, here.
	HasLimit bool

	SortBy   string
	SortDesc bool

	Return []string // RETURN field list; nil means "return everything"

	// VectorParam, if non-nil, is passed as PARAMS 2 BLOB <bytes> for a KNN
	// clause (spec.md §4.6 rule 8).
	VectorParam []byte

	WithScores bool
	Dialect    int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string // hash-layout rows; empty for JSON rows
	JSON   []byte            // document-layout rows (RETURN "$" or RETURN of $.path aliases folded back)
}
