package runtime

import "errors"

// ErrNotFound is returned by First/Get when no record matches; GetMany
// skips missing keys instead.
var ErrNotFound = errors.New("runtime: record not found")

// ErrPartial is returned when a field not requested by Only is read from
// a projected result (spec.md §4.7 "reading an unloaded field raises an
// access error").
var ErrPartial = errors.New("runtime: field was not loaded on a partial result")

// ErrSortByRequired is returned by Page when no SortBy has been applied,
// per spec.md §4.7's "caller must have applied sort_by for stable order".
var ErrSortByRequired = errors.New("runtime: page requires sort_by for a stable order")
