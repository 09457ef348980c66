// Package runtime implements C7, the query runtime: it executes a
// compiled FT.SEARCH argument set, hydrates rows back into the caller's
// record type via reflection, and layers the find()/page()/update()
// terminal operations spec.md §4.7 specifies on top.
package runtime

import (
	"context"
	"strings"
	"time"

	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/metrics"
	"github.com/redisom/redisom/internal/query"
	"github.com/redisom/redisom/internal/schema"
)

// store is the narrow slice of db.Store the runtime calls (ISP, matching
// internal/index/manager.go's convention).
type store interface {
	Search(ctx context.Context, args *db.SearchArgs) (*db.SearchResult, error)
	AggregateCount(ctx context.Context, index, query string) (int, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	JSONDel(ctx context.Context, key, path string) error
}

// defaultPageSize is the fixed internal page size async iteration walks
// the result set with (spec.md §4.7 "paginates internally with a fixed
// page size").
const defaultPageSize = 100

// Query is the lazy, chainable object find() constructs. Builder methods
// return *Query[T] for chaining; terminal methods issue the server round
// trip.
type Query[T any] struct {
	store     store
	compiled  *schema.Compiled
	indexName string

	expr query.Expr

	sortBy     string
	sortDesc   bool
	offset     int
	limit      int
	hasLimit   bool
	projection *Projection
	withScores bool
}

// New constructs a query over a compiled record type's index.
func New[T any](s store, compiled *schema.Compiled, meta schema.Meta, expr query.Expr) *Query[T] {
	return &Query[T]{store: s, compiled: compiled, indexName: meta.IndexName(), expr: expr}
}

// SortBy applies a sort field; a "-" prefix sorts descending.
func (q *Query[T]) SortBy(field string) *Query[T] {
	if strings.HasPrefix(field, "-") {
		q.sortBy = field[1:]
		q.sortDesc = true
	} else {
		q.sortBy = field
		q.sortDesc = false
	}
	return q
}

// Values restricts the hydrated result to the given fields, without
// marking it partial (spec.md §4.7 values()).
func (q *Query[T]) Values(paths ...string) *Query[T] {
	q.projection = &Projection{Paths: paths}
	return q
}

// Only restricts the hydrated result to the given fields and marks it
// partial: reading any other field through Partial.Field is an error
// (spec.md §4.7 only()).
func (q *Query[T]) Only(paths ...string) *Query[T] {
	q.projection = &Projection{Paths: paths, Partial: true}
	return q
}

// WithScores requests the document relevance/vector-distance score
// alongside each hit.
func (q *Query[T]) WithScores() *Query[T] {
	q.withScores = true
	return q
}

func (q *Query[T]) clone() *Query[T] {
	cp := *q
	return &cp
}

func (q *Query[T]) compileWithReturn(returnOverride []string, hasOverride bool) (*db.SearchArgs, error) {
	ret := returnFields(q.projection, q.compiled)
	if hasOverride {
		ret = returnOverride
	}
	opts := query.CompileOptions{
		Offset:     q.offset,
		Limit:      q.limit,
		HasLimit:   q.hasLimit,
		SortBy:     q.sortBy,
		SortDesc:   q.sortDesc,
		Return:     ret,
		WithScores: q.withScores,
	}
	return query.Compile(q.compiled, q.indexName, q.expr, opts)
}

// search issues one FT.SEARCH round trip, recording its latency and
// outcome under the query's index name and the calling terminal operation
// (find()/page()/delete()/update(), spec.md §4.7).
func (q *Query[T]) search(ctx context.Context, args *db.SearchArgs, terminal string) (*db.SearchResult, error) {
	start := time.Now()
	result, err := q.store.Search(ctx, args)
	metrics.QueryDuration.WithLabelValues(q.indexName, terminal).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.QueriesTotal.WithLabelValues(q.indexName, terminal, outcome).Inc()
	return result, err
}

// keysOnlyReturn is the minimal RETURN list Update/Delete use: they only
// need each hit's key, which FT.SEARCH always reports regardless of
// RETURN, so requesting the primary key field keeps the payload small.
func (q *Query[T]) keysOnlyReturn() []string {
	if q.compiled.PrimaryKey == nil {
		return nil
	}
	return []string{q.compiled.PrimaryKey.Name}
}
