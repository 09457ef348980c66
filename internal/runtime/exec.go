package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/metrics"
	"github.com/redisom/redisom/internal/schema"
)

// All executes the query and returns every hydrated match.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	args, err := q.compileWithReturn(nil, false)
	if err != nil {
		return nil, err
	}
	result, err := q.search(ctx, args, "all")
	if err != nil {
		return nil, err
	}
	return hydrateEntries[T](result.Entries, q.compiled)
}

// AllPartial is All for a query built with Only(...): each result is
// wrapped so fields outside the projection raise ErrPartial on access.
func (q *Query[T]) AllPartial(ctx context.Context) ([]*Partial[T], error) {
	values, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Partial[T], len(values))
	for i, v := range values {
		out[i] = newPartial[T](v, q.compiled, q.projection)
	}
	return out, nil
}

// First returns the first match, or ErrNotFound if none matched.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	clone := q.clone()
	clone.limit = 1
	clone.hasLimit = true
	results, err := clone.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

// Count returns the number of matches without loading document bodies
// (spec.md §4.7 "return just the hit count").
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	args, err := q.compileWithReturn(nil, false)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	n, err := q.store.AggregateCount(ctx, q.indexName, args.Query)
	metrics.QueryDuration.WithLabelValues(q.indexName, "count").Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.QueriesTotal.WithLabelValues(q.indexName, "count", outcome).Inc()
	return n, err
}

// Page returns a specific window of matches. A sort_by must already be
// applied, or the window order isn't stable across calls (spec.md §4.7).
func (q *Query[T]) Page(ctx context.Context, offset, limit int) ([]*T, error) {
	if q.sortBy == "" {
		return nil, ErrSortByRequired
	}
	clone := q.clone()
	clone.offset = offset
	clone.limit = limit
	clone.hasLimit = true
	return clone.All(ctx)
}

// Delete removes every matching record and returns how many were
// deleted.
func (q *Query[T]) Delete(ctx context.Context) (int, error) {
	args, err := q.compileWithReturn(q.keysOnlyReturn(), true)
	if err != nil {
		return 0, err
	}
	result, err := q.search(ctx, args, "delete")
	if err != nil {
		return 0, err
	}
	for _, e := range result.Entries {
		if err := q.store.Del(ctx, e.Key); err != nil {
			return 0, err
		}
	}
	return len(result.Entries), nil
}

// Update loads each match, applies patch (keyed by the record's
// query-time field names), and saves it back. It returns the number of
// records patched.
func (q *Query[T]) Update(ctx context.Context, patch map[string]any) (int, error) {
	fields := make(map[string]schema.FieldSpec, len(q.compiled.Fields))
	for _, f := range q.compiled.Fields {
		fields[f.Name] = f
	}
	for name := range patch {
		if _, ok := fields[name]; !ok {
			return 0, fmt.Errorf("runtime: update patch references unknown field %q", name)
		}
	}

	args, err := q.compileWithReturn(q.keysOnlyReturn(), true)
	if err != nil {
		return 0, err
	}
	result, err := q.search(ctx, args, "update")
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range result.Entries {
		var patchErr error
		if q.compiled.Layout == schema.DocumentLayout {
			patchErr = q.updateDocumentEntry(ctx, e.Key, patch, fields)
		} else {
			patchErr = q.updateHashEntry(ctx, e.Key, patch, fields)
		}
		if patchErr != nil {
			return count, patchErr
		}
		count++
	}
	return count, nil
}

func (q *Query[T]) updateHashEntry(ctx context.Context, key string, patch map[string]any, fields map[string]schema.FieldSpec) error {
	out := make(map[string]string, len(patch))
	for name, v := range patch {
		f := fields[name]
		s, err := encodeHashValue(f, v)
		if err != nil {
			return err
		}
		out[f.Path] = s
	}
	return q.store.HSet(ctx, key, out)
}

func (q *Query[T]) updateDocumentEntry(ctx context.Context, key string, patch map[string]any, fields map[string]schema.FieldSpec) error {
	raws, err := q.store.JSONGetMulti(ctx, []string{key}, "$")
	if err != nil {
		return err
	}
	if len(raws) == 0 || raws[0] == nil {
		return ErrNotFound
	}
	body, err := unwrapRootArray(raws[0])
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("runtime: unmarshal document for patch: %w", err)
	}

	for name, v := range patch {
		f := fields[name]
		encoded, err := encodeJSONValue(f, v)
		if err != nil {
			return err
		}
		setJSONPath(doc, f.Path, encoded)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("runtime: marshal patched document: %w", err)
	}
	return q.store.JSONSet(ctx, key, "$", data)
}

// GetMany bulk-fetches records by primary key in a single pipelined
// round trip (SPEC_FULL.md §11 C7 supplement). A key with no record is
// silently skipped.
func GetMany[T any](ctx context.Context, s store, compiled *schema.Compiled, meta schema.Meta, pks ...string) ([]*T, error) {
	if len(pks) == 0 {
		return nil, nil
	}
	keys := make([]string, len(pks))
	for i, pk := range pks {
		keys[i] = meta.Key(pk)
	}

	if compiled.Layout == schema.DocumentLayout {
		raws, err := s.JSONGetMulti(ctx, keys, "$")
		if err != nil {
			return nil, err
		}
		out := make([]*T, 0, len(raws))
		for _, raw := range raws {
			if raw == nil {
				continue
			}
			body, err := unwrapRootArray(raw)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			v, err := Hydrate[T](db.SearchEntry{JSON: body}, compiled)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	rows, err := s.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		v, err := Hydrate[T](db.SearchEntry{Fields: row}, compiled)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Iterator restarts an async page-at-a-time walk over a query's matches
// (spec.md §4.7 "restartable async sequence"), one FT.SEARCH round trip
// per page.
type Iterator[T any] struct {
	q      *Query[T]
	offset int
	page   []*T
	pos    int
	done   bool
}

// Iter returns a fresh iterator over the query's matches.
func (q *Query[T]) Iter() *Iterator[T] {
	return &Iterator[T]{q: q}
}

// Next advances to, and returns, the next record, or (nil, false) once
// the sequence is exhausted.
func (it *Iterator[T]) Next(ctx context.Context) (*T, bool, error) {
	for it.pos >= len(it.page) {
		if it.done {
			return nil, false, nil
		}
		page, err := it.q.clone().pageAt(ctx, it.offset, defaultPageSize)
		if err != nil {
			return nil, false, err
		}
		it.page = page
		it.pos = 0
		it.offset += len(page)
		if len(page) < defaultPageSize {
			it.done = true
		}
		if len(page) == 0 {
			return nil, false, nil
		}
	}
	v := it.page[it.pos]
	it.pos++
	return v, true, nil
}

func (q *Query[T]) pageAt(ctx context.Context, offset, limit int) ([]*T, error) {
	clone := q.clone()
	clone.offset = offset
	clone.limit = limit
	clone.hasLimit = true
	return clone.All(ctx)
}

func hydrateEntries[T any](entries []db.SearchEntry, c *schema.Compiled) ([]*T, error) {
	out := make([]*T, 0, len(entries))
	for _, e := range entries {
		v, err := Hydrate[T](e, c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
