package redis

import (
	"strconv"

	"context"

	"github.com/redis/rueidis"

	"github.com/redisom/redisom/internal/db"
)

// Search issues FT.SEARCH with the fully-lowered argument set produced by
// the query compiler and parses the reply into a SearchResult.
func (s *Store) Search(ctx context.Context, args *db.SearchArgs) (*db.SearchResult, error) {
	cmdArgs := buildSearchArgs(args)
	cmd := s.b().Arbitrary("FT.SEARCH").Args(cmdArgs...).Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw, args.WithScores)
}

// AggregateCount runs FT.AGGREGATE with a single GROUPBY 0 / REDUCE COUNT
// reducer and returns the resulting "total" value, used by Query[T].Count
// to avoid paging through the full result set.
func (s *Store) AggregateCount(ctx context.Context, index, query string) (int, error) {
	q := query
	if q == "" {
		q = "*"
	}
	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(index, q, "GROUPBY", "0", "REDUCE", "COUNT", "0", "AS", "total").Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpAggregate, Err: err}
	}

	// raw[0] is the cursor/row count header, raw[1] (if present) is the
	// single group row: ["total", "<n>"].
	if len(raw) < 2 {
		return 0, nil
	}
	row, err := raw[1].ToArray()
	if err != nil || len(row) < 2 {
		return 0, nil
	}
	val, err := row[1].ToString()
	if err != nil {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, &db.Error{Op: db.OpAggregate, Err: err}
	}
	return n, nil
}

func buildSearchArgs(args *db.SearchArgs) []string {
	query := args.Query
	if query == "" {
		query = "*"
	}

	out := []string{args.Index, query}

	if args.WithScores {
		out = append(out, "WITHSCORES")
	}

	if len(args.Return) > 0 {
		out = append(out, "RETURN", strconv.Itoa(len(args.Return)))
		out = append(out, args.Return...)
	}

	if args.SortBy != "" {
		out = append(out, "SORTBY", args.SortBy)
		if args.SortDesc {
			out = append(out, "DESC")
		} else {
			out = append(out, "ASC")
		}
	}

	if args.HasLimit {
		out = append(out, "LIMIT", strconv.Itoa(args.Offset), strconv.Itoa(args.Limit))
	}

	if args.VectorParam != nil {
		out = append(out, "PARAMS", "2", "BLOB", string(args.VectorParam))
	}

	dialect := args.Dialect
	if dialect == 0 {
		dialect = 2
	}
	out = append(out, "DIALECT", strconv.Itoa(dialect))

	return out
}

// parseSearchResult parses an FT.SEARCH reply. Without WITHSCORES the shape
// per hit is [key, fields...]; with WITHSCORES it's [key, score, fields...].
// A hit's field array is either flat key/value pairs (hash rows) or a single
// "$" field holding the serialized JSON document (document rows).
func parseSearchResult(raw []rueidis.RedisMessage, withScores bool) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].ToInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	result := &db.SearchResult{Total: int(total)}
	i := 1
	for i < len(raw) {
		key, err := raw[i].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
		i++

		entry := db.SearchEntry{Key: key}

		if withScores && i < len(raw) {
			if score, err := raw[i].AsFloat64(); err == nil {
				entry.Score = score
			}
			i++
		}

		if i < len(raw) {
			fieldArr, err := raw[i].ToArray()
			if err == nil {
				entry.Fields, entry.JSON = parseFieldPairs(fieldArr)
				i++
			}
		}

		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// parseFieldPairs splits a flat [k1, v1, k2, v2, ...] field array into either
// a hash-style string map, or a raw JSON document when the sole field is "$"
// (the alias RETURN uses for a whole JSON document, spec.md §4.7).
func parseFieldPairs(arr []rueidis.RedisMessage) (map[string]string, []byte) {
	if len(arr) == 2 {
		if k, err := arr[0].ToString(); err == nil && k == "$" {
			if v, err := arr[1].ToString(); err == nil {
				return nil, []byte(v)
			}
		}
	}

	fields := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		k, err1 := arr[i].ToString()
		v, err2 := arr[i+1].ToString()
		if err1 == nil && err2 == nil {
			fields[k] = v
		}
	}
	return fields, nil
}
