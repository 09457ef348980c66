package redisom

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redisom/redisom/internal/db"
)

// fakeServerStore is an in-memory db.Store good enough to drive C5-C7
// end-to-end: it derives each index's key prefix from the index name
// (keycodec's "{global}:{model}:index" convention, trimmed) and
// evaluates the real FT.SEARCH query string internal/query/compile.go
// produces, rather than a simplified stand-in, so the scenarios in
// redisom_scenarios_test.go exercise the same query grammar a real
// server would receive.
type fakeServerStore struct {
	mu       sync.Mutex
	hashes   map[string]map[string]string
	jsonDocs map[string][]byte
	sets     map[string]map[string]bool
	indexes  map[string]*db.IndexDefinition
}

func newFakeServerStore() *fakeServerStore {
	return &fakeServerStore{
		hashes:   map[string]map[string]string{},
		jsonDocs: map[string][]byte{},
		sets:     map[string]map[string]bool{},
		indexes:  map[string]*db.IndexDefinition{},
	}
}

func (f *fakeServerStore) Ping(ctx context.Context) error { return nil }

func (f *fakeServerStore) ServerInfo(ctx context.Context) (string, error) {
	return "# Modules\nmodule:name=search,ver=999\nmodule:name=ReJSON,ver=999\n", nil
}

func (f *fakeServerStore) Close() {}

func (f *fakeServerStore) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (f *fakeServerStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.hashes[key]
	if !ok {
		row = map[string]string{}
		f.hashes[key] = row
	}
	for k, v := range fields {
		row[k] = v
	}
	return nil
}

func (f *fakeServerStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		if err := f.HSet(ctx, it.Key, it.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeServerStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.hashes[key]
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out, nil
}

func (f *fakeServerStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		row, err := f.HGetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			out[i] = nil
			continue
		}
		out[i] = row
	}
	return out, nil
}

func (f *fakeServerStore) HDel(ctx context.Context, key string, fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.hashes[key]
	for _, fl := range fields {
		delete(row, fl)
	}
	return nil
}

func (f *fakeServerStore) HExpire(ctx context.Context, key string, ttl time.Duration, fields ...string) error {
	return nil
}

func (f *fakeServerStore) Del(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hashes, key)
	delete(f.jsonDocs, key)
	return nil
}

func (f *fakeServerStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.hashes[key]; ok {
		return true, nil
	}
	if _, ok := f.jsonDocs[key]; ok {
		return true, nil
	}
	return false, nil
}

func (f *fakeServerStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (f *fakeServerStore) Scan(ctx context.Context, pattern string, cursor uint64, count int) (db.ScanPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []string
	for k := range f.hashes {
		all = append(all, k)
	}
	for k := range f.jsonDocs {
		all = append(all, k)
	}
	sort.Strings(all)

	var matched []string
	for _, k := range all {
		if ok, _ := path.Match(pattern, k); ok {
			matched = append(matched, k)
		}
	}

	start := int(cursor)
	if start > len(matched) {
		start = len(matched)
	}
	end := start + count
	if count <= 0 || end > len(matched) {
		end = len(matched)
	}
	page := matched[start:end]
	next := uint64(end)
	if end >= len(matched) {
		next = 0
	}
	return db.ScanPage{Cursor: next, Keys: page}, nil
}

func (f *fakeServerStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonDocs[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeServerStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	for _, it := range items {
		if err := f.JSONSet(ctx, it.Key, it.Path, it.Data); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeServerStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	f.mu.Lock()
	raw, ok := f.jsonDocs[key]
	f.mu.Unlock()
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return wrapRootArray(raw), nil
}

func (f *fakeServerStore) JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		f.mu.Lock()
		raw, ok := f.jsonDocs[k]
		f.mu.Unlock()
		if !ok {
			out[i] = nil
			continue
		}
		out[i] = wrapRootArray(raw)
	}
	return out, nil
}

func (f *fakeServerStore) JSONDel(ctx context.Context, key, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jsonDocs, key)
	return nil
}

// wrapRootArray replicates JSON.GET's "$"-path convention of wrapping the
// match in a one-element array, which internal/runtime/docjson.go's
// unwrapRootArray expects to undo.
func wrapRootArray(raw []byte) []byte {
	out := make([]byte, 0, len(raw)+2)
	out = append(out, '[')
	out = append(out, raw...)
	out = append(out, ']')
	return out
}

func (f *fakeServerStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	f.indexes[def.Name] = &cp
	return nil
}

func (f *fakeServerStore) DropIndex(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(f.indexes, name)
	return nil
}

func (f *fakeServerStore) IndexExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexes[name]
	return ok, nil
}

func (f *fakeServerStore) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	def, ok := f.indexes[name]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	info := &db.IndexInfo{Name: name, Fields: map[string]db.IndexFieldType{}}
	for _, fl := range def.Fields {
		info.Fields[fl.Alias] = fl.Type
	}
	return info, nil
}

func (f *fakeServerStore) SAdd(ctx context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[key]
	if !ok {
		set = map[string]bool{}
		f.sets[key] = set
	}
	for _, m := range members {
		set[m] = true
	}
	return nil
}

func (f *fakeServerStore) SMembers(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeServerStore) SRem(ctx context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.sets[key]
	for _, m := range members {
		delete(set, m)
	}
	return nil
}

func (f *fakeServerStore) AggregateCount(ctx context.Context, index, query string) (int, error) {
	res, err := f.Search(ctx, &db.SearchArgs{Index: index, Query: query, HasLimit: true, Offset: 0, Limit: 1 << 30})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// Search derives the record key prefix from the index name (the
// "{global}:{model}:index" -> "{global}:{model}:" convention
// internal/keycodec's IndexName/SchemaHashKey encode), flattens each
// candidate key's row, evaluates the compiled query string against it,
// then sorts/paginates.
func (f *fakeServerStore) Search(ctx context.Context, args *db.SearchArgs) (*db.SearchResult, error) {
	f.mu.Lock()
	def, ok := f.indexes[args.Index]
	f.mu.Unlock()
	if !ok {
		return nil, db.ErrIndexNotFound
	}

	recordPrefix := strings.TrimSuffix(args.Index, ":index")
	schemaHashKey := recordPrefix + ":hash"
	keyPrefix := recordPrefix + ":"

	type hit struct {
		key string
		row map[string]string
	}
	var hits []hit

	f.mu.Lock()
	if def.StorageType == db.StorageJSON {
		for key, raw := range f.jsonDocs {
			if !strings.HasPrefix(key, keyPrefix) || key == schemaHashKey {
				continue
			}
			hits = append(hits, hit{key: key, row: flattenJSON(raw, def.Fields)})
		}
	} else {
		for key, row := range f.hashes {
			if !strings.HasPrefix(key, keyPrefix) || key == schemaHashKey {
				continue
			}
			cp := make(map[string]string, len(row))
			for k, v := range row {
				cp[k] = v
			}
			hits = append(hits, hit{key: key, row: cp})
		}
	}
	f.mu.Unlock()

	var matched []hit
	for _, h := range hits {
		ok, err := evalQuery(args.Query, h.row)
		if err != nil {
			return nil, fmt.Errorf("fake store: %w", err)
		}
		if ok {
			matched = append(matched, h)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].key < matched[j].key })
	if args.SortBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			less := sortLess(matched[i].row[args.SortBy], matched[j].row[args.SortBy])
			if args.SortDesc {
				return !less && matched[i].row[args.SortBy] != matched[j].row[args.SortBy]
			}
			return less
		})
	}

	total := len(matched)
	start := args.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if args.HasLimit {
		end = start + args.Limit
		if end > len(matched) {
			end = len(matched)
		}
	}
	page := matched[start:end]

	result := &db.SearchResult{Total: total}
	for _, h := range page {
		entry := db.SearchEntry{Key: h.key}
		if len(args.Return) > 0 {
			fields := make(map[string]string, len(args.Return))
			for _, r := range args.Return {
				if v, ok := h.row[r]; ok {
					fields[r] = v
				}
			}
			entry.Fields = fields
		} else if def.StorageType == db.StorageJSON {
			entry.JSON = f.jsonDocs[h.key]
		} else {
			entry.Fields = h.row
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

func sortLess(a, b string) bool {
	fa, erra := strconv.ParseFloat(a, 64)
	fb, errb := strconv.ParseFloat(b, 64)
	if erra == nil && errb == nil {
		return fa < fb
	}
	return a < b
}

// flattenJSON reduces a stored document to the flat alias->string row
// shape evalLeaf/sortLess work against, using def's Path/Alias pairs to
// walk the unmarshaled document the same way
// internal/runtime/hydrate.go's jsonLookup does.
func flattenJSON(raw []byte, fields []db.IndexField) map[string]string {
	var doc map[string]any
	_ = json.Unmarshal(raw, &doc)
	row := make(map[string]string, len(fields))
	for _, fl := range fields {
		v, ok := jsonPathLookup(doc, fl.Path)
		if !ok {
			continue
		}
		row[fl.Alias] = scalarToString(v)
	}
	return row
}

func jsonPathLookup(doc map[string]any, jsonPath string) (any, bool) {
	trimmed := strings.TrimPrefix(jsonPath, "$.")
	trimmed = strings.TrimPrefix(trimmed, "$")
	if trimmed == "" {
		return doc, true
	}
	var cur any = doc
	for _, part := range strings.Split(trimmed, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func scalarToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == 1 {
			return "1"
		}
		if t == 0 {
			return "0"
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", t)
	}
}
