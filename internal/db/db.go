// Package db defines the wire-command contract the rest of redisom is built
// against (C1-C9 never talk to a concrete client directly) and the Redis-
// backed implementation of that contract.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	JSONStore
	IndexManager
	Searcher
	SetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity and probes server capabilities.
type Pinger interface {
	Ping(ctx context.Context) error
	// ServerInfo returns the raw INFO response, used to detect search/JSON
	// module availability (spec.md §4.4 "module missing" capability check).
	ServerInfo(ctx context.Context) (string, error)
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations (C2 flat layout, C1 keys).
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	// HExpire sets a per-field TTL via HEXPIRE when the server supports it
	// (Redis >= 7.4); returns ErrCapabilityMissing otherwise, which callers
	// treat as an observable no-op warning per spec.md §6.1.
	HExpire(ctx context.Context, key string, ttl time.Duration, fields ...string) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Scan(ctx context.Context, pattern string, cursor uint64, count int) (ScanPage, error)
}

// ScanPage is one page of a SCAN cursor walk.
type ScanPage struct {
	Cursor uint64
	Keys   []string
}

// JSONSetItem holds a single key+path+data triple for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONStore provides JSON document operations (C2 document layout).
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	JSONDel(ctx context.Context, key, path string) error
}

// IndexManager provides FT index lifecycle operations (C4).
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (*IndexInfo, error)
}

// Searcher provides search operations over FT indexes (C6/C7 execution).
type Searcher interface {
	Search(ctx context.Context, args *SearchArgs) (*SearchResult, error)
	// AggregateCount runs FT.AGGREGATE GROUPBY 0 REDUCE COUNT, a cheaper
	// path for `.count()` than FT.SEARCH when no document bodies are needed.
	AggregateCount(ctx context.Context, index, query string) (int, error)
}

// SetStore provides the set primitives the schema migrator tracks its
// global applied-migrations set with (C8).
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
}
