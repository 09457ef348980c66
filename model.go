package redisom

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/index"
	"github.com/redisom/redisom/internal/keycodec"
	"github.com/redisom/redisom/internal/query"
	"github.com/redisom/redisom/internal/runtime"
	"github.com/redisom/redisom/internal/schema"
)

// ModelMeta is a record type's per-type contract (spec.md §6.5): key
// prefixes, pk pattern/generator, an optional dedicated store, index name
// override, the embedded-record flag and string encoding. It is
// internal/schema.Meta directly -- the facade adds no fields of its own,
// it only adds the functional-option constructor and Register below.
type ModelMeta = schema.Meta

// Layout distinguishes Hash-backed from JSON-document-backed storage
// (spec.md §3.2's tagged StorageLayout variant).
type Layout = schema.Layout

const (
	HashLayout     = schema.HashLayout
	DocumentLayout = schema.DocumentLayout
)

// LayoutProvider lets a record type opt into JSON-document storage by
// implementing Layout() on a value receiver returning DocumentLayout. A
// record type that doesn't implement it is registered Hash-backed. This
// is the Go-idiomatic stand-in for the original Python's HashModel/
// JsonModel base-class choice (DESIGN NOTES §9): an interface a record
// type opts into, rather than a base class it inherits from.
type LayoutProvider interface {
	Layout() Layout
}

// metaProvider lets a record type declare its own default ModelMeta by
// implementing `Meta() ModelMeta`. Register's meta argument always wins
// over it field-by-field (ModelMeta.Inherits), mirroring spec.md §6.5's
// inheritance rule applied at the single-type level.
type metaProvider interface {
	Meta() ModelMeta
}

// MetaOption configures a ModelMeta built by NewMeta.
type MetaOption func(*ModelMeta)

// NewMeta builds a ModelMeta from functional options, for record types
// that don't want to implement Meta() themselves.
func NewMeta(opts ...MetaOption) ModelMeta {
	var m ModelMeta
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func WithGlobalKeyPrefix(p string) MetaOption { return func(m *ModelMeta) { m.GlobalKeyPrefix = p } }
func WithModelKeyPrefix(p string) MetaOption  { return func(m *ModelMeta) { m.ModelKeyPrefix = p } }
func WithPrimaryKeyPattern(p string) MetaOption {
	return func(m *ModelMeta) { m.PrimaryKeyPattern = p }
}
func WithPrimaryKeyCreator(f func() string) MetaOption {
	return func(m *ModelMeta) { m.PrimaryKeyCreator = f }
}
func WithIndexName(name string) MetaOption { return func(m *ModelMeta) { m.IndexNameOverride = name } }
func WithEmbedded() MetaOption             { return func(m *ModelMeta) { m.Embedded = true } }
func WithEncoding(enc string) MetaOption   { return func(m *ModelMeta) { m.Encoding = enc } }
func WithDatabase(s db.Store) MetaOption   { return func(m *ModelMeta) { m.Database = s } }

// Collection is the generic, registered handle for record type T: the
// facade's find()/save()/get()/delete() surface (spec.md §4.7/§8.2's
// scenario S1), built by Register.
type Collection[T any] struct {
	store    db.Store
	compiled *schema.Compiled
	meta     ModelMeta
	logger   *zap.Logger
}

// Register compiles T's schema, ensures its secondary index exists (or
// is re-created if the fingerprint changed), and returns a Collection
// ready to save/get/delete/find records. meta.Database overrides c's
// store when set, so a record type can live on a different logical
// connection than the one Connect opened (spec.md §6.5).
//
// The invariants schema.Compile checks (sortable-but-unindexed, full-text
// on a non-string field, duplicate query names, ...) are raised here, as
// a *schema.Error, since this is redisom's equivalent of "fire at
// metaclass/registration time" (SPEC_FULL.md §10). Primary keys are not
// checked: a record type with no primary_key field registers without
// error (Save then fails), and with several the last one is used.
func Register[T any](ctx context.Context, c *Client, meta ModelMeta) (*Collection[T], error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("redisom: Register requires a struct type, got %T", zero)
	}

	if mp, ok := any(zero).(metaProvider); ok {
		meta = meta.Inherits(mp.Meta())
	}
	meta = meta.ApplyDefaults(t.Name())

	store := meta.Database
	if store == nil {
		if c == nil {
			return nil, fmt.Errorf("redisom: Register requires a Client or meta.Database")
		}
		store = c.store
	}

	layout := HashLayout
	if lp, ok := any(zero).(LayoutProvider); ok {
		layout = lp.Layout()
	}

	compiled, err := schema.Compile(t, layout, false)
	if err != nil {
		return nil, err
	}

	prefix := meta.Prefix()
	fingerprint := schema.Fingerprint(compiled, prefix.String())
	mgr := index.New(store)
	if err := mgr.EnsureIndex(ctx, meta.IndexName(), keycodec.SchemaHashKey(prefix), compiled, fingerprint); err != nil {
		if errors.Is(err, db.ErrModuleNotAvailable) {
			return nil, ErrCapability
		}
		return nil, fmt.Errorf("redisom: ensure index: %w", err)
	}

	var logger *zap.Logger
	if c != nil {
		logger = c.logger
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Collection[T]{store: store, compiled: compiled, meta: meta, logger: logger}, nil
}

// Save writes v's entire field set under its primary key, allocating one
// via meta.PrimaryKeyCreator if v's pk field is still empty.
func (c *Collection[T]) Save(ctx context.Context, v *T) (string, error) {
	pk, err := runtime.Save[T](ctx, c.store, c.compiled, c.meta, v)
	if err != nil {
		c.logger.Error("redisom: save failed", zap.String("index", c.meta.IndexName()), zap.Error(err))
		return "", err
	}
	c.logger.Debug("redisom: saved", zap.String("index", c.meta.IndexName()), zap.String("pk", pk))
	return pk, nil
}

// Get fetches the single record at pk, or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, pk string) (*T, error) {
	return runtime.Get[T](ctx, c.store, c.compiled, c.meta, pk)
}

// GetMany bulk-fetches records by primary key in one pipelined round
// trip (SPEC_FULL.md §11 C7 supplement).
func (c *Collection[T]) GetMany(ctx context.Context, pks ...string) ([]*T, error) {
	return runtime.GetMany[T](ctx, c.store, c.compiled, c.meta, pks...)
}

// Delete removes the record at pk and reports whether one existed.
func (c *Collection[T]) Delete(ctx context.Context, pk string) (bool, error) {
	existed, err := runtime.Delete(ctx, c.store, c.compiled, c.meta, pk)
	if err != nil {
		c.logger.Error("redisom: delete failed", zap.String("index", c.meta.IndexName()), zap.Error(err))
		return false, err
	}
	return existed, nil
}

// Find starts a lazy, chainable query over the collection's index
// (spec.md §4.7's find()). A nil expr matches every record.
func (c *Collection[T]) Find(expr query.Expr) *runtime.Query[T] {
	return runtime.New[T](c.store, c.compiled, c.meta, expr)
}

// IndexName returns the secondary index this collection queries.
func (c *Collection[T]) IndexName() string {
	return c.meta.IndexName()
}
