// Package index turns a compiled schema into an on-server search index,
// tracking a fingerprint so repeated registration is a no-op until the
// schema actually changes (spec.md §4.4).
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/metrics"
	"github.com/redisom/redisom/internal/schema"
)

// store is the narrow slice of db.Store the index manager actually calls,
// so tests can fake it without implementing the full facade.
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error)
}

// Manager owns the create/drop/re-create lifecycle for one record type's
// index.
type Manager struct {
	store store
}

// New creates an index manager over store.
func New(s store) *Manager {
	return &Manager{store: s}
}

// EnsureIndex creates the index if absent, or re-creates it if the
// compiled schema's fingerprint no longer matches what's stored at
// schemaHashKey. It is a no-op when the fingerprints already agree
// (spec.md §4.4's "skip" path).
func (m *Manager) EnsureIndex(ctx context.Context, name, schemaHashKey string, c *schema.Compiled, fingerprint string) error {
	stored, err := m.store.HGetAll(ctx, schemaHashKey)
	if err != nil {
		return fmt.Errorf("index: read fingerprint: %w", err)
	}
	if stored["fingerprint"] == fingerprint {
		return nil
	}

	if err := m.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("index: drop stale index: %w", err)
	}

	def, err := BuildDefinition(name, c)
	if err != nil {
		return fmt.Errorf("index: build definition: %w", err)
	}

	if err := m.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		metrics.IndexOperationsTotal.WithLabelValues(name, "create", "error").Inc()
		return fmt.Errorf("index: create: %w", err)
	}
	metrics.IndexOperationsTotal.WithLabelValues(name, "create", "ok").Inc()

	if err := m.store.HSet(ctx, schemaHashKey, map[string]string{"fingerprint": fingerprint}); err != nil {
		return fmt.Errorf("index: persist fingerprint: %w", err)
	}
	return nil
}

// DropIndex removes the named index, tolerating absence.
func (m *Manager) DropIndex(ctx context.Context, name string) error {
	err := m.store.DropIndex(ctx, name)
	if errors.Is(err, db.ErrIndexNotFound) {
		return nil
	}
	if err != nil {
		metrics.IndexOperationsTotal.WithLabelValues(name, "drop", "error").Inc()
		return err
	}
	metrics.IndexOperationsTotal.WithLabelValues(name, "drop", "ok").Inc()
	return nil
}

// Info fetches the server's current view of an index's fields, used by
// the data migrator's drift diagnostic.
func (m *Manager) Info(ctx context.Context, name string) (*db.IndexInfo, error) {
	return m.store.IndexInfo(ctx, name)
}

// BuildDefinition lowers a compiled schema into the db-layer
// IndexDefinition, translating each FieldSpec's Kind and options into the
// matching db.IndexField (spec.md §4.4's per-kind shapes).
func BuildDefinition(name string, c *schema.Compiled, prefixes ...string) (*db.IndexDefinition, error) {
	def := &db.IndexDefinition{
		Name:        name,
		StorageType: storageType(c.Layout),
		Prefixes:    prefixes,
	}

	for _, f := range c.Fields {
		if f.PrimaryKey {
			continue
		}
		field, err := buildField(f)
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, field)
	}

	return def, nil
}

func storageType(l schema.Layout) db.StorageType {
	if l == schema.DocumentLayout {
		return db.StorageJSON
	}
	return db.StorageHash
}

func buildField(f schema.FieldSpec) (db.IndexField, error) {
	field := db.IndexField{
		Path:             f.Path,
		Alias:            f.Name,
		Sortable:         f.Sortable,
		NoStem:           f.NoStem,
		TagSeparator:     f.Separator,
		TagCaseSensitive: f.CaseSensitive,
	}

	switch f.Kind {
	case schema.Tag:
		field.Type = db.IndexFieldTag
	case schema.Text:
		field.Type = db.IndexFieldText
	case schema.Numeric:
		field.Type = db.IndexFieldNumeric
	case schema.Geo:
		field.Type = db.IndexFieldGeo
	case schema.Vector:
		field.Type = db.IndexFieldVector
		if f.Vector == nil {
			return field, fmt.Errorf("index: vector field %q missing options", f.Name)
		}
		field.VectorAlgo = db.VectorAlgorithm(f.Vector.Algorithm)
		field.VectorDType = db.VectorDataType(f.Vector.DType)
		field.VectorDim = f.Vector.Dimension
		field.VectorDistance = db.DistanceMetric(f.Vector.Metric)
		field.VectorInitialCap = f.Vector.InitialCap
		field.VectorBlockSize = f.Vector.BlockSize
		field.VectorM = f.Vector.M
		field.VectorEFConstruct = f.Vector.EFConstruct
		field.VectorEFRuntime = f.Vector.EFRuntime
		field.VectorEpsilon = f.Vector.Epsilon
	default:
		return field, fmt.Errorf("index: unknown field kind %v", f.Kind)
	}

	return field, nil
}
