// Package schemamig implements C8, the schema migrator: it diffs a
// registered record type's current compiled fingerprint against the
// migration-file series and the server-recorded fingerprint, writes new
// migration files on drift, and applies or rolls back FT.CREATE/
// FT.DROPINDEX pairs against the server (spec.md §4.8).
package schemamig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/index"
	"github.com/redisom/redisom/internal/keycodec"
	"github.com/redisom/redisom/internal/schema"
)

// store is the narrow slice of db.Store the migrator calls (ISP, matching
// internal/index/manager.go's convention).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
}

// Code is one of the four buckets Status classifies a record type's
// migration state into.
type Code string

const (
	// UpToDate: the file series head fingerprint matches both the
	// in-memory fingerprint and what the server has recorded.
	UpToDate Code = "up_to_date"
	// PendingCreate: no migration file exists yet for this record type
	// and the server has never recorded a fingerprint either -- `create`
	// has never run for it.
	PendingCreate Code = "pending_create"
	// PendingDrift: the in-memory schema has changed since the last
	// migration file was written (or the server fingerprint lags the
	// file series head) -- `create` then `run` are both needed.
	PendingDrift Code = "pending_drift"
	// OrphanOnServer: the server has a recorded fingerprint for this
	// record type but no migration file exists -- typically a record
	// type whose migration files were deleted out-of-band.
	OrphanOnServer Code = "orphan_on_server"
)

// StatusReport is one registered record type's current migration state.
type StatusReport struct {
	RecordType          string
	Status              Code
	InMemoryFingerprint string
	FileHeadFingerprint string
	ServerFingerprint   string
}

// Manager owns the migration-file directory and the registered record
// types it diffs against it.
type Manager struct {
	store         store
	registry      *Registry
	migrationsDir string
	appliedSetKey string
}

// New creates a schema migrator. reservedPrefix namespaces the global
// applied-migrations set (config.MigrationsConfig.ReservedPrefix).
func New(s store, registry *Registry, migrationsDir, reservedPrefix string) *Manager {
	return &Manager{
		store:         s,
		registry:      registry,
		migrationsDir: migrationsDir,
		appliedSetKey: keycodec.MigrationsAppliedSetKey(reservedPrefix),
	}
}

// Status reports, for every registered record type, the current in-memory
// fingerprint against the migration-file series head and the
// server-recorded fingerprint (spec.md §4.8 `status`).
func (m *Manager) Status(ctx context.Context) ([]StatusReport, error) {
	files, err := listMigrationFiles(m.migrationsDir)
	if err != nil {
		return nil, err
	}

	reports := make([]StatusReport, 0, len(m.registry.types))
	for _, name := range m.registry.Names() {
		rt, _ := m.registry.Get(name)
		inMemory := schema.Fingerprint(rt.Compiled, rt.Meta.Prefix().String())

		series := filesForRecordType(files, name)
		var fileHead string
		if len(series) > 0 {
			fileHead = series[len(series)-1].NewFingerprint
		}

		hashKey := keycodec.SchemaHashKey(rt.Meta.Prefix())
		serverVals, err := m.store.HGetAll(ctx, hashKey)
		if err != nil {
			return nil, fmt.Errorf("schemamig: read %s: %w", hashKey, err)
		}
		server := serverVals["fingerprint"]

		reports = append(reports, StatusReport{
			RecordType:          name,
			Status:              classify(fileHead, inMemory, server),
			InMemoryFingerprint: inMemory,
			FileHeadFingerprint: fileHead,
			ServerFingerprint:   server,
		})
	}
	return reports, nil
}

func classify(fileHead, inMemory, server string) Code {
	switch {
	case fileHead == "" && server == "":
		return PendingCreate
	case fileHead == "" && server != "":
		return OrphanOnServer
	case fileHead == inMemory && server == fileHead:
		return UpToDate
	default:
		return PendingDrift
	}
}

// Create diffs every registered record type's in-memory fingerprint
// against its migration-file series head and writes one file per
// differing record type (spec.md §4.8 `create`), sharing a single id
// (the invocation's timestamp) but keeping filenames distinct by folding
// the record type name into the slug.
func (m *Manager) Create(ctx context.Context, slug string) ([]*SchemaMigration, error) {
	files, err := listMigrationFiles(m.migrationsDir)
	if err != nil {
		return nil, err
	}

	id := newMigrationID(time.Now())
	baseSlug := sanitizeSlug(slug)

	var created []*SchemaMigration
	for _, name := range m.registry.Names() {
		rt, _ := m.registry.Get(name)
		inMemory := schema.Fingerprint(rt.Compiled, rt.Meta.Prefix().String())

		series := filesForRecordType(files, name)
		var prevFingerprint string
		var prevFields []schema.FieldSpec
		if len(series) > 0 {
			last := series[len(series)-1]
			prevFingerprint = last.NewFingerprint
			prevFields = last.NewFields
		}
		if prevFingerprint == inMemory {
			continue
		}

		mig := &SchemaMigration{
			ID:              id,
			Slug:            baseSlug + "_" + sanitizeSlug(name),
			RecordType:      name,
			IndexName:       rt.Meta.IndexName(),
			Prefix:          rt.Meta.Prefix().String(),
			Layout:          rt.Compiled.Layout,
			PrevFingerprint: prevFingerprint,
			NewFingerprint:  inMemory,
			PrevFields:      prevFields,
			NewFields:       rt.Compiled.Fields,
		}
		if _, err := writeMigrationFile(m.migrationsDir, mig); err != nil {
			return nil, err
		}
		created = append(created, mig)
	}
	return created, nil
}

// Run applies every un-applied migration file in id order: drop the prior
// index if present, create the new one, record the new fingerprint. A
// FT.CREATE failure aborts the run; migrations already applied earlier in
// the same call remain applied (spec.md §4.8 failure semantics). Already
// applied files are skipped entirely, making a repeated Run a no-op
// (invariant 2, spec.md §8.1).
func (m *Manager) Run(ctx context.Context) error {
	files, err := listMigrationFiles(m.migrationsDir)
	if err != nil {
		return err
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return err
	}

	for _, mig := range files {
		if applied[appliedMember(mig)] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return err
		}
		if err := m.store.SAdd(ctx, m.appliedSetKey, appliedMember(mig)); err != nil {
			return fmt.Errorf("schemamig: record applied %s: %w", mig.Filename(), err)
		}
	}
	return nil
}

func (m *Manager) apply(ctx context.Context, mig *SchemaMigration) error {
	rt, ok := m.registry.Get(mig.RecordType)
	if !ok {
		return newError(Unregistered, mig.RecordType, mig.ID, "record type is not registered with this run")
	}

	hashKey := keycodec.SchemaHashKey(rt.Meta.Prefix())
	serverVals, err := m.store.HGetAll(ctx, hashKey)
	if err != nil {
		return fmt.Errorf("schemamig: read %s: %w", hashKey, err)
	}
	if server := serverVals["fingerprint"]; server != mig.PrevFingerprint {
		return newError(Drift, mig.RecordType, mig.ID,
			fmt.Sprintf("server fingerprint %q does not match this migration's expected previous fingerprint %q", server, mig.PrevFingerprint))
	}

	if err := m.dropIndexIfPresent(ctx, mig.IndexName); err != nil {
		return fmt.Errorf("schemamig: drop %s: %w", mig.IndexName, err)
	}

	newDef, err := index.BuildDefinition(mig.IndexName, &schema.Compiled{Layout: mig.Layout, Fields: mig.NewFields}, mig.Prefix)
	if err != nil {
		return fmt.Errorf("schemamig: build new definition: %w", err)
	}

	if err := m.store.CreateIndex(ctx, newDef); err != nil && !errors.Is(err, db.ErrIndexExists) {
		rollbackErr := m.recreatePrevIndex(ctx, mig)
		return errors.Join(fmt.Errorf("schemamig: create %s: %w", mig.IndexName, err), rollbackErr)
	}

	if err := m.store.HSet(ctx, hashKey, map[string]string{"fingerprint": mig.NewFingerprint}); err != nil {
		return fmt.Errorf("schemamig: persist fingerprint: %w", err)
	}
	return nil
}

// Rollback applies the inverse of migration id: drop the current index
// and, if the migration recorded a previous field set, rebuild it and
// restore the previous fingerprint (spec.md §4.8 `rollback`).
func (m *Manager) Rollback(ctx context.Context, id string) error {
	files, err := listMigrationFiles(m.migrationsDir)
	if err != nil {
		return err
	}

	var mig *SchemaMigration
	for _, f := range files {
		if f.ID == id {
			mig = f
			break
		}
	}
	if mig == nil {
		return newError(NotFound, "", id, "no migration file with this id")
	}

	rt, ok := m.registry.Get(mig.RecordType)
	if !ok {
		return newError(Unregistered, mig.RecordType, id, "record type is not registered with this run")
	}

	if err := m.dropIndexIfPresent(ctx, mig.IndexName); err != nil {
		return fmt.Errorf("schemamig: drop %s: %w", mig.IndexName, err)
	}

	hashKey := keycodec.SchemaHashKey(rt.Meta.Prefix())

	if mig.PrevFields == nil && mig.PrevFingerprint == "" {
		if err := m.store.Del(ctx, hashKey); err != nil {
			return fmt.Errorf("schemamig: clear fingerprint: %w", err)
		}
		return m.store.SRem(ctx, m.appliedSetKey, appliedMember(mig))
	}

	prevDef, err := index.BuildDefinition(mig.IndexName, &schema.Compiled{Layout: mig.Layout, Fields: mig.PrevFields}, mig.Prefix)
	if err != nil {
		return fmt.Errorf("schemamig: build previous definition: %w", err)
	}
	if err := m.store.CreateIndex(ctx, prevDef); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("schemamig: recreate previous index: %w", err)
	}
	if err := m.store.HSet(ctx, hashKey, map[string]string{"fingerprint": mig.PrevFingerprint}); err != nil {
		return fmt.Errorf("schemamig: restore fingerprint: %w", err)
	}

	return m.store.SRem(ctx, m.appliedSetKey, appliedMember(mig))
}

func (m *Manager) recreatePrevIndex(ctx context.Context, mig *SchemaMigration) error {
	if mig.PrevFields == nil {
		return nil
	}
	prevDef, err := index.BuildDefinition(mig.IndexName, &schema.Compiled{Layout: mig.Layout, Fields: mig.PrevFields}, mig.Prefix)
	if err != nil {
		return fmt.Errorf("schemamig: build rollback definition: %w", err)
	}
	if err := m.store.CreateIndex(ctx, prevDef); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("schemamig: restore previous index after failed create: %w", err)
	}
	return nil
}

func (m *Manager) dropIndexIfPresent(ctx context.Context, name string) error {
	err := m.store.DropIndex(ctx, name)
	if errors.Is(err, db.ErrIndexNotFound) {
		return nil
	}
	return err
}

func (m *Manager) appliedSet(ctx context.Context) (map[string]bool, error) {
	members, err := m.store.SMembers(ctx, m.appliedSetKey)
	if err != nil {
		return nil, fmt.Errorf("schemamig: read applied set: %w", err)
	}
	set := make(map[string]bool, len(members))
	for _, mem := range members {
		set[mem] = true
	}
	return set, nil
}

// appliedMember is the applied-set member recorded for mig: the id alone
// isn't unique since Create writes every file of one call under the same
// id, and two Create calls within the same second also share an id, so
// the member also carries the slug and the record type.
func appliedMember(mig *SchemaMigration) string {
	return mig.ID + "_" + mig.Slug + "/" + mig.RecordType
}
