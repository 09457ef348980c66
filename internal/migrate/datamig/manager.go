package datamig

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/keycodec"
)

// Status is one registered migration's applied/pending classification.
type Status string

const (
	Applied Status = "applied"
	Pending Status = "pending"
)

// StatusReport is one registered migration's current state, in dependency
// order.
type StatusReport struct {
	ID           string
	Description  string
	Dependencies []string
	Status       Status
}

// RunOptions configures one Run invocation. A zero value runs every
// pending migration to completion with the manager's configured defaults.
type RunOptions struct {
	DryRun bool
	// Limit bounds how many PENDING MIGRATIONS this call applies, not the
	// number of keys each one touches (that's Transform's own limitKeys,
	// used internally by Verify's sampling).
	Limit       int
	BatchSize   int
	FailureMode FailureMode
	MaxErrors   int
}

// VerifyOptions configures Verify's dry-run replay.
type VerifyOptions struct {
	// SampleSize caps how many keys per record type each already-applied
	// migration's replay inspects; 0 replays every key.
	SampleSize int
}

// VerifyReport is one applied migration's dry-run replay result: any
// record it would still change indicates it was not (or only partially)
// applied.
type VerifyReport struct {
	MigrationID string
	SampleSize  int
	Mismatches  []string
}

// SchemaMismatch is one field whose server-reported FT.INFO type disagrees
// with the in-memory compiled schema, the drift diagnostic spec.md §4.9
// asks the data migrator to surface ahead of a run.
type SchemaMismatch struct {
	RecordType   string
	Field        string
	Index        string
	ServerKind   string
	ExpectedKind string
}

// Manager owns the registered data migrations and the record types they
// may target, grounded on schemamig.Manager's shape but driving Transform
// instead of FT.CREATE/DROPINDEX pairs.
type Manager struct {
	store          store
	registry       *Registry
	migrations     map[string]Migration
	appliedSetKey  string
	reservedPrefix string

	batchSize     int
	progressEvery int
	failureMode   FailureMode
	maxErrors     int
	logger        *zap.Logger
}

// New creates a data migrator. reservedPrefix namespaces both the shared
// applied-migrations set (the same key schemamig.Manager writes to --
// spec.md §6.3 names one global set, not one per migrator) and this
// migrator's own per-record-type progress keys.
func New(s store, registry *Registry, reservedPrefix string) *Manager {
	return &Manager{
		store:          s,
		registry:       registry,
		migrations:     make(map[string]Migration),
		appliedSetKey:  keycodec.MigrationsAppliedSetKey(reservedPrefix),
		reservedPrefix: reservedPrefix,
		batchSize:      defaultBatchSize,
		progressEvery:  defaultProgressEvery,
		failureMode:    LogAndSkip,
	}
}

// WithBatchSize overrides the default SCAN page size (spec.md §4.9's
// bounded-batch requirement), following cmd/vecdex/main.go's chainable
// With* builder-option convention.
func (m *Manager) WithBatchSize(n int) *Manager {
	if n > 0 {
		m.batchSize = n
	}
	return m
}

// WithProgressInterval overrides how many processed keys elapse between
// checkpoint writes.
func (m *Manager) WithProgressInterval(n int) *Manager {
	if n > 0 {
		m.progressEvery = n
	}
	return m
}

// WithFailureMode overrides the default per-key failure policy.
func (m *Manager) WithFailureMode(mode FailureMode) *Manager {
	if mode != "" {
		m.failureMode = mode
	}
	return m
}

// WithMaxErrors sets the failed-key threshold that aborts a non-fail-mode
// run (0 disables the threshold).
func (m *Manager) WithMaxErrors(n int) *Manager {
	m.maxErrors = n
	return m
}

// WithLogger attaches a logger for LogAndSkip's per-occurrence warnings.
func (m *Manager) WithLogger(l *zap.Logger) *Manager {
	m.logger = l
	return m
}

// Register adds a migration to the manager. Registering a migration whose
// id collides with an existing one replaces it.
func (m *Manager) Register(mig Migration) {
	m.migrations[mig.ID()] = mig
}

// TopoSort orders migrations dependency-first using Kahn's algorithm,
// ported directly from
// original_source/aredis_om/model/migrations/data/migrator.py's
// _topological_sort. Ties are broken by id for deterministic output across
// runs.
func TopoSort(migrations map[string]Migration) ([]string, error) {
	indegree := make(map[string]int, len(migrations))
	dependents := make(map[string][]string, len(migrations))

	for id := range migrations {
		indegree[id] = 0
	}
	for id, mig := range migrations {
		for _, dep := range mig.Dependencies() {
			if _, ok := migrations[dep]; !ok {
				return nil, newError(NotFound, dep, fmt.Sprintf("migration %q depends on unregistered migration %q", id, dep))
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(migrations))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		next := append([]string{}, dependents[id]...)
		sort.Strings(next)
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				sort.Strings(ready)
			}
		}
	}

	if len(order) != len(migrations) {
		var stuck []string
		for id, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, newError(Cyclic, "", fmt.Sprintf("dependency cycle among migrations: %v", stuck))
	}
	return order, nil
}

// Status reports every registered migration's applied/pending state in
// dependency order.
func (m *Manager) Status(ctx context.Context) ([]StatusReport, error) {
	order, err := TopoSort(m.migrations)
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]StatusReport, 0, len(order))
	for _, id := range order {
		mig := m.migrations[id]
		st := Pending
		if applied[id] {
			st = Applied
		}
		reports = append(reports, StatusReport{
			ID:           id,
			Description:  mig.Description(),
			Dependencies: mig.Dependencies(),
			Status:       st,
		})
	}
	return reports, nil
}

// Run applies every pending migration in dependency order, stopping at the
// first failure (spec.md §4.9). opts.Limit, if positive, caps how many
// migrations this call applies; the run can be resumed with a further call
// since each migration's own progress checkpoint survives between calls.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (Stats, error) {
	order, err := TopoSort(m.migrations)
	if err != nil {
		return Stats{}, err
	}
	applied, err := m.appliedSet(ctx)
	if err != nil {
		return Stats{}, err
	}

	var total Stats
	ran := 0
	for _, id := range order {
		if applied[id] {
			continue
		}
		if opts.Limit > 0 && ran >= opts.Limit {
			break
		}

		mig := m.migrations[id]
		tx := m.newTransform(id, opts, true, false, 0)
		if err := mig.Up(ctx, tx); err != nil {
			total.merge(tx.Stats())
			return total, err
		}
		total.merge(tx.Stats())
		ran++

		if opts.DryRun {
			continue
		}
		if err := m.store.SAdd(ctx, m.appliedSetKey, id); err != nil {
			return total, fmt.Errorf("datamig: record applied %s: %w", id, err)
		}
	}
	return total, nil
}

// Rollback runs the inverse of an applied migration. The migration must
// implement Reversible; otherwise Rollback reports Unreversible rather
// than silently no-opping.
func (m *Manager) Rollback(ctx context.Context, id string) error {
	mig, ok := m.migrations[id]
	if !ok {
		return newError(NotFound, id, "no migration registered with this id")
	}
	rev, ok := mig.(Reversible)
	if !ok {
		return newError(Unreversible, id, "migration has no Down implementation")
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return err
	}
	if !applied[id] {
		return newError(NotFound, id, "migration is not currently applied")
	}

	tx := m.newTransform(id, RunOptions{BatchSize: m.batchSize, FailureMode: m.failureMode, MaxErrors: m.maxErrors}, true, false, 0)
	if err := rev.Down(ctx, tx); err != nil {
		return err
	}
	return m.store.SRem(ctx, m.appliedSetKey, id)
}

// Verify dry-run replays every applied migration's Up against its targets
// and reports any key it would still change -- a non-empty report means
// the migration did not fully converge (SPEC_FULL.md §11's Verify
// supplement). Replay never checkpoints and never writes.
func (m *Manager) Verify(ctx context.Context, opts VerifyOptions) ([]VerifyReport, error) {
	order, err := TopoSort(m.migrations)
	if err != nil {
		return nil, err
	}
	applied, err := m.appliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var reports []VerifyReport
	for _, id := range order {
		if !applied[id] {
			continue
		}
		mig := m.migrations[id]
		tx := m.newTransform(id, RunOptions{DryRun: true}, false, true, opts.SampleSize)
		if err := mig.Up(ctx, tx); err != nil {
			return reports, err
		}
		stats := tx.Stats()
		reports = append(reports, VerifyReport{
			MigrationID: id,
			SampleSize:  opts.SampleSize,
			Mismatches:  stats.changedKeyList,
		})
	}
	return reports, nil
}

// CheckSchema compares every registered record type's FT.INFO-reported
// field kinds against its in-memory compiled schema, surfacing drift
// before a migration runs against stale index assumptions.
func (m *Manager) CheckSchema(ctx context.Context) ([]SchemaMismatch, error) {
	var mismatches []SchemaMismatch
	for _, rt := range m.registry.Targets() {
		if rt.IndexName == "" {
			continue
		}
		info, err := m.store.IndexInfo(ctx, rt.IndexName)
		if err != nil {
			return nil, fmt.Errorf("datamig: ft.info %s: %w", rt.IndexName, err)
		}
		for _, f := range rt.Fields {
			if f.PrimaryKey {
				continue
			}
			serverKind, ok := info.Fields[f.Name]
			if !ok {
				continue
			}
			if serverKind.String() != f.Kind.String() {
				mismatches = append(mismatches, SchemaMismatch{
					RecordType:   rt.Name,
					Field:        f.Name,
					Index:        rt.IndexName,
					ServerKind:   serverKind.String(),
					ExpectedKind: f.Kind.String(),
				})
			}
		}
	}
	return mismatches, nil
}

// ClearProgress deletes the saved SCAN-cursor checkpoint for id across
// every registered record type, forcing its next Run to restart that
// migration from the beginning instead of resuming.
func (m *Manager) ClearProgress(ctx context.Context, id string) error {
	for _, rt := range m.registry.Targets() {
		key := keycodec.MigrationsProgressKey(m.reservedPrefix, id+"/"+rt.Name)
		if err := m.store.Del(ctx, key); err != nil {
			return fmt.Errorf("datamig: clear progress %s: %w", key, err)
		}
	}
	return nil
}

func (m *Manager) newTransform(migrationID string, opts RunOptions, checkpoint, trackChanged bool, limitKeys int) *Transform {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = m.batchSize
	}
	mode := opts.FailureMode
	if mode == "" {
		mode = m.failureMode
	}
	maxErrors := opts.MaxErrors
	if maxErrors == 0 {
		maxErrors = m.maxErrors
	}

	return &Transform{
		store:          m.store,
		targets:        m.registry.Targets(),
		mode:           mode,
		maxErrors:      maxErrors,
		batchSize:      batchSize,
		progressEvery:  m.progressEvery,
		dryRun:         opts.DryRun,
		checkpoint:     checkpoint,
		limitKeys:      limitKeys,
		trackChanged:   trackChanged,
		migrationID:    migrationID,
		reservedPrefix: m.reservedPrefix,
		logger:         m.logger,
	}
}

func (m *Manager) appliedSet(ctx context.Context) (map[string]bool, error) {
	members, err := m.store.SMembers(ctx, m.appliedSetKey)
	if err != nil {
		return nil, fmt.Errorf("datamig: read applied set: %w", err)
	}
	set := make(map[string]bool, len(members))
	for _, mem := range members {
		set[mem] = true
	}
	return set, nil
}
