package datamig

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/keycodec"
	"github.com/redisom/redisom/internal/metrics"
)

// FailureMode controls how a migration responds to a per-key transform
// error (spec.md §4.9).
type FailureMode string

const (
	// FailFast aborts the whole run on the first transform error.
	FailFast FailureMode = "fail"
	// Skip leaves the offending key untouched and continues.
	Skip FailureMode = "skip"
	// LogAndSkip is Skip plus a structured warning log per occurrence.
	LogAndSkip FailureMode = "log_and_skip"
	// UseDefault asks the migration's own transform function to fall back
	// to a migration-defined default value instead of erroring; the engine
	// treats any error that still surfaces under this mode like Skip.
	UseDefault FailureMode = "default"
)

const (
	defaultBatchSize     = 1000
	defaultProgressEvery = 100
	maxRecordedErrors    = 10
)

// store is the narrow slice of db.Store the data migrator calls (ISP,
// matching internal/index/manager.go's and
// internal/migrate/schemamig/manager.go's convention).
type store interface {
	Scan(ctx context.Context, pattern string, cursor uint64, count int) (db.ScanPage, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	Del(ctx context.Context, key string) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONSet(ctx context.Context, key, path string, data []byte) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
	IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error)
}

// Migration is a named, dependency-ordered data transformation over
// previously-written records. Dependencies lists migration ids that must
// already be applied before this one is eligible to run (spec.md §4.9's
// dependency DAG). Down is optional; a Migration that doesn't implement
// Reversible raises Unreversible on rollback.
type Migration interface {
	ID() string
	Description() string
	Dependencies() []string
	Up(ctx context.Context, tx *Transform) error
}

// Reversible is implemented by migrations that support Rollback.
type Reversible interface {
	Down(ctx context.Context, tx *Transform) error
}

// FieldError records one failed per-key transform, capped to the most
// recent entries for reporting (mirrors the bounded error log in
// original_source/aredis_om/.../datetime_migration.py's MigrationStats).
type FieldError struct {
	Key   string
	Field string
	Value string
	Err   error
}

// Stats accumulates one migration run's progress counters.
type Stats struct {
	ProcessedKeys int
	ChangedKeys   int
	SkippedKeys   int
	FailedKeys    int
	Errors        []FieldError
	// changedKeyList is populated only when a Transform is built with
	// trackChanged (Manager.Verify's sample replay), since a real run over
	// an entire record type could make this unbounded.
	changedKeyList []string
}

func (s *Stats) recordError(key, field, value string, err error) {
	s.FailedKeys++
	s.Errors = append(s.Errors, FieldError{Key: key, Field: field, Value: value, Err: err})
	if len(s.Errors) > maxRecordedErrors {
		s.Errors = s.Errors[len(s.Errors)-maxRecordedErrors:]
	}
}

func (s *Stats) merge(other Stats) {
	s.ProcessedKeys += other.ProcessedKeys
	s.ChangedKeys += other.ChangedKeys
	s.SkippedKeys += other.SkippedKeys
	s.FailedKeys += other.FailedKeys
	s.Errors = append(s.Errors, other.Errors...)
	if len(s.Errors) > maxRecordedErrors {
		s.Errors = s.Errors[len(s.Errors)-maxRecordedErrors:]
	}
	s.changedKeyList = append(s.changedKeyList, other.changedKeyList...)
}

// HashTransformFunc transforms one Hash-layout key's fields. It returns
// the changed fields only (HSET only needs to touch what changed),
// whether anything changed, and an error if the key should be treated as
// failed under the run's FailureMode.
type HashTransformFunc func(key string, fields map[string]string) (changed map[string]string, ok bool, err error)

// JSONTransformFunc is HashTransformFunc for Document-layout keys.
type JSONTransformFunc func(key string, doc map[string]any) (changed map[string]any, ok bool, err error)

// Transform is the bounded-batch SCAN+checkpoint engine a Migration's
// Up/Down drives. One Transform is built per migration run; a migration
// calls Hash or JSON once per record type it cares about. Grounded on
// internal/db/redis/hash.go's Scan cursor-loop shape and
// internal/db/redis/client.go's WaitForReady polling idiom for the
// resume-from-checkpoint structure.
type Transform struct {
	store          store
	targets        []RecordType
	mode           FailureMode
	maxErrors      int
	batchSize      int
	progressEvery  int
	dryRun         bool
	checkpoint     bool
	limitKeys      int
	trackChanged   bool
	migrationID    string
	reservedPrefix string
	logger         *zap.Logger

	stats Stats
}

// Targets returns the record types registered against this migrator.
func (tx *Transform) Targets() []RecordType { return tx.targets }

// FailureMode returns the run's configured failure policy, for migrations
// that need to branch their own conversion logic on it (e.g. UseDefault).
func (tx *Transform) FailureMode() FailureMode { return tx.mode }

// DryRun reports whether writes are suppressed this run.
func (tx *Transform) DryRun() bool { return tx.dryRun }

// Stats returns a copy of the counters accumulated so far.
func (tx *Transform) Stats() Stats { return tx.stats }

// Hash walks every key under rt's prefix through fn, applying the
// resulting field updates unless running in dry-run mode.
func (tx *Transform) Hash(ctx context.Context, rt RecordType, fn HashTransformFunc) error {
	pattern := keycodec.MakePrimaryKeyPattern(rt.Prefix, "")
	return tx.scan(ctx, rt.Name, pattern, func(ctx context.Context, key string) (bool, error) {
		fields, err := tx.store.HGetAll(ctx, key)
		if err != nil {
			return false, fmt.Errorf("datamig: hgetall %s: %w", key, err)
		}
		if len(fields) == 0 {
			return false, nil
		}
		updated, changed, err := fn(key, fields)
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}
		if tx.dryRun {
			return true, nil
		}
		if err := tx.store.HSet(ctx, key, updated); err != nil {
			return false, fmt.Errorf("datamig: hset %s: %w", key, err)
		}
		return true, nil
	})
}

// JSON is Hash for Document-layout record types: it JSON.GETs the root
// document, hands it to fn, and JSON.SETs the result back at "$".
func (tx *Transform) JSON(ctx context.Context, rt RecordType, fn JSONTransformFunc) error {
	pattern := keycodec.MakePrimaryKeyPattern(rt.Prefix, "")
	return tx.scan(ctx, rt.Name, pattern, func(ctx context.Context, key string) (bool, error) {
		raw, err := tx.store.JSONGet(ctx, key, "$")
		if err != nil {
			return false, fmt.Errorf("datamig: json.get %s: %w", key, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(unwrapArray(raw), &doc); err != nil {
			return false, fmt.Errorf("datamig: decode %s: %w", key, err)
		}
		updated, changed, err := fn(key, doc)
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}
		if tx.dryRun {
			return true, nil
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return false, fmt.Errorf("datamig: encode %s: %w", key, err)
		}
		if err := tx.store.JSONSet(ctx, key, "$", data); err != nil {
			return false, fmt.Errorf("datamig: json.set %s: %w", key, err)
		}
		return true, nil
	})
}

// unwrapArray undoes JSON.GET's root-path array wrapping, the same
// RedisJSON convention internal/runtime/docjson.go's unwrapRootArray
// handles for the query runtime.
func unwrapArray(raw []byte) []byte {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return raw
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) == 0 {
		return []byte("{}")
	}
	return arr[0]
}

func (tx *Transform) scan(ctx context.Context, recordType, pattern string, perKey func(context.Context, string) (bool, error)) error {
	progressKey := keycodec.MigrationsProgressKey(tx.reservedPrefix, tx.migrationID+"/"+recordType)

	var cursor uint64
	if tx.checkpoint {
		var err error
		cursor, err = tx.loadProgress(ctx, progressKey)
		if err != nil {
			return err
		}
	}

	count := tx.batchSize
	if count <= 0 {
		count = defaultBatchSize
	}
	sinceCheckpoint := 0
	seenAtStart := tx.stats.ProcessedKeys + tx.stats.FailedKeys

	for {
		if tx.limitKeys > 0 && tx.stats.ProcessedKeys+tx.stats.FailedKeys-seenAtStart >= tx.limitKeys {
			return nil
		}

		page, err := tx.store.Scan(ctx, pattern, cursor, count)
		if err != nil {
			return fmt.Errorf("datamig: scan %s: %w", recordType, err)
		}

		for _, key := range page.Keys {
			if tx.limitKeys > 0 && tx.stats.ProcessedKeys+tx.stats.FailedKeys-seenAtStart >= tx.limitKeys {
				break
			}

			changed, err := perKey(ctx, key)
			if err != nil {
				if abort := tx.handleFailure(recordType, key, err); abort != nil {
					return abort
				}
				continue
			}

			tx.stats.ProcessedKeys++
			sinceCheckpoint++
			if changed {
				tx.stats.ChangedKeys++
				if tx.trackChanged {
					tx.stats.changedKeyList = append(tx.stats.changedKeyList, key)
				}
			} else {
				tx.stats.SkippedKeys++
			}
		}

		metrics.MigrationKeysProcessed.WithLabelValues(tx.migrationID, "processed").Add(float64(len(page.Keys)))
		metrics.MigrationBatchesTotal.WithLabelValues(tx.migrationID, "ok").Inc()

		cursor = page.Cursor
		if tx.checkpoint && sinceCheckpoint >= tx.progressEvery {
			if err := tx.saveProgress(ctx, progressKey, cursor); err != nil {
				return err
			}
			sinceCheckpoint = 0
		}
		if cursor == 0 {
			break
		}
	}

	if tx.checkpoint {
		return tx.clearProgress(ctx, progressKey)
	}
	return nil
}

func (tx *Transform) handleFailure(recordType, key string, err error) error {
	tx.stats.recordError(key, recordType, "", err)
	metrics.MigrationKeysProcessed.WithLabelValues(tx.migrationID, "failed").Inc()

	if tx.mode == FailFast {
		return newError(Failed, tx.migrationID, fmt.Sprintf("record %s key %s: %v", recordType, key, err))
	}
	if tx.mode == LogAndSkip && tx.logger != nil {
		tx.logger.Warn("datamig: key transform failed, skipping",
			zap.String("migration_id", tx.migrationID),
			zap.String("record_type", recordType),
			zap.String("key", key),
			zap.Error(err))
	}
	if tx.maxErrors > 0 && tx.stats.FailedKeys >= tx.maxErrors {
		return newError(ThresholdExceeded, tx.migrationID,
			fmt.Sprintf("exceeded max_errors=%d (currently %d)", tx.maxErrors, tx.stats.FailedKeys))
	}
	return nil
}

func (tx *Transform) loadProgress(ctx context.Context, progressKey string) (uint64, error) {
	fields, err := tx.store.HGetAll(ctx, progressKey)
	if err != nil {
		return 0, fmt.Errorf("datamig: load progress: %w", err)
	}
	cursor, _ := strconv.ParseUint(fields["cursor"], 10, 64)
	return cursor, nil
}

func (tx *Transform) saveProgress(ctx context.Context, progressKey string, cursor uint64) error {
	fields := map[string]string{
		"cursor":    strconv.FormatUint(cursor, 10),
		"processed": strconv.Itoa(tx.stats.ProcessedKeys),
		"changed":   strconv.Itoa(tx.stats.ChangedKeys),
		"failed":    strconv.Itoa(tx.stats.FailedKeys),
	}
	if err := tx.store.HSet(ctx, progressKey, fields); err != nil {
		return fmt.Errorf("datamig: save progress: %w", err)
	}
	return nil
}

func (tx *Transform) clearProgress(ctx context.Context, progressKey string) error {
	if err := tx.store.Del(ctx, progressKey); err != nil {
		return fmt.Errorf("datamig: clear progress: %w", err)
	}
	return nil
}
