package redisom

import "github.com/redisom/redisom/internal/migrate/datamig"

// Transform is the handle a data migration's Up/Down method uses to read
// and rewrite records across a batch of keys (C9). An application's own
// migrations package -- which lives outside this module and so can't import
// internal/migrate/datamig directly -- writes its Up/Down methods against
// this alias instead.
type Transform = datamig.Transform

// DataMigration is implemented by a data migration. Pair it with
// DataMigrationReversible to support rollback.
type DataMigration = datamig.Migration

// DataMigrationReversible is implemented by a data migration that supports
// Rollback via a Down method.
type DataMigrationReversible = datamig.Reversible

// FailureMode selects how Run reacts to a per-key transform error.
type FailureMode = datamig.FailureMode

const (
	// FailFast aborts the whole run on the first transform error.
	FailFast = datamig.FailFast
	// Skip leaves the key unmodified and continues.
	Skip = datamig.Skip
	// LogAndSkip is Skip plus a structured warning log per occurrence.
	LogAndSkip = datamig.LogAndSkip
	// UseDefault asks the migration's own transform function to fall back
	// to a default value instead of erroring.
	UseDefault = datamig.UseDefault
)
