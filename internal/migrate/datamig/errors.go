package datamig

import "fmt"

// Kind discriminates the ways a data migration run can fail, mirrored on
// internal/migrate/schemamig.Kind's convention of one sentinel-ish error
// type per package.
type Kind string

const (
	// Cyclic is raised when the dependency DAG among registered migrations
	// contains a cycle.
	Cyclic Kind = "CYCLIC_DEPENDENCY"
	// NotFound is raised when a migration id is referenced (as a
	// dependency, or to Rollback) but nothing is registered under it.
	NotFound Kind = "NOT_FOUND"
	// ThresholdExceeded is raised when a run's failed-key count reaches
	// its configured max_errors under a non-fail failure mode.
	ThresholdExceeded Kind = "ERROR_THRESHOLD_EXCEEDED"
	// Unreversible is raised by Rollback when the target migration has no
	// Down method -- unlike schema migrations (always reversible via their
	// stored Prev/New field pairs), a data migration's down is optional,
	// so this kind has a real code path here.
	Unreversible Kind = "UNREVERSIBLE_ROLLBACK"
	// Failed wraps a per-key transform error surfaced under failure mode
	// "fail", aborting the run.
	Failed Kind = "MIGRATION_FAILED"
)

// Error is the structured error type datamig raises.
type Error struct {
	Kind        Kind
	MigrationID string
	Msg         string
}

func (e *Error) Error() string {
	switch {
	case e.MigrationID != "" && e.Msg != "":
		return fmt.Sprintf("datamig[%s]: %s: %s", e.Kind, e.MigrationID, e.Msg)
	case e.MigrationID != "":
		return fmt.Sprintf("datamig[%s]: %s", e.Kind, e.MigrationID)
	default:
		return fmt.Sprintf("datamig[%s]: %s", e.Kind, e.Msg)
	}
}

func newError(kind Kind, migrationID, msg string) *Error {
	return &Error{Kind: kind, MigrationID: migrationID, Msg: msg}
}
