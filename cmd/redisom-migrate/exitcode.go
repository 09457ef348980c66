package main

import (
	"errors"

	"github.com/redisom/redisom/internal/migrate/datamig"
	"github.com/redisom/redisom/internal/migrate/schemamig"
)

// Sentinel errors for outcomes that aren't a schemamig/datamig *Error but
// still need their own exit code (spec.md §6.6).
var (
	errPartialRun     = errors.New("redisom-migrate: run completed with failed keys")
	errVerifyMismatch = errors.New("redisom-migrate: verify found unconverged keys")
	errSchemaDrift    = errors.New("redisom-migrate: schema drift detected")
)

// Exit codes per spec.md §6.6: 0 success; 1 transient failure (retry
// reasonable); 2 fatal (configuration, schema drift); 3 partial
// (applied-set advanced but errors occurred).
const (
	exitOK        = 0
	exitTransient = 1
	exitFatal     = 2
	exitPartial   = 3
)

func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}

	var sErr *schemamig.Error
	if errors.As(err, &sErr) {
		return exitFatal
	}

	var dErr *datamig.Error
	if errors.As(err, &dErr) {
		switch dErr.Kind {
		case datamig.ThresholdExceeded:
			return exitPartial
		case datamig.Failed:
			return exitTransient
		default:
			return exitFatal
		}
	}

	switch {
	case errors.Is(err, errPartialRun):
		return exitPartial
	case errors.Is(err, errVerifyMismatch), errors.Is(err, errSchemaDrift):
		return exitFatal
	default:
		return exitTransient
	}
}
