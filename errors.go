package redisom

import (
	"errors"

	"github.com/redisom/redisom/internal/runtime"
)

// ErrNotFound is returned by Get/Collection.Get when no record exists at
// the requested primary key. It is the same sentinel internal/runtime
// raises, so errors.Is works whether the caller holds a *Collection[T]
// result or an internal/runtime one directly (spec.md §7's NotFound row).
var ErrNotFound = runtime.ErrNotFound

// ErrCapability is returned when the connected server is missing a
// required module (RediSearch or RedisJSON), per spec.md §7's
// CapabilityError row. A missing command such as HEXPIRE is not reported
// through it.
var ErrCapability = errors.New("redisom: required server capability not available")

// ErrDatabaseNumber is returned by Connect when the connection URL
// selects a logical database other than 0: index operations are only
// well-defined against the default database (spec.md §6.2).
var ErrDatabaseNumber = errors.New("redisom: only database 0 is supported")
