package redisom

import (
	"time"

	"go.uber.org/zap"
)

// connectOptions holds Connect's tunable knobs, built from the chainable
// option functions below (same functional-options shape as the teacher's
// WithHNSW builder on collectionrepo.Repo).
type connectOptions struct {
	logger           *zap.Logger
	readinessTimeout time.Duration
	skipCapability   bool
}

// ConnectOption configures Connect.
type ConnectOption func(*connectOptions)

// WithLogger attaches a logger Connect and every Collection built from the
// resulting Client log through, instead of the default one Connect builds
// via internal/logger.NewLogger.
func WithLogger(l *zap.Logger) ConnectOption {
	return func(o *connectOptions) { o.logger = l }
}

// WithReadinessTimeout bounds how long Connect waits for the server to
// answer PING before giving up (default 5s).
func WithReadinessTimeout(d time.Duration) ConnectOption {
	return func(o *connectOptions) { o.readinessTimeout = d }
}

// WithoutCapabilityProbe skips Connect's RediSearch/RedisJSON module
// check, for callers connecting to a server they already know supports
// both modules (e.g. tests against a fake store upstream of a dial).
func WithoutCapabilityProbe() ConnectOption {
	return func(o *connectOptions) { o.skipCapability = true }
}
