package redisom

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/redisom/redisom/internal/config"
	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/db/redis"
	logpkg "github.com/redisom/redisom/internal/logger"
)

// Client owns a live connection to a Redis-compatible server and the
// registry Collections are built against. Construct one with Connect;
// the composition-root pattern mirrors cmd/vecdex/main.go's
// config.Load -> logger.NewLogger -> db.NewStore -> store.WaitForReady
// sequence.
type Client struct {
	store  db.Store
	logger *zap.Logger
}

// Connect parses url (the same `redis://[user:pass@]host[:port][/db]` form
// REDIS_OM_URL carries, spec.md §6.2), dials the server, waits for it to
// answer PING, and probes for the RediSearch/RedisJSON modules every
// index-backed operation needs. It fails fast with ErrDatabaseNumber if
// url selects a database other than 0, and with ErrCapability if a
// required module is missing.
func Connect(ctx context.Context, rawURL string, opts ...ConnectOption) (*Client, error) {
	cfg := connectOptions{readinessTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		built, err := logpkg.NewLogger("local")
		if err != nil {
			built = zap.NewNop()
		}
		logger = built
	}

	conn, err := config.ParseConnectionURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redisom: %w", err)
	}
	if conn.Database != 0 {
		return nil, ErrDatabaseNumber
	}

	addr, err := addrFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redisom: %w", err)
	}

	store, err := redis.NewStore(redis.Config{
		Addrs:    []string{addr},
		Username: conn.Username,
		Password: conn.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("redisom: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("redisom: server not ready: %w", err)
	}

	if !cfg.skipCapability {
		if err := checkCapability(ctx, store); err != nil {
			store.Close()
			return nil, err
		}
	}

	logger.Info("redisom: connected", zap.String("addr", addr))
	return &Client{store: store, logger: logger}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.store.Close()
}

// Store exposes the underlying db.Store, for callers building a
// ModelMeta.Database override or wiring internal/migrate directly.
func (c *Client) Store() db.Store {
	return c.store
}

// checkCapability inspects INFO's "# Modules" section for RediSearch and
// RedisJSON (spec.md §4.4's "module missing" capability check, done once
// eagerly at Connect rather than deferred to the first FT.CREATE so a
// misconfigured server fails fast).
func checkCapability(ctx context.Context, s db.Store) error {
	info, err := s.ServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("redisom: server info: %w", err)
	}
	lower := strings.ToLower(info)
	hasSearch := strings.Contains(lower, "name=search")
	hasJSON := strings.Contains(lower, "name=rejson") || strings.Contains(lower, "name=json")
	if !hasSearch || !hasJSON {
		return ErrCapability
	}
	return nil
}

// addrFromURL extracts the "host:port" rueidis dials, defaulting the port
// to 6379 when the URL omits it.
func addrFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("connection url %q has no host", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	return host + ":" + port, nil
}
