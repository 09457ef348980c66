package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/redisom/redisom/internal/config"
	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/db/redis"
	logpkg "github.com/redisom/redisom/internal/logger"
	"github.com/redisom/redisom/internal/migrate/datamig"
	"github.com/redisom/redisom/internal/migrate/descriptor"
	"github.com/redisom/redisom/internal/migrate/schemamig"
)

// app is the composition root's output: everything a subcommand needs,
// built once in rootCmd's PersistentPreRunE following cmd/vecdex/main.go's
// config.Load -> logger.NewLogger -> db.NewStore sequence. Subcommands reach
// it through the currentApp package global; its logger is additionally
// stashed on the command's context via internal/logger/context.go's
// ContextWithLogger, the same way vecdex's wideEventMiddleware does for its
// request-scoped logger.
type app struct {
	store     db.Store
	schemaReg *schemamig.Registry
	dataReg   *datamig.Registry
	schemaMgr *schemamig.Manager
	dataMgr   *datamig.Manager
	cfg       config.Config
	logger    *zap.Logger
}

var (
	flagConfigFile string
	flagTypesFile  string
	flagURL        string
	currentApp     *app
)

var rootCmd = &cobra.Command{
	Use:   "redisom-migrate",
	Short: "Run redisom's schema and data migrations",
	Long: `redisom-migrate drives C8 (schema migrations: FT.CREATE/FT.DROPINDEX
pairs on index drift) and C9 (data migrations: bounded-batch record
transforms) against a record-type descriptor file, since this is a
library's CLI and has no compiled-in application models of its own
(spec.md §6.6).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		currentApp = a
		cmd.SetContext(logpkg.ContextWithLogger(cmd.Context(), a.logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if currentApp != nil {
			currentApp.store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a redisom YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagTypesFile, "types-file", "redisom-types.yaml", "path to the record-type descriptor file")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "connection URL, overrides config/REDIS_OM_URL")
}

// bootstrap loads config, connects, parses the descriptor file, and wires
// both migration managers -- the same sequence cmd/vecdex/main.go runs for
// its own store/repository construction, contracted to this CLI's smaller
// surface.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		return nil, fmt.Errorf("redisom-migrate: %w", err)
	}
	if flagURL != "" {
		conn, err := config.ParseConnectionURL(flagURL)
		if err != nil {
			return nil, fmt.Errorf("redisom-migrate: --url: %w", err)
		}
		cfg.Connection = conn
	}

	logger, err := logpkg.NewLogger("local")
	if err != nil {
		logger = zap.NewNop()
	}

	store, err := redis.NewStore(redis.Config{
		Addrs:    []string{connAddr(cfg)},
		Username: cfg.Connection.Username,
		Password: cfg.Connection.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("redisom-migrate: create store: %w", err)
	}
	if err := store.WaitForReady(ctx, 5*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("redisom-migrate: server not ready: %w", err)
	}

	desc, err := descriptor.Load(flagTypesFile)
	if err != nil {
		store.Close()
		return nil, err
	}
	schemaReg, err := desc.SchemaRegistry()
	if err != nil {
		store.Close()
		return nil, err
	}
	dataReg, err := desc.DataRegistry()
	if err != nil {
		store.Close()
		return nil, err
	}

	schemaMgr := schemamig.New(store, schemaReg, cfg.Migrations.Dir, cfg.Migrations.ReservedPrefix)

	dataMgr := datamig.New(store, dataReg, cfg.Migrations.ReservedPrefix).
		WithBatchSize(cfg.Migrations.BatchSize).
		WithProgressInterval(cfg.Migrations.ProgressSaveInterval).
		WithMaxErrors(cfg.Migrations.MaxErrors).
		WithLogger(logger)
	dataMgr.Register(datamig.NewDatetimeMigration())

	return &app{
		store:     store,
		schemaReg: schemaReg,
		dataReg:   dataReg,
		schemaMgr: schemaMgr,
		dataMgr:   dataMgr,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// connAddr extracts "host:port" from cfg.Connection.URL the same way
// addrFromURL does for the facade's Connect.
func connAddr(cfg config.Config) string {
	u := cfg.Connection.URL
	if u == "" {
		return "localhost:6379"
	}
	addr, err := addrFromConnectionURL(u)
	if err != nil {
		return "localhost:6379"
	}
	return addr
}
