package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/redisom/redisom/internal/keycodec"
	logpkg "github.com/redisom/redisom/internal/logger"
	"github.com/redisom/redisom/internal/migrate/datamig"
)

const defaultVerifySampleSize = 100

var migrateDataCmd = &cobra.Command{
	Use:   "migrate-data",
	Short: "Manage data migrations (C9: bounded-batch record transforms)",
}

var (
	flagDryRun      bool
	flagBatchSize   int
	flagFailureMode string
	flagMaxErrors   int
	flagLimit       int
	flagCheckData   bool
)

func init() {
	rootCmd.AddCommand(migrateDataCmd)
	migrateDataCmd.AddCommand(
		dataStatusCmd, dataCreateCmd, dataRunCmd, dataVerifyCmd, dataRollbackCmd,
		dataProgressCmd, dataClearProgressCmd, dataCheckSchemaCmd, dataStatsCmd,
	)

	dataRunCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "replay without writing")
	dataRunCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "SCAN page size override")
	dataRunCmd.Flags().StringVar(&flagFailureMode, "failure-mode", "", "fail|skip|log_and_skip|default")
	dataRunCmd.Flags().IntVar(&flagMaxErrors, "max-errors", 0, "abort after this many failed keys (0 = unlimited)")
	dataRunCmd.Flags().IntVar(&flagLimit, "limit", 0, "cap how many pending migrations this call applies (0 = all)")

	dataVerifyCmd.Flags().BoolVar(&flagCheckData, "check-data", false, "replay every key instead of a sample")
}

var dataStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every registered data migration's applied/pending state",
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := currentApp.dataMgr.Status(cmd.Context())
		if err != nil {
			return err
		}
		headers := []string{"ID", "STATUS", "DEPENDENCIES", "DESCRIPTION"}
		rows := make([][]string, 0, len(reports))
		for _, r := range reports {
			rows = append(rows, []string{
				r.ID,
				statusStyle(string(r.Status)).Render(string(r.Status)),
				fmt.Sprint(r.Dependencies),
				r.Description,
			})
		}
		cmd.Println(renderTable(headers, rows))
		return nil
	},
}

var dataCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Scaffold a new data migration source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := scaffoldDataMigration(currentApp.cfg.Migrations.Dir, args[0])
		if err != nil {
			return err
		}
		cmd.Println(okStyle.Render("created ") + path)
		return nil
	},
}

var dataRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply every pending data migration in dependency order",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := datamig.RunOptions{
			DryRun:      flagDryRun,
			Limit:       flagLimit,
			BatchSize:   flagBatchSize,
			FailureMode: datamig.FailureMode(flagFailureMode),
			MaxErrors:   flagMaxErrors,
		}
		log := logpkg.FromContext(cmd.Context())
		log.Info("migrate-data run starting",
			zap.Bool("dry_run", opts.DryRun), zap.Int("limit", opts.Limit))

		stats, err := currentApp.dataMgr.Run(cmd.Context(), opts)
		printStats(cmd, stats)
		if err != nil {
			log.Error("migrate-data run failed", zap.Error(err))
			return err
		}
		log.Info("migrate-data run finished",
			zap.Int("processed", stats.ProcessedKeys), zap.Int("failed", stats.FailedKeys))
		if stats.FailedKeys > 0 {
			return errPartialRun
		}
		return nil
	},
}

var dataVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Dry-run replay every applied migration and report unconverged keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		sampleSize := defaultVerifySampleSize
		if flagCheckData {
			sampleSize = 0
		}
		reports, err := currentApp.dataMgr.Verify(cmd.Context(), datamig.VerifyOptions{SampleSize: sampleSize})
		if err != nil {
			return err
		}
		clean := true
		for _, r := range reports {
			if len(r.Mismatches) > 0 {
				clean = false
				cmd.Println(errStyle.Render(fmt.Sprintf("%s: %d unconverged key(s)", r.MigrationID, len(r.Mismatches))))
			} else {
				cmd.Println(okStyle.Render(r.MigrationID + ": converged"))
			}
		}
		if !clean {
			return errVerifyMismatch
		}
		return nil
	},
}

var dataRollbackCmd = &cobra.Command{
	Use:   "rollback <id>",
	Short: "Roll back a previously applied data migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := currentApp.dataMgr.Rollback(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Println(okStyle.Render("rolled back ") + args[0])
		return nil
	},
}

var dataProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show the saved SCAN-cursor checkpoint for every migration/record-type pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		headers := []string{"MIGRATION", "RECORD TYPE", "CURSOR", "PROCESSED", "CHANGED", "FAILED"}
		var rows [][]string
		reports, err := currentApp.dataMgr.Status(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range reports {
			for _, rt := range currentApp.dataReg.Targets() {
				key := keycodec.MigrationsProgressKey(currentApp.cfg.Migrations.ReservedPrefix, r.ID+"/"+rt.Name)
				fields, err := currentApp.store.HGetAll(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("redisom-migrate: read progress %s: %w", key, err)
				}
				if len(fields) == 0 {
					continue
				}
				rows = append(rows, []string{r.ID, rt.Name, fields["cursor"], fields["processed"], fields["changed"], fields["failed"]})
			}
		}
		cmd.Println(renderTable(headers, rows))
		return nil
	},
}

var dataClearProgressCmd = &cobra.Command{
	Use:   "clear-progress <id>",
	Short: "Discard the saved checkpoint for a migration, forcing a restart from the beginning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := currentApp.dataMgr.ClearProgress(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Println(okStyle.Render("cleared progress for ") + args[0])
		return nil
	},
}

var dataCheckSchemaCmd = &cobra.Command{
	Use:   "check-schema",
	Short: "Compare every registered record type's FT.INFO fields against its descriptor",
	RunE: func(cmd *cobra.Command, args []string) error {
		mismatches, err := currentApp.dataMgr.CheckSchema(cmd.Context())
		if err != nil {
			return err
		}
		if len(mismatches) == 0 {
			cmd.Println(okStyle.Render("no schema drift detected"))
			return nil
		}
		headers := []string{"RECORD TYPE", "FIELD", "INDEX", "SERVER KIND", "EXPECTED KIND"}
		rows := make([][]string, 0, len(mismatches))
		for _, m := range mismatches {
			rows = append(rows, []string{m.RecordType, m.Field, m.Index, m.ServerKind, m.ExpectedKind})
		}
		cmd.Println(renderTable(headers, rows))
		return errSchemaDrift
	},
}

var dataStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cumulative processed/changed/failed counters from the last checkpoint of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := currentApp.dataMgr.Status(cmd.Context())
		if err != nil {
			return err
		}
		headers := []string{"MIGRATION", "PROCESSED", "CHANGED", "FAILED"}
		var rows [][]string
		for _, r := range reports {
			processed, changed, failed := 0, 0, 0
			for _, rt := range currentApp.dataReg.Targets() {
				key := keycodec.MigrationsProgressKey(currentApp.cfg.Migrations.ReservedPrefix, r.ID+"/"+rt.Name)
				fields, err := currentApp.store.HGetAll(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("redisom-migrate: read progress %s: %w", key, err)
				}
				processed += atoiOr0(fields["processed"])
				changed += atoiOr0(fields["changed"])
				failed += atoiOr0(fields["failed"])
			}
			rows = append(rows, []string{r.ID, strconv.Itoa(processed), strconv.Itoa(changed), strconv.Itoa(failed)})
		}
		cmd.Println(renderTable(headers, rows))
		return nil
	},
}

func atoiOr0(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func printStats(cmd *cobra.Command, s datamig.Stats) {
	cmd.Printf("processed=%d changed=%d skipped=%d failed=%d\n",
		s.ProcessedKeys, s.ChangedKeys, s.SkippedKeys, s.FailedKeys)
	for _, fe := range s.Errors {
		cmd.Println(warnStyle.Render(fmt.Sprintf("  %s field=%s: %v", fe.Key, fe.Field, fe.Err)))
	}
}

// scaffoldDataMigration writes a minimal Migration implementation stub into
// <dir>/data-migrations/<id>_<slug>.go, matching spec.md §6.4's filesystem
// layout. The generated type is a starting point the user fills in and
// registers with Manager.Register themselves -- this package has no way to
// compile and load arbitrary Go source at runtime.
func scaffoldDataMigration(dir, slug string) (string, error) {
	dataDir := filepath.Join(dir, "data-migrations")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("redisom-migrate: %w", err)
	}
	id := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(dataDir, id+"_"+slug+".go")

	r := strings.NewReplacer("__TYPE__", pascalCase(slug), "__ID__", id+"_"+slug, "__SLUG__", slug)
	contents := r.Replace(dataMigrationTemplate)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("redisom-migrate: write %s: %w", path, err)
	}
	return path, nil
}

// pascalCase turns a slug like "add-login-count" into "AddLoginCount", a
// valid (and idiomatic) exported Go identifier.
func pascalCase(slug string) string {
	var b strings.Builder
	upperNext := true
	for _, r := range slug {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upperNext = true
		case upperNext:
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "Unnamed"
	}
	return b.String()
}

const dataMigrationTemplate = `package migrations

import (
	"context"

	"github.com/redisom/redisom"
)

// Migration__TYPE__ is the __SLUG__ data migration. List it in your
// --types-file's corresponding record type and register it with a
// *datamig.Manager (or describe it alongside the record type for
// redisom-migrate to pick up) before running redisom-migrate migrate-data run.
type Migration__TYPE__ struct{}

func (Migration__TYPE__) ID() string             { return "__ID__" }
func (Migration__TYPE__) Description() string    { return "__SLUG__" }
func (Migration__TYPE__) Dependencies() []string { return nil }

func (Migration__TYPE__) Up(ctx context.Context, tx *redisom.Transform) error {
	// TODO: for _, rt := range tx.Targets() { tx.Hash(ctx, rt, ...) }
	return nil
}
`
