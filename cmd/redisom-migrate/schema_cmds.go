package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage schema migrations (C8: FT.CREATE/FT.DROPINDEX on drift)",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd, migrateCreateCmd, migrateRunCmd, migrateRollbackCmd)
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every registered record type's schema migration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := currentApp.schemaMgr.Status(cmd.Context())
		if err != nil {
			return err
		}
		headers := []string{"RECORD TYPE", "STATUS", "IN-MEMORY", "FILE HEAD", "SERVER"}
		rows := make([][]string, 0, len(reports))
		for _, r := range reports {
			rows = append(rows, []string{
				r.RecordType,
				statusStyle(string(r.Status)).Render(string(r.Status)),
				shortHash(r.InMemoryFingerprint),
				shortHash(r.FileHeadFingerprint),
				shortHash(r.ServerFingerprint),
			})
		}
		cmd.Println(renderTable(headers, rows))
		return nil
	},
}

var migrateCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Write a migration file for every record type whose schema drifted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := currentApp.schemaMgr.Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(created) == 0 {
			cmd.Println("no drift detected; nothing to create")
			return nil
		}
		for _, mig := range created {
			cmd.Println(okStyle.Render("created ") + mig.Filename())
		}
		return nil
	},
}

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply every un-applied schema migration file in id order",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := currentApp.schemaMgr.Run(cmd.Context()); err != nil {
			return err
		}
		cmd.Println(okStyle.Render("schema migrations applied"))
		return nil
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback <id>",
	Short: "Roll back a previously applied schema migration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := currentApp.schemaMgr.Rollback(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Println(okStyle.Render("rolled back ") + args[0])
		return nil
	},
}

func shortHash(h string) string {
	if len(h) <= 10 {
		return h
	}
	return fmt.Sprintf("%s…", h[:10])
}
