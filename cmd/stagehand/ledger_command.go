package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stagehand/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	var taskID int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List recorded publishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []ledger.Entry
			if taskID > 0 {
				entries, err = store.ListForTask(cmd.Context(), taskID)
			} else {
				entries, err = store.List(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No publishes recorded.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.PublishID,
					strconv.Itoa(entry.TaskID),
					entry.Template,
					strconv.Itoa(entry.Version),
					entry.Path,
					entry.CreatedAt.Local().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Publish", "Task", "Template", "Version", "Path", "Recorded"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&taskID, "task", 0, "Limit to one task")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")

	cmd.AddCommand(newLedgerClearCommand(ctx))
	return cmd
}

func newLedgerClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger cleared.")
			return nil
		},
	}
}
