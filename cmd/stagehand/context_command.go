package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagehand/internal/taskcontext"
	"stagehand/internal/template"
)

func newContextCommand(ctx *commandContext) *cobra.Command {
	var nodePath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Resolve the working context for the scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			sc, err := ctx.loadScene()
			if err != nil {
				return err
			}
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			templates, err := template.NewResolver(cfg, svc, logger)
			if err != nil {
				return err
			}

			// The node is optional; without one only the globals and the
			// scene path can drive resolution.
			node := sc.NodeAt(nodePath)
			resolver := taskcontext.NewResolver(sc, node, svc, templates, logger)

			runCtx := cmd.Context()
			taskID, err := resolver.TaskID(runCtx)
			if err != nil {
				return err
			}
			message, err := resolver.Message(runCtx)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"task_id": taskID,
					"valid":   taskID != 0,
					"message": message,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&nodePath, "node", "n", "", "Node path providing a manual override")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}
