package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagehand/internal/pipeline"
	"stagehand/internal/validate"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "validate [node path...]",
		Short: "Run the node validation pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.newSession()
			if err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				for _, node := range sess.scene.Nodes {
					paths = append(paths, node.Path)
				}
			}

			validator := validate.NewValidator(sess.scene, paths, sess.cfg.Paths.PublishRoot, sess.logger)

			out := cmd.OutOrStdout()
			if !validator.CanValidate() {
				fmt.Fprintln(out, "No validation hooks registered for the selected nodes; running generic checks only.")
			}

			report, err := validator.Run(cmd.Context(), pipeline.Options{Fix: fix})
			if err != nil {
				return err
			}
			fmt.Fprint(out, report.Render(sess.cfg.Pipeline.ReportWidth))
			if report.Failed() {
				return fmt.Errorf("validation failed for %d check(s)", len(report.Failures()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Attempt auto-fixes on validation failures")
	return cmd
}
