package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stagehand/internal/ledger"
	"stagehand/internal/pipeline"
	"stagehand/internal/publish"
	"stagehand/internal/rig"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	var nodePath string
	var comment string
	var fix bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Run the USD publish pipeline for a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.newSession()
			if err != nil {
				return err
			}
			scenePath, err := ctx.scenePath()
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			prig, err := sess.manager.PublishRig(runCtx, nodePath)
			if err != nil {
				return err
			}
			if comment != "" {
				prig.Node().SetParm(rig.ParmComment, comment)
			}

			invalid, err := prig.InvalidContext(runCtx)
			if err != nil {
				return err
			}
			if invalid {
				message, msgErr := prig.ContextMessage(runCtx)
				if msgErr != nil {
					return msgErr
				}
				return fmt.Errorf("cannot publish: %s", message)
			}

			publisher := publish.NewPublisher(prig, sess.logger)
			report, err := publisher.Run(runCtx, pipeline.Options{Fix: fix})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, report.Render(sess.cfg.Pipeline.ReportWidth))

			results := publisher.Results()
			if len(results) > 0 {
				if err := recordResults(cmd, sess, prig, results); err != nil {
					return err
				}
				rows := make([][]string, 0, len(results))
				for _, result := range results {
					rows = append(rows, []string{
						strconv.Itoa(result.TaskID),
						strconv.Itoa(result.Version),
						result.Path,
						result.Comment,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Task", "Version", "Path", "Comment"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
				))
			}

			if err := sess.save(scenePath); err != nil {
				return err
			}
			if report.Failed() {
				return fmt.Errorf("publish failed for %d check(s)", len(report.Failures()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&nodePath, "node", "n", "", "Publish node path")
	cmd.Flags().StringVar(&comment, "comment", "", "Publish comment")
	cmd.Flags().BoolVar(&fix, "fix", false, "Attempt auto-fixes on validation failures")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func recordResults(cmd *cobra.Command, sess *session, prig *rig.PublishRig, results []*rig.PublishResult) error {
	store, err := ledger.Open(sess.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, result := range results {
		if _, err := store.Record(cmd.Context(), ledger.Entry{
			TaskID:   result.TaskID,
			Template: prig.SelectedTemplate(),
			Version:  result.Version,
			FileType: prig.FileType(),
			Path:     result.Path,
			Comment:  result.Comment,
		}); err != nil {
			return err
		}
	}
	return nil
}
