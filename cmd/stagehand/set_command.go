package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagehand/internal/rig"
)

func newSetCommand(ctx *commandContext) *cobra.Command {
	var nodePath string

	cmd := &cobra.Command{
		Use:   "set <parm> <value>",
		Short: "Set a node parameter and cascade the dependent menus",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parm, value := args[0], args[1]

			sess, err := ctx.newSession()
			if err != nil {
				return err
			}
			scenePath, err := ctx.scenePath()
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			r, err := sess.manager.Rig(runCtx, nodePath)
			if err != nil {
				return err
			}

			node := r.Node()
			node.SetParm(parm, value)

			// A manual edit takes the menu out of context control, and the
			// override state flows down the rest of its chain.
			if node.HasOverride(parm) {
				node.SetParmOverridden(parm, true)
				r.ConfigureOverrides(parm)
			}

			// Toggling the latest flag reloads the version list in place;
			// everything else cascades down its chain.
			if parm == rig.ParmLatest {
				err = r.RefreshVersions(runCtx)
			} else {
				err = r.UpdateFrom(runCtx, parm, false)
			}
			if err != nil {
				return err
			}
			if err := sess.save(scenePath); err != nil {
				return err
			}

			selection, err := r.MenuSelection(runCtx, parm)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if selection != "" {
				fmt.Fprintf(out, "%s = %s\n", parm, selection)
			} else {
				fmt.Fprintf(out, "%s = %s\n", parm, node.EvalParm(parm))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&nodePath, "node", "n", "", "Node path to edit")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}
