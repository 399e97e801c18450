package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stagehand/internal/menu"
	"stagehand/internal/rig"
)

var menuOrder = []string{
	rig.MenuTemplate,
	rig.MenuAssetType,
	rig.MenuAsset,
	rig.MenuStep,
	rig.MenuTask,
	rig.MenuSequence,
	rig.MenuShot,
	rig.MenuShotStep,
	rig.MenuShotTask,
	rig.MenuVersion,
}

func newMenusCommand(ctx *commandContext) *cobra.Command {
	var nodePath string
	var force bool

	cmd := &cobra.Command{
		Use:   "menus",
		Short: "Render the cascading menus for a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.newSession()
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			r, err := sess.manager.Rig(runCtx, nodePath)
			if err != nil {
				return err
			}
			if force {
				if err := r.UpdateAll(runCtx, true); err != nil {
					return err
				}
			}

			var rows [][]string
			for _, name := range menuOrder {
				m := r.Menu(name)
				if m == nil {
					continue
				}
				selection, err := r.MenuSelection(runCtx, name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, selection, entrySummary(m)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Menu", "Selection", "Entries"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			message, err := r.ContextMessage(runCtx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&nodePath, "node", "n", "", "Node path carrying the menus")
	cmd.Flags().BoolVar(&force, "force", false, "Bypass the lookup cache and regenerate every menu")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func entrySummary(m *menu.Menu) string {
	entries := m.Entries()
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Label != "" && entry.Label != entry.Key {
			parts = append(parts, fmt.Sprintf("%s (%s)", entry.Label, entry.Key))
		} else {
			parts = append(parts, entry.Key)
		}
	}
	return strings.Join(parts, ", ")
}
