package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/nci/bandstack/processor"
	"github.com/spf13/cobra"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var sceneID string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Populate the band cache without composing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("scene-id") {
				cfg.Scene.SceneID = sceneID
				cfg.Scene.Bands = nil
			}
			if err = cfg.Validate(); err != nil {
				return err
			}

			locators, err := processor.SceneLocators(cfg)
			if err != nil {
				return err
			}

			runCtx, cancel := ctx.fetchContext(cmd.Context(), cfg)
			defer cancel()
			entries, err := ctx.newLoader(cfg).Fetch(runCtx, locators)
			if err != nil {
				return err
			}

			roles := make([]string, 0, len(entries))
			for role := range entries {
				roles = append(roles, role)
			}
			sort.Strings(roles)

			rows := make([][]string, 0, len(roles))
			for _, role := range roles {
				entry := entries[role]
				fetched := "cached"
				if !entry.Cached {
					fetched = humanize.Bytes(uint64(entry.Bytes))
				}
				rows = append(rows, []string{role, entry.Path, fetched})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Role", "Path", "Fetched"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVar(&sceneID, "scene-id", "", "Landsat-8 Collection-1 product ID")
	return cmd
}
