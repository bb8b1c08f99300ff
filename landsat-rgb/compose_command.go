package main

import (
	"fmt"

	"github.com/nci/bandstack/processor"
	"github.com/nci/bandstack/utils"
	"github.com/spf13/cobra"
)

func newComposeCommand(ctx *commandContext) *cobra.Command {
	var (
		sceneID   string
		method    string
		pct       float64
		clipLimit float64
		output    string
		cacheDir  string
		quicklook string
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Fetch, normalize and stack the red, green and blue bands of a scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("scene-id") {
				cfg.Scene.SceneID = sceneID
				cfg.Scene.Bands = nil
			}
			if flags.Changed("method") {
				cfg.Normalization.Method = method
			}
			if flags.Changed("percentile") {
				cfg.Normalization.Percentile = pct
			}
			if flags.Changed("clip-limit") {
				cfg.Normalization.ClipLimit = clipLimit
			}
			if flags.Changed("output") {
				cfg.Output = output
			}
			if flags.Changed("cache-dir") {
				cfg.CacheDir = cacheDir
			}
			if flags.Changed("quicklook") {
				cfg.Quicklook = quicklook
			}
			if err = cfg.Validate(); err != nil {
				return err
			}

			utils.InitGdal()
			runCtx, cancel := ctx.fetchContext(cmd.Context(), cfg)
			defer cancel()

			collector := ctx.newCollector(cfg)
			defer func() { collector.Log(err) }()

			pipeline, err := processor.InitScenePipeline(runCtx, cfg, ctx.newLoader(cfg), collector, ctx.log())
			if err != nil {
				return err
			}
			locators, err := processor.SceneLocators(cfg)
			if err != nil {
				return err
			}

			composite, err := pipeline.Process(locators)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %dx%d %s\n", status(true), composite.Output,
				composite.Profile.Width, composite.Profile.Height, pipeline.Method.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&sceneID, "scene-id", "", "Landsat-8 Collection-1 product ID")
	cmd.Flags().StringVar(&method, "method", utils.DefaultMethod, "Normalization method: percentile-rescale or adaptive-equalize")
	cmd.Flags().Float64Var(&pct, "percentile", utils.DefaultPercentile, "Low percentile cut of the percentile rescale")
	cmd.Flags().Float64Var(&clipLimit, "clip-limit", utils.DefaultClipLimit, "Clip limit of the adaptive equalization")
	cmd.Flags().StringVarP(&output, "output", "o", utils.DefaultOutput, "Output raster path")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", utils.DefaultCacheDir, "Band cache directory")
	cmd.Flags().StringVar(&quicklook, "quicklook", "", "Also write a PNG quicklook to this path")

	return cmd
}
