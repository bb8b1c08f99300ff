package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nci/bandstack/utils"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "inspect FILE",
		Short:       "Print the georeferencing and band statistics of a raster",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			utils.InitGdal()
			rs, profile, err := utils.ReadRaster(args[0])
			if err != nil {
				return err
			}

			stats := make([]bandStats, len(rs))
			for i, r := range rs {
				stats[i], err = computeBandStats(r, profile)
				if err != nil {
					return err
				}
			}
			printInspect(cmd.OutOrStdout(), args[0], profile, stats)
			return nil
		},
	}
}

type bandStats struct {
	Valid        int
	Min, Max     float64
	Mean, StdDev float64
}

// computeBandStats summarises the pixels that are neither NaN nor nodata.
func computeBandStats(r utils.Raster, profile utils.Profile) (bandStats, error) {
	samples, err := utils.Samples(r)
	if err != nil {
		return bandStats{}, err
	}

	valid := make([]float64, 0, len(samples))
	for _, value := range samples {
		if math.IsNaN(value) || (profile.HasNoData && value == profile.NoData) {
			continue
		}
		valid = append(valid, value)
	}
	if len(valid) == 0 {
		return bandStats{}, nil
	}

	mean, std := stat.MeanStdDev(valid, nil)
	return bandStats{
		Valid:  len(valid),
		Min:    floats.Min(valid),
		Max:    floats.Max(valid),
		Mean:   mean,
		StdDev: std,
	}, nil
}

func printInspect(w io.Writer, path string, profile utils.Profile, stats []bandStats) {
	geot := make([]string, len(profile.GeoTransform))
	for i, v := range profile.GeoTransform {
		geot[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	nodata := "none"
	if profile.HasNoData {
		nodata = strconv.FormatFloat(profile.NoData, 'g', -1, 64)
	}

	fmt.Fprintln(w, renderTable([]string{"Property", "Value"}, [][]string{
		{"File", path},
		{"Driver", profile.Driver},
		{"Size", fmt.Sprintf("%d x %d x %d", profile.Width, profile.Height, profile.Count)},
		{"Data type", profile.DataType},
		{"NoData", nodata},
		{"GeoTransform", strings.Join(geot, ", ")},
		{"CRS", crsSummary(profile.ProjWKT)},
	}, nil))

	rows := make([][]string, len(stats))
	for i, s := range stats {
		ci := ""
		if i < len(profile.ColorInterp) {
			ci = profile.ColorInterp[i]
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			ci,
			strconv.Itoa(s.Valid),
			formatStat(s.Min),
			formatStat(s.Max),
			formatStat(s.Mean),
			formatStat(s.StdDev),
		}
	}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(w, renderTable([]string{"Band", "Colour", "Valid", "Min", "Max", "Mean", "Std dev"}, rows, aligns))
}

// crsSummary returns the name of the outermost WKT node.
func crsSummary(wkt string) string {
	if wkt == "" {
		return "none"
	}
	start := strings.Index(wkt, "\"")
	if start < 0 {
		return wkt
	}
	end := strings.Index(wkt[start+1:], "\"")
	if end < 0 {
		return wkt
	}
	return wkt[start+1 : start+1+end]
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
