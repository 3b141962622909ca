package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/saferoute-nyc/saferoute/internal/cluster"
	"github.com/saferoute-nyc/saferoute/internal/generator"
	"github.com/saferoute-nyc/saferoute/internal/incident"
	"github.com/saferoute-nyc/saferoute/internal/logger"
)

// datasetProfile is a named generation preset declared under
// profiles.<name> in the config file.
type datasetProfile struct {
	Input          string  `mapstructure:"input"`
	OutputHeatmap  string  `mapstructure:"output_heatmap"`
	OutputPolygons string  `mapstructure:"output_polygons"`
	Eps            float64 `mapstructure:"eps"`
	MinSamples     int     `mapstructure:"min_samples"`
}

// profileName selects a dataset profile, shared by generate and schedule.
var profileName string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the risk pipeline once",
	Long: `Load a raw crime dataset, filter it to relevant nighttime incidents,
cluster the points and write the heatmap and risk polygon snapshots.`,
	RunE: runGenerate,
}

func init() {
	flags := generateCmd.Flags()
	flags.String("input", "data/raw/nyc_crime_sample.geojson", "raw crime dataset (.csv or .geojson)")
	flags.String("output-heatmap", "data/processed/crime_heatmap.geojson", "heatmap snapshot destination")
	flags.String("output-polygons", "data/processed/risk_polygons.geojson", "polygon snapshot destination")
	flags.Float64("eps", cluster.DefaultEps, "DBSCAN neighbor distance in degrees")
	flags.Int("min-samples", cluster.DefaultMinSamples, "DBSCAN minimum cluster size")
	flags.StringVar(&profileName, "profile", "", "dataset profile from the config file")

	bindings := []struct {
		key  string
		flag string
	}{
		{key: "generate.input", flag: "input"},
		{key: "generate.output_heatmap", flag: "output-heatmap"},
		{key: "generate.output_polygons", flag: "output-polygons"},
		{key: "generate.eps", flag: "eps"},
		{key: "generate.min_samples", flag: "min-samples"},
	}
	for _, b := range bindings {
		if err := viper.BindPFlag(b.key, flags.Lookup(b.flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", b.flag, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(generateCmd)
}

// runGenerate executes the generate command.
func runGenerate(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}

	log.Info("Starting risk generation",
		logger.String("input", opts.InputPath),
		logger.Float64("eps", opts.Eps),
		logger.Int("min_samples", opts.MinSamples))

	summary, err := generator.New(log).Run(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	renderSummary(summary)
	return nil
}

// resolveOptions builds generator options from flags, environment and
// config file, overlaying a dataset profile when one is named. Flags set
// explicitly on the command line win over the profile.
func resolveOptions(cmd *cobra.Command) (generator.Options, error) {
	opts := generator.Options{
		InputPath:    viper.GetString("generate.input"),
		HeatmapPath:  viper.GetString("generate.output_heatmap"),
		PolygonsPath: viper.GetString("generate.output_polygons"),
		Eps:          viper.GetFloat64("generate.eps"),
		MinSamples:   viper.GetInt("generate.min_samples"),
		Filter:       incident.DefaultFilterConfig(),
	}
	if profileName == "" {
		return opts, nil
	}

	raw := viper.GetStringMap("profiles." + profileName)
	if len(raw) == 0 {
		return opts, fmt.Errorf("unknown dataset profile %q", profileName)
	}
	var profile datasetProfile
	if err := mapstructure.Decode(raw, &profile); err != nil {
		return opts, fmt.Errorf("invalid dataset profile %q: %w", profileName, err)
	}

	flags := cmd.Flags()
	if profile.Input != "" && !flags.Changed("input") {
		opts.InputPath = profile.Input
	}
	if profile.OutputHeatmap != "" && !flags.Changed("output-heatmap") {
		opts.HeatmapPath = profile.OutputHeatmap
	}
	if profile.OutputPolygons != "" && !flags.Changed("output-polygons") {
		opts.PolygonsPath = profile.OutputPolygons
	}
	if profile.Eps > 0 && !flags.Changed("eps") {
		opts.Eps = profile.Eps
	}
	if profile.MinSamples > 0 && !flags.Changed("min-samples") {
		opts.MinSamples = profile.MinSamples
	}
	return opts, nil
}

// renderSummary prints the run statistics as a table.
func renderSummary(summary *generator.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Raw incidents", strconv.Itoa(summary.RawCount)})
	t.AppendRow(table.Row{"After filtering", strconv.Itoa(summary.FilteredCount)})
	t.AppendRow(table.Row{"Clusters", strconv.Itoa(summary.ClusterCount)})
	t.AppendRow(table.Row{"Risk polygons", strconv.Itoa(summary.PolygonCount)})
	t.AppendRow(table.Row{"Total risk score", strconv.FormatFloat(summary.TotalRisk, 'f', 2, 64)})
	t.AppendRow(table.Row{"Avg incidents per polygon", strconv.FormatFloat(summary.AvgIncidents, 'f', 1, 64)})
	t.AppendRow(table.Row{"Max risk score", strconv.FormatFloat(summary.MaxRisk, 'f', 2, 64)})
	t.Render()
}
