package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/saferoute-nyc/saferoute/internal/generator"
	"github.com/saferoute-nyc/saferoute/internal/logger"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Regenerate snapshots on a cron schedule",
	Long: `Run the risk pipeline on a cron schedule until interrupted. Each run
rewrites both snapshots atomically, so an API server watching the files
never reads a partial dataset.`,
	RunE: runSchedule,
}

func init() {
	flags := scheduleCmd.Flags()
	flags.String("cron", "0 4 * * *", "five-field cron expression")
	flags.StringVar(&profileName, "profile", "", "dataset profile from the config file")

	if err := viper.BindPFlag("schedule.cron", flags.Lookup("cron")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding cron flag: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(scheduleCmd)
}

// runSchedule executes the schedule command.
func runSchedule(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	opts, err := resolveOptions(cmd)
	if err != nil {
		return err
	}
	spec := viper.GetString("schedule.cron")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	gen := generator.New(log)
	runOnce := func() {
		summary, runErr := gen.Run(ctx, opts)
		if runErr != nil {
			log.Error("Scheduled generation failed", logger.Error(runErr))
			return
		}
		log.Info("Scheduled generation complete",
			logger.Int("clusters", summary.ClusterCount),
			logger.Int("polygons", summary.PolygonCount),
			logger.Float64("total_risk", summary.TotalRisk))
	}

	// Standard 5-field cron parser (minute hour day month weekday).
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if _, addErr := c.AddFunc(spec, runOnce); addErr != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, addErr)
	}

	// Generate immediately so a fresh deployment has snapshots before the
	// first scheduled run.
	runOnce()

	c.Start()
	log.Info("Scheduler started", logger.String("cron", spec))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", logger.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("Context cancelled, shutting down")
	}

	cancel()
	stopCtx := c.Stop()
	<-stopCtx.Done()

	log.Info("Scheduler stopped")
	return nil
}
