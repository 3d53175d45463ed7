package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one fetch, filter and notify cycle, then exit",
	Long:  "Run one cycle: fetch postings, keep new relevant ones, notify each through the configured sink, and persist the seen set. Exits non-zero when the run failed fatally.",
	RunE:  runRun,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run a cycle on every tick of the document's cron schedule",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	pipeline, err := a.pipeline()
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	r, err := a.runner()
	if err != nil {
		return err
	}
	run, err := r.RunOnce(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	a.logger.Info("run finished", "run_id", run.ID, "status", run.Status)
	return nil
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.doc.Schedule == nil {
		return fmt.Errorf("alert document has no schedule section")
	}
	pipeline, err := a.pipeline()
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	r, err := a.runner()
	if err != nil {
		return err
	}
	return r.Schedule(ctx, pipeline)
}
