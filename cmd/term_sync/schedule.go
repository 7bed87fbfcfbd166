package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/term-sync/internal/config"
	"github.com/jonathan/term-sync/internal/schedule"
	"github.com/jonathan/term-sync/internal/site"
)

var scheduleCommand = &cobra.Command{
	Use:   "schedule",
	Short: "Run the term sync unattended on a cron schedule",
	Long: `Runs the same sync as the sync command whenever the cron expression fires (standard
five fields, or descriptors such as @daily and "@every 12h"). A tick that fires while a
run is still in progress is skipped. Stops on Ctrl-C after the current run finishes.`,
	RunE: runScheduleCmd,
}

var (
	scheduleFlags runFlags
	scheduleCron  string
)

func init() {
	scheduleFlags.register(scheduleCommand)
	scheduleCommand.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression (overrides 'schedule' in the config file)")
	rootCmd.AddCommand(scheduleCommand)
}

func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, func(c *config.Config) {
		scheduleFlags.apply(cmd, c)
		if cmd.Flags().Changed("cron") {
			c.Schedule = scheduleCron
		}
	})
	if err != nil {
		return err
	}
	if err := checkScheduleConfig(cfg); err != nil {
		return err
	}
	if err := cfg.RequireRunFields(); err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openCatalog(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	p := buildPipeline(cfg, site.PeopleSoft(), database, database, log)
	launcher := newLauncher(cfg, log)
	out := cmd.OutOrStdout()

	next, _ := schedule.Next(cfg.Schedule, time.Now())
	_, _ = fmt.Fprintf(out, "Scheduled term sync (%s), next run at %s\n", cfg.Schedule, next.Format(time.RFC1123))

	s := schedule.New(func(runCtx context.Context) error {
		_, err := executeSync(runCtx, p, launcher, cfg, out, log)
		return err
	}, log)
	return s.Run(ctx, cfg.Schedule)
}

// checkScheduleConfig rejects settings that make no sense for repeated runs. A resume
// point would skip the same prefixes on every tick.
func checkScheduleConfig(cfg config.Config) error {
	if cfg.Schedule == "" {
		return fmt.Errorf("--cron must be provided (via flag or 'schedule' in config)")
	}
	if cfg.ResumeAfter != "" {
		return fmt.Errorf("--resume-after is not supported with schedule (it would apply to every run); use sync to resume once")
	}
	return schedule.Validate(cfg.Schedule)
}
