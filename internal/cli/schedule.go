package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tbergmann/zot2rm/internal/config"
	"github.com/tbergmann/zot2rm/internal/scheduler"
)

// ScheduleCommand keeps the process alive and runs combined syncs on the
// configured cron schedule.
type ScheduleCommand struct {
	ConfigPath string
	Schedule   string
}

// NewScheduleCommand creates a new ScheduleCommand
func NewScheduleCommand() *ScheduleCommand {
	return &ScheduleCommand{}
}

// ParseFlags parses command line flags
func (cmd *ScheduleCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)

	fs.StringVar(&cmd.ConfigPath, "config", config.DefaultConfigPath, "Path to the config file")
	fs.StringVar(&cmd.Schedule, "schedule", "", "Cron schedule, overrides sync_schedule from the config")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s schedule [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run 'both' syncs periodically on a cron schedule until interrupted.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s schedule\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s schedule -schedule \"*/30 * * * *\"\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the schedule command
func (cmd *ScheduleCommand) Run() error {
	cfg, err := loadConfig(cmd.ConfigPath)
	if err != nil {
		return err
	}

	schedule := cfg.Sync.Schedule
	if cmd.Schedule != "" {
		schedule = cmd.Schedule
	}
	if schedule == "" {
		return fmt.Errorf("no schedule given, set sync_schedule in the config or pass -schedule")
	}

	syncer, jour := buildSyncer(cfg)
	if jour != nil {
		defer jour.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(syncer, schedule)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	sched.Stop()
	return nil
}
