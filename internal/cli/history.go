package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tbergmann/zot2rm/internal/config"
	"github.com/tbergmann/zot2rm/internal/journal"
)

// HistoryCommand lists past sync runs from the local journal.
type HistoryCommand struct {
	ConfigPath string
	Limit      int
	RunID      string
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand() *HistoryCommand {
	return &HistoryCommand{}
}

// ParseFlags parses command line flags
func (cmd *HistoryCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)

	fs.StringVar(&cmd.ConfigPath, "config", config.DefaultConfigPath, "Path to the config file")
	fs.IntVar(&cmd.Limit, "n", 10, "Number of runs to show")
	fs.StringVar(&cmd.RunID, "run", "", "Show the per-item records of one run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s history [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List past sync runs recorded in the local journal.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the history command
func (cmd *HistoryCommand) Run() error {
	cfg, err := loadConfig(cmd.ConfigPath)
	if err != nil {
		return err
	}

	jour, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer jour.Close()

	if cmd.RunID != "" {
		return cmd.printRun(jour)
	}
	return cmd.printRuns(jour)
}

func (cmd *HistoryCommand) printRuns(jour *journal.Journal) error {
	runs, err := jour.RecentRuns(cmd.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No sync runs recorded yet")
		return nil
	}

	for _, run := range runs {
		status := "running"
		if run.FinishedAt != nil {
			status = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("%s  %-4s  started %s (%s)  pushed=%d pulled=%d failed=%d\n",
			run.ID, run.Mode, run.StartedAt.Format("2006-01-02 15:04:05"), status,
			run.Pushed, run.Pulled, run.Failed)
	}
	return nil
}

func (cmd *HistoryCommand) printRun(jour *journal.Journal) error {
	items, err := jour.ItemsForRun(cmd.RunID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Printf("No records for run %s\n", cmd.RunID)
		return nil
	}

	for _, it := range items {
		line := fmt.Sprintf("%-4s  %-7s  %s", it.Direction, it.Outcome, it.Filename)
		if it.ItemKey != "" {
			line += "  (" + it.ItemKey + ")"
		}
		if it.Detail != "" {
			line += "  " + it.Detail
		}
		fmt.Println(line)
	}
	return nil
}
