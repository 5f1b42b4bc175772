package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tbergmann/zot2rm/internal/config"
	"github.com/tbergmann/zot2rm/internal/sync"
)

// SyncCommand runs one push, pull or combined sync.
type SyncCommand struct {
	Mode       string
	ConfigPath string
}

// NewSyncCommand creates a new SyncCommand
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

// ParseFlags parses command line flags. A missing or unknown mode is a usage
// error.
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)

	fs.StringVar(&cmd.Mode, "m", "", "Sync mode: push, pull or both")
	fs.StringVar(&cmd.ConfigPath, "config", config.DefaultConfigPath, "Path to the config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -m <push|pull|both> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sync PDFs between a Zotero library and a reMarkable tablet.\n\n")
		fmt.Fprintf(os.Stderr, "  push  upload to_sync-tagged items to the device\n")
		fmt.Fprintf(os.Stderr, "  pull  fetch finished documents, add highlights, attach to Zotero\n")
		fmt.Fprintf(os.Stderr, "  both  push, then pull\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if !sync.ValidMode(cmd.Mode) {
		fs.Usage()
		if cmd.Mode == "" {
			return fmt.Errorf("missing required flag -m")
		}
		return fmt.Errorf("unknown sync mode %q", cmd.Mode)
	}
	return nil
}

// Run executes the sync command
func (cmd *SyncCommand) Run() error {
	cfg, err := loadConfig(cmd.ConfigPath)
	if err != nil {
		return err
	}

	syncer, jour := buildSyncer(cfg)
	if jour != nil {
		defer jour.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := syncer.Run(ctx, cmd.Mode)
	if err != nil {
		return err
	}
	log.Printf("Sync finished: %d processed, %d skipped, %d failed", res.Processed, res.Skipped, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d items failed, see log above", res.Failed)
	}
	return nil
}
