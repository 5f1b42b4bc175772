package main

import (
	"fmt"
	"os"

	"github.com/tbergmann/zot2rm/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// Flag-style invocations ("-m push") go straight to the sync command so
	// the plain one-shot usage stays a single flag.
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "schedule":
			runCommand(cli.NewScheduleCommand(), os.Args[2:])
			return
		case "history":
			runCommand(cli.NewHistoryCommand(), os.Args[2:])
			return
		case "version":
			fmt.Printf("zot2rm %s (%s)\n", Version, Commit)
			return
		}
	}

	runCommand(cli.NewSyncCommand(), os.Args[1:])
}

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func runCommand(cmd command, args []string) {
	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
