// Package cli implements the command-line entry points.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/tbergmann/zot2rm/internal/annotate"
	"github.com/tbergmann/zot2rm/internal/config"
	"github.com/tbergmann/zot2rm/internal/device"
	"github.com/tbergmann/zot2rm/internal/journal"
	"github.com/tbergmann/zot2rm/internal/render"
	"github.com/tbergmann/zot2rm/internal/sync"
	"github.com/tbergmann/zot2rm/internal/webdav"
	"github.com/tbergmann/zot2rm/internal/zotero"
)

// loadConfig reads the config file, creating it interactively on first run.
func loadConfig(path string) (*config.Config, error) {
	if !config.Exists(path) {
		fmt.Println("Could not find config file, let's create one")
		cfg, err := config.CreateInteractive(path, os.Stdin, os.Stdout)
		if err != nil {
			return nil, fmt.Errorf("failed to create config: %w", err)
		}
		return cfg, cfg.Validate()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// buildSyncer assembles the syncer and its adapters from the config. The
// returned journal is nil when it could not be opened; syncing proceeds
// without it. Callers own closing the journal.
func buildSyncer(cfg *config.Config) (*sync.Syncer, *journal.Journal) {
	lib := zotero.NewClient(cfg.Zotero.LibraryID, cfg.Zotero.LibraryType, cfg.Zotero.APIKey)
	dev := device.NewRmapi(cfg.Device.RmapiBinary)

	var store sync.FileStore
	if cfg.WebDAV.Enabled {
		store = webdav.NewClient(cfg.WebDAV.Hostname, cfg.WebDAV.User, cfg.WebDAV.Password)
	}

	jour, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		log.Printf("Failed to open sync journal at %s, continuing without it: %v", cfg.Journal.Path, err)
		jour = nil
	}
	var recorder sync.Recorder
	if jour != nil {
		recorder = jour
	}

	folders := sync.Folders{
		Unread: cfg.Device.UnreadFolder,
		Read:   cfg.Device.ReadFolder,
	}
	syncer := sync.New(lib, dev, store, render.NewCommandRenderer(cfg.Global.RendererCommand),
		annotate.NewEngine(), recorder, folders, cfg.Global.WorkDir)
	return syncer, jour
}
