// Package sync implements the tag-driven push/pull state machine between the
// Zotero library and the reMarkable device. Items are processed strictly
// sequentially; the item's tag set on the library is the only durable state,
// so every step is re-entrant against partial completion.
package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tbergmann/zot2rm/internal/device"
	"github.com/tbergmann/zot2rm/internal/entities"
	"github.com/tbergmann/zot2rm/internal/render"
)

// Folders names the two device-side sync folders.
type Folders struct {
	Unread string
	Read   string
}

// Syncer composes the adapters and the annotation engine into the push and
// pull phases.
type Syncer struct {
	lib      LibraryClient
	dev      device.Adapter
	store    FileStore // nil in direct mode
	renderer render.Renderer
	engine   Engine
	journal  Recorder // nil disables journaling

	folders Folders
	workDir string
}

// New creates a Syncer. workDir is the base for per-item temporary
// directories; empty means the system temp dir.
func New(lib LibraryClient, dev device.Adapter, store FileStore, renderer render.Renderer, engine Engine, journal Recorder, folders Folders, workDir string) *Syncer {
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "zot2rm")
	}
	return &Syncer{
		lib:      lib,
		dev:      dev,
		store:    store,
		renderer: renderer,
		engine:   engine,
		journal:  journal,
		folders:  folders,
		workDir:  workDir,
	}
}

// Result counts the outcomes of one phase.
type Result struct {
	Processed int
	Skipped   int
	Failed    int
}

// Preflight verifies the device storage is reachable before a run mutates
// any state.
func (s *Syncer) Preflight(ctx context.Context) error {
	return s.dev.Check(ctx)
}

// itemDir creates a fresh working directory scoped to one item.
func (s *Syncer) itemDir(name string) (string, func(), error) {
	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	dir, err := os.MkdirTemp(s.workDir, sanitize(name)+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create item directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Failed to clean up %s: %v", dir, err)
		}
	}
	return dir, cleanup, nil
}

func sanitize(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			out[i] = '_'
		}
	}
	if len(out) > 40 {
		out = out[:40]
	}
	return string(out)
}

func (s *Syncer) record(runID string, direction entities.SyncDirection, itemKey, filename string, outcome entities.ItemOutcome, detail string) {
	if s.journal == nil || runID == "" {
		return
	}
	if err := s.journal.RecordItem(runID, direction, itemKey, filename, outcome, detail); err != nil {
		log.Printf("Failed to journal %s outcome for %s: %v", direction, itemKey, err)
	}
}
