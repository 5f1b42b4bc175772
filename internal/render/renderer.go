// Package render is the boundary to the external tool that rasterizes a
// device export bundle into a base PDF. The device's native ink format is
// deliberately opaque to this program.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Result locates the renderer's outputs for one document.
type Result struct {
	// PDFPath is the rendered base PDF.
	PDFPath string
	// ExportDir is the directory holding the page manifest and the
	// per-page highlight files.
	ExportDir string
}

// Renderer turns an unpacked device export into a base PDF plus the export
// tree the annotation engine consumes.
type Renderer interface {
	Render(ctx context.Context, unpackedDir, outDir, name string) (Result, error)
}

// CommandRenderer shells out to an external renderer binary, passing the
// unpacked bundle directory and the output directory.
type CommandRenderer struct {
	binary string
}

func NewCommandRenderer(binary string) *CommandRenderer {
	return &CommandRenderer{binary: binary}
}

func (r *CommandRenderer) Render(ctx context.Context, unpackedDir, outDir, name string) (Result, error) {
	cmd := exec.CommandContext(ctx, r.binary, unpackedDir, outDir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("renderer failed: %s: %w", strings.TrimSpace(string(out)), err)
	}

	// The renderer names its output "<name> _remarks.pdf"; normalize it to
	// the entity name the rest of the pipeline expects.
	rendered := filepath.Join(outDir, name+" _remarks.pdf")
	want := filepath.Join(outDir, name+".pdf")
	if _, err := os.Stat(rendered); err == nil {
		if err := os.Rename(rendered, want); err != nil {
			return Result{}, fmt.Errorf("failed to rename rendered PDF: %w", err)
		}
	} else if _, err := os.Stat(want); err != nil {
		return Result{}, fmt.Errorf("renderer produced no PDF for %s", name)
	}

	return Result{PDFPath: want, ExportDir: unpackedDir}, nil
}
