package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tbergmann/zot2rm/internal/entities"
)

// Rmapi implements Adapter by invoking the rmapi command-line tool.
type Rmapi struct {
	binary string
}

// NewRmapi creates an adapter driving the given rmapi binary.
func NewRmapi(binary string) *Rmapi {
	if binary == "" {
		binary = "rmapi"
	}
	return &Rmapi{binary: binary}
}

func (r *Rmapi) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(out.String())
		}
		return "", fmt.Errorf("rmapi %s failed: %s: %w", args[0], msg, err)
	}
	return out.String(), nil
}

// Check runs a cheap listing to verify connectivity and auth.
func (r *Rmapi) Check(ctx context.Context) error {
	if _, err := r.run(ctx, "", "ls"); err != nil {
		return fmt.Errorf("device storage not reachable: %w", err)
	}
	return nil
}

// List parses "rmapi ls" style output: one entry per line, documents prefixed
// with "[f] " and folders with "[d] ". Folder entries and header lines are
// dropped.
func (r *Rmapi) List(ctx context.Context, folder string) ([]string, error) {
	out, err := r.run(ctx, "", "ls", folder)
	if err != nil {
		return nil, err
	}
	return parseListing(out), nil
}

func parseListing(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "[f]"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "[f]"))
			if name != "" {
				names = append(names, name)
			}
		case strings.HasPrefix(line, "[d]"):
			// sub-folder, not a sync candidate
		default:
			// header or free text
		}
	}
	return names
}

// Fetch downloads the document as a zip bundle into destDir. rmapi writes
// "<name>.zip" into its working directory.
func (r *Rmapi) Fetch(ctx context.Context, path, destDir string) (string, error) {
	if _, err := r.run(ctx, destDir, "get", path); err != nil {
		return "", err
	}
	name := filepath.Base(strings.TrimSuffix(path, "/"))
	return filepath.Join(destDir, name+".zip"), nil
}

// Metadata runs "rmapi stat" and extracts the one JSON object embedded in its
// free-text output. The surrounding text is a side effect of the tool, not
// part of the contract, so only the span between the first "{" and the last
// "}" is parsed.
func (r *Rmapi) Metadata(ctx context.Context, path string) (entities.DeviceEntity, error) {
	out, err := r.run(ctx, "", "stat", path)
	if err != nil {
		return entities.DeviceEntity{}, err
	}
	return parseMetadata(out)
}

func parseMetadata(out string) (entities.DeviceEntity, error) {
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end < start {
		return entities.DeviceEntity{}, fmt.Errorf("no metadata object in rmapi output: %q", strings.TrimSpace(out))
	}

	var raw struct {
		VisibleName string `json:"VissibleName"` // sic, rmapi's field name
		Name        string `json:"VisibleName"`
		ID          string `json:"ID"`
		Parent      string `json:"Parent"`
		Type        string `json:"Type"`
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), &raw); err != nil {
		return entities.DeviceEntity{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	name := raw.Name
	if name == "" {
		name = raw.VisibleName
	}
	return entities.DeviceEntity{
		Name:      name,
		Parent:    raw.Parent,
		ContentID: raw.ID,
		Type:      entities.DeviceEntityType(raw.Type),
	}, nil
}

// Push uploads a local file into the given device folder.
func (r *Rmapi) Push(ctx context.Context, localPath, folder string) error {
	_, err := r.run(ctx, "", "put", localPath, folder)
	return err
}
