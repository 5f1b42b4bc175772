// Package device wraps the reMarkable cloud storage behind a narrow adapter
// interface. The default implementation shells out to the rmapi command-line
// tool; its semi-structured output is parsed here and nowhere else.
package device

import (
	"context"

	"github.com/tbergmann/zot2rm/internal/entities"
)

// Adapter is the remote access boundary to the device storage. Every
// operation performs one remote round trip and returns an explicit error on
// remote failure; callers decide whether to skip, retry or abort an item.
type Adapter interface {
	// Check verifies the device storage is reachable and authenticated.
	Check(ctx context.Context) error

	// List returns the names of the documents directly inside folder,
	// excluding sub-folders. A remote failure is an error, not an empty list.
	List(ctx context.Context, folder string) ([]string, error)

	// Fetch downloads the document at path into destDir as a zip bundle and
	// returns the local archive path.
	Fetch(ctx context.Context, path, destDir string) (string, error)

	// Metadata retrieves the document's descriptor, including the content id
	// that keys the page manifest.
	Metadata(ctx context.Context, path string) (entities.DeviceEntity, error)

	// Push uploads a local file into a device folder.
	Push(ctx context.Context, localPath, folder string) error
}
