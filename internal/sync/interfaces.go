package sync

import (
	"context"

	"github.com/tbergmann/zot2rm/internal/annotate"
	"github.com/tbergmann/zot2rm/internal/entities"
	"github.com/tbergmann/zot2rm/internal/zotero"
)

// LibraryClient is the slice of the Zotero API the orchestrator needs.
type LibraryClient interface {
	ItemsByTag(ctx context.Context, tags ...string) ([]entities.LibraryItem, error)
	Children(ctx context.Context, itemKey string) ([]entities.Attachment, error)
	DownloadAttachment(ctx context.Context, attachmentKey, destDir, filename string) (string, error)
	ReplaceTag(ctx context.Context, item *entities.LibraryItem, oldTag, newTag string) error
	DeleteTagEverywhere(ctx context.Context, tag string) error
	ItemTemplate(ctx context.Context) (zotero.AttachmentTemplate, error)
	CreateAttachmentItem(ctx context.Context, tmpl zotero.AttachmentTemplate) (string, error)
	UploadAttachment(ctx context.Context, parentKey, localPath string) error
}

// FileStore is the remote file store used when the library keeps attachment
// bytes externally. Nil when direct mode is configured.
type FileStore interface {
	Upload(ctx context.Context, localPath, remotePath string) error
	Download(ctx context.Context, remotePath, localPath string) error
}

// Engine reconciles device highlights into a rendered PDF.
type Engine interface {
	Apply(pdfPath, workDir, contentID string) (annotate.Stats, error)
}

// Recorder is the journal surface the orchestrator writes to. A nil Recorder
// disables journaling.
type Recorder interface {
	BeginRun(mode string) (string, error)
	FinishRun(runID string, pushed, pulled, failed int) error
	RecordItem(runID string, direction entities.SyncDirection, itemKey, filename string, outcome entities.ItemOutcome, detail string) error
}
