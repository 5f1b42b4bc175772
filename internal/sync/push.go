package sync

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/tbergmann/zot2rm/internal/entities"
)

// Push uploads every to_sync item's PDF to the device's unread folder. A
// failing item is logged and left retryable; the phase never aborts over one
// item. The trailing library-wide tag cleanup is the phase boundary: it also
// clears to_sync from items that failed mid-phase in earlier runs.
func (s *Syncer) Push(ctx context.Context, runID string) (Result, error) {
	var res Result

	items, err := s.lib.ItemsByTag(ctx, entities.TagToSync)
	if err != nil {
		return res, fmt.Errorf("failed to list push candidates: %w", err)
	}
	log.Printf("Found %d elements to sync...", len(items))

	for i := range items {
		item := &items[i]
		outcome, detail, filename := s.pushItem(ctx, item)
		switch outcome {
		case entities.OutcomeSynced:
			res.Processed++
		case entities.OutcomeSkipped:
			res.Skipped++
		case entities.OutcomeFailed:
			res.Failed++
		}
		s.record(runID, entities.DirectionPush, item.Key, filename, outcome, detail)
	}

	if err := s.lib.DeleteTagEverywhere(ctx, entities.TagToSync); err != nil {
		return res, fmt.Errorf("failed to clear leftover %s tags: %w", entities.TagToSync, err)
	}
	return res, nil
}

// pushItem moves one item's first PDF attachment to the device. Exactly one
// tag transition happens on success, none on failure.
func (s *Syncer) pushItem(ctx context.Context, item *entities.LibraryItem) (entities.ItemOutcome, string, string) {
	attachments, err := s.lib.Children(ctx, item.Key)
	if err != nil {
		log.Printf("Failed to list attachments of %s: %v", item.Key, err)
		return entities.OutcomeFailed, err.Error(), ""
	}

	var pdfAtt *entities.Attachment
	for i := range attachments {
		if attachments[i].IsPDF() {
			pdfAtt = &attachments[i]
			break
		}
	}
	if pdfAtt == nil {
		log.Printf("Found attachment, but it's not a PDF, skipping...")
		return entities.OutcomeSkipped, "no PDF attachment", ""
	}
	log.Printf("Processing %s...", pdfAtt.Filename)

	dir, cleanup, err := s.itemDir(item.Key)
	if err != nil {
		return entities.OutcomeFailed, err.Error(), pdfAtt.Filename
	}
	defer cleanup()

	localPath, err := s.obtainAttachment(ctx, pdfAtt, dir)
	if err != nil {
		log.Printf("Failed to obtain %s: %v", pdfAtt.Filename, err)
		return entities.OutcomeFailed, err.Error(), pdfAtt.Filename
	}

	if err := s.dev.Push(ctx, localPath, s.folders.Unread); err != nil {
		log.Printf("Failed to upload %s to reMarkable: %v", pdfAtt.Filename, err)
		return entities.OutcomeFailed, err.Error(), pdfAtt.Filename
	}

	if err := s.lib.ReplaceTag(ctx, item, entities.TagToSync, entities.TagSynced); err != nil {
		log.Printf("Uploaded %s but failed to update its tags: %v", pdfAtt.Filename, err)
		return entities.OutcomeFailed, err.Error(), pdfAtt.Filename
	}

	log.Printf("Uploaded %s to reMarkable.", pdfAtt.Filename)
	return entities.OutcomeSynced, "", pdfAtt.Filename
}

// obtainAttachment fetches the attachment bytes into dir, either straight
// from the library or out of the remote store's archive.
func (s *Syncer) obtainAttachment(ctx context.Context, att *entities.Attachment, dir string) (string, error) {
	if s.store == nil {
		return s.lib.DownloadAttachment(ctx, att.Key, dir, att.Filename)
	}

	archivePath := filepath.Join(dir, att.Key+".zip")
	if err := s.store.Download(ctx, att.Key+".zip", archivePath); err != nil {
		return "", fmt.Errorf("remote store download failed: %w", err)
	}

	unpacked := filepath.Join(dir, "unzipped")
	if err := unzip(archivePath, unpacked); err != nil {
		return "", err
	}

	// The name recorded on the attachment sometimes diverges from the one
	// inside the archive (the library does not always rename stored files).
	// Only this item is affected, so the caller skips it and moves on.
	path, ok := findFile(unpacked, att.Filename)
	if !ok {
		return "", fmt.Errorf("PDF %q not found in downloaded archive; filename might differ, rename the file in Zotero, sync and try again", att.Filename)
	}
	return path, nil
}
