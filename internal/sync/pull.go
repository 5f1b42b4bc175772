package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tbergmann/zot2rm/internal/entities"
	"github.com/tbergmann/zot2rm/internal/webdav"
	"github.com/tbergmann/zot2rm/internal/zotero"
)

// annotPrefix distinguishes the delivered annotated copy from the original
// attachment so the original is never overwritten.
const annotPrefix = "(Annot) "

// Pull processes every document in the device's read folder: fetch, render,
// reconcile highlights, deliver back to the library. Entities whose annotated
// PDF is already attached to a read-tagged item are skipped, which makes a
// re-run over an unchanged folder a no-op.
func (s *Syncer) Pull(ctx context.Context, runID string) (Result, error) {
	var res Result

	names, err := s.dev.List(ctx, s.folders.Read)
	if err != nil {
		return res, fmt.Errorf("failed to list device read folder: %w", err)
	}
	if len(names) == 0 {
		log.Printf("No files to pull found")
		return res, nil
	}

	delivered, err := s.deliveredFilenames(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to collect already-pulled filenames: %w", err)
	}

	for _, name := range names {
		if delivered[annotPrefix+name+".pdf"] {
			log.Printf("%s already pulled, skipping...", name)
			res.Skipped++
			s.record(runID, entities.DirectionPull, "", name, entities.OutcomeSkipped, "already delivered")
			continue
		}

		outcome, detail := s.pullEntity(ctx, name)
		switch outcome {
		case entities.OutcomeSynced:
			res.Processed++
		case entities.OutcomeSkipped:
			res.Skipped++
		case entities.OutcomeFailed:
			res.Failed++
		}
		s.record(runID, entities.DirectionPull, "", name, outcome, detail)
	}
	return res, nil
}

// deliveredFilenames returns the PDF attachment filenames of every
// read-tagged item, the idempotency guard substituting for device-side
// deletion.
func (s *Syncer) deliveredFilenames(ctx context.Context) (map[string]bool, error) {
	items, err := s.lib.ItemsByTag(ctx, entities.TagRead)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, item := range items {
		attachments, err := s.lib.Children(ctx, item.Key)
		if err != nil {
			return nil, err
		}
		for _, att := range attachments {
			if att.IsPDF() {
				out[att.Filename] = true
			}
		}
	}
	return out, nil
}

// pullEntity runs the full pipeline for one device document. Every failure
// skips just this entity; partially completed steps are reported, not rolled
// back.
func (s *Syncer) pullEntity(ctx context.Context, name string) (entities.ItemOutcome, string) {
	log.Printf("Processing %s...", name)

	dir, cleanup, err := s.itemDir(name)
	if err != nil {
		return entities.OutcomeFailed, err.Error()
	}
	defer cleanup()

	devicePath := s.folders.Read + "/" + name
	archivePath, err := s.dev.Fetch(ctx, devicePath, dir)
	if err != nil {
		log.Printf("Failed to download %s: %v", name, err)
		return entities.OutcomeFailed, err.Error()
	}

	meta, err := s.dev.Metadata(ctx, devicePath)
	if err != nil {
		log.Printf("Failed to read metadata of %s: %v", name, err)
		return entities.OutcomeFailed, err.Error()
	}

	unpacked := filepath.Join(dir, "unzipped")
	if err := unzip(archivePath, unpacked); err != nil {
		log.Printf("Failed to unpack %s: %v", name, err)
		return entities.OutcomeFailed, err.Error()
	}

	rendered, err := s.renderer.Render(ctx, unpacked, dir, name)
	if err != nil {
		log.Printf("Failed to render %s: %v", name, err)
		return entities.OutcomeFailed, err.Error()
	}
	log.Printf("PDF rendered")

	stats, err := s.engine.Apply(rendered.PDFPath, rendered.ExportDir, meta.ContentID)
	if err != nil {
		log.Printf("Failed to add highlights to %s: %v", name, err)
		return entities.OutcomeFailed, err.Error()
	}
	log.Printf("Added %d annotations to file (%d dropped)", stats.Total(), stats.Dropped)

	if err := s.deliver(ctx, name, rendered.PDFPath, dir); err != nil {
		log.Printf("Failed to deliver %s to Zotero: %v", name, err)
		return entities.OutcomeFailed, err.Error()
	}
	return entities.OutcomeSynced, ""
}

// deliver renames the annotated PDF and attaches it to the matching
// pending-pull item, then flips the item's tag to read.
func (s *Syncer) deliver(ctx context.Context, name, pdfPath, dir string) error {
	item, err := s.findPendingItem(ctx, name+".pdf")
	if err != nil {
		return err
	}

	annotPath := filepath.Join(filepath.Dir(pdfPath), annotPrefix+filepath.Base(pdfPath))
	if err := os.Rename(pdfPath, annotPath); err != nil {
		return fmt.Errorf("failed to rename annotated PDF: %w", err)
	}

	if s.store == nil {
		if err := s.lib.UploadAttachment(ctx, item.Key, annotPath); err != nil {
			return err
		}
	} else {
		if err := s.deliverWebDAV(ctx, item, annotPath, dir); err != nil {
			return err
		}
	}

	if err := s.lib.ReplaceTag(ctx, item, entities.TagSynced, entities.TagRead); err != nil {
		return fmt.Errorf("attachment delivered but tag update failed: %w", err)
	}
	log.Printf("%s uploaded to Zotero.", filepath.Base(annotPath))
	return nil
}

// findPendingItem locates the synced item whose PDF attachment carries the
// given filename.
func (s *Syncer) findPendingItem(ctx context.Context, filename string) (*entities.LibraryItem, error) {
	items, err := s.lib.ItemsByTag(ctx, entities.TagSynced, "-"+entities.TagRead)
	if err != nil {
		return nil, err
	}
	for i := range items {
		attachments, err := s.lib.Children(ctx, items[i].Key)
		if err != nil {
			return nil, err
		}
		for _, att := range attachments {
			if att.Filename == filename {
				return &items[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no %s-tagged item has an attachment named %q", entities.TagSynced, filename)
}

// deliverWebDAV registers the attachment item, then uploads the blob archive
// and its companion propfile under the new item's key. The store accepts a
// blob without its propfile, but the library will not recognize it; a failed
// propfile upload therefore leaves a detectable inconsistent state that is
// reported, not rolled back.
func (s *Syncer) deliverWebDAV(ctx context.Context, item *entities.LibraryItem, annotPath, dir string) error {
	md5sum, err := webdav.FileMD5(annotPath)
	if err != nil {
		return err
	}
	mtime := time.Now().Unix()

	tmpl, err := s.lib.ItemTemplate(ctx)
	if err != nil {
		return err
	}
	tmpl = zotero.FillTemplate(tmpl, item.Key, annotPath, md5sum, mtime)

	key, err := s.lib.CreateAttachmentItem(ctx, tmpl)
	if err != nil {
		return fmt.Errorf("failed to create attachment item: %w", err)
	}

	archivePath := filepath.Join(dir, key+".zip")
	if err := zipSingleFile(annotPath, archivePath); err != nil {
		return err
	}
	if err := s.store.Upload(ctx, archivePath, key+".zip"); err != nil {
		return fmt.Errorf("attachment upload failed: %w", err)
	}
	log.Printf("Attachment upload successful, proceeding...")

	propPath := filepath.Join(dir, key+".prop")
	if err := os.WriteFile(propPath, []byte(webdav.Propfile(mtime, md5sum)), 0644); err != nil {
		return fmt.Errorf("failed to write propfile: %w", err)
	}
	if err := s.store.Upload(ctx, propPath, key+".prop"); err != nil {
		return fmt.Errorf("attachment uploaded but propfile upload failed, item %s needs manual reconciliation: %w", key, err)
	}
	log.Printf("Propfile upload successful, proceeding...")
	return nil
}
