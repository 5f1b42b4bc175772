package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/tbergmann/zot2rm/internal/entities"
)

func pdfAttachment(key, filename string) entities.Attachment {
	return entities.Attachment{Key: key, ContentType: "application/pdf", Filename: filename}
}

func TestPushDirectMode(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagToSync}, pdfAttachment("ATT1", "paper.pdf"))
	lib.pdfBytes["ATT1"] = []byte("%PDF-1.4 content")
	dev := newFakeDevice()

	s := newTestSyncer(lib, dev, nil, nil, t.TempDir())
	res, err := s.Push(context.Background(), "")
	if err != nil {
		t.Fatalf("Push() returned error: %v", err)
	}

	if res.Processed != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(dev.pushed) != 1 || dev.pushed[0] != "paper.pdf->Unread" {
		t.Errorf("device pushes = %v", dev.pushed)
	}
	if len(lib.replaceTagCalls) != 1 || lib.replaceTagCalls[0] != "ITEM1:to_sync->synced" {
		t.Errorf("tag transitions = %v, expected exactly one on success", lib.replaceTagCalls)
	}
	if len(lib.deletedTags) != 1 || lib.deletedTags[0] != entities.TagToSync {
		t.Errorf("deleted tags = %v, expected the trailing to_sync cleanup", lib.deletedTags)
	}

	tags := lib.tagsOf("ITEM1")
	if len(tags) != 1 || tags[0] != entities.TagSynced {
		t.Errorf("final tags = %v, expected exactly [synced]", tags)
	}
}

func TestPushDeviceFailureLeavesTagsAlone(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagToSync}, pdfAttachment("ATT1", "paper.pdf"))
	lib.pdfBytes["ATT1"] = []byte("%PDF-1.4 content")
	dev := newFakeDevice()
	dev.failPush = true

	s := newTestSyncer(lib, dev, nil, nil, t.TempDir())
	res, err := s.Push(context.Background(), "")
	if err != nil {
		t.Fatalf("Push() returned error: %v", err)
	}

	if res.Failed != 1 || res.Processed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(lib.replaceTagCalls) != 0 {
		t.Errorf("tag transitions = %v, expected none on failure", lib.replaceTagCalls)
	}
	// The phase boundary still clears to_sync library-wide.
	if len(lib.deletedTags) != 1 {
		t.Errorf("deleted tags = %v", lib.deletedTags)
	}
}

func TestPushSkipsItemsWithoutPDF(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagToSync},
		entities.Attachment{Key: "ATT1", ContentType: "application/epub+zip", Filename: "book.epub"})
	dev := newFakeDevice()

	s := newTestSyncer(lib, dev, nil, nil, t.TempDir())
	res, err := s.Push(context.Background(), "")
	if err != nil {
		t.Fatalf("Push() returned error: %v", err)
	}

	if res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(dev.pushed) != 0 {
		t.Errorf("device pushes = %v", dev.pushed)
	}
}

func TestPushPicksFirstPDF(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagToSync},
		entities.Attachment{Key: "ATT0", ContentType: "text/html", Filename: "snapshot.html"},
		pdfAttachment("ATT1", "first.pdf"),
		pdfAttachment("ATT2", "second.pdf"))
	lib.pdfBytes["ATT1"] = []byte("first")
	dev := newFakeDevice()

	s := newTestSyncer(lib, dev, nil, nil, t.TempDir())
	if _, err := s.Push(context.Background(), ""); err != nil {
		t.Fatalf("Push() returned error: %v", err)
	}
	if len(dev.pushed) != 1 || !strings.HasPrefix(dev.pushed[0], "first.pdf") {
		t.Errorf("device pushes = %v", dev.pushed)
	}
}

func TestPushWebDAVMode(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagToSync}, pdfAttachment("ATT1", "paper.pdf"))
	dev := newFakeDevice()

	// Store holds "<attachment key>.zip" with the PDF inside.
	dir := t.TempDir()
	store := newFakeStore()
	srcPDF := dir + "/paper.pdf"
	mustWriteFile(t, srcPDF, "%PDF-1.4 content")
	archive := dir + "/ATT1.zip"
	if err := zipSingleFile(srcPDF, archive); err != nil {
		t.Fatalf("Failed to build archive: %v", err)
	}
	mustAddStoreFile(t, store, "ATT1.zip", archive)

	s := newTestSyncer(lib, dev, store, nil, t.TempDir())
	res, err := s.Push(context.Background(), "")
	if err != nil {
		t.Fatalf("Push() returned error: %v", err)
	}

	if res.Processed != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(dev.pushed) != 1 || dev.pushed[0] != "paper.pdf->Unread" {
		t.Errorf("device pushes = %v", dev.pushed)
	}
}

func TestPushWebDAVFilenameDrift(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagToSync}, pdfAttachment("ATT1", "renamed.pdf"))
	dev := newFakeDevice()

	// The archive holds the file under its original name, the attachment
	// record says otherwise.
	dir := t.TempDir()
	store := newFakeStore()
	srcPDF := dir + "/original.pdf"
	mustWriteFile(t, srcPDF, "%PDF-1.4 content")
	archive := dir + "/ATT1.zip"
	if err := zipSingleFile(srcPDF, archive); err != nil {
		t.Fatalf("Failed to build archive: %v", err)
	}
	mustAddStoreFile(t, store, "ATT1.zip", archive)

	s := newTestSyncer(lib, dev, store, nil, t.TempDir())
	res, err := s.Push(context.Background(), "")
	if err != nil {
		t.Fatalf("Push() returned error: %v", err)
	}

	if res.Failed != 1 {
		t.Errorf("result = %+v, expected the drifted item to fail", res)
	}
	if len(lib.replaceTagCalls) != 0 {
		t.Errorf("tag transitions = %v", lib.replaceTagCalls)
	}
}

func TestPushJournalsOutcomes(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagToSync}, pdfAttachment("ATT1", "paper.pdf"))
	lib.pdfBytes["ATT1"] = []byte("content")
	dev := newFakeDevice()
	jour := &fakeJournal{}

	s := newTestSyncer(lib, dev, nil, jour, t.TempDir())
	if _, err := s.Push(context.Background(), "run-1"); err != nil {
		t.Fatalf("Push() returned error: %v", err)
	}

	if len(jour.records) != 1 || jour.records[0] != "push:paper.pdf:synced" {
		t.Errorf("journal records = %v", jour.records)
	}
}
