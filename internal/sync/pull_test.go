package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/tbergmann/zot2rm/internal/entities"
)

func TestPullDirectMode(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagSynced}, pdfAttachment("ATT1", "Paper.pdf"))
	dev := newFakeDevice()
	dev.readDocs = []string{"Paper"}
	dev.contentIDs["Paper"] = "content-uuid-1"
	engine := &fakeEngine{}

	s := New(lib, dev, nil, &fakeRenderer{}, engine, nil, Folders{Unread: "Unread", Read: "Read"}, t.TempDir())
	res, err := s.Pull(context.Background(), "")
	if err != nil {
		t.Fatalf("Pull() returned error: %v", err)
	}

	if res.Processed != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(engine.applied) != 1 || engine.applied[0] != "content-uuid-1" {
		t.Errorf("engine applied = %v", engine.applied)
	}
	if len(lib.uploadedTo) != 1 || lib.uploadedTo[0] != "ITEM1" {
		t.Errorf("uploads = %v", lib.uploadedTo)
	}
	if len(lib.replaceTagCalls) != 1 || lib.replaceTagCalls[0] != "ITEM1:synced->read" {
		t.Errorf("tag transitions = %v", lib.replaceTagCalls)
	}

	tags := lib.tagsOf("ITEM1")
	if len(tags) != 1 || tags[0] != entities.TagRead {
		t.Errorf("final tags = %v, expected exactly [read]", tags)
	}
}

func TestPullIdempotency(t *testing.T) {
	lib := newFakeLibrary()
	// Already pulled: the read item carries the annotated copy.
	lib.addItem("ITEM1", []string{entities.TagRead},
		pdfAttachment("ATT1", "Paper.pdf"),
		pdfAttachment("ATT2", "(Annot) Paper.pdf"))
	dev := newFakeDevice()
	dev.readDocs = []string{"Paper"}

	s := newTestSyncer(lib, dev, nil, nil, t.TempDir())
	res, err := s.Pull(context.Background(), "")
	if err != nil {
		t.Fatalf("Pull() returned error: %v", err)
	}

	if res.Skipped != 1 || res.Processed != 0 {
		t.Errorf("result = %+v, expected the entity to be skipped", res)
	}
	if len(lib.uploadedTo) != 0 {
		t.Errorf("uploads = %v, a second run must not attach duplicates", lib.uploadedTo)
	}
	if len(lib.replaceTagCalls) != 0 {
		t.Errorf("tag transitions = %v", lib.replaceTagCalls)
	}
}

func TestPullNoMatchingItem(t *testing.T) {
	lib := newFakeLibrary()
	// There is a synced item, but its attachment names something else.
	lib.addItem("ITEM1", []string{entities.TagSynced}, pdfAttachment("ATT1", "Other.pdf"))
	dev := newFakeDevice()
	dev.readDocs = []string{"Paper"}

	s := newTestSyncer(lib, dev, nil, nil, t.TempDir())
	res, err := s.Pull(context.Background(), "")
	if err != nil {
		t.Fatalf("Pull() returned error: %v", err)
	}

	if res.Failed != 1 {
		t.Errorf("result = %+v, expected a per-entity failure", res)
	}
	if len(lib.replaceTagCalls) != 0 {
		t.Errorf("tag transitions = %v", lib.replaceTagCalls)
	}
}

func TestPullRenderFailureSkipsEntity(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagSynced}, pdfAttachment("ATT1", "Paper.pdf"))
	lib.addItem("ITEM2", []string{entities.TagSynced}, pdfAttachment("ATT2", "Second.pdf"))
	dev := newFakeDevice()
	dev.readDocs = []string{"Paper", "Second"}

	s := New(lib, dev, nil, &fakeRenderer{failing: true}, &fakeEngine{}, nil,
		Folders{Unread: "Unread", Read: "Read"}, t.TempDir())
	res, err := s.Pull(context.Background(), "")
	if err != nil {
		t.Fatalf("Pull() returned error: %v", err)
	}

	if res.Failed != 2 {
		t.Errorf("result = %+v, expected both entities to fail without aborting", res)
	}
}

func TestPullWebDAVMode(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagSynced}, pdfAttachment("ATT1", "Paper.pdf"))
	lib.nextCreatedKey = "NEWKEY42"
	dev := newFakeDevice()
	dev.readDocs = []string{"Paper"}
	store := newFakeStore()

	s := newTestSyncer(lib, dev, store, nil, t.TempDir())
	res, err := s.Pull(context.Background(), "")
	if err != nil {
		t.Fatalf("Pull() returned error: %v", err)
	}

	if res.Processed != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(lib.createdItems) != 1 {
		t.Fatalf("created items = %v", lib.createdItems)
	}
	created := lib.createdItems[0]
	if created.ParentItem != "ITEM1" || created.Filename != "(Annot) Paper.pdf" {
		t.Errorf("created item = %+v", created)
	}
	if created.MD5 == "" || created.MTime == 0 {
		t.Errorf("created item missing hash or mtime: %+v", created)
	}

	if len(store.uploads) != 2 || store.uploads[0] != "NEWKEY42.zip" || store.uploads[1] != "NEWKEY42.prop" {
		t.Errorf("store uploads = %v, expected the blob then its propfile", store.uploads)
	}

	prop := string(store.files["NEWKEY42.prop"])
	if !strings.HasPrefix(prop, `<properties version="1"><mtime>`) || !strings.Contains(prop, "<hash>"+created.MD5+"</hash>") {
		t.Errorf("propfile = %q, expected it to carry the blob's hash", prop)
	}

	if len(lib.replaceTagCalls) != 1 || lib.replaceTagCalls[0] != "ITEM1:synced->read" {
		t.Errorf("tag transitions = %v", lib.replaceTagCalls)
	}
}

func TestPullWebDAVPropfileFailureLeavesItemSynced(t *testing.T) {
	lib := newFakeLibrary()
	lib.addItem("ITEM1", []string{entities.TagSynced}, pdfAttachment("ATT1", "Paper.pdf"))
	dev := newFakeDevice()
	dev.readDocs = []string{"Paper"}
	store := newFakeStore()
	store.failPropfiles = true

	s := newTestSyncer(lib, dev, store, nil, t.TempDir())
	res, err := s.Pull(context.Background(), "")
	if err != nil {
		t.Fatalf("Pull() returned error: %v", err)
	}

	if res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(lib.replaceTagCalls) != 0 {
		t.Errorf("tag transitions = %v, item must stay synced for a retry", lib.replaceTagCalls)
	}
	tags := lib.tagsOf("ITEM1")
	if len(tags) != 1 || tags[0] != entities.TagSynced {
		t.Errorf("final tags = %v", tags)
	}
}

func TestPullEmptyFolder(t *testing.T) {
	lib := newFakeLibrary()
	dev := newFakeDevice()

	s := newTestSyncer(lib, dev, nil, nil, t.TempDir())
	res, err := s.Pull(context.Background(), "")
	if err != nil {
		t.Fatalf("Pull() returned error: %v", err)
	}
	if res.Processed != 0 || res.Skipped != 0 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
}
