package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/tbergmann/zot2rm/internal/annotate"
	"github.com/tbergmann/zot2rm/internal/entities"
	"github.com/tbergmann/zot2rm/internal/render"
	"github.com/tbergmann/zot2rm/internal/zotero"
)

// fakeLibrary is an in-memory LibraryClient. Tag state mutates like the real
// library so the tests can assert the state machine transitions.
type fakeLibrary struct {
	items    []*entities.LibraryItem
	children map[string][]entities.Attachment // item key -> attachments
	pdfBytes map[string][]byte                // attachment key -> bytes

	replaceTagCalls   []string // "<key>:<old>-><new>"
	deletedTags       []string
	uploadedTo        []string // parent keys of direct uploads
	createdItems      []zotero.AttachmentTemplate
	nextCreatedKey    string
	failDownload      bool
	failReplaceTag    bool
	failUpload        bool
	failCreateItem    bool
	templateCallCount int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		children:       make(map[string][]entities.Attachment),
		pdfBytes:       make(map[string][]byte),
		nextCreatedKey: "NEWATT01",
	}
}

func (f *fakeLibrary) addItem(key string, tags []string, attachments ...entities.Attachment) *entities.LibraryItem {
	item := &entities.LibraryItem{Key: key, Version: 1, Title: key, Tags: tags}
	f.items = append(f.items, item)
	f.children[key] = attachments
	return item
}

func (f *fakeLibrary) ItemsByTag(ctx context.Context, tags ...string) ([]entities.LibraryItem, error) {
	var out []entities.LibraryItem
	for _, item := range f.items {
		match := true
		for _, tag := range tags {
			if len(tag) > 0 && tag[0] == '-' {
				if item.HasTag(tag[1:]) {
					match = false
				}
			} else if !item.HasTag(tag) {
				match = false
			}
		}
		if match {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (f *fakeLibrary) Children(ctx context.Context, itemKey string) ([]entities.Attachment, error) {
	return f.children[itemKey], nil
}

func (f *fakeLibrary) DownloadAttachment(ctx context.Context, attachmentKey, destDir, filename string) (string, error) {
	if f.failDownload {
		return "", fmt.Errorf("download refused")
	}
	data, ok := f.pdfBytes[attachmentKey]
	if !ok {
		return "", fmt.Errorf("no such attachment %s", attachmentKey)
	}
	dest := filepath.Join(destDir, filename)
	return dest, os.WriteFile(dest, data, 0644)
}

func (f *fakeLibrary) ReplaceTag(ctx context.Context, item *entities.LibraryItem, oldTag, newTag string) error {
	if f.failReplaceTag {
		return fmt.Errorf("tag write refused")
	}
	f.replaceTagCalls = append(f.replaceTagCalls, item.Key+":"+oldTag+"->"+newTag)
	for _, stored := range f.items {
		if stored.Key != item.Key {
			continue
		}
		var kept []string
		for _, t := range stored.Tags {
			if t != oldTag && t != newTag {
				kept = append(kept, t)
			}
		}
		stored.Tags = append(kept, newTag)
		item.Tags = stored.Tags
	}
	return nil
}

func (f *fakeLibrary) DeleteTagEverywhere(ctx context.Context, tag string) error {
	f.deletedTags = append(f.deletedTags, tag)
	for _, item := range f.items {
		var kept []string
		for _, t := range item.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		item.Tags = kept
	}
	return nil
}

func (f *fakeLibrary) ItemTemplate(ctx context.Context) (zotero.AttachmentTemplate, error) {
	f.templateCallCount++
	return zotero.AttachmentTemplate{ItemType: "attachment", LinkMode: "imported_file"}, nil
}

func (f *fakeLibrary) CreateAttachmentItem(ctx context.Context, tmpl zotero.AttachmentTemplate) (string, error) {
	if f.failCreateItem {
		return "", fmt.Errorf("item creation refused")
	}
	f.createdItems = append(f.createdItems, tmpl)
	return f.nextCreatedKey, nil
}

func (f *fakeLibrary) UploadAttachment(ctx context.Context, parentKey, localPath string) error {
	if f.failUpload {
		return fmt.Errorf("upload refused")
	}
	f.uploadedTo = append(f.uploadedTo, parentKey)
	return nil
}

func (f *fakeLibrary) tagsOf(key string) []string {
	for _, item := range f.items {
		if item.Key == key {
			return item.Tags
		}
	}
	return nil
}

// fakeDevice is an in-memory device adapter. Fetch produces a real zip bundle
// so the pull pipeline can unzip it.
type fakeDevice struct {
	readDocs    []string
	pushed      []string // "<filename>-><folder>"
	contentIDs  map[string]string
	failCheck   bool
	failPush    bool
	failFetch   bool
	failingList bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{contentIDs: make(map[string]string)}
}

func (f *fakeDevice) Check(ctx context.Context) error {
	if f.failCheck {
		return fmt.Errorf("device unreachable")
	}
	return nil
}

func (f *fakeDevice) List(ctx context.Context, folder string) ([]string, error) {
	if f.failingList {
		return nil, fmt.Errorf("listing refused")
	}
	return f.readDocs, nil
}

func (f *fakeDevice) Fetch(ctx context.Context, path, destDir string) (string, error) {
	if f.failFetch {
		return "", fmt.Errorf("fetch refused")
	}
	name := filepath.Base(path)
	inner := filepath.Join(destDir, name+".content")
	if err := os.WriteFile(inner, []byte("raw device data"), 0644); err != nil {
		return "", err
	}
	archive := filepath.Join(destDir, name+".zip")
	if err := zipSingleFile(inner, archive); err != nil {
		return "", err
	}
	return archive, nil
}

func (f *fakeDevice) Metadata(ctx context.Context, path string) (entities.DeviceEntity, error) {
	name := filepath.Base(path)
	id := f.contentIDs[name]
	if id == "" {
		id = "content-" + name
	}
	return entities.DeviceEntity{Name: name, ContentID: id, Type: entities.EntityDocument}, nil
}

func (f *fakeDevice) Push(ctx context.Context, localPath, folder string) error {
	if f.failPush {
		return fmt.Errorf("push refused")
	}
	f.pushed = append(f.pushed, filepath.Base(localPath)+"->"+folder)
	return nil
}

// fakeRenderer writes a placeholder PDF where the real renderer would.
type fakeRenderer struct {
	failing bool
}

func (f *fakeRenderer) Render(ctx context.Context, unpackedDir, outDir, name string) (render.Result, error) {
	if f.failing {
		return render.Result{}, fmt.Errorf("render refused")
	}
	pdfPath := filepath.Join(outDir, name+".pdf")
	if err := os.WriteFile(pdfPath, []byte("rendered pdf"), 0644); err != nil {
		return render.Result{}, err
	}
	return render.Result{PDFPath: pdfPath, ExportDir: unpackedDir}, nil
}

// fakeEngine counts Apply calls without touching the PDF.
type fakeEngine struct {
	applied []string // content ids
	failing bool
}

func (f *fakeEngine) Apply(pdfPath, workDir, contentID string) (annotate.Stats, error) {
	if f.failing {
		return annotate.Stats{}, fmt.Errorf("annotation refused")
	}
	f.applied = append(f.applied, contentID)
	return annotate.Stats{Exact: 1}, nil
}

// fakeStore is an in-memory FileStore.
type fakeStore struct {
	files         map[string][]byte // remote path -> bytes
	uploads       []string
	failPropfiles bool
	failUploads   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (f *fakeStore) Upload(ctx context.Context, localPath, remotePath string) error {
	if f.failUploads {
		return fmt.Errorf("store upload refused")
	}
	if f.failPropfiles && filepath.Ext(remotePath) == ".prop" {
		return fmt.Errorf("propfile upload refused")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.files[remotePath] = data
	f.uploads = append(f.uploads, remotePath)
	return nil
}

func (f *fakeStore) Download(ctx context.Context, remotePath, localPath string) error {
	data, ok := f.files[remotePath]
	if !ok {
		return fmt.Errorf("no such remote file %s", remotePath)
	}
	return os.WriteFile(localPath, data, 0644)
}

// fakeJournal records calls without persistence.
type fakeJournal struct {
	begun    []string
	finished []string
	records  []string // "<direction>:<filename>:<outcome>"
}

func (f *fakeJournal) BeginRun(mode string) (string, error) {
	f.begun = append(f.begun, mode)
	return "run-1", nil
}

func (f *fakeJournal) FinishRun(runID string, pushed, pulled, failed int) error {
	f.finished = append(f.finished, fmt.Sprintf("%s:%d/%d/%d", runID, pushed, pulled, failed))
	return nil
}

func (f *fakeJournal) RecordItem(runID string, direction entities.SyncDirection, itemKey, filename string, outcome entities.ItemOutcome, detail string) error {
	f.records = append(f.records, fmt.Sprintf("%s:%s:%s", direction, filename, outcome))
	return nil
}

func newTestSyncer(lib LibraryClient, dev *fakeDevice, store FileStore, journal Recorder, workDir string) *Syncer {
	return New(lib, dev, store, &fakeRenderer{}, &fakeEngine{}, journal, Folders{Unread: "Unread", Read: "Read"}, workDir)
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func mustAddStoreFile(t *testing.T, store *fakeStore, remotePath, localPath string) {
	t.Helper()
	data, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", localPath, err)
	}
	store.files[remotePath] = data
}
