package entities

import "testing"

func TestStateOf(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		expected SyncState
	}{
		{"no tags", nil, StateUnsynced},
		{"to_sync only", []string{TagToSync}, StateUnsynced},
		{"synced", []string{TagSynced}, StatePendingPull},
		{"read", []string{TagRead}, StateDone},
		{"read wins over synced", []string{TagSynced, TagRead}, StateDone},
		{"unrelated tags", []string{"physics", "to-read"}, StateUnsynced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := LibraryItem{Key: "ABCD1234", Tags: tt.tags}
			if got := StateOf(item); got != tt.expected {
				t.Errorf("StateOf(%v) = %v, expected %v", tt.tags, got, tt.expected)
			}
		})
	}
}

func TestHasTag(t *testing.T) {
	item := LibraryItem{Tags: []string{"to_sync", "physics"}}
	if !item.HasTag("to_sync") {
		t.Error("expected HasTag(to_sync) to be true")
	}
	if item.HasTag("synced") {
		t.Error("expected HasTag(synced) to be false")
	}
}

func TestIsPDF(t *testing.T) {
	pdf := Attachment{ContentType: "application/pdf", Filename: "paper.pdf"}
	epub := Attachment{ContentType: "application/epub+zip", Filename: "book.epub"}
	if !pdf.IsPDF() {
		t.Error("expected PDF attachment to be recognized")
	}
	if epub.IsPDF() {
		t.Error("expected EPUB attachment to be rejected")
	}
}
