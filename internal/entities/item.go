package entities

// LibraryItem is a bibliographic record in the Zotero library. Tags carry the
// sync state (see SyncTag); Version is the library's optimistic-concurrency
// counter and must be echoed back on writes.
type LibraryItem struct {
	Key     string
	Version int
	Title   string
	Tags    []string
}

// HasTag reports whether the item currently carries the given tag.
func (i LibraryItem) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Attachment is a file belonging to a LibraryItem. Bytes live either in the
// library service itself or, in WebDAV mode, in the remote file store under
// "<Key>.zip".
type Attachment struct {
	Key         string
	ParentKey   string
	ContentType string
	Filename    string
	MD5         string
	MTime       int64
}

// IsPDF reports whether the attachment is a PDF document.
func (a Attachment) IsPDF() bool {
	return a.ContentType == "application/pdf"
}
