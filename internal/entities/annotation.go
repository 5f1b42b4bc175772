package entities

import "strings"

// SoftBreakSentinel is inserted by the device inside a highlighted span where
// the selection crosses a soft line break or ligature. It never occurs in the
// PDF text layer and must be stripped before searching.
const SoftBreakSentinel = ""

// AnnotationRecord is one highlighted span as exported by the device.
type AnnotationRecord struct {
	Text  string `json:"text"`
	Color int    `json:"color"`
}

// NormalizedText returns the highlight text with the device's soft-break
// sentinel removed.
func (r AnnotationRecord) NormalizedText() string {
	if strings.Contains(r.Text, SoftBreakSentinel) {
		return strings.ReplaceAll(r.Text, SoftBreakSentinel, "")
	}
	return r.Text
}

// PageManifest is the ordered list of page content identifiers from a
// document's ".content" descriptor. The position of a page id in the list is
// its 0-based page index within the rendered PDF.
type PageManifest struct {
	Pages []string `json:"pages"`
}

// PageIndex returns the 0-based page index for a page content id, or -1 when
// the id is not part of the document.
func (m PageManifest) PageIndex(pageID string) int {
	for i, id := range m.Pages {
		if id == pageID {
			return i
		}
	}
	return -1
}
