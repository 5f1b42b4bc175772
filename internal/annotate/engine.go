// Package annotate reconciles a device's exported highlight records with a
// rendered base PDF, rewriting the PDF in place with highlight annotations.
package annotate

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tbergmann/zot2rm/internal/entities"
	"github.com/tbergmann/zot2rm/internal/pdf"
)

// Stats summarizes one reconciliation pass over a document.
type Stats struct {
	Exact   int // records matched by exact search
	Fuzzy   int // records recovered by the fuzzy fallback
	Dropped int // records with no match at all
}

// Total returns the number of highlights actually placed.
func (s Stats) Total() int {
	return s.Exact + s.Fuzzy
}

// Engine places highlight annotations. It is stateless; one engine serves
// every document of a run.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Apply adds a highlight annotation for every recoverable record in the
// document's export tree to the PDF at pdfPath, then persists it. workDir is
// the decompressed device export for this document; contentID names its
// manifest and highlights directory. A document without a highlights
// directory is a no-op. Individual unmatched records are dropped with a log
// line, never an error.
func (e *Engine) Apply(pdfPath, workDir, contentID string) (Stats, error) {
	var stats Stats

	highlightsDir := filepath.Join(workDir, contentID+".highlights")
	if info, err := os.Stat(highlightsDir); err != nil || !info.IsDir() {
		log.Printf("No highlights found for %s, skipping...", filepath.Base(pdfPath))
		return stats, nil
	}

	manifest, err := loadManifest(filepath.Join(workDir, contentID+".content"))
	if err != nil {
		return stats, err
	}

	doc, err := pdf.Open(pdfPath)
	if err != nil {
		return stats, fmt.Errorf("failed to open rendered PDF: %w", err)
	}

	pages, err := pageExports(highlightsDir)
	if err != nil {
		return stats, err
	}

	for _, pageFile := range pages {
		pageID := strings.TrimSuffix(filepath.Base(pageFile), filepath.Ext(pageFile))
		pageIdx := manifest.PageIndex(pageID)
		if pageIdx < 0 {
			log.Printf("Page %s not present in manifest, skipping its highlights", pageID)
			continue
		}

		records, err := loadHighlights(pageFile)
		if err != nil {
			log.Printf("Failed to read highlights for page %s: %v", pageID, err)
			continue
		}

		for _, record := range records {
			e.applyRecord(doc, pageIdx, record, &stats)
		}
	}

	if err := save(doc, pdfPath); err != nil {
		return stats, err
	}
	return stats, nil
}

// applyRecord places one record: exact search first, then the fuzzy
// fallback, then give up on just this record.
func (e *Engine) applyRecord(doc *pdf.Document, pageIdx int, record entities.AnnotationRecord, stats *Stats) {
	needle := record.NormalizedText()
	if strings.TrimSpace(needle) == "" {
		return
	}

	quads, err := doc.SearchQuads(pageIdx, needle)
	if err != nil {
		log.Printf("Search failed on page %d: %v", pageIdx+1, err)
		stats.Dropped++
		return
	}
	exact := len(quads) > 0

	if !exact {
		quads = e.fuzzyQuads(doc, pageIdx, needle)
	}
	if len(quads) == 0 {
		log.Printf("Failed to create highlight on %d...", pageIdx+1)
		stats.Dropped++
		return
	}

	if err := doc.AddHighlight(pageIdx, quads, strokeColor(record.Color)); err != nil {
		log.Printf("Failed to add highlight on page %d: %v", pageIdx+1, err)
		stats.Dropped++
		return
	}
	if exact {
		stats.Exact++
	} else {
		stats.Fuzzy++
	}
}

// fuzzyQuads recovers a record whose text does not occur verbatim in the
// page, typically because of ligatures, hyphenation or control characters.
// Candidates within the proportional edit budget are ranked by similarity
// ratio; the exact quad search is then re-run with the winning substring.
func (e *Engine) fuzzyQuads(doc *pdf.Document, pageIdx int, needle string) []pdf.Quad {
	pageText, err := doc.Text(pageIdx)
	if err != nil || pageText == "" {
		return nil
	}

	candidates := findNearMatches(needle, pageText, maxEditDistance(needle))
	if len(candidates) == 0 {
		return nil
	}

	// The edit-distance search can surface a technically-closest but
	// semantically worse substring; the ratio ranking guards against it.
	best := candidates[0]
	bestRatio := similarityRatio(needle, best.Text)
	for _, c := range candidates[1:] {
		if r := similarityRatio(needle, c.Text); r > bestRatio {
			best, bestRatio = c, r
		}
	}

	quads, err := doc.SearchQuads(pageIdx, best.Text)
	if err != nil {
		return nil
	}
	return quads
}

// save prefers the incremental append; a file that cannot take one is fully
// rewritten next to itself and renamed back.
func save(doc *pdf.Document, pdfPath string) error {
	if doc.CanSaveIncrementally() {
		if err := doc.SaveIncremental(); err != nil {
			return fmt.Errorf("incremental save failed: %w", err)
		}
		return nil
	}

	sidePath := pdfPath + ".hl"
	if err := doc.SaveFull(sidePath); err != nil {
		return fmt.Errorf("full rewrite failed: %w", err)
	}
	if err := os.Remove(pdfPath); err != nil {
		return fmt.Errorf("failed to remove original: %w", err)
	}
	if err := os.Rename(sidePath, pdfPath); err != nil {
		return fmt.Errorf("failed to rename rewritten PDF: %w", err)
	}
	return nil
}

func loadManifest(path string) (entities.PageManifest, error) {
	var manifest entities.PageManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest, fmt.Errorf("failed to read page manifest: %w", err)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("failed to parse page manifest: %w", err)
	}
	return manifest, nil
}

// pageExports lists the per-page highlight files in a stable order.
func pageExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadHighlights reads one per-page export. The device nests the records one
// level deep ("highlights" is a list of lists); a flat list is accepted too.
func loadHighlights(path string) ([]entities.AnnotationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var nested struct {
		Highlights [][]entities.AnnotationRecord `json:"highlights"`
	}
	if err := json.Unmarshal(data, &nested); err == nil && len(nested.Highlights) > 0 {
		return nested.Highlights[0], nil
	}

	var flat struct {
		Highlights []entities.AnnotationRecord `json:"highlights"`
	}
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("unrecognized highlights format: %w", err)
	}
	return flat.Highlights, nil
}
