package pdf

import (
	"strings"
	"unicode"
)

// ligatures maps typographic ligatures to their letter sequences. Highlight
// text from the device never contains ligatures, the PDF text layer often
// does.
var ligatures = map[rune]string{
	'ﬀ': "ff",
	'ﬁ': "fi",
	'ﬂ': "fl",
	'ﬃ': "ffi",
	'ﬄ': "ffl",
	'ﬅ': "st",
	'ﬆ': "st",
}

// normalizedPage is the page text prepared for searching: ligatures expanded,
// soft hyphens dropped, whitespace runs collapsed to single spaces. src maps
// every normalized rune back to the positioned rune it came from (-1 for
// collapsed separators).
type normalizedPage struct {
	runes []rune
	src   []int
}

func normalizePageText(pt *pageText) normalizedPage {
	var np normalizedPage
	pendingSpace := false
	for i, pr := range pt.runes {
		r := pr.r
		if pr.synthetic || unicode.IsSpace(r) {
			pendingSpace = len(np.runes) > 0
			continue
		}
		if r == '­' { // soft hyphen
			continue
		}
		if pendingSpace {
			np.runes = append(np.runes, ' ')
			np.src = append(np.src, -1)
			pendingSpace = false
		}
		if expanded, ok := ligatures[r]; ok {
			for _, e := range expanded {
				np.runes = append(np.runes, e)
				np.src = append(np.src, i)
			}
			continue
		}
		np.runes = append(np.runes, r)
		np.src = append(np.src, i)
	}
	return np
}

// normalizeNeedle applies the same normalization to a search string.
func normalizeNeedle(s string) []rune {
	var out []rune
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = len(out) > 0
			continue
		}
		if r == '­' {
			continue
		}
		if pendingSpace {
			out = append(out, ' ')
			pendingSpace = false
		}
		if expanded, ok := ligatures[r]; ok {
			out = append(out, []rune(expanded)...)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Text returns the page's extracted text with search normalization applied
// (ligatures expanded, whitespace collapsed) but case preserved.
func (d *Document) Text(pageIdx int) (string, error) {
	p, err := d.page(pageIdx)
	if err != nil {
		return "", err
	}
	pt, err := d.extractPageText(p)
	if err != nil {
		return "", err
	}
	np := normalizePageText(pt)
	return string(np.runes), nil
}

// SearchQuads finds every occurrence of needle in the page's text layer and
// returns the bounding quadrilaterals of all of them, one quad per matched
// text line. Matching is case-insensitive and tolerant of ligatures, soft
// hyphens and reflowed whitespace.
func (d *Document) SearchQuads(pageIdx int, needle string) ([]Quad, error) {
	p, err := d.page(pageIdx)
	if err != nil {
		return nil, err
	}
	pt, err := d.extractPageText(p)
	if err != nil {
		return nil, err
	}

	want := normalizeNeedle(needle)
	if len(want) == 0 {
		return nil, nil
	}
	np := normalizePageText(pt)

	var quads []Quad
	for start := 0; start+len(want) <= len(np.runes); {
		if !runesEqualFold(np.runes[start:start+len(want)], want) {
			start++
			continue
		}
		quads = append(quads, matchQuads(pt, np, start, start+len(want))...)
		start += len(want)
	}
	return quads, nil
}

func runesEqualFold(a, b []rune) bool {
	for i := range b {
		if unicode.ToLower(a[i]) != unicode.ToLower(b[i]) {
			return false
		}
	}
	return true
}

// matchQuads converts a normalized match range into per-line quads by merging
// the glyph quads of consecutive runes that share a baseline.
func matchQuads(pt *pageText, np normalizedPage, start, end int) []Quad {
	var out []Quad
	var cur Rect
	var curHeight float64
	have := false

	flush := func() {
		if have {
			out = append(out, QuadFromRect(cur))
			have = false
		}
	}

	for i := start; i < end; i++ {
		srcIdx := np.src[i]
		if srcIdx < 0 {
			continue
		}
		b := pt.runes[srcIdx].quad.Bounds()
		if !have {
			cur, curHeight, have = b, b.Height(), true
			continue
		}
		// Same line when the vertical extents overlap substantially.
		if verticalOverlap(cur, b) >= 0.5*minFloat(curHeight, b.Height()) {
			cur = cur.Union(b)
			continue
		}
		flush()
		cur, curHeight, have = b, b.Height(), true
	}
	flush()
	return out
}

func verticalOverlap(a, b Rect) float64 {
	lo := maxFloat(a.Y0, b.Y0)
	hi := minFloat(a.Y1, b.Y1)
	return hi - lo
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// HasText reports whether the page has any extractable text at all.
func (d *Document) HasText(pageIdx int) bool {
	txt, err := d.Text(pageIdx)
	return err == nil && strings.TrimSpace(txt) != ""
}
