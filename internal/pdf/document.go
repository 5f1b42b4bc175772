// Package pdf implements the small slice of PDF needed to place highlight
// annotations: parsing, page-level text geometry, quad search, annotation
// insertion and incremental or full saving.
package pdf

import (
	"bytes"
	"fmt"
	"os"
)

// Document is a parsed PDF file open for annotation.
type Document struct {
	path string
	buf  []byte

	xref    map[int]xrefEntry
	trailer Dict
	cache   map[int]Object

	pages     []*Page
	maxObjNum int

	usesXrefStream bool
	encrypted      bool
	repaired       bool
	prevStartXref  int64

	// dirty tracks objects (by number) rewritten or added since load; the
	// incremental writer appends exactly these.
	dirty map[int]Object
}

// Page is one page of the document with its inherited attributes resolved.
type Page struct {
	Ref       Ref
	Dict      Dict
	Resources Dict
	MediaBox  Rect

	text *pageText // lazily extracted
}

// Open parses the PDF at path.
func Open(path string) (*Document, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !bytes.HasPrefix(buf, []byte("%PDF-")) {
		return nil, fmt.Errorf("%s is not a PDF file", path)
	}

	d := &Document{
		path:  path,
		buf:   buf,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]Object),
		dirty: make(map[int]Object),
	}
	if err := d.loadXrefChain(); err != nil {
		return nil, fmt.Errorf("failed to load cross-reference data from %s: %w", path, err)
	}
	if d.trailer.Get("Encrypt") != nil {
		d.encrypted = true
		return nil, fmt.Errorf("%s is encrypted, annotation is not supported", path)
	}
	if err := d.loadPages(); err != nil {
		return nil, fmt.Errorf("failed to load page tree from %s: %w", path, err)
	}
	return d, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// page returns the i-th page, or an error for an out-of-range index.
func (d *Document) page(i int) (*Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", i, len(d.pages))
	}
	return d.pages[i], nil
}

// resolve follows indirect references until a direct object is reached.
func (d *Document) resolve(obj Object) Object {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj
		}
		loaded, err := d.getObject(ref.Num)
		if err != nil {
			return Null{}
		}
		obj = loaded
	}
	return Null{}
}

func (d *Document) resolveDict(obj Object) Dict {
	dict, _ := d.resolve(obj).(Dict)
	return dict
}

// getObject loads and caches the object with the given number.
func (d *Document) getObject(num int) (Object, error) {
	if obj, ok := d.cache[num]; ok {
		return obj, nil
	}
	entry, ok := d.xref[num]
	if !ok || entry.typ == xrefFree {
		return Null{}, nil
	}

	var obj Object
	var err error
	switch entry.typ {
	case xrefInFile:
		obj, err = d.parseIndirect(entry.offset, num)
	case xrefInObjStm:
		if err = d.loadObjectStream(entry.stmNum); err == nil {
			obj = d.cache[num]
			if obj == nil {
				obj = Null{}
			}
		}
	}
	if err != nil {
		return nil, err
	}
	d.cache[num] = obj
	return obj, nil
}

// parseIndirect parses "N G obj ... endobj" at the given byte offset.
func (d *Document) parseIndirect(offset int64, wantNum int) (Object, error) {
	if offset < 0 || offset >= int64(len(d.buf)) {
		return nil, fmt.Errorf("object %d offset %d out of bounds", wantNum, offset)
	}
	l := newLexer(d.buf)
	l.pos = int(offset)

	numObj, isInt, err := l.parseNumber()
	if err != nil || !isInt {
		return nil, fmt.Errorf("object %d: malformed object header", wantNum)
	}
	if int(numObj.(Integer)) != wantNum {
		return nil, fmt.Errorf("object %d: header names object %d", wantNum, int(numObj.(Integer)))
	}
	if _, _, err := l.parseNumber(); err != nil {
		return nil, fmt.Errorf("object %d: malformed generation", wantNum)
	}
	if kw := l.readKeyword(); kw != "obj" {
		return nil, fmt.Errorf("object %d: expected obj keyword, got %q", wantNum, kw)
	}

	obj, err := l.parseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", wantNum, err)
	}

	if l.peekKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d: stream without dictionary", wantNum)
		}
		return d.parseStreamBody(l, dict, wantNum)
	}
	return obj, nil
}

func (d *Document) parseStreamBody(l *lexer, dict Dict, num int) (Object, error) {
	l.readKeyword() // consume "stream"
	// Stream data starts after CRLF or LF.
	if l.pos < len(d.buf) && d.buf[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(d.buf) && d.buf[l.pos] == '\n' {
		l.pos++
	}
	start := l.pos

	length, ok := toInt(d.resolve(dict.Get("Length")))
	end := start + length
	if !ok || end > len(d.buf) {
		// Recover by scanning for the endstream keyword.
		idx := bytes.Index(d.buf[start:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("object %d: unterminated stream", num)
		}
		end = start + idx
		d.repaired = true
	}

	raw := make([]byte, end-start)
	copy(raw, d.buf[start:end])
	return Stream{Dict: dict, Raw: raw}, nil
}

// loadObjectStream decodes a /Type /ObjStm stream and caches every object it
// holds.
func (d *Document) loadObjectStream(stmNum int) error {
	entry, ok := d.xref[stmNum]
	if !ok || entry.typ != xrefInFile {
		return fmt.Errorf("object stream %d not present in file", stmNum)
	}
	container, err := d.parseIndirect(entry.offset, stmNum)
	if err != nil {
		return err
	}
	stream, ok := container.(Stream)
	if !ok {
		return fmt.Errorf("object %d is not a stream", stmNum)
	}

	data, err := d.decodeStream(stream)
	if err != nil {
		return fmt.Errorf("object stream %d: %w", stmNum, err)
	}
	n, _ := toInt(d.resolve(stream.Dict.Get("N")))
	first, _ := toInt(d.resolve(stream.Dict.Get("First")))

	l := newLexer(data)
	type pair struct{ num, off int }
	pairs := make([]pair, 0, n)
	for i := 0; i < n; i++ {
		numObj, isInt, err := l.parseNumber()
		if err != nil || !isInt {
			return fmt.Errorf("object stream %d: bad header", stmNum)
		}
		offObj, isInt, err := l.parseNumber()
		if err != nil || !isInt {
			return fmt.Errorf("object stream %d: bad header", stmNum)
		}
		pairs = append(pairs, pair{int(numObj.(Integer)), int(offObj.(Integer))})
	}

	for _, p := range pairs {
		if _, cached := d.cache[p.num]; cached {
			continue
		}
		// Only honor the entry when the live xref still points here.
		if e, ok := d.xref[p.num]; !ok || e.typ != xrefInObjStm || e.stmNum != stmNum {
			continue
		}
		ol := newLexer(data)
		ol.pos = first + p.off
		obj, err := ol.parseObject()
		if err != nil {
			return fmt.Errorf("object stream %d, object %d: %w", stmNum, p.num, err)
		}
		d.cache[p.num] = obj
	}
	return nil
}

// loadPages walks the page tree, resolving inherited Resources and MediaBox.
func (d *Document) loadPages() error {
	root := d.resolveDict(d.trailer.Get("Root"))
	if root == nil {
		return fmt.Errorf("missing document catalog")
	}
	pagesRef, _ := root.Get("Pages").(Ref)
	return d.walkPages(root.Get("Pages"), pagesRef, nil, Rect{}, 0)
}

func (d *Document) walkPages(node Object, nodeRef Ref, resources Dict, mediaBox Rect, depth int) error {
	if depth > 64 {
		return fmt.Errorf("page tree too deep")
	}
	dict := d.resolveDict(node)
	if dict == nil {
		return fmt.Errorf("malformed page tree node")
	}

	if res := d.resolveDict(dict.Get("Resources")); res != nil {
		resources = res
	}
	if mb := d.rectFromArray(dict.Get("MediaBox")); mb != (Rect{}) {
		mediaBox = mb
	}

	if t, _ := d.resolve(dict.Get("Type")).(Name); t == "Page" {
		d.pages = append(d.pages, &Page{
			Ref:       nodeRef,
			Dict:      dict,
			Resources: resources,
			MediaBox:  mediaBox,
		})
		return nil
	}

	kids, _ := d.resolve(dict.Get("Kids")).(Array)
	for _, kid := range kids {
		kidRef, _ := kid.(Ref)
		if err := d.walkPages(kid, kidRef, resources, mediaBox, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) rectFromArray(obj Object) Rect {
	arr, _ := d.resolve(obj).(Array)
	if len(arr) != 4 {
		return Rect{}
	}
	vals := make([]float64, 4)
	for i, item := range arr {
		v, ok := toFloat(d.resolve(item))
		if !ok {
			return Rect{}
		}
		vals[i] = v
	}
	r := Rect{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}
	if r.X0 > r.X1 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

// contentStreams returns the decoded, concatenated content of a page.
func (d *Document) contentStreams(p *Page) ([]byte, error) {
	var out []byte
	collect := func(obj Object) error {
		if s, ok := d.resolve(obj).(Stream); ok {
			data, err := d.decodeStream(s)
			if err != nil {
				return err
			}
			out = append(out, data...)
			out = append(out, '\n')
		}
		return nil
	}

	switch v := d.resolve(p.Dict.Get("Contents")).(type) {
	case Stream:
		if err := collect(v); err != nil {
			return nil, err
		}
	case Array:
		for _, item := range v {
			if err := collect(item); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
