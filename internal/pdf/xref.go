package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

type xrefType int

const (
	xrefFree xrefType = iota
	xrefInFile
	xrefInObjStm
)

type xrefEntry struct {
	typ    xrefType
	offset int64 // file offset for xrefInFile
	stmNum int   // containing object stream for xrefInObjStm
	stmIdx int
}

// loadXrefChain locates the startxref pointer and follows the /Prev chain,
// newest section first. Existing entries always win over older ones.
func (d *Document) loadXrefChain() error {
	start, err := d.findStartXref()
	if err != nil {
		return err
	}
	d.prevStartXref = start

	seen := make(map[int64]bool)
	offset := start
	for offset >= 0 {
		if seen[offset] {
			return fmt.Errorf("cross-reference chain loops at offset %d", offset)
		}
		seen[offset] = true

		trailer, err := d.loadXrefSection(offset)
		if err != nil {
			return err
		}
		d.mergeTrailer(trailer)

		// Hybrid files carry an extra xref stream next to the classic table.
		if xs, ok := toInt(trailer.Get("XRefStm")); ok {
			if !seen[int64(xs)] {
				seen[int64(xs)] = true
				st, err := d.loadXrefSection(int64(xs))
				if err == nil {
					d.mergeTrailer(st)
				}
			}
		}

		prev, ok := toInt(trailer.Get("Prev"))
		if !ok {
			break
		}
		offset = int64(prev)
	}

	if size, ok := toInt(d.trailer.Get("Size")); ok && size > d.maxObjNum {
		d.maxObjNum = size - 1
	}
	for num := range d.xref {
		if num > d.maxObjNum {
			d.maxObjNum = num
		}
	}
	return nil
}

func (d *Document) findStartXref() (int64, error) {
	tail := d.buf
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	rest := string(tail[idx+len("startxref"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, fmt.Errorf("startxref has no offset")
	}
	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad startxref offset %q: %w", fields[0], err)
	}
	return offset, nil
}

// loadXrefSection parses either a classic xref table or an xref stream at the
// given offset and returns its trailer dictionary.
func (d *Document) loadXrefSection(offset int64) (Dict, error) {
	if offset < 0 || offset >= int64(len(d.buf)) {
		return nil, fmt.Errorf("xref offset %d out of bounds", offset)
	}
	l := newLexer(d.buf)
	l.pos = int(offset)

	if l.peekKeyword("xref") {
		return d.loadClassicXref(l)
	}
	return d.loadXrefStream(l)
}

func (d *Document) loadClassicXref(l *lexer) (Dict, error) {
	l.readKeyword() // xref
	for {
		if l.peekKeyword("trailer") {
			l.readKeyword()
			obj, err := l.parseObject()
			if err != nil {
				return nil, fmt.Errorf("bad trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary")
			}
			return trailer, nil
		}

		firstObj, isInt, err := l.parseNumber()
		if err != nil || !isInt {
			return nil, fmt.Errorf("bad xref subsection header")
		}
		countObj, isInt, err := l.parseNumber()
		if err != nil || !isInt {
			return nil, fmt.Errorf("bad xref subsection header")
		}
		first, count := int(firstObj.(Integer)), int(countObj.(Integer))

		for i := 0; i < count; i++ {
			offObj, _, err := l.parseNumber()
			if err != nil {
				return nil, fmt.Errorf("bad xref entry: %w", err)
			}
			if _, _, err := l.parseNumber(); err != nil {
				return nil, fmt.Errorf("bad xref entry: %w", err)
			}
			kind := l.readKeyword()

			num := first + i
			if _, exists := d.xref[num]; exists {
				continue
			}
			switch kind {
			case "n":
				off, _ := toInt(offObj)
				d.xref[num] = xrefEntry{typ: xrefInFile, offset: int64(off)}
			case "f":
				d.xref[num] = xrefEntry{typ: xrefFree}
			default:
				return nil, fmt.Errorf("bad xref entry type %q", kind)
			}
		}
	}
}

func (d *Document) loadXrefStream(l *lexer) (Dict, error) {
	numObj, isInt, err := l.parseNumber()
	if err != nil || !isInt {
		return nil, fmt.Errorf("expected xref stream object")
	}
	if _, _, err := l.parseNumber(); err != nil {
		return nil, err
	}
	if kw := l.readKeyword(); kw != "obj" {
		return nil, fmt.Errorf("expected obj keyword in xref stream, got %q", kw)
	}
	obj, err := l.parseObject()
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(Dict)
	if !ok || !l.peekKeyword("stream") {
		return nil, fmt.Errorf("xref section is neither a table nor a stream")
	}
	container, err := d.parseStreamBody(l, dict, int(numObj.(Integer)))
	if err != nil {
		return nil, err
	}
	stream := container.(Stream)

	data, err := d.decodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}

	wArr, _ := d.resolve(dict.Get("W")).(Array)
	if len(wArr) < 3 {
		return nil, fmt.Errorf("xref stream missing W array")
	}
	w := make([]int, 3)
	for i := 0; i < 3; i++ {
		w[i], _ = toInt(wArr[i])
	}
	entryLen := w[0] + w[1] + w[2]
	if entryLen == 0 {
		return nil, fmt.Errorf("xref stream has zero-width entries")
	}

	size, _ := toInt(d.resolve(dict.Get("Size")))
	index := []int{0, size}
	if idxArr, ok := d.resolve(dict.Get("Index")).(Array); ok && len(idxArr) >= 2 {
		index = index[:0]
		for _, item := range idxArr {
			v, _ := toInt(item)
			index = append(index, v)
		}
	}

	d.usesXrefStream = true

	pos := 0
	for s := 0; s+1 < len(index); s += 2 {
		first, count := index[s], index[s+1]
		for i := 0; i < count; i++ {
			if pos+entryLen > len(data) {
				return dict, nil
			}
			f1 := readBigEndian(data[pos:pos+w[0]], 1) // type defaults to 1
			f2 := readBigEndian(data[pos+w[0]:pos+w[0]+w[1]], 0)
			f3 := readBigEndian(data[pos+w[0]+w[1]:pos+entryLen], 0)
			pos += entryLen

			num := first + i
			if _, exists := d.xref[num]; exists {
				continue
			}
			switch f1 {
			case 0:
				d.xref[num] = xrefEntry{typ: xrefFree}
			case 1:
				d.xref[num] = xrefEntry{typ: xrefInFile, offset: f2}
			case 2:
				d.xref[num] = xrefEntry{typ: xrefInObjStm, stmNum: int(f2), stmIdx: int(f3)}
			}
		}
	}
	return dict, nil
}

// readBigEndian decodes a big-endian unsigned field; a zero-width field takes
// the given default.
func readBigEndian(b []byte, def int64) int64 {
	if len(b) == 0 {
		return def
	}
	var v int64
	for _, x := range b {
		v = v<<8 | int64(x)
	}
	return v
}

func (d *Document) mergeTrailer(trailer Dict) {
	if d.trailer == nil {
		d.trailer = Dict{}
	}
	for _, key := range []Name{"Root", "Info", "Encrypt", "ID", "Size"} {
		if _, have := d.trailer[key]; !have {
			if v := trailer.Get(key); v != nil {
				d.trailer[key] = v
			}
		}
	}
}
