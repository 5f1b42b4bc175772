package pdf

import (
	"strings"
	"unicode/utf16"
)

// fontDecoder turns show-operator string bytes into runes and advance widths
// (in 1000-unit glyph space).
type fontDecoder struct {
	twoByte      bool // composite font with a 2-byte identity encoding
	toUnicode    map[uint32]string
	simpleEnc    [256]rune // simple-font code to rune
	widths       map[uint32]float64
	defaultWidth float64
}

// decodedGlyph is one code point of shown text.
type decodedGlyph struct {
	text  string
	width float64 // 1000-unit glyph space advance
	code  uint32
}

func (f *fontDecoder) decode(s []byte) []decodedGlyph {
	var out []decodedGlyph
	if f.twoByte {
		for i := 0; i+1 < len(s); i += 2 {
			code := uint32(s[i])<<8 | uint32(s[i+1])
			out = append(out, f.glyph(code))
		}
		return out
	}
	for _, b := range s {
		out = append(out, f.glyph(uint32(b)))
	}
	return out
}

func (f *fontDecoder) glyph(code uint32) decodedGlyph {
	g := decodedGlyph{code: code, width: f.defaultWidth}
	if w, ok := f.widths[code]; ok {
		g.width = w
	}
	if t, ok := f.toUnicode[code]; ok {
		g.text = t
	} else if !f.twoByte {
		r := f.simpleEnc[byte(code)]
		if r != 0 {
			g.text = string(r)
		}
	}
	return g
}

// fontDecodersForPage builds a decoder for every font in the page resources.
func (d *Document) fontDecodersForPage(p *Page) map[string]*fontDecoder {
	out := make(map[string]*fontDecoder)
	fonts := d.resolveDict(p.Resources.Get("Font"))
	for name, fontObj := range fonts {
		fd := d.buildFontDecoder(d.resolveDict(fontObj))
		if fd != nil {
			out[string(name)] = fd
		}
	}
	return out
}

func (d *Document) buildFontDecoder(font Dict) *fontDecoder {
	if font == nil {
		return nil
	}
	fd := &fontDecoder{
		toUnicode:    map[uint32]string{},
		widths:       map[uint32]float64{},
		defaultWidth: 500,
	}

	subtype, _ := d.resolve(font.Get("Subtype")).(Name)
	if subtype == "Type0" {
		fd.twoByte = true
		fd.defaultWidth = 1000
		d.loadCompositeWidths(font, fd)
	} else {
		d.loadSimpleEncoding(font, fd)
		d.loadSimpleWidths(font, fd)
	}

	if tu, ok := d.resolve(font.Get("ToUnicode")).(Stream); ok {
		if data, err := d.decodeStream(tu); err == nil {
			parseToUnicode(data, fd.toUnicode)
		}
	}
	return fd
}

func (d *Document) loadSimpleWidths(font Dict, fd *fontDecoder) {
	first, _ := toInt(d.resolve(font.Get("FirstChar")))
	widths, _ := d.resolve(font.Get("Widths")).(Array)
	for i, item := range widths {
		if w, ok := toFloat(d.resolve(item)); ok {
			fd.widths[uint32(first+i)] = w
		}
	}
	if desc := d.resolveDict(font.Get("FontDescriptor")); desc != nil {
		if mw, ok := toFloat(d.resolve(desc.Get("MissingWidth"))); ok {
			fd.defaultWidth = mw
		}
	}
}

// loadCompositeWidths parses the /W array of the descendant CID font:
// [c [w1 w2 ...] cFirst cLast w ...].
func (d *Document) loadCompositeWidths(font Dict, fd *fontDecoder) {
	descendants, _ := d.resolve(font.Get("DescendantFonts")).(Array)
	if len(descendants) == 0 {
		return
	}
	cid := d.resolveDict(descendants[0])
	if cid == nil {
		return
	}
	if dw, ok := toFloat(d.resolve(cid.Get("DW"))); ok {
		fd.defaultWidth = dw
	}

	w, _ := d.resolve(cid.Get("W")).(Array)
	for i := 0; i < len(w); {
		first, ok := toInt(d.resolve(w[i]))
		if !ok {
			return
		}
		i++
		if i >= len(w) {
			return
		}
		switch v := d.resolve(w[i]).(type) {
		case Array:
			for j, item := range v {
				if wv, ok := toFloat(d.resolve(item)); ok {
					fd.widths[uint32(first+j)] = wv
				}
			}
			i++
		default:
			last, ok1 := toInt(v)
			if !ok1 || i+1 >= len(w) {
				return
			}
			wv, ok2 := toFloat(d.resolve(w[i+1]))
			if !ok2 {
				return
			}
			for c := first; c <= last && c-first < 65536; c++ {
				fd.widths[uint32(c)] = wv
			}
			i += 2
		}
	}
}

func (d *Document) loadSimpleEncoding(font Dict, fd *fontDecoder) {
	// Latin-1 is a workable base for the standard encodings at the code
	// points annotation text ever touches.
	for i := 32; i < 256; i++ {
		fd.simpleEnc[i] = rune(i)
	}

	enc := d.resolve(font.Get("Encoding"))
	encDict, ok := enc.(Dict)
	if !ok {
		return
	}
	diffs, _ := d.resolve(encDict.Get("Differences")).(Array)
	code := 0
	for _, item := range diffs {
		switch v := d.resolve(item).(type) {
		case Integer:
			code = int(v)
		case Name:
			if code >= 0 && code < 256 {
				if r, ok := glyphNameToRune(string(v)); ok {
					fd.simpleEnc[code] = r
				}
			}
			code++
		}
	}
}

// parseToUnicode extracts bfchar and bfrange mappings from a ToUnicode CMap.
func parseToUnicode(data []byte, out map[uint32]string) {
	l := newLexer(data)
	var stack []Object
	for !l.atEnd() {
		obj, err := l.parseObject()
		if err != nil {
			continue
		}
		if op, ok := obj.(operatorToken); ok {
			switch op {
			case "endbfchar":
				for i := 0; i+1 < len(stack); i += 2 {
					src, ok1 := stack[i].(String)
					dst, ok2 := stack[i+1].(String)
					if ok1 && ok2 {
						out[codeFromBytes(src)] = utf16BEToString(dst)
					}
				}
			case "endbfrange":
				for i := 0; i+2 < len(stack); i += 3 {
					lo, ok1 := stack[i].(String)
					hi, ok2 := stack[i+1].(String)
					if !ok1 || !ok2 {
						continue
					}
					loCode, hiCode := codeFromBytes(lo), codeFromBytes(hi)
					switch dst := stack[i+2].(type) {
					case String:
						base := utf16BEToString(dst)
						runes := []rune(base)
						for c := loCode; c <= hiCode && c-loCode < 65536; c++ {
							if len(runes) > 0 {
								out[c] = string(append(append([]rune{}, runes[:len(runes)-1]...), runes[len(runes)-1]+rune(c-loCode)))
							}
						}
					case Array:
						for j, item := range dst {
							if s, ok := item.(String); ok && loCode+uint32(j) <= hiCode {
								out[loCode+uint32(j)] = utf16BEToString(s)
							}
						}
					}
				}
			}
			stack = stack[:0]
			continue
		}
		stack = append(stack, obj)
		if len(stack) > 300 {
			stack = stack[:0]
		}
	}
}

func codeFromBytes(b []byte) uint32 {
	var v uint32
	for _, x := range b {
		v = v<<8 | uint32(x)
	}
	return v
}

func utf16BEToString(b []byte) string {
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}

// glyphNameToRune maps the glyph names the Differences arrays of rendered
// documents actually use.
func glyphNameToRune(name string) (rune, bool) {
	if r, ok := commonGlyphs[name]; ok {
		return r, true
	}
	if strings.HasPrefix(name, "uni") && len(name) == 7 {
		var v rune
		for _, c := range name[3:] {
			h := hexValue(byte(c))
			if h < 0 {
				return 0, false
			}
			v = v<<4 | rune(h)
		}
		return v, true
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	return 0, false
}

var commonGlyphs = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#',
	"dollar": '$', "percent": '%', "ampersand": '&', "quotesingle": '\'',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+',
	"comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=', "greater": '>',
	"question": '?', "at": '@', "bracketleft": '[', "backslash": '\\',
	"bracketright": ']', "asciicircum": '^', "underscore": '_', "grave": '`',
	"braceleft": '{', "bar": '|', "braceright": '}', "asciitilde": '~',
	"quoteleft": '‘', "quoteright": '’',
	"quotedblleft": '“', "quotedblright": '”',
	"endash": '–', "emdash": '—', "bullet": '•',
	"fi": 'ﬁ', "fl": 'ﬂ', "ff": 'ﬀ',
	"ffi": 'ﬃ', "ffl": 'ﬄ',
	"adieresis": 'ä', "odieresis": 'ö', "udieresis": 'ü', "germandbls": 'ß',
	"eacute": 'é', "egrave": 'è', "agrave": 'à', "ccedilla": 'ç',
}
