package pdf

import "fmt"

// positionedRune is one extracted character with its device-space quad.
// Synthetic runes are separators inserted at line breaks and kerning gaps;
// they carry no geometry.
type positionedRune struct {
	r         rune
	quad      Quad
	synthetic bool
}

type pageText struct {
	runes []positionedRune
}

// textState is the PDF text-object state.
type textState struct {
	tm, tlm    Matrix
	font       *fontDecoder
	fontSize   float64
	charSpace  float64
	wordSpace  float64
	horizScale float64
	leading    float64
	rise       float64
}

// extractPageText interprets the page content streams and reconstructs the
// positioned text run in stream order.
func (d *Document) extractPageText(p *Page) (*pageText, error) {
	if p.text != nil {
		return p.text, nil
	}
	content, err := d.contentStreams(p)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page content: %w", err)
	}
	fonts := d.fontDecodersForPage(p)

	pt := &pageText{}
	ctm := Identity
	var ctmStack []Matrix
	ts := textState{tm: Identity, tlm: Identity, horizScale: 1}

	l := newLexer(content)
	var operands []Object
	for !l.atEnd() {
		obj, err := l.parseObject()
		if err != nil {
			// Skip unparseable bytes (inline images etc.) up to the next
			// whitespace run.
			continue
		}
		op, isOp := obj.(operatorToken)
		if !isOp {
			operands = append(operands, obj)
			if len(operands) > 64 {
				operands = operands[:0]
			}
			continue
		}

		switch string(op) {
		case "q":
			ctmStack = append(ctmStack, ctm)
		case "Q":
			if n := len(ctmStack); n > 0 {
				ctm = ctmStack[n-1]
				ctmStack = ctmStack[:n-1]
			}
		case "cm":
			if m, ok := matrixFromOperands(operands); ok {
				ctm = m.Mul(ctm)
			}
		case "BT":
			ts.tm, ts.tlm = Identity, Identity
			pt.newline()
		case "ET":
		case "Tf":
			if len(operands) >= 2 {
				if name, ok := operands[len(operands)-2].(Name); ok {
					ts.font = fonts[string(name)]
				}
				if size, ok := toFloat(operands[len(operands)-1]); ok {
					ts.fontSize = size
				}
			}
		case "Tc":
			ts.charSpace = floatOperand(operands, 0)
		case "Tw":
			ts.wordSpace = floatOperand(operands, 0)
		case "Tz":
			ts.horizScale = floatOperand(operands, 100) / 100
		case "TL":
			ts.leading = floatOperand(operands, 0)
		case "Ts":
			ts.rise = floatOperand(operands, 0)
		case "Td":
			if len(operands) >= 2 {
				tx, _ := toFloat(operands[len(operands)-2])
				ty, _ := toFloat(operands[len(operands)-1])
				ts.tlm = Translate(tx, ty).Mul(ts.tlm)
				ts.tm = ts.tlm
				pt.newline()
			}
		case "TD":
			if len(operands) >= 2 {
				tx, _ := toFloat(operands[len(operands)-2])
				ty, _ := toFloat(operands[len(operands)-1])
				ts.leading = -ty
				ts.tlm = Translate(tx, ty).Mul(ts.tlm)
				ts.tm = ts.tlm
				pt.newline()
			}
		case "Tm":
			if m, ok := matrixFromOperands(operands); ok {
				ts.tlm = m
				ts.tm = m
				pt.newline()
			}
		case "T*":
			ts.tlm = Translate(0, -ts.leading).Mul(ts.tlm)
			ts.tm = ts.tlm
			pt.newline()
		case "Tj":
			if s, ok := lastString(operands); ok {
				showText(pt, &ts, ctm, s)
			}
		case "'":
			ts.tlm = Translate(0, -ts.leading).Mul(ts.tlm)
			ts.tm = ts.tlm
			pt.newline()
			if s, ok := lastString(operands); ok {
				showText(pt, &ts, ctm, s)
			}
		case "\"":
			if len(operands) >= 3 {
				ts.wordSpace = floatOperand(operands[:len(operands)-2], 0)
				if cs, ok := toFloat(operands[len(operands)-2]); ok {
					ts.charSpace = cs
				}
				ts.tlm = Translate(0, -ts.leading).Mul(ts.tlm)
				ts.tm = ts.tlm
				pt.newline()
				if s, ok := operands[len(operands)-1].(String); ok {
					showText(pt, &ts, ctm, s)
				}
			}
		case "TJ":
			if arr, ok := lastArray(operands); ok {
				for _, item := range arr {
					switch v := item.(type) {
					case String:
						showText(pt, &ts, ctm, v)
					case Integer, Real:
						n, _ := toFloat(v)
						gap := -n / 1000 * ts.fontSize * ts.horizScale
						ts.tm = Translate(gap, 0).Mul(ts.tm)
						// Large kerning jumps stand in for spaces.
						if n < -180 {
							pt.space()
						}
					}
				}
			}
		case "BI":
			// Inline image: skip to EI.
			skipInlineImage(l)
		}
		operands = operands[:0]
	}
	p.text = pt
	return pt, nil
}

// showText decodes and places one shown string.
func showText(pt *pageText, ts *textState, ctm Matrix, s String) {
	if ts.font == nil || ts.fontSize == 0 {
		return
	}
	for _, g := range ts.font.decode([]byte(s)) {
		w0 := g.width / 1000
		adv := (w0*ts.fontSize + ts.charSpace) * ts.horizScale
		if g.code == 32 && !ts.font.twoByte {
			adv += ts.wordSpace * ts.horizScale
		}

		if g.text != "" {
			trm := Matrix{
				A: ts.fontSize * ts.horizScale,
				D: ts.fontSize,
				F: ts.rise,
			}.Mul(ts.tm).Mul(ctm)

			// Approximate glyph box: full advance wide, descender to
			// ascender tall in glyph space.
			x0, y0 := trm.Apply(0, -0.22)
			x1, y1 := trm.Apply(w0, -0.22)
			x2, y2 := trm.Apply(0, 0.85)
			x3, y3 := trm.Apply(w0, 0.85)
			quad := Quad{
				LLx: x0, LLy: y0,
				LRx: x1, LRy: y1,
				ULx: x2, ULy: y2,
				URx: x3, URy: y3,
			}
			for _, r := range g.text {
				pt.runes = append(pt.runes, positionedRune{r: r, quad: quad})
			}
		}
		ts.tm = Translate(adv, 0).Mul(ts.tm)
	}
}

func (pt *pageText) newline() {
	if n := len(pt.runes); n > 0 && !pt.runes[n-1].synthetic {
		pt.runes = append(pt.runes, positionedRune{r: '\n', synthetic: true})
	}
}

func (pt *pageText) space() {
	if n := len(pt.runes); n > 0 && !pt.runes[n-1].synthetic {
		pt.runes = append(pt.runes, positionedRune{r: ' ', synthetic: true})
	}
}

func matrixFromOperands(operands []Object) (Matrix, bool) {
	if len(operands) < 6 {
		return Matrix{}, false
	}
	vals := make([]float64, 6)
	for i := 0; i < 6; i++ {
		v, ok := toFloat(operands[len(operands)-6+i])
		if !ok {
			return Matrix{}, false
		}
		vals[i] = v
	}
	return Matrix{A: vals[0], B: vals[1], C: vals[2], D: vals[3], E: vals[4], F: vals[5]}, true
}

func floatOperand(operands []Object, def float64) float64 {
	if len(operands) == 0 {
		return def
	}
	if v, ok := toFloat(operands[len(operands)-1]); ok {
		return v
	}
	return def
}

func lastString(operands []Object) (String, bool) {
	if len(operands) == 0 {
		return nil, false
	}
	s, ok := operands[len(operands)-1].(String)
	return s, ok
}

func lastArray(operands []Object) (Array, bool) {
	if len(operands) == 0 {
		return nil, false
	}
	arr, ok := operands[len(operands)-1].(Array)
	return arr, ok
}

// skipInlineImage advances past BI ... ID <binary> EI.
func skipInlineImage(l *lexer) {
	for l.pos+1 < len(l.buf) {
		if l.buf[l.pos] == 'E' && l.buf[l.pos+1] == 'I' &&
			(l.pos == 0 || isWhitespace(l.buf[l.pos-1])) &&
			(l.pos+2 >= len(l.buf) || isWhitespace(l.buf[l.pos+2]) || isDelimiter(l.buf[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.buf)
}
