package pdf

import (
	"fmt"
	"strconv"
)

// lexer tokenizes PDF syntax from an in-memory buffer. The same lexer serves
// file-level object parsing and content-stream interpretation.
type lexer struct {
	buf []byte
	pos int
}

func newLexer(buf []byte) *lexer {
	return &lexer{buf: buf}
}

func isWhitespace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		break
	}
}

func (l *lexer) atEnd() bool {
	l.skipWhitespace()
	return l.pos >= len(l.buf)
}

// peekKeyword reports whether the next token is the given bare keyword.
func (l *lexer) peekKeyword(kw string) bool {
	l.skipWhitespace()
	end := l.pos + len(kw)
	if end > len(l.buf) || string(l.buf[l.pos:end]) != kw {
		return false
	}
	if end < len(l.buf) && !isWhitespace(l.buf[end]) && !isDelimiter(l.buf[end]) {
		return false
	}
	return true
}

func (l *lexer) readKeyword() string {
	l.skipWhitespace()
	start := l.pos
	for l.pos < len(l.buf) && !isWhitespace(l.buf[l.pos]) && !isDelimiter(l.buf[l.pos]) {
		l.pos++
	}
	return string(l.buf[start:l.pos])
}

// parseObject reads the next object. A bare keyword (an operator in content
// streams) is returned as the keyword string wrapped in operatorToken.
type operatorToken string

func (l *lexer) parseObject() (Object, error) {
	l.skipWhitespace()
	if l.pos >= len(l.buf) {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch b := l.buf[l.pos]; {
	case b == '/':
		return l.parseName()
	case b == '(':
		return l.parseLiteralString()
	case b == '<':
		if l.pos+1 < len(l.buf) && l.buf[l.pos+1] == '<' {
			return l.parseDict()
		}
		return l.parseHexString()
	case b == '[':
		return l.parseArray()
	case b == ']' || b == '>' || b == ')' || b == '}' || b == '{':
		l.pos++
		return nil, fmt.Errorf("unexpected delimiter %q", string(b))
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return l.parseNumberOrRef()
	default:
		kw := l.readKeyword()
		switch kw {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "null":
			return Null{}, nil
		case "":
			l.pos++
			return nil, fmt.Errorf("unexpected byte 0x%02x", b)
		default:
			return operatorToken(kw), nil
		}
	}
}

func (l *lexer) parseName() (Name, error) {
	l.pos++ // slash
	var out []byte
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		if b == '#' && l.pos+2 < len(l.buf) {
			if v, err := strconv.ParseUint(string(l.buf[l.pos+1:l.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				l.pos += 3
				continue
			}
		}
		out = append(out, b)
		l.pos++
	}
	return Name(out), nil
}

func (l *lexer) parseLiteralString() (String, error) {
	l.pos++ // opening paren
	var out []byte
	depth := 1
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		l.pos++
		switch b {
		case '\\':
			if l.pos >= len(l.buf) {
				break
			}
			e := l.buf[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\n':
				// line continuation
			case '\r':
				if l.pos < len(l.buf) && l.buf[l.pos] == '\n' {
					l.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.buf) && l.buf[l.pos] >= '0' && l.buf[l.pos] <= '7'; i++ {
						v = v*8 + int(l.buf[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, b)
		default:
			out = append(out, b)
		}
	}
	return nil, fmt.Errorf("unterminated string")
}

func (l *lexer) parseHexString() (String, error) {
	l.pos++ // opening angle
	var out []byte
	var hi int = -1
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		l.pos++
		if b == '>' {
			if hi >= 0 {
				out = append(out, byte(hi<<4))
			}
			return String(out), nil
		}
		v := hexValue(b)
		if v < 0 {
			continue
		}
		if hi < 0 {
			hi = v
		} else {
			out = append(out, byte(hi<<4|v))
			hi = -1
		}
	}
	return nil, fmt.Errorf("unterminated hex string")
}

func hexValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}

func (l *lexer) parseArray() (Array, error) {
	l.pos++ // opening bracket
	var arr Array
	for {
		l.skipWhitespace()
		if l.pos >= len(l.buf) {
			return nil, fmt.Errorf("unterminated array")
		}
		if l.buf[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		obj, err := l.parseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *lexer) parseDict() (Object, error) {
	l.pos += 2 // <<
	d := Dict{}
	for {
		l.skipWhitespace()
		if l.pos+1 < len(l.buf) && l.buf[l.pos] == '>' && l.buf[l.pos+1] == '>' {
			l.pos += 2
			return d, nil
		}
		if l.pos >= len(l.buf) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if l.buf[l.pos] != '/' {
			return nil, fmt.Errorf("dictionary key is not a name at offset %d", l.pos)
		}
		key, err := l.parseName()
		if err != nil {
			return nil, err
		}
		val, err := l.parseObject()
		if err != nil {
			return nil, err
		}
		d[key] = val
	}
}

// parseNumberOrRef reads a number, looking ahead for the "<num> <gen> R"
// indirect reference form.
func (l *lexer) parseNumberOrRef() (Object, error) {
	first, isInt, err := l.parseNumber()
	if err != nil {
		return nil, err
	}
	if !isInt {
		return first, nil
	}

	save := l.pos
	l.skipWhitespace()
	if l.pos < len(l.buf) && l.buf[l.pos] >= '0' && l.buf[l.pos] <= '9' {
		second, secondInt, err := l.parseNumber()
		if err == nil && secondInt {
			l.skipWhitespace()
			if l.pos < len(l.buf) && l.buf[l.pos] == 'R' &&
				(l.pos+1 >= len(l.buf) || isWhitespace(l.buf[l.pos+1]) || isDelimiter(l.buf[l.pos+1])) {
				l.pos++
				return Ref{Num: int(first.(Integer)), Gen: int(second.(Integer))}, nil
			}
		}
	}
	l.pos = save
	return first, nil
}

func (l *lexer) parseNumber() (Object, bool, error) {
	l.skipWhitespace()
	start := l.pos
	if l.pos < len(l.buf) && (l.buf[l.pos] == '+' || l.buf[l.pos] == '-') {
		l.pos++
	}
	isReal := false
	for l.pos < len(l.buf) {
		b := l.buf[l.pos]
		if b == '.' {
			isReal = true
			l.pos++
			continue
		}
		if b < '0' || b > '9' {
			break
		}
		l.pos++
	}
	text := string(l.buf[start:l.pos])
	if isReal {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, false, fmt.Errorf("bad real %q: %w", text, err)
		}
		return Real(f), false, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("bad integer %q: %w", text, err)
	}
	return Integer(n), true, nil
}
