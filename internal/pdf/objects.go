package pdf

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Object is any PDF object: Name, Ref, Dict, Array, String, Integer, Real,
// Boolean, Null or Stream.
type Object interface{}

type (
	// Name is a PDF name object, stored without the leading slash.
	Name string

	// Ref is an indirect object reference.
	Ref struct {
		Num, Gen int
	}

	// Dict is a PDF dictionary.
	Dict map[Name]Object

	// Array is a PDF array.
	Array []Object

	// String is a PDF string, raw bytes after escape processing.
	String []byte

	// Integer is a PDF integer.
	Integer int64

	// Real is a PDF real number.
	Real float64

	// Boolean is a PDF boolean.
	Boolean bool

	// Null is the PDF null object.
	Null struct{}

	// Stream is a stream object: its dictionary plus the raw (still encoded)
	// stream bytes.
	Stream struct {
		Dict Dict
		Raw  []byte
	}
)

// Get returns the entry for key, or nil.
func (d Dict) Get(key Name) Object {
	if d == nil {
		return nil
	}
	return d[key]
}

func toFloat(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

func toInt(obj Object) (int, bool) {
	switch v := obj.(type) {
	case Integer:
		return int(v), true
	case Real:
		return int(v), true
	}
	return 0, false
}

// serialize writes obj in PDF syntax.
func serialize(sb *strings.Builder, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		sb.WriteString("null")
	case Name:
		sb.WriteByte('/')
		sb.WriteString(escapeName(string(v)))
	case Ref:
		fmt.Fprintf(sb, "%d %d R", v.Num, v.Gen)
	case Integer:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		sb.WriteString(formatReal(float64(v)))
	case Boolean:
		sb.WriteString(strconv.FormatBool(bool(v)))
	case String:
		sb.WriteByte('(')
		for _, b := range v {
			switch b {
			case '(', ')', '\\':
				sb.WriteByte('\\')
				sb.WriteByte(b)
			case '\n':
				sb.WriteString(`\n`)
			case '\r':
				sb.WriteString(`\r`)
			default:
				sb.WriteByte(b)
			}
		}
		sb.WriteByte(')')
	case Array:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(' ')
			}
			serialize(sb, item)
		}
		sb.WriteByte(']')
	case Dict:
		serializeDict(sb, v)
	case Stream:
		serializeDict(sb, v.Dict)
		sb.WriteString("\nstream\n")
		sb.Write(v.Raw)
		sb.WriteString("\nendstream")
	default:
		sb.WriteString("null")
	}
}

func serializeDict(sb *strings.Builder, d Dict) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	sb.WriteString("<<")
	for _, k := range keys {
		sb.WriteString(" /")
		sb.WriteString(escapeName(k))
		sb.WriteByte(' ')
		serialize(sb, d[Name(k)])
	}
	sb.WriteString(" >>")
}

func escapeName(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b <= ' ' || b == '#' || b == '/' || b == '(' || b == ')' ||
			b == '<' || b == '>' || b == '[' || b == ']' || b == '{' || b == '}' || b == '%' {
			fmt.Fprintf(&sb, "#%02X", b)
		} else {
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

func formatReal(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 5, 64)
}
