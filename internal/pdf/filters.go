package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// decodeStream decodes a stream's raw bytes according to its /Filter chain.
// Only FlateDecode (with optional predictors) is implemented; the documents
// this program touches are produced by renderers that emit nothing else.
func (d *Document) decodeStream(s Stream) ([]byte, error) {
	filters, parms := filterChain(d, s.Dict)
	data := s.Raw

	for i, f := range filters {
		switch f {
		case "FlateDecode", "Fl":
			out, err := flateDecode(data)
			if err != nil {
				return nil, err
			}
			if i < len(parms) && parms[i] != nil {
				out, err = applyPredictor(d, parms[i], out)
				if err != nil {
					return nil, err
				}
			}
			data = out
		default:
			return nil, fmt.Errorf("unsupported stream filter %s", f)
		}
	}
	return data, nil
}

func filterChain(d *Document, dict Dict) ([]Name, []Dict) {
	var filters []Name
	var parms []Dict

	switch f := d.resolve(dict.Get("Filter")).(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := d.resolve(item).(Name); ok {
				filters = append(filters, n)
			}
		}
	}

	switch p := d.resolve(dict.Get("DecodeParms")).(type) {
	case Dict:
		parms = []Dict{p}
	case Array:
		for _, item := range p {
			dp, _ := d.resolve(item).(Dict)
			parms = append(parms, dp)
		}
	}
	return filters, parms
}

func flateDecode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flate stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("flate stream: %w", err)
	}
	// A truncated tail is tolerated; whatever decoded is used.
	return out, nil
}

// applyPredictor undoes the TIFF/PNG predictor transforms used by xref
// streams and many content streams.
func applyPredictor(d *Document, parms Dict, data []byte) ([]byte, error) {
	predictor, _ := toInt(d.resolve(parms.Get("Predictor")))
	if predictor <= 1 {
		return data, nil
	}

	colors, ok := toInt(d.resolve(parms.Get("Colors")))
	if !ok {
		colors = 1
	}
	bpc, ok := toInt(d.resolve(parms.Get("BitsPerComponent")))
	if !ok {
		bpc = 8
	}
	columns, ok := toInt(d.resolve(parms.Get("Columns")))
	if !ok {
		columns = 1
	}

	bpp := (colors*bpc + 7) / 8
	rowLen := (colors*bpc*columns + 7) / 8

	if predictor == 2 {
		// TIFF horizontal differencing, byte-aligned case only.
		if bpc != 8 {
			return nil, fmt.Errorf("unsupported TIFF predictor with %d bits per component", bpc)
		}
		for r := 0; r+rowLen <= len(data); r += rowLen {
			row := data[r : r+rowLen]
			for i := bpp; i < len(row); i++ {
				row[i] += row[i-bpp]
			}
		}
		return data, nil
	}

	// PNG predictors: each row is prefixed with a filter-type byte.
	out := make([]byte, 0, len(data))
	prev := make([]byte, rowLen)
	for r := 0; r+1 <= len(data); r += rowLen + 1 {
		ft := data[r]
		end := r + 1 + rowLen
		if end > len(data) {
			end = len(data)
		}
		row := make([]byte, end-r-1)
		copy(row, data[r+1:end])

		for i := range row {
			var left, up, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
			}
			up = prev[i]
			if i >= bpp {
				upLeft = prev[i-bpp]
			}
			switch ft {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter type %d", ft)
			}
		}
		out = append(out, row...)
		copy(prev, row)
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
