package annotate

// Highlighter colors are stored as small integers by the device. 0 is the
// classic yellow, 3 a later yellow alias, 4 green, 5 pink, 8 grey. An
// unrecognized code falls back to yellow instead of failing the record.
var highlightColors = map[int][3]float64{
	0: {1.0, 1.0, 0.0},
	3: {1.0, 1.0, 0.0},
	4: {0.0, 1.0, 0.3},
	5: {1.0, 0.0, 0.7},
	8: {0.6, 0.6, 0.6},
}

var defaultColor = [3]float64{1.0, 1.0, 0.0}

// strokeColor maps a device color code to an RGB stroke color.
func strokeColor(code int) [3]float64 {
	if c, ok := highlightColors[code]; ok {
		return c
	}
	return defaultColor
}
