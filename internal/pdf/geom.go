package pdf

// Rect is an axis-aligned rectangle in PDF user space (origin bottom-left).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if o.X0 < r.X0 {
		r.X0 = o.X0
	}
	if o.Y0 < r.Y0 {
		r.Y0 = o.Y0
	}
	if o.X1 > r.X1 {
		r.X1 = o.X1
	}
	if o.Y1 > r.Y1 {
		r.Y1 = o.Y1
	}
	return r
}

// Quad is a quadrilateral bounding one span of text on a page, stored as the
// four corners in QuadPoints order: upper-left, upper-right, lower-left,
// lower-right.
type Quad struct {
	ULx, ULy float64
	URx, URy float64
	LLx, LLy float64
	LRx, LRy float64
}

// QuadFromRect converts an axis-aligned rectangle into a quad.
func QuadFromRect(r Rect) Quad {
	return Quad{
		ULx: r.X0, ULy: r.Y1,
		URx: r.X1, URy: r.Y1,
		LLx: r.X0, LLy: r.Y0,
		LRx: r.X1, LRy: r.Y0,
	}
}

// Bounds returns the bounding rectangle of the quad.
func (q Quad) Bounds() Rect {
	r := Rect{X0: q.ULx, Y0: q.ULy, X1: q.ULx, Y1: q.ULy}
	for _, p := range [][2]float64{{q.URx, q.URy}, {q.LLx, q.LLy}, {q.LRx, q.LRy}} {
		if p[0] < r.X0 {
			r.X0 = p[0]
		}
		if p[0] > r.X1 {
			r.X1 = p[0]
		}
		if p[1] < r.Y0 {
			r.Y0 = p[1]
		}
		if p[1] > r.Y1 {
			r.Y1 = p[1]
		}
	}
	return r
}

// Matrix is a PDF transformation matrix [a b c d e f].
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity is the identity matrix.
var Identity = Matrix{A: 1, D: 1}

// Mul returns m × n (m applied first, then n), matching the PDF convention
// for concatenating transformations.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}
