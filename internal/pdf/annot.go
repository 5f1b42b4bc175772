package pdf

import "fmt"

// AddHighlight attaches a highlight annotation covering the given quads to a
// page. stroke is the annotation color as RGB components in [0, 1].
func (d *Document) AddHighlight(pageIdx int, quads []Quad, stroke [3]float64) error {
	p, err := d.page(pageIdx)
	if err != nil {
		return err
	}
	if len(quads) == 0 {
		return fmt.Errorf("highlight needs at least one quad")
	}

	bounds := quads[0].Bounds()
	quadPoints := make(Array, 0, len(quads)*8)
	for _, q := range quads {
		bounds = bounds.Union(q.Bounds())
		for _, v := range []float64{q.ULx, q.ULy, q.URx, q.URy, q.LLx, q.LLy, q.LRx, q.LRy} {
			quadPoints = append(quadPoints, Real(v))
		}
	}

	annot := Dict{
		"Type":    Name("Annot"),
		"Subtype": Name("Highlight"),
		"Rect": Array{
			Real(bounds.X0), Real(bounds.Y0), Real(bounds.X1), Real(bounds.Y1),
		},
		"QuadPoints": quadPoints,
		"C":          Array{Real(stroke[0]), Real(stroke[1]), Real(stroke[2])},
		"CA":         Real(1),
		"F":          Integer(4),
	}
	if p.Ref.Num != 0 {
		annot["P"] = p.Ref
	}

	d.maxObjNum++
	annotRef := Ref{Num: d.maxObjNum}
	d.dirty[annotRef.Num] = annot

	return d.appendPageAnnot(p, annotRef)
}

// appendPageAnnot links the annotation into the page's /Annots array, marking
// whichever object holds the array as dirty.
func (d *Document) appendPageAnnot(p *Page, annotRef Ref) error {
	if p.Ref.Num == 0 {
		// A page reached through a direct dict cannot be rewritten in place.
		d.repaired = true
	}

	switch annots := p.Dict.Get("Annots").(type) {
	case Ref:
		arr, ok := d.resolve(annots).(Array)
		if !ok {
			arr = Array{}
		}
		d.dirty[annots.Num] = append(arr, annotRef)
		d.cache[annots.Num] = d.dirty[annots.Num]
	case Array:
		p.Dict["Annots"] = append(annots, annotRef)
		if p.Ref.Num != 0 {
			d.dirty[p.Ref.Num] = p.Dict
		}
	default:
		p.Dict["Annots"] = Array{annotRef}
		if p.Ref.Num != 0 {
			d.dirty[p.Ref.Num] = p.Dict
		}
	}
	return nil
}
