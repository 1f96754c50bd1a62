package merge

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/maseology/sfincs/grid"
)

// resampleLayer projects every active target cell centroid into the source
// raster's reference, samples the raster there, and applies the layer's
// elevation filter, offset and mask. Returned values align with grid cell
// IDs; NaN marks cells the layer does not contribute to.
func (e *Engine) resampleLayer(l *Layer) ([]float64, LayerReport, error) {
	gd := e.GD
	rep := LayerReport{Layer: l.Name, Interp: l.Interp, Ncells: gd.Nactives()}
	if rep.Interp == "" {
		rep.Interp = Bilinear
	}

	var t proj.Transformer
	if l.Data.Proj4 != "" && gd.Proj4 != "" && l.Data.Proj4 != gd.Proj4 {
		srGrid, err := proj.Parse(gd.Proj4)
		if err != nil {
			return nil, rep, &ResampleError{Layer: l.Name, Err: err}
		}
		srData, err := proj.Parse(l.Data.Proj4)
		if err != nil {
			return nil, rep, &ResampleError{Layer: l.Name, Err: err}
		}
		t, err = srGrid.NewTransform(srData)
		if err != nil {
			return nil, rep, &ResampleError{Layer: l.Name, Err: err}
		}
	}

	var inMask map[int]bool
	if l.Mask != nil {
		inMask = maskCells(gd, l.Mask)
	}

	z := make([]float64, gd.Ncells())
	for i := range z {
		z[i] = math.NaN()
	}
	for _, cid := range gd.Sactives {
		if inMask != nil && !inMask[cid] {
			rep.Nmasked++
			continue
		}
		p := gd.Coord[cid]
		x, y := p.X, p.Y
		if t != nil {
			gg, err := geom.Point{X: x, Y: y}.Transform(t)
			if err != nil {
				continue // centroid unprojectable into the source reference
			}
			pt, ok := gg.(geom.Point)
			if !ok {
				continue
			}
			x, y = pt.X, pt.Y
		}
		var v float64
		switch rep.Interp {
		case Nearest:
			v = l.Data.SampleNearest(x, y)
		default:
			v = l.Data.SampleBilinear(x, y)
		}
		if math.IsNaN(v) {
			continue
		}
		// filter on the resampled value, then shift survivors
		if l.Zmin != nil && v < *l.Zmin {
			rep.Nfiltered++
			continue
		}
		if l.Zmax != nil && v > *l.Zmax {
			rep.Nfiltered++
			continue
		}
		z[cid] = v + l.Offset
		rep.Napplied++
	}
	return z, rep, nil
}

// maskCells flags active cells at least half covered by the mask polygon,
// with a bounding-box pass ahead of the polygon intersections.
func maskCells(gd *grid.Definition, mask geom.Polygonal) map[int]bool {
	mb := mask.Bounds()
	half := gd.CellArea() / 2.
	out := make(map[int]bool, gd.Nactives())
	for _, cid := range gd.Sactives {
		cp := gd.CellPolygon(cid)
		cb := cp.Bounds()
		if cb.Max.X < mb.Min.X || cb.Min.X > mb.Max.X || cb.Max.Y < mb.Min.Y || cb.Min.Y > mb.Max.Y {
			continue
		}
		if isect := cp.Intersection(mask); isect != nil && isect.Area() >= half {
			out[cid] = true
		}
	}
	return out
}
