// Package burn carves river channels into assembled elevation and roughness
// surfaces. Reaches are polylines with a width, a bed elevation (absolute or
// depth below the local surface) and an optional channel roughness; burning
// only ever lowers the elevation, so overlapping reaches resolve to the
// deeper bed no matter their order.
package burn

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/maseology/sfincs/grid"
)

// River one channel reach. Nil fields fall back to the burn options; Zb
// takes precedence over Depth when both are set.
type River struct {
	Name    string
	Line    geom.LineString
	Width   float64  // channel width; zero falls back to the options
	Depth   *float64 // bed depth below the local surface
	Zb      *float64 // absolute bed elevation
	Manning *float64 // channel roughness
}

// Set a collection of reaches sharing one coordinate reference.
type Set struct {
	Proj4  string
	Rivers []River
}

// Opts supplies reach fallbacks. Zero width narrows the stamp to the
// centerline cells; nil Depth and Manning leave cells untouched unless the
// reach itself sets them.
type Opts struct {
	Width   float64
	Depth   *float64
	Manning *float64
}

// RiverReport counts the cells one reach stamped.
type RiverReport struct {
	Name   string
	Ncells int
}

// Report summarizes a burn pass.
type Report struct {
	Rivers []RiverReport
	Ncells int // distinct cells touched
}

// Burn stamps every reach of s into dep and man (both full-grid, cell-ID
// ordered; man may be nil to burn elevation only). Reaches are reprojected
// onto the grid reference when their proj4 differs, walked at half-cell
// steps, and applied to all cells within half a width of the centerline:
// the bed elevation lowers dep (never raises), the roughness overwrites man.
func Burn(gd *grid.Definition, dep, man []float64, s Set, opts Opts) (*Report, error) {
	if len(dep) != gd.Ncells() {
		return nil, fmt.Errorf("burn: have %d elevations, need %d", len(dep), gd.Ncells())
	}
	if man != nil && len(man) != gd.Ncells() {
		return nil, fmt.Errorf("burn: have %d roughness values, need %d", len(man), gd.Ncells())
	}

	var t proj.Transformer
	if s.Proj4 != "" && gd.Proj4 != "" && s.Proj4 != gd.Proj4 {
		srSet, err := proj.Parse(s.Proj4)
		if err != nil {
			return nil, fmt.Errorf("burn: reach reference: %v", err)
		}
		srGrid, err := proj.Parse(gd.Proj4)
		if err != nil {
			return nil, fmt.Errorf("burn: grid reference: %v", err)
		}
		if t, err = srSet.NewTransform(srGrid); err != nil {
			return nil, fmt.Errorf("burn: %v", err)
		}
	}

	rep := &Report{Rivers: make([]RiverReport, 0, len(s.Rivers))}
	touched := make(map[int]bool)
	for _, rv := range s.Rivers {
		line := rv.Line
		if t != nil {
			gg, err := rv.Line.Transform(t)
			if err != nil {
				return nil, fmt.Errorf("burn: reach %s: %v", rv.Name, err)
			}
			ls, ok := gg.(geom.LineString)
			if !ok {
				return nil, fmt.Errorf("burn: reach %s reprojected to a %T", rv.Name, gg)
			}
			line = ls
		}

		width := rv.Width
		if width <= 0. {
			width = opts.Width
		}
		depth := rv.Depth
		if depth == nil {
			depth = opts.Depth
		}
		manning := rv.Manning
		if manning == nil {
			manning = opts.Manning
		}

		cells := make(map[int]bool)
		walk(gd, line, width/2., func(cid int) { cells[cid] = true })
		nhit := 0
		for cid := range cells {
			if stamp(gd, dep, man, cid, rv.Zb, depth, manning) {
				touched[cid] = true
				nhit++
			}
		}
		rep.Rivers = append(rep.Rivers, RiverReport{Name: rv.Name, Ncells: nhit})
	}
	rep.Ncells = len(touched)
	return rep, nil
}

// walk visits the cells along a polyline: the cell under every half-cell
// step plus all cells whose centroid lies within radius of the step point.
func walk(gd *grid.Definition, line geom.LineString, radius float64, visit func(cid int)) {
	step := gd.Cs / 2.
	nrad := int(radius/gd.Cs) + 1
	at := func(x, y float64) {
		cid, ok := gd.PointToCell(x, y)
		if !ok {
			return
		}
		visit(cid)
		if radius <= 0. {
			return
		}
		r0, c0 := gd.RowCol(cid)
		for dr := -nrad; dr <= nrad; dr++ {
			for dc := -nrad; dc <= nrad; dc++ {
				ci := gd.CellID(r0+dr, c0+dc)
				if ci < 0 {
					continue
				}
				p := gd.Coord[ci]
				if math.Hypot(p.X-x, p.Y-y) <= radius {
					visit(ci)
				}
			}
		}
	}
	for i := 0; i+1 < len(line); i++ {
		x0, y0 := line[i].X, line[i].Y
		dx, dy := line[i+1].X-x0, line[i+1].Y-y0
		n := int(math.Ceil(math.Hypot(dx, dy)/step)) + 1
		if n < 2 {
			n = 2
		}
		for k := 0; k < n; k++ {
			f := float64(k) / float64(n-1)
			at(x0+f*dx, y0+f*dy)
		}
	}
}

// stamp lowers one cell to the reach bed and applies the channel roughness.
// An absolute bed elevation applies even where the surface is missing; a
// relative depth needs a local surface to cut below.
func stamp(gd *grid.Definition, dep, man []float64, cid int, zb, depth, manning *float64) bool {
	if !gd.IsActive(cid) {
		return false
	}
	bed := math.NaN()
	switch {
	case zb != nil:
		bed = *zb
	case depth != nil && !math.IsNaN(dep[cid]):
		bed = dep[cid] - *depth
	}
	hit := false
	if !math.IsNaN(bed) {
		if math.IsNaN(dep[cid]) || bed < dep[cid] {
			dep[cid] = bed
		}
		hit = true
	}
	if man != nil && manning != nil {
		man[cid] = *manning
		hit = true
	}
	return hit
}
