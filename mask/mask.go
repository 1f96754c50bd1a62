// Package mask classifies target-grid cells for an overland flood model.
// Codes follow the SFINCS msk convention: 0 inactive, 1 active, 2 water-level
// boundary, 3 outflow boundary.
package mask

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/maseology/sfincs/grid"
)

const (
	Inactive   int8 = 0
	Active     int8 = 1
	Waterlevel int8 = 2
	Outflow    int8 = 3
)

// ActiveOpts constrains the active-cell classification. Nil bounds are open;
// zero areas disable the connected-region cleanup passes.
type ActiveOpts struct {
	Zmin, Zmax *float64         // keep cells with elevation in range
	Include    []geom.Polygonal // force cells active regardless of elevation bounds
	Exclude    []geom.Polygonal // force cells inactive
	DropArea   float64          // remove active patches smaller than this area
	FillArea   float64          // re-activate enclosed inactive pockets smaller than this area
}

// ActiveCells classifies the grid's active cells from a merged elevation
// surface: a cell goes active when its elevation is finite and inside the
// bounds, include/exclude geometry overrides the bounds, then small
// disconnected patches are dropped and small enclosed pockets filled.
// Definition-inactive cells stay 0 throughout.
func ActiveCells(gd *grid.Definition, z []float64, opts ActiveOpts) ([]int8, error) {
	if len(z) != gd.Ncells() {
		return nil, fmt.Errorf("mask: have %d elevations, need %d", len(z), gd.Ncells())
	}
	msk := make([]int8, gd.Ncells())
	for _, cid := range gd.Sactives {
		v := z[cid]
		if math.IsNaN(v) {
			continue
		}
		if opts.Zmin != nil && v < *opts.Zmin {
			continue
		}
		if opts.Zmax != nil && v > *opts.Zmax {
			continue
		}
		msk[cid] = Active
	}

	if len(opts.Include) > 0 {
		rt := newPolyIndex(opts.Include)
		half := gd.CellArea() / 2.
		for _, cid := range gd.Sactives {
			// elevation still has to exist for the model to run the cell
			if msk[cid] == Inactive && !math.IsNaN(z[cid]) && coveredBy(gd, cid, rt, half) {
				msk[cid] = Active
			}
		}
	}
	if len(opts.Exclude) > 0 {
		rt := newPolyIndex(opts.Exclude)
		half := gd.CellArea() / 2.
		for _, cid := range gd.Sactives {
			if msk[cid] != Inactive && coveredBy(gd, cid, rt, half) {
				msk[cid] = Inactive
			}
		}
	}

	if opts.DropArea > 0. {
		dropSmall(gd, msk, opts.DropArea)
	}
	if opts.FillArea > 0. {
		fillSmall(gd, msk, opts.FillArea)
	}
	return msk, nil
}

// Counts tallies cells per mask code.
func Counts(msk []int8) map[int8]int {
	out := make(map[int8]int, 4)
	for _, m := range msk {
		out[m]++
	}
	return out
}

// Validate checks mask consistency against its grid: known codes only, no
// label on definition-inactive cells, boundary codes on domain-edge cells.
func Validate(gd *grid.Definition, msk []int8) error {
	if len(msk) != gd.Ncells() {
		return fmt.Errorf("mask: have %d cells, need %d", len(msk), gd.Ncells())
	}
	for cid, m := range msk {
		if m < Inactive || m > Outflow {
			return fmt.Errorf("mask: cell %d holds unknown code %d", cid, m)
		}
		if m != Inactive && !gd.IsActive(cid) {
			return fmt.Errorf("mask: cell %d labelled %d outside the grid's active set", cid, m)
		}
		if (m == Waterlevel || m == Outflow) && !isEdge(gd, msk, cid) {
			return fmt.Errorf("mask: boundary cell %d (code %d) is not on the domain edge", cid, m)
		}
	}
	return nil
}

// newPolyIndex loads polygons into an r-tree keyed on their envelopes.
func newPolyIndex(polys []geom.Polygonal) *rtree.Rtree {
	rt := rtree.NewTree(25, 50)
	for _, p := range polys {
		rt.Insert(p)
	}
	return rt
}

// coveredBy reports whether at least half the cell lies inside any indexed
// polygon.
func coveredBy(gd *grid.Definition, cid int, rt *rtree.Rtree, half float64) bool {
	cp := gd.CellPolygon(cid)
	for _, itm := range rt.SearchIntersect(cp.Bounds()) {
		p, ok := itm.(geom.Polygonal)
		if !ok {
			continue
		}
		if isect := cp.Intersection(p); isect != nil && isect.Area() >= half {
			return true
		}
	}
	return false
}

var nbr4 = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// regions collects 4-connected components of definition-active cells
// satisfying pred, in cell-ID order.
func regions(gd *grid.Definition, pred func(cid int) bool) [][]int {
	lbl := make([]int, gd.Ncells())
	for i := range lbl {
		lbl[i] = -1
	}
	var out [][]int
	for _, cid := range gd.Sactives {
		if lbl[cid] >= 0 || !pred(cid) {
			continue
		}
		mem, q := []int{}, []int{cid}
		lbl[cid] = len(out)
		for len(q) > 0 {
			ci := q[0]
			q = q[1:]
			mem = append(mem, ci)
			r, c := gd.RowCol(ci)
			for _, d := range nbr4 {
				ni := gd.CellID(r+d[0], c+d[1])
				if ni < 0 || lbl[ni] >= 0 || !gd.IsActive(ni) || !pred(ni) {
					continue
				}
				lbl[ni] = len(out)
				q = append(q, ni)
			}
		}
		out = append(out, mem)
	}
	return out
}

// dropSmall deactivates connected active patches below the area threshold.
func dropSmall(gd *grid.Definition, msk []int8, minArea float64) int {
	nd := 0
	for _, mem := range regions(gd, func(cid int) bool { return msk[cid] != Inactive }) {
		if float64(len(mem))*gd.CellArea() >= minArea {
			continue
		}
		for _, cid := range mem {
			msk[cid] = Inactive
			nd++
		}
	}
	return nd
}

// fillSmall re-activates enclosed inactive pockets below the area threshold.
// A pocket touching the grid edge or a definition-inactive cell is open, not
// enclosed.
func fillSmall(gd *grid.Definition, msk []int8, maxArea float64) int {
	nf := 0
	for _, mem := range regions(gd, func(cid int) bool { return msk[cid] == Inactive }) {
		if float64(len(mem))*gd.CellArea() >= maxArea {
			continue
		}
		open := false
		for _, cid := range mem {
			r, c := gd.RowCol(cid)
			if r == 0 || r == gd.Nr-1 || c == 0 || c == gd.Nc-1 {
				open = true
				break
			}
			for _, d := range nbr4 {
				if ni := gd.CellID(r+d[0], c+d[1]); ni >= 0 && !gd.IsActive(ni) {
					open = true
					break
				}
			}
			if open {
				break
			}
		}
		if open {
			continue
		}
		for _, cid := range mem {
			msk[cid] = Active
			nf++
		}
	}
	return nf
}
