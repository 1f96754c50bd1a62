package mask

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/maseology/sfincs/grid"
)

// BoundOpts restricts boundary-cell marking. Nil bounds are open; an empty
// Include list admits the whole domain edge.
type BoundOpts struct {
	Zmin, Zmax *float64         // elevation gate on candidate cells
	Include    []geom.Polygonal // restrict marking to these areas
}

// SetWaterlevel marks active domain-edge cells as water-level boundaries
// (code 2), typically gated z ≤ Zmax to pick up the offshore rim. Returns
// the number of cells marked.
func SetWaterlevel(gd *grid.Definition, msk []int8, z []float64, opts BoundOpts) (int, error) {
	return setBoundary(gd, msk, z, opts, Waterlevel)
}

// SetOutflow marks active domain-edge cells as outflow boundaries (code 3),
// typically gated z ≥ Zmin to pick up the landward rim.
func SetOutflow(gd *grid.Definition, msk []int8, z []float64, opts BoundOpts) (int, error) {
	return setBoundary(gd, msk, z, opts, Outflow)
}

func setBoundary(gd *grid.Definition, msk []int8, z []float64, opts BoundOpts, code int8) (int, error) {
	if len(msk) != gd.Ncells() {
		return 0, fmt.Errorf("mask: have %d cells, need %d", len(msk), gd.Ncells())
	}
	if len(z) != gd.Ncells() {
		return 0, fmt.Errorf("mask: have %d elevations, need %d", len(z), gd.Ncells())
	}
	var rt *rtree.Rtree
	half := gd.CellArea() / 2.
	if len(opts.Include) > 0 {
		rt = newPolyIndex(opts.Include)
	}
	n, ncollide := 0, 0
	for _, cid := range gd.Sactives {
		if msk[cid] == Inactive || !isEdge(gd, msk, cid) {
			continue
		}
		v := z[cid]
		if opts.Zmin != nil && !(v >= *opts.Zmin) {
			continue
		}
		if opts.Zmax != nil && !(v <= *opts.Zmax) {
			continue
		}
		if rt != nil && !coveredBy(gd, cid, rt, half) {
			continue
		}
		if msk[cid] != Active && msk[cid] != code {
			ncollide++ // re-marking a cell another boundary call claimed; later call wins
		}
		msk[cid] = code
		n++
	}
	if ncollide > 0 {
		fmt.Printf("   WARNING: %d boundary cells re-marked as code %d\n", ncollide, code)
	}
	return n, nil
}

// isEdge reports whether the cell has an off-grid or inactive 4-neighbour.
func isEdge(gd *grid.Definition, msk []int8, cid int) bool {
	r, c := gd.RowCol(cid)
	for _, d := range nbr4 {
		ni := gd.CellID(r+d[0], c+d[1])
		if ni < 0 || msk[ni] == Inactive {
			return true
		}
	}
	return false
}
