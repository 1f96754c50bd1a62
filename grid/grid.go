// Package grid defines the uniform (possibly rotated) raster grid onto which
// all model input surfaces are assembled.
package grid

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/maseology/mmaths"
)

// Definition a uniform grid definition. The origin (Eorig,Norig) is the
// grid's upper-left corner; rows advance southward, columns eastward, the
// whole frame rotated Rotation degrees counter-clockwise about the origin.
// Cell IDs are row-major: cid = row*Nc + col.
type Definition struct {
	Coord    map[int]mmaths.Point // cell ID to cell-centroid world coordinate
	Sactives []int                // sorted list of active cell IDs
	act      map[int]bool
	Name     string
	Proj4    string  // coordinate reference system; empty: unreferenced
	Eorig    float64 // upper-left corner easting
	Norig    float64 // upper-left corner northing
	Rotation float64 // grid rotation (degrees counter-clockwise)
	Cs       float64 // uniform cell size
	Nr, Nc   int
}

// NewDefinition builds a grid definition with every cell active.
func NewDefinition(name string, eorig, norig, rotation, cs float64, nr, nc int, proj4 string) *Definition {
	if cs <= 0. || nr <= 0 || nc <= 0 {
		panic("grid.NewDefinition: invalid dimensioning")
	}
	gd := Definition{
		Name:     name,
		Eorig:    eorig,
		Norig:    norig,
		Rotation: rotation,
		Cs:       cs,
		Nr:       nr,
		Nc:       nc,
		Proj4:    proj4,
	}
	cids := make([]int, nr*nc)
	for i := range cids {
		cids[i] = i
	}
	gd.ResetActives(cids)
	gd.buildCoords()
	return &gd
}

func (gd *Definition) buildCoords() {
	sn, cs := math.Sincos(gd.Rotation * math.Pi / 180.)
	gd.Coord = make(map[int]mmaths.Point, gd.Nr*gd.Nc)
	for r := 0; r < gd.Nr; r++ {
		v := (float64(r) + .5) * gd.Cs
		for c := 0; c < gd.Nc; c++ {
			u := (float64(c) + .5) * gd.Cs
			gd.Coord[r*gd.Nc+c] = mmaths.Point{
				X: gd.Eorig + u*cs + v*sn,
				Y: gd.Norig + u*sn - v*cs,
			}
		}
	}
}

// Ncells total cell count (active or not)
func (gd *Definition) Ncells() int { return gd.Nr * gd.Nc }

// Nactives active cell count
func (gd *Definition) Nactives() int { return len(gd.Sactives) }

// CellID returns the row-major cell ID; -1 when out of grid
func (gd *Definition) CellID(row, col int) int {
	if row < 0 || row >= gd.Nr || col < 0 || col >= gd.Nc {
		return -1
	}
	return row*gd.Nc + col
}

// RowCol converts a cell ID to its row-column address
func (gd *Definition) RowCol(cid int) (row, col int) {
	if cid < 0 || cid >= gd.Ncells() {
		panic("grid.RowCol: cell ID out of range")
	}
	return cid / gd.Nc, cid % gd.Nc
}

// IsActive returns whether a cell contributes to the model domain
func (gd *Definition) IsActive(cid int) bool { return gd.act[cid] }

// ResetActives resets the grid's active cells to the IDs given
func (gd *Definition) ResetActives(cids []int) {
	gd.act = make(map[int]bool, len(cids))
	gd.Sactives = make([]int, len(cids))
	for i, c := range cids {
		if c < 0 || c >= gd.Ncells() {
			panic("grid.ResetActives: cell ID out of range")
		}
		gd.Sactives[i] = c
		gd.act[c] = true
	}
}

// CellArea the uniform cell area
func (gd *Definition) CellArea() float64 { return gd.Cs * gd.Cs }

// Centre the world coordinate of the grid's centre
func (gd *Definition) Centre() mmaths.Point {
	sn, cs := math.Sincos(gd.Rotation * math.Pi / 180.)
	u, v := float64(gd.Nc)*gd.Cs/2., float64(gd.Nr)*gd.Cs/2.
	return mmaths.Point{X: gd.Eorig + u*cs + v*sn, Y: gd.Norig + u*sn - v*cs}
}

// PointToCell locates the cell containing a world coordinate
func (gd *Definition) PointToCell(x, y float64) (cid int, ok bool) {
	sn, cs := math.Sincos(gd.Rotation * math.Pi / 180.)
	dx, dy := x-gd.Eorig, y-gd.Norig
	u := dx*cs + dy*sn // along-column axis
	v := dx*sn - dy*cs // along-row axis (southward)
	col := int(math.Floor(u / gd.Cs))
	row := int(math.Floor(v / gd.Cs))
	if row < 0 || row >= gd.Nr || col < 0 || col >= gd.Nc {
		return -1, false
	}
	return row*gd.Nc + col, true
}

// CellPolygon the four (world-coordinate) corners of a cell, closed ring
func (gd *Definition) CellPolygon(cid int) geom.Polygon {
	r, c := gd.RowCol(cid)
	sn, cs := math.Sincos(gd.Rotation * math.Pi / 180.)
	pt := func(u, v float64) geom.Point {
		return geom.Point{X: gd.Eorig + u*cs + v*sn, Y: gd.Norig + u*sn - v*cs}
	}
	u0, v0 := float64(c)*gd.Cs, float64(r)*gd.Cs
	u1, v1 := u0+gd.Cs, v0+gd.Cs
	return geom.Polygon{{pt(u0, v1), pt(u1, v1), pt(u1, v0), pt(u0, v0), pt(u0, v1)}}
}

// Bounds the world-coordinate envelope of the (possibly rotated) grid
func (gd *Definition) Bounds() *geom.Bounds {
	sn, cs := math.Sincos(gd.Rotation * math.Pi / 180.)
	w, h := float64(gd.Nc)*gd.Cs, float64(gd.Nr)*gd.Cs
	xs := []float64{0., w * cs, w*cs + h*sn, h * sn}
	ys := []float64{0., w * sn, w*sn - h*cs, -h * cs}
	b := &geom.Bounds{
		Min: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for i := range xs {
		x, y := gd.Eorig+xs[i], gd.Norig+ys[i]
		b.Min.X = math.Min(b.Min.X, x)
		b.Min.Y = math.Min(b.Min.Y, y)
		b.Max.X = math.Max(b.Max.X, x)
		b.Max.Y = math.Max(b.Max.Y, y)
	}
	return b
}

// NullArray returns a full-grid array initialized to v
func (gd *Definition) NullArray(v float64) []float64 {
	a := make([]float64, gd.Ncells())
	for i := range a {
		a[i] = v
	}
	return a
}

// NullInt32 returns a full-grid int32 array initialized to v
func (gd *Definition) NullInt32(v int32) []int32 {
	a := make([]int32, gd.Ncells())
	for i := range a {
		a[i] = v
	}
	return a
}
