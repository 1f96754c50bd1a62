package mask

import (
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/maseology/sfincs/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(nr, nc int, cs float64) *grid.Definition {
	return grid.NewDefinition("test", 0., float64(nr)*cs, 0., cs, nr, nc, "")
}

func fptr(v float64) *float64 { return &v }

// flat builds a constant elevation surface with optional NaN holes.
func flat(gd *grid.Definition, v float64, holes ...int) []float64 {
	z := make([]float64, gd.Ncells())
	for i := range z {
		z[i] = v
	}
	for _, cid := range holes {
		z[cid] = math.NaN()
	}
	return z
}

func TestActiveCells(t *testing.T) {
	gd := testGrid(3, 4, 50.)

	t.Run("finite elevation in bounds goes active", func(t *testing.T) {
		z := make([]float64, gd.Ncells())
		for cid := range z {
			z[cid] = float64(cid)
		}
		z[7] = math.NaN()
		msk, err := ActiveCells(gd, z, ActiveOpts{Zmax: fptr(5.)})
		require.NoError(t, err)
		for cid := 0; cid < gd.Ncells(); cid++ {
			if cid <= 5 {
				assert.Equal(t, Active, msk[cid], "cell %d", cid)
			} else {
				assert.Equal(t, Inactive, msk[cid], "cell %d", cid)
			}
		}
	})

	t.Run("zmin bound", func(t *testing.T) {
		msk, err := ActiveCells(gd, flat(gd, -3.), ActiveOpts{Zmin: fptr(0.)})
		require.NoError(t, err)
		assert.Equal(t, gd.Ncells(), Counts(msk)[Inactive])
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := ActiveCells(gd, []float64{1., 2.}, ActiveOpts{})
		assert.Error(t, err)
	})
}

func TestActiveCellsGeometry(t *testing.T) {
	gd := testGrid(3, 4, 50.) // x [0,200], y [0,150]
	leftCol := geom.Polygon{{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 150}, {X: 0, Y: 150}, {X: 0, Y: 0}}}
	rightCol := geom.Polygon{{{X: 150, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 150}, {X: 150, Y: 150}, {X: 150, Y: 0}}}

	t.Run("include overrides the elevation bounds", func(t *testing.T) {
		msk, err := ActiveCells(gd, flat(gd, 10.), ActiveOpts{
			Zmax:    fptr(5.),
			Include: []geom.Polygonal{leftCol},
		})
		require.NoError(t, err)
		for cid := 0; cid < gd.Ncells(); cid++ {
			_, c := gd.RowCol(cid)
			if c == 0 {
				assert.Equal(t, Active, msk[cid], "cell %d", cid)
			} else {
				assert.Equal(t, Inactive, msk[cid], "cell %d", cid)
			}
		}
	})

	t.Run("include cannot activate cells without elevation", func(t *testing.T) {
		msk, err := ActiveCells(gd, flat(gd, 10., 0, 4, 8), ActiveOpts{
			Zmax:    fptr(5.),
			Include: []geom.Polygonal{leftCol},
		})
		require.NoError(t, err)
		assert.Equal(t, Inactive, msk[0])
		assert.Equal(t, Inactive, msk[4])
		assert.Equal(t, Inactive, msk[8])
	})

	t.Run("exclude wins over elevation", func(t *testing.T) {
		msk, err := ActiveCells(gd, flat(gd, 1.), ActiveOpts{
			Exclude: []geom.Polygonal{rightCol},
		})
		require.NoError(t, err)
		for cid := 0; cid < gd.Ncells(); cid++ {
			_, c := gd.RowCol(cid)
			if c == 3 {
				assert.Equal(t, Inactive, msk[cid], "cell %d", cid)
			} else {
				assert.Equal(t, Active, msk[cid], "cell %d", cid)
			}
		}
	})
}

func TestActiveCellsRegionCleanup(t *testing.T) {
	t.Run("drop small patches", func(t *testing.T) {
		gd := testGrid(3, 5, 50.)
		// column 0 isolated by a NaN column 1; columns 2-4 form the main body
		z := flat(gd, 1., 1, 6, 11)
		msk, err := ActiveCells(gd, z, ActiveOpts{DropArea: 4. * gd.CellArea()})
		require.NoError(t, err)
		for cid := 0; cid < gd.Ncells(); cid++ {
			_, c := gd.RowCol(cid)
			switch {
			case c <= 1:
				assert.Equal(t, Inactive, msk[cid], "cell %d", cid)
			default:
				assert.Equal(t, Active, msk[cid], "cell %d", cid)
			}
		}
	})

	t.Run("fill enclosed pockets", func(t *testing.T) {
		gd := testGrid(5, 5, 50.)
		msk, err := ActiveCells(gd, flat(gd, 1., 12), ActiveOpts{FillArea: 2. * gd.CellArea()})
		require.NoError(t, err)
		assert.Equal(t, Active, msk[12], "hole at the domain centre filled")
		assert.Equal(t, gd.Ncells(), Counts(msk)[Active])
	})

	t.Run("pockets on the domain edge stay open", func(t *testing.T) {
		gd := testGrid(5, 5, 50.)
		msk, err := ActiveCells(gd, flat(gd, 1., 2), ActiveOpts{FillArea: 2. * gd.CellArea()})
		require.NoError(t, err)
		assert.Equal(t, Inactive, msk[2])
	})

	t.Run("large pockets stay open", func(t *testing.T) {
		gd := testGrid(5, 5, 50.)
		msk, err := ActiveCells(gd, flat(gd, 1., 12), ActiveOpts{FillArea: gd.CellArea()})
		require.NoError(t, err)
		assert.Equal(t, Inactive, msk[12])
	})
}

func TestBoundaryMarking(t *testing.T) {
	gd := testGrid(4, 4, 50.)
	z := make([]float64, gd.Ncells())
	for cid := range z {
		_, c := gd.RowCol(cid)
		z[cid] = []float64{-2., -1., 1., 2.}[c] // west shore to east upland
	}

	msk, err := ActiveCells(gd, z, ActiveOpts{})
	require.NoError(t, err)

	nwl, err := SetWaterlevel(gd, msk, z, BoundOpts{Zmax: fptr(0.)})
	require.NoError(t, err)
	assert.Equal(t, 6, nwl) // col 0 rim plus col 1 top/bottom

	nof, err := SetOutflow(gd, msk, z, BoundOpts{Zmin: fptr(0.)})
	require.NoError(t, err)
	assert.Equal(t, 6, nof)

	cnt := Counts(msk)
	assert.Equal(t, 6, cnt[Waterlevel])
	assert.Equal(t, 6, cnt[Outflow])
	assert.Equal(t, 4, cnt[Active], "interior cells keep code 1")
	require.NoError(t, Validate(gd, msk))

	t.Run("restricted by include geometry", func(t *testing.T) {
		msk, err := ActiveCells(gd, z, ActiveOpts{})
		require.NoError(t, err)
		south := geom.Polygon{{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 50}, {X: 0, Y: 50}, {X: 0, Y: 0}}}
		n, err := SetWaterlevel(gd, msk, z, BoundOpts{Include: []geom.Polygonal{south}})
		require.NoError(t, err)
		assert.Equal(t, 4, n, "bottom row only")
	})
}

func TestValidate(t *testing.T) {
	gd := testGrid(4, 4, 50.)

	t.Run("boundary label off the domain edge", func(t *testing.T) {
		msk := make([]int8, gd.Ncells())
		for i := range msk {
			msk[i] = Active
		}
		msk[gd.CellID(1, 1)] = Waterlevel
		assert.Error(t, Validate(gd, msk))
	})

	t.Run("unknown code", func(t *testing.T) {
		msk := make([]int8, gd.Ncells())
		msk[0] = 7
		assert.Error(t, Validate(gd, msk))
	})

	t.Run("label outside the active set", func(t *testing.T) {
		gd := testGrid(2, 2, 50.)
		gd.ResetActives([]int{0, 1})
		msk := []int8{1, 1, 1, 0}
		assert.Error(t, Validate(gd, msk))
	})

	t.Run("length mismatch", func(t *testing.T) {
		assert.Error(t, Validate(gd, []int8{1}))
	})
}
