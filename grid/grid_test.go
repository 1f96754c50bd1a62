package grid

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(fp string, lns []string) error {
	return os.WriteFile(fp, []byte(strings.Join(lns, "\n")+"\n"), 0644)
}

const testProj4 = "+proj=utm +zone=17 +datum=NAD83 +units=m +no_defs"

func TestDefinitionCentroids(t *testing.T) {
	t.Parallel()

	t.Run("unrotated", func(t *testing.T) {
		t.Parallel()
		gd := NewDefinition("t", 1000., 2000., 0., 50., 2, 3, "")
		assert.Equal(t, 6, gd.Ncells())
		assert.Equal(t, 6, gd.Nactives())
		// cell 0: first row first column
		assert.InDelta(t, 1025., gd.Coord[0].X, 1e-9)
		assert.InDelta(t, 1975., gd.Coord[0].Y, 1e-9)
		// cell 5: second row third column
		assert.InDelta(t, 1125., gd.Coord[5].X, 1e-9)
		assert.InDelta(t, 1925., gd.Coord[5].Y, 1e-9)
	})

	t.Run("rotated 90 degrees", func(t *testing.T) {
		t.Parallel()
		// quarter CCW turn: column axis points +y, row axis points +x
		gd := NewDefinition("t", 0., 0., 90., 10., 1, 1, "")
		assert.InDelta(t, 5., gd.Coord[0].X, 1e-9)
		assert.InDelta(t, 5., gd.Coord[0].Y, 1e-9)
	})

	t.Run("centre", func(t *testing.T) {
		t.Parallel()
		gd := NewDefinition("t", 0., 0., 0., 10., 4, 4, "")
		c := gd.Centre()
		assert.InDelta(t, 20., c.X, 1e-9)
		assert.InDelta(t, -20., c.Y, 1e-9)
	})
}

func TestPointToCell(t *testing.T) {
	t.Parallel()
	for _, rot := range []float64{0., 17.5, 90., -33.} {
		gd := NewDefinition("t", 356000., 4865000., rot, 25., 11, 7, "")
		for cid, p := range gd.Coord {
			got, ok := gd.PointToCell(p.X, p.Y)
			require.True(t, ok, "rotation %v cell %d", rot, cid)
			require.Equal(t, cid, got, "rotation %v", rot)
		}
		// just outside the grid
		_, ok := gd.PointToCell(356000.-1., 4865000.+1.)
		assert.False(t, ok)
	}
}

func TestCellPolygon(t *testing.T) {
	t.Parallel()
	gd := NewDefinition("t", 0., 0., 30., 50., 3, 3, "")
	for _, cid := range []int{0, 4, 8} {
		p := gd.CellPolygon(cid)
		assert.InDelta(t, gd.CellArea(), math.Abs(p.Area()), 1e-6)
		b := p.Bounds()
		ctd := gd.Coord[cid]
		assert.True(t, b.Min.X <= ctd.X && ctd.X <= b.Max.X)
		assert.True(t, b.Min.Y <= ctd.Y && ctd.Y <= b.Max.Y)
	}
}

func TestBoundsCoverCentroids(t *testing.T) {
	t.Parallel()
	gd := NewDefinition("t", -500., 500., 12., 5., 9, 13, "")
	b := gd.Bounds()
	for _, p := range gd.Coord {
		assert.True(t, p.X >= b.Min.X && p.X <= b.Max.X)
		assert.True(t, p.Y >= b.Min.Y && p.Y <= b.Max.Y)
	}
}

func TestGDEFRoundTrip(t *testing.T) {
	t.Parallel()
	gd := NewDefinition("rt", 625000., 4830000., 5.5, 100., 4, 5, testProj4)
	gd.ResetActives([]int{0, 1, 2, 7, 8, 9, 13, 14})

	fp := filepath.Join(t.TempDir(), "rt.gdef")
	require.NoError(t, gd.SaveAs(fp))

	gd2, err := ReadGDEF(fp, false)
	require.NoError(t, err)
	assert.Equal(t, gd.Eorig, gd2.Eorig)
	assert.Equal(t, gd.Norig, gd2.Norig)
	assert.Equal(t, gd.Rotation, gd2.Rotation)
	assert.Equal(t, gd.Cs, gd2.Cs)
	assert.Equal(t, gd.Nr, gd2.Nr)
	assert.Equal(t, gd.Nc, gd2.Nc)
	assert.Equal(t, gd.Proj4, gd2.Proj4)
	if d := cmp.Diff(gd.Sactives, gd2.Sactives); d != "" {
		t.Errorf("actives mismatch (-want +got):\n%s", d)
	}
	assert.True(t, gd2.IsActive(8))
	assert.False(t, gd2.IsActive(3))
}

func TestGDEFIncomplete(t *testing.T) {
	t.Parallel()
	fp := filepath.Join(t.TempDir(), "bad.gdef")
	require.NoError(t, writeLines(fp, []string{"0.", "0.", "0."}))
	_, err := ReadGDEF(fp, false)
	assert.Error(t, err)
}

func TestGobRoundTrip(t *testing.T) {
	t.Parallel()
	gd := NewDefinition("gob", 1000., 1000., 0., 10., 3, 3, testProj4)
	gd.ResetActives([]int{1, 3, 5, 7})
	fp := filepath.Join(t.TempDir(), "gd.gob")
	require.NoError(t, gd.SaveGob(fp))
	gd2, err := LoadGobDefinition(fp)
	require.NoError(t, err)
	assert.Equal(t, gd.Nactives(), gd2.Nactives())
	assert.True(t, gd2.IsActive(5))
	assert.False(t, gd2.IsActive(0))
	assert.InDelta(t, gd.Coord[4].X, gd2.Coord[4].X, 1e-9)
}
