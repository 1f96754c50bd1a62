package sfincs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maseology/sfincs/mask"
	"github.com/maseology/sfincs/merge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDemoSources lays out a complete build input set under dir: a column
// gradient DEM (v = col - 2.5), a 2x2 overwrite patch in the northwest
// corner, a constant roughness grid and an hourly waterlevel record.
func writeDemoSources(t *testing.T, dir string) string {
	t.Helper()
	writeTestDEM(t, dir)

	patch := merge.NewRaster("patch", 0., 150., 25., 25., 2, 2, "")
	patch.Fill(9.)
	require.NoError(t, patch.SaveGob(filepath.Join(dir, "patch.gob")))

	lc := merge.NewRaster("landcover", 0., 150., 25., 25., 6, 8, "")
	lc.Fill(.03)
	require.NoError(t, lc.SaveGob(filepath.Join(dir, "man.gob")))

	var sb strings.Builder
	sb.WriteString("time,w1,w2\n")
	for h := 0; h <= 12; h++ {
		sb.WriteString(fmt.Sprintf("2020-01-01 %02d:00,0.50,0.70\n", h))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wl.csv"), []byte(sb.String()), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wl_locations.csv"),
		[]byte("name,x,y\nw1,-10.0,87.5\nw2,210.0,87.5\n"), 0644))

	return writeManifest(t, dir, `
name: demo
grid:
  eorig: 0.0
  norig: 150.0
  cs: 25.0
  nr: 6
  nc: 8
outdir: out
engine:
  default_method: first
dep:
  - name: base
    bil: dem.bil
    gdef: dem.gdef
  - name: patch
    gob: patch.gob
    method: last
    interp: nearest
manning:
  - name: landcover
    gob: man.gob
rivers:
  width: 25.0
  depth: 1.0
  manning: 0.035
  reaches:
    - name: main
      line: [[0.0, 87.5], [200.0, 87.5]]
mask:
  waterlevel:
    zmax: -1.0
  outflow:
    zmin: 2.0
waterlevel:
  series: wl.csv
  locations: wl_locations.csv
config:
  tstart: '2020-01-01 00:00'
  tstop: '2020-01-01 12:00'
  alpha: 0.75
  epsg: 26917
`)
}

func TestBuildEndToEnd(t *testing.T) {
	dir := t.TempDir()
	mdl, err := Build(writeDemoSources(t, dir))
	require.NoError(t, err)
	gd := mdl.GD
	require.Equal(t, 6, gd.Nr)
	require.Equal(t, 8, gd.Nc)

	// surfaces: patch overwrites the northwest 2x2, the reach cuts 1 m off
	// row 2 and stamps the channel roughness
	assert.InDelta(t, 9., mdl.Dep[gd.CellID(0, 0)], 1e-12)
	assert.InDelta(t, 9., mdl.Dep[gd.CellID(1, 1)], 1e-12)
	assert.InDelta(t, 1.5, mdl.Dep[gd.CellID(3, 4)], 1e-12)
	assert.InDelta(t, -.5, mdl.Dep[gd.CellID(2, 3)], 1e-12)
	assert.InDelta(t, -3.5, mdl.Dep[gd.CellID(2, 0)], 1e-12)
	assert.InDelta(t, .03, mdl.Man[gd.CellID(0, 3)], 1e-12)
	assert.InDelta(t, .035, mdl.Man[gd.CellID(2, 5)], 1e-12)

	// provenance
	require.Len(t, mdl.DepRep, 2)
	assert.Equal(t, "base", mdl.DepRep[0].Layer)
	assert.Equal(t, 48, mdl.DepRep[0].Napplied)
	assert.Equal(t, 4, mdl.DepRep[1].Napplied)
	require.NotNil(t, mdl.BurnRep)
	assert.Equal(t, 8, mdl.BurnRep.Ncells)

	// mask: deep west edge takes waterlevel, high ground on the perimeter
	// takes outflow (patch corner included)
	cnt := mask.Counts(mdl.Msk)
	assert.Equal(t, 5, cnt[mask.Waterlevel])
	assert.Equal(t, 13, cnt[mask.Outflow])
	assert.Equal(t, 30, cnt[mask.Active])
	assert.Zero(t, cnt[mask.Inactive])
	assert.Equal(t, mask.Waterlevel, mdl.Msk[gd.CellID(2, 0)])
	assert.Equal(t, mask.Outflow, mdl.Msk[gd.CellID(0, 7)])
	assert.Equal(t, mask.Outflow, mdl.Msk[gd.CellID(0, 0)])
	assert.Equal(t, mask.Active, mdl.Msk[gd.CellID(3, 3)])

	// config
	assert.InDelta(t, .75, mdl.Cfg.Alpha, 1e-12)
	assert.Equal(t, 26917, mdl.Cfg.Epsg)
	assert.True(t, mdl.Cfg.Tref.Equal(mdl.Cfg.Tstart))

	outdir := filepath.Join(dir, "out")
	for fn, size := range map[string]int64{
		"sfincs.dep": 192, "sfincs.man": 192, "sfincs.msk": 48,
	} {
		fi, err := os.Stat(filepath.Join(outdir, fn))
		require.NoError(t, err, fn)
		assert.Equal(t, size, fi.Size(), fn)
	}
	for _, fn := range []string{
		"sfincs.inp", "sfincs.gdef", "sfincs.bnd", "sfincs.bzs",
		"demo.dep.gob", "demo.model.gob",
		"check/model.dep.bil", "check/model.dep.hdr", "check/model.msk.bil",
	} {
		_, err := os.Stat(filepath.Join(outdir, fn))
		require.NoError(t, err, fn)
	}
}

func TestBuildModelFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Build(writeDemoSources(t, dir))
	require.NoError(t, err)
	outdir := filepath.Join(dir, "out")

	// binary surfaces decode back cell for cell
	b, err := os.ReadFile(filepath.Join(outdir, "sfincs.dep"))
	require.NoError(t, err)
	f32 := make([]float32, 48)
	require.NoError(t, binary.Read(bytes.NewReader(b), binary.LittleEndian, f32))
	assert.InDelta(t, 9., f32[0], 1e-6)
	assert.InDelta(t, -.5, f32[19], 1e-6)  // row 2 col 3, burned
	assert.InDelta(t, -3.5, f32[16], 1e-6) // row 2 col 0

	bmsk, err := os.ReadFile(filepath.Join(outdir, "sfincs.msk"))
	require.NoError(t, err)
	assert.Equal(t, byte(mask.Outflow), bmsk[0])
	assert.Equal(t, byte(mask.Waterlevel), bmsk[16])
	assert.Equal(t, byte(mask.Active), bmsk[19])

	// the input file recovers config and grid geometry
	cfg, gd, err := ReadInp(filepath.Join(outdir, "sfincs.inp"))
	require.NoError(t, err)
	assert.Equal(t, 6, gd.Nr)
	assert.Equal(t, 8, gd.Nc)
	assert.InDelta(t, 0., gd.Eorig, 1e-6)
	assert.InDelta(t, 150., gd.Norig, 1e-6)
	assert.InDelta(t, .75, cfg.Alpha, 1e-12)
	assert.Equal(t, 26917, cfg.Epsg)
	assert.Equal(t, 2020, cfg.Tstart.Year())

	// forcing files: coordinates then seconds-since-tref series
	bnd, err := os.ReadFile(filepath.Join(outdir, "sfincs.bnd"))
	require.NoError(t, err)
	ff := strings.Fields(strings.Split(string(bnd), "\n")[0])
	assert.Equal(t, []string{"-10.00", "87.50"}, ff)

	bzs, err := os.ReadFile(filepath.Join(outdir, "sfincs.bzs"))
	require.NoError(t, err)
	ff = strings.Fields(strings.Split(string(bzs), "\n")[0])
	assert.Equal(t, []string{"0.0", "0.50", "0.70"}, ff)
	ff = strings.Fields(strings.Split(string(bzs), "\n")[1])
	assert.Equal(t, "3600.0", ff[0])

	// cached artifacts reload
	rs, err := merge.LoadGobRaster(filepath.Join(outdir, "demo.dep.gob"))
	require.NoError(t, err)
	assert.InDelta(t, 9., rs.Value(0, 0), 1e-12)

	mdl2, err := LoadGobModel(filepath.Join(outdir, "demo.model.gob"))
	require.NoError(t, err)
	assert.True(t, mdl2.GD.IsActive(0))
	assert.InDelta(t, 9., mdl2.Dep[0], 1e-12)
	assert.Equal(t, 13, mask.Counts(mdl2.Msk)[mask.Outflow])
}
