package sfincs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/maseology/mmio"
	"github.com/maseology/sfincs/grid"
	"github.com/maseology/sfincs/merge"
	"gopkg.in/yaml.v3"
)

// Manifest is the build control file: where the target grid comes from, the
// prioritized source stacks for each surface, river reaches to burn, mask
// rules, boundary forcings and solver parameters.
type Manifest struct {
	Name       string       `yaml:"name"`
	Gdef       string       `yaml:"gdef"` // grid definition file; alternative to grid:
	Grid       *GridSpec    `yaml:"grid"`
	Outdir     string       `yaml:"outdir"`
	Chkdir     string       `yaml:"chkdir"` // check-raster directory; empty derives <outdir>/check/
	Engine     EngineSpec   `yaml:"engine"`
	Dep        []LayerSpec  `yaml:"dep"`
	Manning    []LayerSpec  `yaml:"manning"`
	Rivers     *RiversSpec  `yaml:"rivers"`
	Mask       MaskSpec     `yaml:"mask"`
	Waterlevel *ForcingSpec `yaml:"waterlevel"`
	Discharge  *ForcingSpec `yaml:"discharge"`
	Config     ConfigSpec   `yaml:"config"`

	dir string // manifest directory, anchors relative paths
}

// GridSpec declares the target grid inline.
type GridSpec struct {
	Eorig    float64 `yaml:"eorig"`
	Norig    float64 `yaml:"norig"`
	Rotation float64 `yaml:"rotation"`
	Cs       float64 `yaml:"cs"`
	Nr       int     `yaml:"nr"`
	Nc       int     `yaml:"nc"`
	Proj4    string  `yaml:"proj4"`
}

// EngineSpec sets stack-wide merge behaviour.
type EngineSpec struct {
	DefaultMethod string `yaml:"default_method"`
	Concurrent    bool   `yaml:"concurrent"`
}

// LayerSpec declares one source raster in a merge stack. The source is either
// a raw float32 raster with its grid definition sidecar (bil + gdef) or a
// cached snapshot (gob).
type LayerSpec struct {
	Name   string        `yaml:"name"`
	Bil    string        `yaml:"bil"`
	Gdef   string        `yaml:"gdef"`
	Gob    string        `yaml:"gob"`
	Zmin   *float64      `yaml:"zmin"`
	Zmax   *float64      `yaml:"zmax"`
	Offset float64       `yaml:"offset"`
	Method string        `yaml:"method"`
	Interp string        `yaml:"interp"`
	Mask   [][][]float64 `yaml:"mask"` // polygon rings in target-grid coordinates
}

// RiversSpec declares reaches to burn, with stack-wide fallbacks.
type RiversSpec struct {
	Proj4   string      `yaml:"proj4"`
	Width   float64     `yaml:"width"`
	Depth   *float64    `yaml:"depth"`
	Manning *float64    `yaml:"manning"`
	Reaches []ReachSpec `yaml:"reaches"`
}

// ReachSpec one river reach; line vertices are [x,y] pairs.
type ReachSpec struct {
	Name    string      `yaml:"name"`
	Width   float64     `yaml:"width"`
	Depth   *float64    `yaml:"depth"`
	Zb      *float64    `yaml:"zb"`
	Manning *float64    `yaml:"manning"`
	Line    [][]float64 `yaml:"line"`
}

// MaskSpec controls cell classification.
type MaskSpec struct {
	Zmin       *float64      `yaml:"zmin"`
	Zmax       *float64      `yaml:"zmax"`
	DropArea   float64       `yaml:"drop_area"`
	FillArea   float64       `yaml:"fill_area"`
	Include    [][][]float64 `yaml:"include"`
	Exclude    [][][]float64 `yaml:"exclude"`
	Waterlevel *BoundSpec    `yaml:"waterlevel"`
	Outflow    *BoundSpec    `yaml:"outflow"`
}

// BoundSpec limits which perimeter cells take a boundary code.
type BoundSpec struct {
	Zmin    *float64      `yaml:"zmin"`
	Zmax    *float64      `yaml:"zmax"`
	Include [][][]float64 `yaml:"include"`
}

// ForcingSpec points at a series CSV and its locations CSV.
type ForcingSpec struct {
	Series    string `yaml:"series"`
	Locations string `yaml:"locations"`
}

// ConfigSpec carries run-parameter overrides; absent keys keep defaults.
type ConfigSpec struct {
	Tref      string   `yaml:"tref"`
	Tstart    string   `yaml:"tstart"`
	Tstop     string   `yaml:"tstop"`
	Dtout     *float64 `yaml:"dtout"`
	Dthisout  *float64 `yaml:"dthisout"`
	Alpha     *float64 `yaml:"alpha"`
	Theta     *float64 `yaml:"theta"`
	Huthresh  *float64 `yaml:"huthresh"`
	Manning   *float64 `yaml:"manning"`
	Rho       *float64 `yaml:"rho"`
	Zsini     *float64 `yaml:"zsini"`
	Advection *int     `yaml:"advection"`
	Epsg      int      `yaml:"epsg"`
	Utmzone   int      `yaml:"utmzone"` // derives the Coriolis latitude from the grid centre
}

// LoadManifest reads and validates a build control file.
func LoadManifest(fp string) (*Manifest, error) {
	b, err := os.ReadFile(fp)
	if err != nil {
		return nil, fmt.Errorf(" sfincs.LoadManifest %v", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf(" sfincs.LoadManifest %s: %v", fp, err)
	}
	if m.Name == "" {
		m.Name = mmio.FileName(fp, false)
	}
	m.dir = dirize(mmio.GetFileDir(fp))
	if err := m.check(); err != nil {
		return nil, fmt.Errorf(" sfincs.LoadManifest %s: %v", fp, err)
	}
	return &m, nil
}

// path anchors a manifest-relative path.
func (m *Manifest) path(fp string) string {
	if fp == "" || strings.HasPrefix(fp, "/") || strings.Contains(fp, ":") {
		return fp
	}
	return m.dir + fp
}

func (m *Manifest) check() error {
	if m.Gdef == "" && m.Grid == nil {
		return fmt.Errorf("no target grid: set gdef or grid")
	}
	if m.Gdef != "" && m.Grid != nil {
		return fmt.Errorf("set gdef or grid, not both")
	}
	if m.Gdef != "" {
		if _, ok := mmio.FileExists(m.path(m.Gdef)); !ok {
			return fmt.Errorf("gdef not found: %s", m.Gdef)
		}
	}
	if m.Grid != nil && (m.Grid.Cs <= 0. || m.Grid.Nr <= 0 || m.Grid.Nc <= 0) {
		return fmt.Errorf("grid needs positive cs, nr, nc")
	}
	if m.Outdir == "" {
		return fmt.Errorf("no outdir set")
	}
	if _, err := merge.ParseMethod(m.Engine.DefaultMethod); err != nil {
		return err
	}
	if len(m.Dep) == 0 {
		return fmt.Errorf("dep stack is empty")
	}
	for i, ls := range m.Dep {
		if err := ls.check(m); err != nil {
			return fmt.Errorf("dep layer %d (%s): %v", i, ls.Name, err)
		}
	}
	for i, ls := range m.Manning {
		if err := ls.check(m); err != nil {
			return fmt.Errorf("manning layer %d (%s): %v", i, ls.Name, err)
		}
	}
	if m.Rivers != nil {
		for i, rs := range m.Rivers.Reaches {
			if len(rs.Line) < 2 {
				return fmt.Errorf("river reach %d: need at least 2 vertices", i)
			}
			for _, v := range rs.Line {
				if len(v) != 2 {
					return fmt.Errorf("river reach %d: vertices are [x,y] pairs", i)
				}
			}
			if rs.Width <= 0. && m.Rivers.Width <= 0. {
				return fmt.Errorf("river reach %d: no width set", i)
			}
		}
	}
	for _, rings := range [][][][]float64{m.Mask.Include, m.Mask.Exclude} {
		for _, ring := range rings {
			if _, err := ringToPolygon([][][]float64{ring}); err != nil {
				return fmt.Errorf("mask: %v", err)
			}
		}
	}
	for _, bs := range []*BoundSpec{m.Mask.Waterlevel, m.Mask.Outflow} {
		if bs == nil {
			continue
		}
		for _, ring := range bs.Include {
			if _, err := ringToPolygon([][][]float64{ring}); err != nil {
				return fmt.Errorf("mask boundary: %v", err)
			}
		}
	}
	for _, fs := range []*ForcingSpec{m.Waterlevel, m.Discharge} {
		if fs == nil {
			continue
		}
		if fs.Series == "" || fs.Locations == "" {
			return fmt.Errorf("forcing needs series and locations")
		}
		for _, fp := range []string{fs.Series, fs.Locations} {
			if _, ok := mmio.FileExists(m.path(fp)); !ok {
				return fmt.Errorf("forcing file not found: %s", fp)
			}
		}
		if m.Config.Tstart == "" {
			return fmt.Errorf("forcing needs config tstart/tstop")
		}
	}
	if _, _, _, err := m.times(); err != nil {
		return err
	}
	return nil
}

func (ls *LayerSpec) check(m *Manifest) error {
	gobbed := ls.Gob != ""
	billed := ls.Bil != "" && ls.Gdef != ""
	if gobbed == billed {
		return fmt.Errorf("set bil+gdef or gob")
	}
	for _, fp := range []string{ls.Bil, ls.Gdef, ls.Gob} {
		if fp == "" {
			continue
		}
		if _, ok := mmio.FileExists(m.path(fp)); !ok {
			return fmt.Errorf("source not found: %s", fp)
		}
	}
	if _, err := merge.ParseMethod(ls.Method); err != nil {
		return err
	}
	if _, err := merge.ParseInterp(ls.Interp); err != nil {
		return err
	}
	if ls.Zmin != nil && ls.Zmax != nil && *ls.Zmin > *ls.Zmax {
		return fmt.Errorf("zmin %v exceeds zmax %v", *ls.Zmin, *ls.Zmax)
	}
	if len(ls.Mask) > 0 {
		if _, err := ringToPolygon(ls.Mask); err != nil {
			return err
		}
	}
	return nil
}

var manifestStamps = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

func parseManifestTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range manifestStamps {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// times resolves the run window: tstart/tstop required together, tref
// defaults to tstart.
func (m *Manifest) times() (tref, tstart, tstop time.Time, _ error) {
	var err error
	if (m.Config.Tstart == "") != (m.Config.Tstop == "") {
		return tref, tstart, tstop, fmt.Errorf("config: tstart and tstop come together")
	}
	if m.Config.Tstart != "" {
		if tstart, err = parseManifestTime(m.Config.Tstart); err != nil {
			return tref, tstart, tstop, fmt.Errorf("config tstart: %v", err)
		}
		if tstop, err = parseManifestTime(m.Config.Tstop); err != nil {
			return tref, tstart, tstop, fmt.Errorf("config tstop: %v", err)
		}
		if !tstop.After(tstart) {
			return tref, tstart, tstop, fmt.Errorf("config: tstop must follow tstart")
		}
	}
	tref = tstart
	if m.Config.Tref != "" {
		if tref, err = parseManifestTime(m.Config.Tref); err != nil {
			return tref, tstart, tstop, fmt.Errorf("config tref: %v", err)
		}
	}
	return tref, tstart, tstop, nil
}

// ringToPolygon converts manifest rings ([[x,y],...] lists) to a polygon,
// closing each ring when the input leaves it open.
func ringToPolygon(rings [][][]float64) (geom.Polygon, error) {
	p := make(geom.Polygon, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 3 {
			return nil, fmt.Errorf("polygon ring needs at least 3 vertices")
		}
		r := make([]geom.Point, 0, len(ring)+1)
		for _, v := range ring {
			if len(v) != 2 {
				return nil, fmt.Errorf("polygon vertices are [x,y] pairs")
			}
			r = append(r, geom.Point{X: v[0], Y: v[1]})
		}
		if r[0] != r[len(r)-1] {
			r = append(r, r[0])
		}
		p = append(p, r)
	}
	return p, nil
}

func ringsToPolygonals(rings [][][]float64) ([]geom.Polygonal, error) {
	if len(rings) == 0 {
		return nil, nil
	}
	pp := make([]geom.Polygonal, 0, len(rings))
	for _, ring := range rings {
		p, err := ringToPolygon([][][]float64{ring})
		if err != nil {
			return nil, err
		}
		pp = append(pp, p)
	}
	return pp, nil
}

// grid materializes the target grid definition.
func (m *Manifest) grid() (*grid.Definition, error) {
	if m.Gdef != "" {
		gd, err := grid.ReadGDEF(m.path(m.Gdef), true)
		if err != nil {
			return nil, err
		}
		return gd, nil
	}
	g := m.Grid
	return grid.NewDefinition(m.Name, g.Eorig, g.Norig, g.Rotation, g.Cs, g.Nr, g.Nc, g.Proj4), nil
}

// config materializes run parameters from defaults plus overrides.
func (m *Manifest) config(gd *grid.Definition) (Config, error) {
	c := NewConfig()
	var err error
	if c.Tref, c.Tstart, c.Tstop, err = m.times(); err != nil {
		return c, err
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Dtout, m.Config.Dtout)
	set(&c.Dthisout, m.Config.Dthisout)
	set(&c.Alpha, m.Config.Alpha)
	set(&c.Theta, m.Config.Theta)
	set(&c.Huthresh, m.Config.Huthresh)
	set(&c.Manning, m.Config.Manning)
	set(&c.Rho, m.Config.Rho)
	set(&c.Zsini, m.Config.Zsini)
	if m.Config.Advection != nil {
		c.Advection = *m.Config.Advection
	}
	c.Epsg = m.Config.Epsg
	if m.Config.Utmzone > 0 {
		if err := c.SetLatitude(gd, m.Config.Utmzone); err != nil {
			return c, err
		}
	}
	return c, nil
}
