package sfincs

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/maseology/sfincs/burn"
	"github.com/maseology/sfincs/grid"
	"github.com/maseology/sfincs/merge"
)

// layers materializes a merge stack from its specs. def fills unset interp
// kernels: bilinear for elevation stacks, nearest for roughness classes.
func (m *Manifest) layers(specs []LayerSpec, def merge.Interp) ([]merge.Layer, error) {
	lyrs := make([]merge.Layer, len(specs))
	for i, ls := range specs {
		var rs *merge.Raster
		var err error
		if ls.Gob != "" {
			rs, err = merge.LoadGobRaster(m.path(ls.Gob))
		} else {
			rs, err = merge.ReadBil32(m.path(ls.Gdef), m.path(ls.Bil))
		}
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %v", i, ls.Name, err)
		}

		mth, _ := merge.ParseMethod(ls.Method) // validated at decode
		itp, _ := merge.ParseInterp(ls.Interp)
		if itp == "" {
			itp = def
		}
		lyr := merge.Layer{
			Name:   ls.Name,
			Data:   rs,
			Zmin:   ls.Zmin,
			Zmax:   ls.Zmax,
			Offset: ls.Offset,
			Method: mth,
			Interp: itp,
		}
		if lyr.Name == "" {
			lyr.Name = rs.Name
		}
		if len(ls.Mask) > 0 {
			p, err := ringToPolygon(ls.Mask)
			if err != nil {
				return nil, fmt.Errorf("layer %d (%s): %v", i, ls.Name, err)
			}
			lyr.Mask = p
		}
		lyrs[i] = lyr
	}
	return lyrs, nil
}

// buildSurface merges one prioritized stack onto the target grid.
func (m *Manifest) buildSurface(gd *grid.Definition, specs []LayerSpec, def merge.Interp, diag func(string, ...interface{})) (*merge.Result, error) {
	lyrs, err := m.layers(specs, def)
	if err != nil {
		return nil, err
	}
	eng := merge.Engine{GD: gd, Concurrent: m.Engine.Concurrent, Diag: diag}
	eng.Default, _ = merge.ParseMethod(m.Engine.DefaultMethod) // validated at decode
	return eng.Merge(lyrs)
}

// rivers materializes the burn set; nil when the manifest carries none.
func (m *Manifest) rivers() (burn.Set, burn.Opts) {
	var s burn.Set
	var o burn.Opts
	if m.Rivers == nil {
		return s, o
	}
	s.Proj4 = m.Rivers.Proj4
	o.Width = m.Rivers.Width
	o.Depth = m.Rivers.Depth
	o.Manning = m.Rivers.Manning
	s.Rivers = make([]burn.River, len(m.Rivers.Reaches))
	for i, rs := range m.Rivers.Reaches {
		ln := make(geom.LineString, len(rs.Line))
		for j, v := range rs.Line {
			ln[j] = geom.Point{X: v[0], Y: v[1]}
		}
		s.Rivers[i] = burn.River{
			Name:    rs.Name,
			Line:    ln,
			Width:   rs.Width,
			Depth:   rs.Depth,
			Zb:      rs.Zb,
			Manning: rs.Manning,
		}
	}
	return s, o
}
