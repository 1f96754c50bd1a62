package merge

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"math"
	"os"

	"github.com/ctessum/sparse"
	"github.com/maseology/sfincs/grid"
)

// Raster a source grid of scalar values over its own axis-aligned 2D
// coordinate space. (Xul,Yul) is the upper-left corner; cell sizes Dx,Dy are
// positive, rows advancing southward. Sources declare their own reference
// and resolution and are never assumed co-registered with the target grid.
type Raster struct {
	Z        *sparse.DenseArray // shape [Nr][Nc]
	Name     string
	Proj4    string
	Xul, Yul float64
	Dx, Dy   float64
	Nr, Nc   int
	Nodata   float64
}

// NewRaster allocates a zeroed raster.
func NewRaster(name string, xul, yul, dx, dy float64, nr, nc int, proj4 string) *Raster {
	if dx <= 0. || dy <= 0. || nr <= 0 || nc <= 0 {
		panic("merge.NewRaster: invalid dimensioning")
	}
	return &Raster{
		Name:   name,
		Xul:    xul,
		Yul:    yul,
		Dx:     dx,
		Dy:     dy,
		Nr:     nr,
		Nc:     nc,
		Proj4:  proj4,
		Nodata: -9999.,
		Z:      sparse.ZerosDense(nr, nc),
	}
}

// Fill sets every cell to v.
func (rs *Raster) Fill(v float64) {
	for r := 0; r < rs.Nr; r++ {
		for c := 0; c < rs.Nc; c++ {
			rs.Z.Set(v, r, c)
		}
	}
}

// Value returns the cell value, NaN for no-data or out-of-raster addresses.
func (rs *Raster) Value(r, c int) float64 {
	if r < 0 || r >= rs.Nr || c < 0 || c >= rs.Nc {
		return math.NaN()
	}
	v := rs.Z.Get(r, c)
	if v == rs.Nodata || math.IsNaN(v) {
		return math.NaN()
	}
	return v
}

// SampleNearest returns the value of the cell containing (x,y), coordinates
// in the raster's own reference. NaN outside the raster extent.
func (rs *Raster) SampleNearest(x, y float64) float64 {
	c := int(math.Floor((x - rs.Xul) / rs.Dx))
	r := int(math.Floor((rs.Yul - y) / rs.Dy))
	return rs.Value(r, c)
}

// SampleBilinear interpolates between the four cell centroids surrounding
// (x,y). Corners falling off the raster are clamped to the edge row/column.
// No-data corners are excluded and the remaining weights renormalized, so a
// no-data cell sampled at its own centroid stays no-data rather than being
// filled from its neighbours. NaN outside the raster extent.
func (rs *Raster) SampleBilinear(x, y float64) float64 {
	if x < rs.Xul || x > rs.Xul+float64(rs.Nc)*rs.Dx || y > rs.Yul || y < rs.Yul-float64(rs.Nr)*rs.Dy {
		return math.NaN()
	}
	fx := (x-rs.Xul)/rs.Dx - .5
	fy := (rs.Yul-y)/rs.Dy - .5
	c0, r0 := int(math.Floor(fx)), int(math.Floor(fy))
	wx, wy := fx-float64(c0), fy-float64(r0)
	clamp := func(i, n int) int {
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
	c0c, c1c := clamp(c0, rs.Nc), clamp(c0+1, rs.Nc)
	r0c, r1c := clamp(r0, rs.Nr), clamp(r0+1, rs.Nr)

	vsum, wsum := 0., 0.
	for _, cnr := range [4]struct {
		v, w float64
	}{
		{rs.Value(r0c, c0c), (1. - wx) * (1. - wy)},
		{rs.Value(r0c, c1c), wx * (1. - wy)},
		{rs.Value(r1c, c0c), (1. - wx) * wy},
		{rs.Value(r1c, c1c), wx * wy},
	} {
		if !math.IsNaN(cnr.v) {
			vsum += cnr.v * cnr.w
			wsum += cnr.w
		}
	}
	if wsum == 0. {
		return math.NaN()
	}
	return vsum / wsum
}

// FromGrid recasts a full-grid value array as a Raster sharing the grid's
// georeference. Rotated grids cannot be expressed as an axis-aligned source.
func FromGrid(gd *grid.Definition, vals []float64, name string) (*Raster, error) {
	if math.Abs(gd.Rotation) > 1e-8 {
		return nil, fmt.Errorf("merge.FromGrid: %s is rotated; axis-aligned sources only", gd.Name)
	}
	if len(vals) != gd.Ncells() {
		return nil, fmt.Errorf("merge.FromGrid: have %d values, need %d", len(vals), gd.Ncells())
	}
	rs := NewRaster(name, gd.Eorig, gd.Norig, gd.Cs, gd.Cs, gd.Nr, gd.Nc, gd.Proj4)
	for r := 0; r < gd.Nr; r++ {
		for c := 0; c < gd.Nc; c++ {
			rs.Z.Set(vals[r*gd.Nc+c], r, c)
		}
	}
	return rs, nil
}

// ReadBil32 imports a flat little-endian float32 raster with its GDEF
// sidecar carrying the georeference. -9999 reads as no-data.
func ReadBil32(gdefFP, bilFP string) (*Raster, error) {
	gd, err := grid.ReadGDEF(gdefFP, false)
	if err != nil {
		return nil, fmt.Errorf(" merge.ReadBil32: %v", err)
	}
	if math.Abs(gd.Rotation) > 1e-8 {
		return nil, fmt.Errorf(" merge.ReadBil32: %s: rotated source rasters not supported", gdefFP)
	}
	b, err := os.ReadFile(bilFP)
	if err != nil {
		return nil, fmt.Errorf(" merge.ReadBil32: %v", err)
	}
	n := gd.Ncells()
	if len(b) != 4*n {
		return nil, fmt.Errorf(" merge.ReadBil32: %s: have %d bytes, need %d", bilFP, len(b), 4*n)
	}
	f32 := make([]float32, n)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, f32); err != nil {
		return nil, fmt.Errorf(" merge.ReadBil32: %v", err)
	}
	rs := NewRaster(gd.Name, gd.Eorig, gd.Norig, gd.Cs, gd.Cs, gd.Nr, gd.Nc, gd.Proj4)
	for r := 0; r < gd.Nr; r++ {
		for c := 0; c < gd.Nc; c++ {
			rs.Z.Set(float64(f32[r*gd.Nc+c]), r, c)
		}
	}
	return rs, nil
}

// SaveGob caches the raster to a binary snapshot
func (rs *Raster) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" raster.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(rs); err != nil {
		return fmt.Errorf(" raster.SaveGob %v", err)
	}
	f.Close()
	return nil
}

// LoadGobRaster recovers a cached raster
func LoadGobRaster(fp string) (*Raster, error) {
	var rs Raster
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	enc := gob.NewDecoder(f)
	err = enc.Decode(&rs)
	if err != nil {
		return nil, err
	}
	f.Close()
	return &rs, nil
}
