package merge

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom"
)

// Method is the policy combining a layer's valid values with the running
// output wherever both exist. The zero value defers to the engine default.
type Method string

const (
	First Method = "first" // fill no-data cells only (earlier layers authoritative)
	Last  Method = "last"  // overwrite wherever this layer is valid
	Mean  Method = "mean"  // running average over covering layers
	Max   Method = "max"   // cellwise maximum, no-data treated as absent
	Min   Method = "min"   // cellwise minimum, no-data treated as absent
)

// ParseMethod reads a merge method name; empty defers to the engine default.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case "", First, Last, Mean, Max, Min:
		return m, nil
	default:
		return "", fmt.Errorf("merge: unknown merge method %q", s)
	}
}

// Interp selects the resampling kernel. The zero value means bilinear, the
// elevation-style default; categorical sources (land use, roughness classes)
// take Nearest.
type Interp string

const (
	Bilinear Interp = "bilinear"
	Nearest  Interp = "nearest"
)

// ParseInterp reads an interpolation name; empty means bilinear.
func ParseInterp(s string) (Interp, error) {
	switch i := Interp(strings.ToLower(strings.TrimSpace(s))); i {
	case "", Bilinear, Nearest:
		return i, nil
	default:
		return "", fmt.Errorf("merge: unknown interpolation %q", s)
	}
}

// Layer one prioritized entry in a merge stack. Constraints are optional:
// nil bounds are open, a zero offset is a no-op, a nil mask passes all
// cells. Bounds are evaluated on resampled, pre-offset values. The mask
// geometry is taken in the target grid's coordinate reference.
type Layer struct {
	Name   string
	Data   *Raster
	Zmin   *float64 // discard resampled values below
	Zmax   *float64 // discard resampled values above
	Offset float64  // added to surviving values
	Method Method
	Interp Interp
	Mask   geom.Polygonal // restrict contribution to cells at least half inside
}

func (l *Layer) check() error {
	if l.Data == nil {
		return fmt.Errorf("merge: layer %q has no raster", l.Name)
	}
	if _, err := ParseMethod(string(l.Method)); err != nil {
		return err
	}
	if _, err := ParseInterp(string(l.Interp)); err != nil {
		return err
	}
	if l.Zmin != nil && l.Zmax != nil && *l.Zmin > *l.Zmax {
		return fmt.Errorf("merge: layer %q zmin %v exceeds zmax %v", l.Name, *l.Zmin, *l.Zmax)
	}
	return nil
}
