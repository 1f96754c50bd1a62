package merge

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/maseology/sfincs/grid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LayerReport tallies one layer's contribution to a merge.
type LayerReport struct {
	Layer     string
	Method    Method
	Interp    Interp
	Ncells    int // active target cells considered
	Napplied  int // cells this layer produced a value for
	Nfiltered int // resampled values dropped by the elevation filter
	Nmasked   int // cells excluded by the layer mask
}

// Result is a merged surface aligned with the target grid's cell IDs.
type Result struct {
	GD     *grid.Definition
	Z      []float64 // by cell ID; NaN where no layer contributed
	RunID  uuid.UUID
	Report []LayerReport
}

// Valid returns the finite merged values in cell-ID order.
func (r *Result) Valid() []float64 {
	vs := make([]float64, 0, len(r.GD.Sactives))
	for _, cid := range r.GD.Sactives {
		if v := r.Z[cid]; !math.IsNaN(v) {
			vs = append(vs, v)
		}
	}
	return vs
}

// Coverage returns the fraction of active cells holding a merged value.
func (r *Result) Coverage() float64 {
	if r.GD.Nactives() == 0 {
		return 0.
	}
	return float64(len(r.Valid())) / float64(r.GD.Nactives())
}

// Filled returns a full-grid copy of Z with NaN replaced by nodata, for
// writers that cannot carry NaN.
func (r *Result) Filled(nodata float64) []float64 {
	out := make([]float64, len(r.Z))
	for i, v := range r.Z {
		if math.IsNaN(v) {
			out[i] = nodata
		} else {
			out[i] = v
		}
	}
	return out
}

// Summary prints one line of summary statistics over the merged surface.
func (r *Result) Summary() string {
	vs := r.Valid()
	if len(vs) == 0 {
		return fmt.Sprintf("run %s: %d layers, no cells covered", r.RunID, len(r.Report))
	}
	return fmt.Sprintf("run %s: %d layers, %d/%d cells (%.1f%%), z [%.3f, %.3f], mean %.3f, sd %.3f",
		r.RunID, len(r.Report), len(vs), r.GD.Nactives(), 100.*r.Coverage(),
		floats.Min(vs), floats.Max(vs), stat.Mean(vs, nil), stat.StdDev(vs, nil))
}
