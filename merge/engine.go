package merge

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/maseology/sfincs/grid"
)

// Engine resamples prioritized source layers onto a target grid and combines
// them cell by cell. Layers are independent until the combine step, so
// resampling optionally fans out one goroutine per layer; combination always
// honours list order.
type Engine struct {
	GD         *grid.Definition                      // target grid definition
	Default    Method                                // applied where a layer leaves its method unset
	Concurrent bool                                  // resample layers in parallel
	Diag       func(format string, a ...interface{}) // optional diagnostics; must be goroutine-safe when Concurrent
}

// Merge builds the merged surface from an ordered layer stack. Earlier layers
// take priority under the first method; see Method for the alternatives.
func (e *Engine) Merge(lyrs []Layer) (*Result, error) {
	if e.GD == nil {
		return nil, fmt.Errorf("merge: no target grid definition")
	}
	if len(lyrs) == 0 {
		return nil, ErrEmptyLayerList
	}
	def := e.Default
	if def == "" {
		def = First
	}
	for i := range lyrs {
		if err := lyrs[i].check(); err != nil {
			return nil, fmt.Errorf("merge: layer %d: %v", i, err)
		}
	}

	prepared := make([][]float64, len(lyrs))
	reports := make([]LayerReport, len(lyrs))
	if e.Concurrent {
		var wg sync.WaitGroup
		errs := make([]error, len(lyrs))
		for i := range lyrs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				prepared[i], reports[i], errs[i] = e.resampleLayer(&lyrs[i])
				if errs[i] == nil && e.Diag != nil {
					e.Diag("resampled %s: %d cells, %d filtered, %d masked",
						lyrs[i].Name, reports[i].Napplied, reports[i].Nfiltered, reports[i].Nmasked)
				}
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	} else {
		for i := range lyrs {
			var err error
			prepared[i], reports[i], err = e.resampleLayer(&lyrs[i])
			if err != nil {
				return nil, err
			}
			if e.Diag != nil {
				e.Diag("resampled %s: %d cells, %d filtered, %d masked",
					lyrs[i].Name, reports[i].Napplied, reports[i].Nfiltered, reports[i].Nmasked)
			}
		}
	}

	z := e.combine(lyrs, prepared, reports, def)
	if e.Diag != nil {
		for i := range reports {
			if reports[i].Napplied == 0 {
				e.Diag("layer %s contributed no cells", lyrs[i].Name)
			}
		}
	}
	return &Result{
		GD:     e.GD,
		Z:      z,
		RunID:  uuid.New(),
		Report: reports,
	}, nil
}

// combine folds prepared layer values into one array, walking layers in
// priority order. Mean contributions accumulate in side arrays and collapse
// whenever a later layer needs the cell's current value.
func (e *Engine) combine(lyrs []Layer, prepared [][]float64, reports []LayerReport, def Method) []float64 {
	n := e.GD.Ncells()
	z := make([]float64, n)
	zsum := make([]float64, n)
	zcnt := make([]int, n)
	for i := range z {
		z[i] = math.NaN()
	}
	cur := func(cid int) float64 {
		if zcnt[cid] > 0 {
			return zsum[cid] / float64(zcnt[cid])
		}
		return z[cid]
	}
	set := func(cid int, v float64) {
		z[cid] = v
		zcnt[cid] = 0
	}

	for i := range lyrs {
		m := lyrs[i].Method
		if m == "" {
			m = def
		}
		reports[i].Method = m
		for _, cid := range e.GD.Sactives {
			v := prepared[i][cid]
			if math.IsNaN(v) {
				continue
			}
			switch m {
			case First:
				if math.IsNaN(cur(cid)) {
					set(cid, v)
				}
			case Last:
				set(cid, v)
			case Max:
				if c := cur(cid); math.IsNaN(c) || v > c {
					set(cid, v)
				}
			case Min:
				if c := cur(cid); math.IsNaN(c) || v < c {
					set(cid, v)
				}
			case Mean:
				if zcnt[cid] == 0 && !math.IsNaN(z[cid]) {
					zsum[cid] = z[cid]
					zcnt[cid] = 1
				}
				zsum[cid] += v
				zcnt[cid]++
			}
		}
	}
	for _, cid := range e.GD.Sactives {
		z[cid] = cur(cid)
	}
	return z
}
