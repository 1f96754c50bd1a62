// Package forcing carries boundary-condition time series for an assembled
// model: water levels along open boundaries and point discharges, one series
// per named point.
package forcing

import (
	"fmt"
	"time"
)

// Point a named forcing location in the target grid's coordinate reference.
type Point struct {
	Name string
	X, Y float64
}

// BC a block of boundary-condition series.
type BC struct {
	T   []time.Time // [date ID]
	Pts []Point     // [point ID]
	V   [][]float64 // [point ID][date ID]
}

// Dt returns the series timestep, erroring on irregular spacing.
func (bc *BC) Dt() (time.Duration, error) {
	if len(bc.T) < 2 {
		return 0, fmt.Errorf("forcing: %d timesteps, need at least 2", len(bc.T))
	}
	dt := bc.T[1].Sub(bc.T[0])
	if dt <= 0 {
		return 0, fmt.Errorf("forcing: non-increasing timestamps at step 1")
	}
	for j := 2; j < len(bc.T); j++ {
		if d := bc.T[j].Sub(bc.T[j-1]); d != dt {
			return 0, fmt.Errorf("forcing: irregular timestep at %v (%v, expected %v)", bc.T[j], d, dt)
		}
	}
	return dt, nil
}
