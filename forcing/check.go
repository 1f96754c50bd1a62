package forcing

import (
	"fmt"

	"github.com/maseology/sfincs/grid"
)

// Outside lists the points that fall beyond the grid extent.
func (bc *BC) Outside(gd *grid.Definition) []string {
	var out []string
	for _, p := range bc.Pts {
		if _, ok := gd.PointToCell(p.X, p.Y); !ok {
			out = append(out, p.Name)
		}
	}
	return out
}

// CheckAndPrint summarizes the block against its grid.
func (bc *BC) CheckAndPrint(gd *grid.Definition) {
	fmt.Println("Forcing summary:")
	nt := len(bc.T)
	if nt == 0 {
		println("  (empty)")
		return
	}
	if dt, err := bc.Dt(); err != nil {
		fmt.Printf("  %v to %v (%d timesteps)  WARNING: %v\n", bc.T[0], bc.T[nt-1], nt, err)
	} else {
		fmt.Printf("  %v to %v, every %v (%d timesteps)\n", bc.T[0], bc.T[nt-1], dt, nt)
	}
	fmt.Printf("  %d points\n", len(bc.Pts))
	for _, n := range bc.Outside(gd) {
		fmt.Printf("   WARNING: point %q lies outside the grid\n", n)
	}
}
