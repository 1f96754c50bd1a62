package forcing

import (
	"fmt"
	"time"

	"github.com/maseology/mmio"
)

// WriteBnd writes the water-level boundary point coordinates, one `x y` pair
// per line.
func (bc *BC) WriteBnd(fp string) error { return bc.writePoints(fp) }

// WriteSrc writes the discharge source point coordinates.
func (bc *BC) WriteSrc(fp string) error { return bc.writePoints(fp) }

func (bc *BC) writePoints(fp string) error {
	tw, err := mmio.NewTXTwriter(fp)
	if err != nil {
		return fmt.Errorf(" forcing.writePoints %v", err)
	}
	defer tw.Close()
	for _, p := range bc.Pts {
		tw.WriteLine(fmt.Sprintf("%14.2f%14.2f", p.X, p.Y))
	}
	return nil
}

// WriteBzs writes the water-level series: per timestep the seconds elapsed
// since t0 followed by one value per boundary point.
func (bc *BC) WriteBzs(fp string, t0 time.Time) error { return bc.writeSeries(fp, t0) }

// WriteDis writes the discharge series in the same layout.
func (bc *BC) WriteDis(fp string, t0 time.Time) error { return bc.writeSeries(fp, t0) }

func (bc *BC) writeSeries(fp string, t0 time.Time) error {
	tw, err := mmio.NewTXTwriter(fp)
	if err != nil {
		return fmt.Errorf(" forcing.writeSeries %v", err)
	}
	defer tw.Close()
	for j, t := range bc.T {
		ln := fmt.Sprintf("%14.1f", t.Sub(t0).Seconds())
		for i := range bc.Pts {
			ln += fmt.Sprintf("%14.2f", bc.V[i][j])
		}
		tw.WriteLine(ln)
	}
	return nil
}
