package sfincs

import (
	"fmt"

	"github.com/maseology/sfincs/forcing"
	"github.com/maseology/sfincs/grid"
)

// buildForcing loads a series block with its locations and reports points
// falling outside the grid.
func (m *Manifest) buildForcing(gd *grid.Definition, fs *ForcingSpec) (*forcing.BC, error) {
	bc, err := forcing.ReadCSV(m.path(fs.Series))
	if err != nil {
		return nil, err
	}
	pts, err := forcing.ReadLocationsCSV(m.path(fs.Locations))
	if err != nil {
		return nil, err
	}
	if err := bc.Locate(pts); err != nil {
		return nil, err
	}
	bc.CheckAndPrint(gd)
	return bc, nil
}

// checkForcingWindow rejects records that stop short of the run window.
func checkForcingWindow(bc *forcing.BC, cfg *Config, what string) error {
	if len(bc.T) == 0 {
		return fmt.Errorf("%s forcing: empty record", what)
	}
	if bc.T[0].After(cfg.Tstart) || bc.T[len(bc.T)-1].Before(cfg.Tstop) {
		return fmt.Errorf("%s forcing: record [%s, %s] does not span run window [%s, %s]",
			what, bc.T[0].Format(inpStamp), bc.T[len(bc.T)-1].Format(inpStamp),
			cfg.Tstart.Format(inpStamp), cfg.Tstop.Format(inpStamp))
	}
	return nil
}
