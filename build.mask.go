package sfincs

import (
	"fmt"

	"github.com/maseology/sfincs/grid"
	"github.com/maseology/sfincs/mask"
)

// buildMask classifies cells from the merged elevation and manifest rules,
// then marks the open boundaries.
func (m *Manifest) buildMask(gd *grid.Definition, z []float64) ([]int8, error) {
	inc, err := ringsToPolygonals(m.Mask.Include)
	if err != nil {
		return nil, fmt.Errorf("mask include: %v", err)
	}
	exc, err := ringsToPolygonals(m.Mask.Exclude)
	if err != nil {
		return nil, fmt.Errorf("mask exclude: %v", err)
	}
	msk, err := mask.ActiveCells(gd, z, mask.ActiveOpts{
		Zmin:     m.Mask.Zmin,
		Zmax:     m.Mask.Zmax,
		Include:  inc,
		Exclude:  exc,
		DropArea: m.Mask.DropArea,
		FillArea: m.Mask.FillArea,
	})
	if err != nil {
		return nil, err
	}

	if bs := m.Mask.Waterlevel; bs != nil {
		inc, err := ringsToPolygonals(bs.Include)
		if err != nil {
			return nil, fmt.Errorf("mask waterlevel: %v", err)
		}
		n, err := mask.SetWaterlevel(gd, msk, z, mask.BoundOpts{Zmin: bs.Zmin, Zmax: bs.Zmax, Include: inc})
		if err != nil {
			return nil, err
		}
		fmt.Printf("   %d waterlevel boundary cells\n", n)
	}
	if bs := m.Mask.Outflow; bs != nil {
		inc, err := ringsToPolygonals(bs.Include)
		if err != nil {
			return nil, fmt.Errorf("mask outflow: %v", err)
		}
		n, err := mask.SetOutflow(gd, msk, z, mask.BoundOpts{Zmin: bs.Zmin, Zmax: bs.Zmax, Include: inc})
		if err != nil {
			return nil, err
		}
		fmt.Printf("   %d outflow boundary cells\n", n)
	}

	if err := mask.Validate(gd, msk); err != nil {
		return nil, err
	}
	return msk, nil
}
