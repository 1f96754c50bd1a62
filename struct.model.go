package sfincs

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"

	"github.com/maseology/mmaths"
	"github.com/maseology/mmio"
	"github.com/maseology/sfincs/burn"
	"github.com/maseology/sfincs/forcing"
	"github.com/maseology/sfincs/grid"
	"github.com/maseology/sfincs/mask"
	"github.com/maseology/sfincs/merge"
)

// Model a fully assembled set of solver inputs: grid geometry, cell surfaces,
// mask codes, run parameters and boundary forcings.
type Model struct {
	GD       *grid.Definition
	Dep, Man []float64 // bed elevation and roughness per cell ID, NaN where no source landed
	Msk      []int8    // mask code per cell ID
	Cfg      Config
	Wl, Q    *forcing.BC // waterlevel and discharge forcings, either may be nil
	DepRep   []merge.LayerReport
	ManRep   []merge.LayerReport
	BurnRep  *burn.Report
}

func (m *Model) Checkandprint(chkdirprfx string) {

	// output
	dep, man := m.GD.NullArray(-9999.), m.GD.NullArray(-9999.)
	msk := m.GD.NullInt32(int32(mask.Inactive))
	ndep := 0
	for _, c := range m.GD.Sactives {
		if !math.IsNaN(m.Dep[c]) {
			dep[c] = m.Dep[c]
			ndep++
		}
		if !math.IsNaN(m.Man[c]) {
			man[c] = m.Man[c]
		}
		msk[c] = int32(m.Msk[c])
	}
	chk := func(err error) {
		if err != nil {
			fmt.Printf("   WARNING: %v\n", err)
		}
	}
	chk(writeFloats32(m.GD, chkdirprfx+"model.dep.bil", dep))
	chk(writeFloats32(m.GD, chkdirprfx+"model.man.bil", man))
	chk(writeInts32(m.GD, chkdirprfx+"model.msk.bil", msk))

	fmt.Printf("   %s of %s active cells carry elevations\n", mmio.Thousands(int64(ndep)), mmio.Thousands(int64(m.GD.Nactives())))

	fncell := float64(m.GD.Nactives())
	mMsk := make(map[int]int)
	for _, c := range m.GD.Sactives {
		mMsk[int(m.Msk[c])]++
	}
	fmt.Printf("   mask code proportions (%d)\n", len(mMsk))
	k, v := mmaths.SortMapInt(mMsk)
	for i := len(k) - 1; i >= 0; i-- {
		fmt.Printf("%10d %10.1f%%\n", k[i], float64(v[i])*100./fncell)
	}
	if m.BurnRep != nil {
		fmt.Printf("   %d river reaches burned over %d cells\n", len(m.BurnRep.Rivers), m.BurnRep.Ncells)
	}
}

// Write emits the complete solver input set to dir: binary surfaces, mask,
// forcing files and the input file that ties them together.
func (m *Model) Write(dir string) error {
	mmio.MakeDir(dir)
	dir = dirize(dir)

	dep, man := make([]float64, m.GD.Ncells()), make([]float64, m.GD.Ncells())
	for i := range dep {
		dep[i], man[i] = -9999., -9999.
	}
	for _, c := range m.GD.Sactives {
		if !math.IsNaN(m.Dep[c]) {
			dep[c] = m.Dep[c]
		}
		if !math.IsNaN(m.Man[c]) {
			man[c] = m.Man[c]
		} else {
			man[c] = m.Cfg.Manning
		}
	}

	if err := writeFloats(dir+"sfincs.dep", dep); err != nil {
		return fmt.Errorf(" Model.Write %v", err)
	}
	if err := writeFloats(dir+"sfincs.man", man); err != nil {
		return fmt.Errorf(" Model.Write %v", err)
	}
	if err := writeInts8(dir+"sfincs.msk", m.Msk); err != nil {
		return fmt.Errorf(" Model.Write %v", err)
	}
	if err := m.GD.SaveAs(dir + "sfincs.gdef"); err != nil {
		return fmt.Errorf(" Model.Write %v", err)
	}

	files := InpFiles{Dep: "sfincs.dep", Msk: "sfincs.msk", Man: "sfincs.man"}
	if m.Wl != nil {
		files.Bnd, files.Bzs = "sfincs.bnd", "sfincs.bzs"
		if err := m.Wl.WriteBnd(dir + files.Bnd); err != nil {
			return fmt.Errorf(" Model.Write %v", err)
		}
		if err := m.Wl.WriteBzs(dir+files.Bzs, m.Cfg.Tref); err != nil {
			return fmt.Errorf(" Model.Write %v", err)
		}
	}
	if m.Q != nil {
		files.Src, files.Dis = "sfincs.src", "sfincs.dis"
		if err := m.Q.WriteSrc(dir + files.Src); err != nil {
			return fmt.Errorf(" Model.Write %v", err)
		}
		if err := m.Q.WriteDis(dir+files.Dis, m.Cfg.Tref); err != nil {
			return fmt.Errorf(" Model.Write %v", err)
		}
	}
	if err := m.Cfg.WriteInp(dir+"sfincs.inp", m.GD, files); err != nil {
		return fmt.Errorf(" Model.Write %v", err)
	}
	return nil
}

func (m *Model) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" model.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf(" model.SaveGob %v", err)
	}
	f.Close()
	return nil
}

func LoadGobModel(fp string) (*Model, error) {
	var m Model
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, err
	}
	f.Close()
	if m.GD != nil {
		m.GD.ResetActives(m.GD.Sactives) // decode drops the active-cell lookup
	}
	return &m, nil
}

func dirize(d string) string {
	if len(d) > 0 && d[len(d)-1] != '/' && d[len(d)-1] != '\\' {
		return d + "/"
	}
	return d
}
