package sfincs

import (
	"fmt"
	"math"
	"sync"

	"github.com/gosuri/uiprogress"
	"github.com/maseology/mmio"
	"github.com/maseology/sfincs/burn"
	"github.com/maseology/sfincs/forcing"
	"github.com/maseology/sfincs/merge"
)

// Build assembles a complete model from a manifest: target grid, merged
// surfaces, burned river reaches, mask classification, boundary forcing and
// solver parameters. Check rasters land in the check directory, the
// model-ready file set in the output directory.
func Build(manifestFP string) (*Model, error) {
	tt := mmio.NewTimer()

	///////////////////////////////////////////////////////
	println("load manifest")
	m, err := LoadManifest(manifestFP)
	if err != nil {
		return nil, err
	}
	outdir := dirize(m.path(m.Outdir))
	chkdir := outdir + "check/"
	if m.Chkdir != "" {
		chkdir = dirize(m.path(m.Chkdir))
	}
	mmio.MakeDir(outdir)
	mmio.MakeDir(chkdir)

	///////////////////////////////////////////////////////
	println("building..")
	println("  target grid..")
	gd, err := m.grid()
	if err != nil {
		return nil, fmt.Errorf(" sfincs.Build %v", err)
	}

	println("  merging surface stacks..")
	nlay := len(m.Dep) + len(m.Manning)
	prog := uiprogress.New()
	prog.Start()
	bar := prog.AddBar(nlay).AppendCompleted().PrependElapsed()
	var mu sync.Mutex
	lbl := ""
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		mu.Lock()
		defer mu.Unlock()
		return lbl
	})
	diag := func(format string, a ...interface{}) {
		mu.Lock()
		lbl = fmt.Sprintf(format, a...)
		mu.Unlock()
		bar.Incr()
	}

	rdep, err := m.buildSurface(gd, m.Dep, merge.Bilinear, diag)
	if err != nil {
		prog.Stop()
		return nil, fmt.Errorf(" sfincs.Build %v", err)
	}
	dep := rdep.Z

	man := gd.NullArray(math.NaN()) // Write falls back to the constant roughness
	var manrep []merge.LayerReport
	if len(m.Manning) > 0 {
		rman, err := m.buildSurface(gd, m.Manning, merge.Nearest, diag)
		if err != nil {
			prog.Stop()
			return nil, fmt.Errorf(" sfincs.Build %v", err)
		}
		man, manrep = rman.Z, rman.Report
	}
	prog.Stop()

	var brep *burn.Report
	if m.Rivers != nil && len(m.Rivers.Reaches) > 0 {
		println("  burning river reaches..")
		s, o := m.rivers()
		if brep, err = burn.Burn(gd, dep, man, s, o); err != nil {
			return nil, fmt.Errorf(" sfincs.Build %v", err)
		}
	}

	println("  classifying mask..")
	msk, err := m.buildMask(gd, dep)
	if err != nil {
		return nil, fmt.Errorf(" sfincs.Build %v", err)
	}

	cfg, err := m.config(gd)
	if err != nil {
		return nil, fmt.Errorf(" sfincs.Build %v", err)
	}

	var wl, q *forcing.BC
	if m.Waterlevel != nil {
		println("  loading waterlevel forcing..")
		if wl, err = m.buildForcing(gd, m.Waterlevel); err != nil {
			return nil, fmt.Errorf(" sfincs.Build %v", err)
		}
		if err := checkForcingWindow(wl, &cfg, "waterlevel"); err != nil {
			return nil, fmt.Errorf(" sfincs.Build %v", err)
		}
	}
	if m.Discharge != nil {
		println("  loading discharge forcing..")
		if q, err = m.buildForcing(gd, m.Discharge); err != nil {
			return nil, fmt.Errorf(" sfincs.Build %v", err)
		}
		if err := checkForcingWindow(q, &cfg, "discharge"); err != nil {
			return nil, fmt.Errorf(" sfincs.Build %v", err)
		}
	}

	mdl := Model{
		GD: gd, Dep: dep, Man: man, Msk: msk, Cfg: cfg, Wl: wl, Q: q,
		DepRep: rdep.Report, ManRep: manrep, BurnRep: brep,
	}

	// summarize
	println("\nBuild Summary\n==================================")
	fmt.Println(" " + rdep.Summary())
	mdl.Checkandprint(chkdir)

	// save gobs
	println("\nsaving gobs..")
	if rs, err := merge.FromGrid(gd, dep, m.Name+".dep"); err == nil { // rotated grids have no raster-aligned cache
		if err := rs.SaveGob(outdir + m.Name + ".dep.gob"); err != nil {
			return nil, fmt.Errorf(" sfincs.Build %v", err)
		}
	}
	if err := mdl.SaveGob(outdir + m.Name + ".model.gob"); err != nil {
		return nil, fmt.Errorf(" sfincs.Build %v", err)
	}

	println("writing model files..")
	if err := mdl.Write(outdir); err != nil {
		return nil, fmt.Errorf(" sfincs.Build %v", err)
	}
	tt.Lap("build complete")

	println()
	return &mdl, nil
}
