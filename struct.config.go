package sfincs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/im7mortal/UTM"
	"github.com/maseology/mmio"
	"github.com/maseology/sfincs/grid"
)

const inpStamp = "20060102 150405"

// Config the solver-facing run parameters written to the model input file.
type Config struct {
	Tref, Tstart, Tstop time.Time
	Dtout, Dthisout     float64 // map/point output intervals (s)
	Alpha               float64 // CFL reduction factor
	Theta               float64 // momentum smoothing
	Huthresh            float64 // wet-cell depth threshold (m)
	Manning             float64 // roughness fallback where no surface value lands
	Rho                 float64 // water density (kg/m³)
	Zsini               float64 // initial water level (m)
	Latitude            float64 // for Coriolis; zero disables
	Advection           int
	Epsg                int
}

// NewConfig seeds conventional defaults; times are left for the caller.
func NewConfig() Config {
	return Config{
		Dtout:     3600.,
		Dthisout:  600.,
		Alpha:     .5,
		Theta:     1.,
		Huthresh:  .05,
		Manning:   .04,
		Rho:       1024.,
		Zsini:     0.,
		Advection: 1,
	}
}

// SetLatitude derives the Coriolis latitude from the grid centre, taking the
// grid to be UTM-referenced in the given zone.
func (c *Config) SetLatitude(gd *grid.Definition, utmzone int) error {
	ctr := gd.Centre()
	lat, _, err := UTM.ToLatLon(ctr.X, ctr.Y, utmzone, "", true)
	if err != nil {
		return fmt.Errorf(" Config.SetLatitude %v", err)
	}
	c.Latitude = lat
	return nil
}

// InpFiles names the companion files referenced from the input file; empty
// entries are omitted.
type InpFiles struct {
	Dep, Msk, Man      string
	Bnd, Bzs, Src, Dis string
}

// WriteInp writes the `key = value` input file. Grid geometry keys follow the
// solver convention: x0/y0 anchor the lower-left corner with the rotation
// taken about it, mmax counts columns and nmax rows.
func (c *Config) WriteInp(fp string, gd *grid.Definition, files InpFiles) error {
	tw, err := mmio.NewTXTwriter(fp)
	if err != nil {
		return fmt.Errorf(" Config.WriteInp %v", err)
	}
	defer tw.Close()
	w := func(k, v string) { tw.WriteLine(fmt.Sprintf("%-20s = %s", k, v)) }
	wf := func(k string, v float64) { w(k, strconv.FormatFloat(v, 'f', -1, 64)) }
	wi := func(k string, v int) { w(k, strconv.Itoa(v)) }

	rot := gd.Rotation * math.Pi / 180.
	x0 := gd.Eorig + float64(gd.Nr)*gd.Cs*math.Sin(rot)
	y0 := gd.Norig - float64(gd.Nr)*gd.Cs*math.Cos(rot)

	wi("mmax", gd.Nc)
	wi("nmax", gd.Nr)
	wf("dx", gd.Cs)
	wf("dy", gd.Cs)
	wf("x0", x0)
	wf("y0", y0)
	wf("rotation", gd.Rotation)
	if c.Epsg > 0 {
		wi("epsg", c.Epsg)
	}
	w("tref", c.Tref.Format(inpStamp))
	w("tstart", c.Tstart.Format(inpStamp))
	w("tstop", c.Tstop.Format(inpStamp))
	wf("dtout", c.Dtout)
	wf("dthisout", c.Dthisout)
	wf("alpha", c.Alpha)
	wf("theta", c.Theta)
	wf("huthresh", c.Huthresh)
	wf("manning", c.Manning)
	wf("rho", c.Rho)
	wf("zsini", c.Zsini)
	wi("advection", c.Advection)
	if c.Latitude != 0. {
		wf("latitude", c.Latitude)
	}
	for _, kv := range [...][2]string{
		{"depfile", files.Dep}, {"mskfile", files.Msk}, {"manningfile", files.Man},
		{"bndfile", files.Bnd}, {"bzsfile", files.Bzs},
		{"srcfile", files.Src}, {"disfile", files.Dis},
	} {
		if kv[1] != "" {
			w(kv[0], kv[1])
		}
	}
	return nil
}

// ReadInp recovers the configuration and grid geometry from an input file.
// The grid comes back unreferenced (the input file carries an epsg code, not
// a proj4 string) with all cells active.
func ReadInp(fp string) (*Config, *grid.Definition, error) {
	if _, ok := mmio.FileExists(fp); !ok {
		return nil, nil, fmt.Errorf(" sfincs.ReadInp: %s not found", fp)
	}
	a := mmio.ReadTextLines(fp)
	if len(a) == 0 {
		return nil, nil, fmt.Errorf(" sfincs.ReadInp: %s incomplete", fp)
	}
	c := NewConfig()
	kv := make(map[string]string)
	for _, ln := range a {
		s := strings.SplitN(ln, "=", 2)
		if len(s) != 2 {
			continue
		}
		kv[strings.TrimSpace(s[0])] = strings.TrimSpace(s[1])
	}

	stErr := make([]string, 0)
	gf := func(k string, def float64) float64 {
		v, ok := kv[k]
		if !ok {
			return def
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			stErr = append(stErr, fmt.Sprintf("   failed to read '%s': %v", k, err))
		}
		return f
	}
	gi := func(k string, def int) int {
		v, ok := kv[k]
		if !ok {
			return def
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			stErr = append(stErr, fmt.Sprintf("   failed to read '%s': %v", k, err))
		}
		return i
	}
	gt := func(k string) time.Time {
		v, ok := kv[k]
		if !ok {
			return time.Time{}
		}
		t, err := time.Parse(inpStamp, v)
		if err != nil {
			stErr = append(stErr, fmt.Sprintf("   failed to read '%s': %v", k, err))
		}
		return t
	}

	mmax, nmax := gi("mmax", 0), gi("nmax", 0)
	dx := gf("dx", 0.)
	rotdeg := gf("rotation", 0.)
	x0, y0 := gf("x0", 0.), gf("y0", 0.)
	c.Tref, c.Tstart, c.Tstop = gt("tref"), gt("tstart"), gt("tstop")
	c.Dtout = gf("dtout", c.Dtout)
	c.Dthisout = gf("dthisout", c.Dthisout)
	c.Alpha = gf("alpha", c.Alpha)
	c.Theta = gf("theta", c.Theta)
	c.Huthresh = gf("huthresh", c.Huthresh)
	c.Manning = gf("manning", c.Manning)
	c.Rho = gf("rho", c.Rho)
	c.Zsini = gf("zsini", c.Zsini)
	c.Latitude = gf("latitude", 0.)
	c.Advection = gi("advection", c.Advection)
	c.Epsg = gi("epsg", 0)
	if len(stErr) > 0 {
		return nil, nil, fmt.Errorf(" sfincs.ReadInp: %s\n%s", fp, strings.Join(stErr, "\n"))
	}
	if mmax <= 0 || nmax <= 0 || dx <= 0. {
		return nil, nil, fmt.Errorf(" sfincs.ReadInp: %s missing grid geometry", fp)
	}

	rot := rotdeg * math.Pi / 180.
	eorig := x0 - float64(nmax)*dx*math.Sin(rot)
	norig := y0 + float64(nmax)*dx*math.Cos(rot)
	gd := grid.NewDefinition(mmio.FileName(fp, false), eorig, norig, rotdeg, dx, nmax, mmax, "")
	return &c, gd, nil
}
