package forcing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maseology/mmio"
)

var stampFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseStamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range stampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadCSV imports a series block: header `time,name1,name2,...`, one row per
// timestamp. Point coordinates are attached afterwards with Locate.
func ReadCSV(fp string) (*BC, error) {
	if _, ok := mmio.FileExists(fp); !ok {
		return nil, fmt.Errorf(" forcing.ReadCSV: %s not found", fp)
	}
	a := mmio.ReadTextLines(fp)
	if len(a) < 2 {
		return nil, fmt.Errorf(" forcing.ReadCSV: %s incomplete", fp)
	}
	hdr := strings.Split(strings.TrimSpace(a[0]), ",")
	if len(hdr) < 2 || !strings.EqualFold(strings.TrimSpace(hdr[0]), "time") {
		return nil, fmt.Errorf(" forcing.ReadCSV: %s header needs `time,name1,...`", fp)
	}
	npt := len(hdr) - 1
	bc := BC{
		Pts: make([]Point, npt),
		V:   make([][]float64, npt),
	}
	for i := 0; i < npt; i++ {
		bc.Pts[i] = Point{Name: strings.TrimSpace(hdr[i+1])}
	}

	for ln := 1; ln < len(a); ln++ {
		l := strings.TrimSpace(a[ln])
		if len(l) == 0 {
			continue
		}
		f := strings.Split(l, ",")
		if len(f) != npt+1 {
			return nil, fmt.Errorf(" forcing.ReadCSV: %s line %d: have %d fields, need %d", fp, ln+1, len(f), npt+1)
		}
		t, err := parseStamp(f[0])
		if err != nil {
			return nil, fmt.Errorf(" forcing.ReadCSV: %s line %d: %v", fp, ln+1, err)
		}
		bc.T = append(bc.T, t)
		for i := 0; i < npt; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(f[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf(" forcing.ReadCSV: %s line %d: %v", fp, ln+1, err)
			}
			bc.V[i] = append(bc.V[i], v)
		}
	}
	if _, err := bc.Dt(); err != nil {
		return nil, fmt.Errorf(" forcing.ReadCSV: %s: %v", fp, err)
	}
	return &bc, nil
}

// ReadLocationsCSV imports forcing locations: header `name,x,y`, one point
// per row.
func ReadLocationsCSV(fp string) ([]Point, error) {
	if _, ok := mmio.FileExists(fp); !ok {
		return nil, fmt.Errorf(" forcing.ReadLocationsCSV: %s not found", fp)
	}
	a := mmio.ReadTextLines(fp)
	if len(a) < 2 {
		return nil, fmt.Errorf(" forcing.ReadLocationsCSV: %s incomplete", fp)
	}
	pts := make([]Point, 0, len(a)-1)
	for ln := 1; ln < len(a); ln++ {
		l := strings.TrimSpace(a[ln])
		if len(l) == 0 {
			continue
		}
		f := strings.Split(l, ",")
		if len(f) != 3 {
			return nil, fmt.Errorf(" forcing.ReadLocationsCSV: %s line %d: have %d fields, need 3", fp, ln+1, len(f))
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(f[1]), 64)
		if err != nil {
			return nil, fmt.Errorf(" forcing.ReadLocationsCSV: %s line %d: %v", fp, ln+1, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(f[2]), 64)
		if err != nil {
			return nil, fmt.Errorf(" forcing.ReadLocationsCSV: %s line %d: %v", fp, ln+1, err)
		}
		pts = append(pts, Point{Name: strings.TrimSpace(f[0]), X: x, Y: y})
	}
	return pts, nil
}

// Locate attaches coordinates to the block's points by name.
func (bc *BC) Locate(pts []Point) error {
	byName := make(map[string]Point, len(pts))
	for _, p := range pts {
		byName[p.Name] = p
	}
	for i, p := range bc.Pts {
		q, ok := byName[p.Name]
		if !ok {
			return fmt.Errorf(" forcing.Locate: no location for point %q", p.Name)
		}
		bc.Pts[i] = q
	}
	return nil
}
