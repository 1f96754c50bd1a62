package grid

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/maseology/mmio"
)

// ReadGDEF imports a grid definition file. Line order: origin easting,
// origin northing, rotation (deg CCW), nrows, ncols, uniform cell size
// (prefixed 'U'); optionally followed by a proj4 line (prefixed '+') and an
// active-cell flag string ('0'/'1' per cell, row-major).
func ReadGDEF(fp string, print bool) (*Definition, error) {
	if _, ok := mmio.FileExists(fp); !ok {
		return nil, fmt.Errorf(" grid.ReadGDEF: %s not found", fp)
	}
	a := mmio.ReadTextLines(fp)
	if len(a) < 6 {
		return nil, fmt.Errorf(" grid.ReadGDEF: %s incomplete header", fp)
	}

	stErr := make([]string, 0)
	errfunc := func(v string, err error) {
		stErr = append(stErr, fmt.Sprintf("   failed to read '%v': %v", v, err))
	}

	oe, err := strconv.ParseFloat(strings.TrimSpace(a[0]), 64)
	if err != nil {
		errfunc("OE", err)
	}
	on, err := strconv.ParseFloat(strings.TrimSpace(a[1]), 64)
	if err != nil {
		errfunc("ON", err)
	}
	rot, err := strconv.ParseFloat(strings.TrimSpace(a[2]), 64)
	if err != nil {
		errfunc("ROT", err)
	}
	nr, err := strconv.ParseInt(strings.TrimSpace(a[3]), 10, 32)
	if err != nil {
		errfunc("NR", err)
	}
	nc, err := strconv.ParseInt(strings.TrimSpace(a[4]), 10, 32)
	if err != nil {
		errfunc("NC", err)
	}
	cs := 0.
	switch l := strings.TrimSpace(a[5]); {
	case len(l) > 0 && l[0] == 'U':
		if cs, err = strconv.ParseFloat(l[1:], 64); err != nil {
			errfunc("CS", err)
		}
	default:
		return nil, fmt.Errorf(" grid.ReadGDEF: non-uniform grids currently not supported (%s)", fp)
	}
	if len(stErr) > 0 {
		return nil, fmt.Errorf(" grid.ReadGDEF: %s\n%s", fp, strings.Join(stErr, "\n"))
	}

	gd := NewDefinition(mmio.FileName(fp, false), oe, on, rot, cs, int(nr), int(nc), "")

	ln := 6
	if len(a) > ln && strings.HasPrefix(strings.TrimSpace(a[ln]), "+") {
		gd.Proj4 = strings.TrimSpace(a[ln])
		ln++
	}
	if len(a) > ln && len(strings.TrimSpace(a[ln])) > 0 { // active cells
		b := strings.TrimSpace(a[ln])
		if len(b) != gd.Ncells() {
			return nil, fmt.Errorf(" grid.ReadGDEF: %s active-cell flags: have %d, need %d", fp, len(b), gd.Ncells())
		}
		cids := make([]int, 0, gd.Ncells())
		for i := range b {
			switch b[i] {
			case '1':
				cids = append(cids, i)
			case '0':
				// inactive
			default:
				return nil, fmt.Errorf(" grid.ReadGDEF: %s invalid active-cell flag '%c'", fp, b[i])
			}
		}
		gd.ResetActives(cids)
	}

	if print {
		fmt.Printf(" opened %s\n", fp)
		fmt.Printf("   origin: (%.1f, %.1f)  rotation: %.2f°\n", gd.Eorig, gd.Norig, gd.Rotation)
		fmt.Printf("   %d rows, %d cols, %s cells at %.2f\n", gd.Nr, gd.Nc, mmio.Thousands(int64(gd.Ncells())), gd.Cs)
		if gd.Nactives() < gd.Ncells() {
			fmt.Printf("   %s active\n", mmio.Thousands(int64(gd.Nactives())))
		}
		if len(gd.Proj4) > 0 {
			fmt.Printf("   crs: %s\n", gd.Proj4)
		}
	}
	return gd, nil
}

// SaveAs writes the grid definition in GDEF text format
func (gd *Definition) SaveAs(fp string) error {
	tw, err := mmio.NewTXTwriter(fp)
	if err != nil {
		return fmt.Errorf(" Definition.SaveAs %v", err)
	}
	defer tw.Close()
	tw.WriteLine(strconv.FormatFloat(gd.Eorig, 'f', -1, 64))
	tw.WriteLine(strconv.FormatFloat(gd.Norig, 'f', -1, 64))
	tw.WriteLine(strconv.FormatFloat(gd.Rotation, 'f', -1, 64))
	tw.WriteLine(strconv.Itoa(gd.Nr))
	tw.WriteLine(strconv.Itoa(gd.Nc))
	tw.WriteLine("U" + strconv.FormatFloat(gd.Cs, 'f', -1, 64))
	if len(gd.Proj4) > 0 {
		tw.WriteLine(gd.Proj4)
	}
	if gd.Nactives() < gd.Ncells() {
		sb := strings.Builder{}
		sb.Grow(gd.Ncells())
		for i := 0; i < gd.Ncells(); i++ {
			if gd.act[i] {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		tw.WriteLine(sb.String())
	}
	return nil
}

// ToHDRfloat writes an ESRI BIL header for floating-point rasters
func (gd *Definition) ToHDRfloat(fp string, nbands, nbits int) error {
	return gd.writeHDR(fp, nbands, nbits, "FLOAT")
}

// ToHDR writes an ESRI BIL header for integer rasters
func (gd *Definition) ToHDR(fp string, nbits int) error {
	return gd.writeHDR(fp, 1, nbits, "SIGNEDINT")
}

func (gd *Definition) writeHDR(fp string, nbands, nbits int, pixeltype string) error {
	if math.Abs(gd.Rotation) > 1e-8 {
		fmt.Printf("   WARNING %s: BIL headers carry no rotation term (grid rotated %.2f°)\n", fp, gd.Rotation)
	}
	sb := strings.Builder{}
	sb.WriteString("BYTEORDER      I\n")
	sb.WriteString("LAYOUT         BIL\n")
	sb.WriteString(fmt.Sprintf("NROWS          %d\n", gd.Nr))
	sb.WriteString(fmt.Sprintf("NCOLS          %d\n", gd.Nc))
	sb.WriteString(fmt.Sprintf("NBANDS         %d\n", nbands))
	sb.WriteString(fmt.Sprintf("NBITS          %d\n", nbits))
	sb.WriteString(fmt.Sprintf("BANDROWBYTES   %d\n", gd.Nc*nbits/8))
	sb.WriteString(fmt.Sprintf("TOTALROWBYTES  %d\n", nbands*gd.Nc*nbits/8))
	sb.WriteString(fmt.Sprintf("PIXELTYPE      %s\n", pixeltype))
	sb.WriteString(fmt.Sprintf("ULXMAP         %f\n", gd.Eorig+gd.Cs/2.))
	sb.WriteString(fmt.Sprintf("ULYMAP         %f\n", gd.Norig-gd.Cs/2.))
	sb.WriteString(fmt.Sprintf("XDIM           %f\n", gd.Cs))
	sb.WriteString(fmt.Sprintf("YDIM           %f\n", gd.Cs))
	sb.WriteString("NODATA         -9999\n")
	if err := os.WriteFile(fp, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf(" Definition.writeHDR %v", err)
	}
	return nil
}

// SaveGob caches the grid definition to a binary snapshot
func (gd *Definition) SaveGob(fp string) error {
	f, err := os.Create(fp)
	if err != nil {
		return fmt.Errorf(" Definition.SaveGob %v", err)
	}
	if err := gob.NewEncoder(f).Encode(gd); err != nil {
		return fmt.Errorf(" Definition.SaveGob %v", err)
	}
	f.Close()
	return nil
}

// LoadGobDefinition recovers a cached grid definition
func LoadGobDefinition(fp string) (*Definition, error) {
	var gd Definition
	f, err := os.Open(fp)
	if err != nil {
		return nil, err
	}
	enc := gob.NewDecoder(f)
	err = enc.Decode(&gd)
	if err != nil {
		return nil, err
	}
	f.Close()
	gd.act = make(map[int]bool, len(gd.Sactives))
	for _, c := range gd.Sactives {
		gd.act[c] = true
	}
	return &gd, nil
}
