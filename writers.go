package sfincs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/maseology/mmio"
	"github.com/maseology/sfincs/grid"
)

// WriteSurface dumps a full-grid surface as a raw float32 raster with its
// header sidecar; NaN becomes the conventional nodata flag.
func WriteSurface(gd *grid.Definition, fp string, f []float64) error {
	o := make([]float64, len(f))
	for i, v := range f {
		if math.IsNaN(v) {
			o[i] = -9999.
		} else {
			o[i] = v
		}
	}
	return writeFloats32(gd, fp, o)
}

// writeFloats dumps single-precision little-endian values, the model-ready
// raster layout.
func writeFloats(fp string, f []float64) error {
	f32 := func() []float32 {
		o := make([]float32, len(f))
		for i, v := range f {
			o[i] = float32(v)
		}
		return o
	}()
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, f32); err != nil {
		return fmt.Errorf("writeFloats failed: %v", err)
	}
	if err := os.WriteFile(fp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writeFloats failed: %v", err)
	}
	return nil
}

func writeInts8(fp string, ii []int8) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, ii); err != nil {
		return fmt.Errorf("writeInts8 failed: %v", err)
	}
	if err := os.WriteFile(fp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writeInts8 failed: %v", err)
	}
	return nil
}

// writeFloats32 adds the ESRI header sidecar, for rasters meant to be opened
// in a viewer.
func writeFloats32(gd *grid.Definition, fp string, f []float64) error {
	if err := writeFloats(fp, f); err != nil {
		return err
	}
	return gd.ToHDRfloat(mmio.RemoveExtension(fp)+".hdr", 1, 32)
}

func writeInts32(gd *grid.Definition, fp string, ii []int32) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, ii); err != nil {
		return fmt.Errorf("writeInts32 failed: %v", err)
	}
	if err := os.WriteFile(fp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writeInts32 failed: %v", err)
	}
	return gd.ToHDR(mmio.RemoveExtension(fp)+".hdr", 32)
}
