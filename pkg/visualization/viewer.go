// Package visualization renders slices of the volumes produced during an
// extraction: the resampled intensities, the ROI and the discretized levels.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats"

	"radiomics3d/internal/models"
)

// Viewer extracts 2D slices from a volume on a voxel grid. Values are scaled
// linearly from the volume range to the 16 bit gray range.
type Viewer struct {
	data []float64
	grid models.Grid

	lo, hi float64
}

// NewViewer creates a viewer over raw grid data
func NewViewer(data []float64, grid models.Grid) (*Viewer, error) {
	if len(data) != grid.Len() {
		return nil, fmt.Errorf("%w: %d values for a %dx%dx%d grid",
			models.ErrInvalidInput, len(data), grid.Width, grid.Height, grid.Depth)
	}
	v := &Viewer{data: data, grid: grid}
	if len(data) > 0 {
		v.lo, v.hi = floats.Min(data), floats.Max(data)
	}
	return v, nil
}

// FromVolume views an intensity volume
func FromVolume(vol models.Volume) (*Viewer, error) {
	return NewViewer(vol.Data, vol.Grid)
}

// FromROI views an ROI membership as a black and white volume
func FromROI(roi []bool, grid models.Grid) (*Viewer, error) {
	data := make([]float64, len(roi))
	for i, in := range roi {
		if in {
			data[i] = 1
		}
	}
	return NewViewer(data, grid)
}

// FromLevels views a discretized volume. Voxels outside the ROI render black.
func FromLevels(dv *models.DiscretizedVolume) (*Viewer, error) {
	data := make([]float64, len(dv.Levels))
	for i, l := range dv.Levels {
		if l != models.Undefined {
			data[i] = float64(l)
		}
	}
	return NewViewer(data, dv.Grid)
}

func (v *Viewer) gray(idx int) color.Gray16 {
	if v.hi <= v.lo {
		return color.Gray16{}
	}
	scaled := (v.data[idx] - v.lo) / (v.hi - v.lo) * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(scaled))))}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	g := v.grid

	var img *image.Gray16
	switch axis {
	case "x", "X":
		// YZ plane
		if position >= g.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, g.Width)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Depth, g.Height))
		for y := 0; y < g.Height; y++ {
			for z := 0; z < g.Depth; z++ {
				img.SetGray16(z, y, v.gray(g.Index(position, y, z)))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= g.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, g.Height)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Width, g.Depth))
		for z := 0; z < g.Depth; z++ {
			for x := 0; x < g.Width; x++ {
				img.SetGray16(x, z, v.gray(g.Index(x, position, z)))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= g.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, g.Depth)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Width, g.Height))
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				img.SetGray16(x, y, v.gray(g.Index(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice. Files ending in .png are written
// losslessly, anything else as JPEG.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(filename), ".png") {
		return png.Encode(file, img)
	}
	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice along the specified axis as
// PNG files named slice_<axis>_<position>.png
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.grid.Width
	case "y", "Y":
		maxPos = v.grid.Height
	case "z", "Z":
		maxPos = v.grid.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
