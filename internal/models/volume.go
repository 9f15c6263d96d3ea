package models

import (
	"fmt"
	"math"
)

// Vec3 holds a per-axis quantity such as voxel spacing or a physical origin
type Vec3 struct {
	X, Y, Z float64
}

// Equal reports whether two vectors match within a small tolerance
func (v Vec3) Equal(o Vec3) bool {
	const eps = 1e-9
	return math.Abs(v.X-o.X) < eps && math.Abs(v.Y-o.Y) < eps && math.Abs(v.Z-o.Z) < eps
}

// Positive reports whether every component is strictly positive
func (v Vec3) Positive() bool {
	return v.X > 0 && v.Y > 0 && v.Z > 0
}

// Grid describes the shape and calibration shared by volumes, masks and
// discretized volumes
type Grid struct {
	// Width, Height, Depth are the dimensions in voxels
	Width, Height, Depth int

	// Spacing is the physical size of each voxel in mm
	Spacing Vec3

	// Origin is the physical position of the first voxel center
	Origin Vec3
}

// Len returns the number of voxels in the grid
func (g Grid) Len() int {
	return g.Width * g.Height * g.Depth
}

// Index converts voxel coordinates into the row-major flat index
func (g Grid) Index(x, y, z int) int {
	return z*g.Width*g.Height + y*g.Width + x
}

// Coords converts a flat index back into voxel coordinates
func (g Grid) Coords(idx int) (x, y, z int) {
	plane := g.Width * g.Height
	z = idx / plane
	rem := idx % plane
	y = rem / g.Width
	x = rem % g.Width
	return x, y, z
}

// Contains reports whether the coordinates fall inside the grid
func (g Grid) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Width && y < g.Height && z < g.Depth
}

// SameShape reports whether two grids have identical dimensions
func (g Grid) SameShape(o Grid) bool {
	return g.Width == o.Width && g.Height == o.Height && g.Depth == o.Depth
}

func (g Grid) validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.Depth <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%dx%d",
			ErrInvalidInput, g.Width, g.Height, g.Depth)
	}
	if !g.Spacing.Positive() {
		return fmt.Errorf("%w: voxel spacing must be positive, got %+v", ErrInvalidInput, g.Spacing)
	}
	return nil
}

// Volume represents a 3D intensity volume. A Volume is never modified after
// construction; every transform produces a new one.
type Volume struct {
	Grid

	// Data is the 3D volume data as a 1D array in row-major order
	Data []float64
}

// NewVolume validates the data length against the grid and returns a Volume
func NewVolume(data []float64, grid Grid) (Volume, error) {
	if err := grid.validate(); err != nil {
		return Volume{}, err
	}
	if len(data) != grid.Len() {
		return Volume{}, fmt.Errorf("%w: volume holds %d samples, grid needs %d",
			ErrInvalidInput, len(data), grid.Len())
	}
	return Volume{Grid: grid, Data: data}, nil
}

// At returns the sample at the given coordinates
func (v Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}
