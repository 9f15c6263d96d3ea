package models

import "fmt"

// Mask is a volume-shaped label array. A voxel belongs to the ROI when its
// label equals the configured target label.
type Mask struct {
	Grid

	// Labels holds one integer label per voxel in row-major order
	Labels []int
}

// NewMask validates the label count against the grid and returns a Mask
func NewMask(labels []int, grid Grid) (Mask, error) {
	if err := grid.validate(); err != nil {
		return Mask{}, err
	}
	if len(labels) != grid.Len() {
		return Mask{}, fmt.Errorf("%w: mask holds %d labels, grid needs %d",
			ErrInvalidInput, len(labels), grid.Len())
	}
	return Mask{Grid: grid, Labels: labels}, nil
}

// Count returns the number of voxels carrying the label
func (m Mask) Count(label int) int {
	n := 0
	for _, l := range m.Labels {
		if l == label {
			n++
		}
	}
	return n
}

// MaxLabel returns the largest label in the mask
func (m Mask) MaxLabel() int {
	max := 0
	for i, l := range m.Labels {
		if i == 0 || l > max {
			max = l
		}
	}
	return max
}

// ROI returns a membership flag per voxel for the label
func (m Mask) ROI(label int) []bool {
	roi := make([]bool, len(m.Labels))
	for i, l := range m.Labels {
		roi[i] = l == label
	}
	return roi
}

// Binarize returns a new mask carrying 1 where the label matches and 0 elsewhere
func (m Mask) Binarize(label int) Mask {
	out := make([]int, len(m.Labels))
	for i, l := range m.Labels {
		if l == label {
			out[i] = 1
		}
	}
	return Mask{Grid: m.Grid, Labels: out}
}

// CheckPaired verifies that a volume and a mask describe the same grid and
// that the ROI label is present
func CheckPaired(v Volume, m Mask, label int) error {
	if !v.SameShape(m.Grid) {
		return fmt.Errorf("%w: volume is %dx%dx%d but mask is %dx%dx%d", ErrInvalidInput,
			v.Width, v.Height, v.Depth, m.Width, m.Height, m.Depth)
	}
	if m.Count(label) == 0 {
		return fmt.Errorf("%w: ROI label %d absent from mask", ErrInvalidInput, label)
	}
	return nil
}
