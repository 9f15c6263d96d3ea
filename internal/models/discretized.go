package models

// Undefined marks voxels outside the ROI in a DiscretizedVolume. Valid levels
// start at 1, so the sentinel never collides with a gray level.
const Undefined = -1

// DiscretizedVolume holds integer gray levels in [1..NumLevels] for ROI voxels
// and Undefined everywhere else. It is derived once per volume, mask and
// discretization scheme and shared read-only by every matrix engine.
type DiscretizedVolume struct {
	Grid

	// Levels holds one gray level per voxel in row-major order
	Levels []int

	// NumLevels is the highest gray level in use
	NumLevels int

	// Minimum is the intensity mapped to the lower edge of level 1
	Minimum float64

	// BinWidth is the intensity width of one gray level
	BinWidth float64
}

// Defined reports whether the voxel at the flat index carries a gray level
func (d *DiscretizedVolume) Defined(idx int) bool {
	return d.Levels[idx] != Undefined
}

// LevelAt returns the gray level at the coordinates or Undefined when the
// coordinates are outside the grid
func (d *DiscretizedVolume) LevelAt(x, y, z int) int {
	if !d.Contains(x, y, z) {
		return Undefined
	}
	return d.Levels[d.Index(x, y, z)]
}

// DefinedCount returns the number of voxels carrying a gray level
func (d *DiscretizedVolume) DefinedCount() int {
	n := 0
	for _, l := range d.Levels {
		if l != Undefined {
			n++
		}
	}
	return n
}

// BinCenter returns the intensity at the center of a gray level's bin
func (d *DiscretizedVolume) BinCenter(level int) float64 {
	return d.Minimum + (float64(level)-0.5)*d.BinWidth
}
