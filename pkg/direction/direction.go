// Package direction provides the fixed table of 3D neighbor offsets used by
// every texture matrix engine.
//
// Offsets are indexed 0..26 by (dz+1)*9 + (dy+1)*3 + (dx+1), so index 13 is
// the zero vector and index i and 26-i are antipodal. Because co-occurrence
// counting is symmetric, only the upper half 14..26 is iterated.
package direction

import (
	"fmt"
	"math"
	"strings"

	"radiomics3d/internal/models"
)

// Offset is an integer step in {-1,0,1} along each axis
type Offset struct {
	DX, DY, DZ int
}

// Self is the index of the zero offset
const Self = 13

// Count is the number of entries in the table including Self
const Count = 27

var table [Count]Offset

func init() {
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				table[Index(dx, dy, dz)] = Offset{dx, dy, dz}
			}
		}
	}
}

// Index returns the table index of a unit offset
func Index(dx, dy, dz int) int {
	return (dz+1)*9 + (dy+1)*3 + (dx + 1)
}

// At returns the offset stored at the index
func At(i int) Offset {
	return table[i]
}

// Antipode returns the index of the opposite offset
func Antipode(i int) int {
	return Count - 1 - i
}

var (
	volumetric = []int{14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26}

	// 0, 45, 90 and 135 degrees within a slice
	planar = []int{14, 15, 16, 17}
)

// Volumetric returns the 13 direction indices used for 3D analysis
func Volumetric() []int {
	return append([]int(nil), volumetric...)
}

// Planar returns the 4 in-slice direction indices used for 2D analysis
func Planar() []int {
	return append([]int(nil), planar...)
}

// Active returns the planar set when force2D is set, the volumetric set otherwise
func Active(force2D bool) []int {
	if force2D {
		return Planar()
	}
	return Volumetric()
}

// Scaled multiplies the offset by an integer step distance
func (o Offset) Scaled(k int) Offset {
	return Offset{o.DX * k, o.DY * k, o.DZ * k}
}

// IsZero reports whether the offset is the zero vector
func (o Offset) IsZero() bool {
	return o.DX == 0 && o.DY == 0 && o.DZ == 0
}

// Planar reports whether the offset stays within a slice
func (o Offset) Planar() bool {
	return o.DZ == 0
}

// Norm selects how the physical length of an offset is measured
type Norm int

const (
	NoNorm Norm = iota
	Manhattan
	Euclidean
	Chebyshev
)

var normNames = map[Norm]string{
	NoNorm:    "none",
	Manhattan: "manhattan",
	Euclidean: "euclidean",
	Chebyshev: "chebyshev",
}

func (n Norm) String() string {
	if s, ok := normNames[n]; ok {
		return s
	}
	return fmt.Sprintf("Norm(%d)", int(n))
}

// ParseNorm converts a configuration string into a Norm
func ParseNorm(s string) (Norm, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return NoNorm, nil
	}
	for n, name := range normNames {
		if name == key {
			return n, nil
		}
	}
	return NoNorm, fmt.Errorf("unknown distance norm %q", s)
}

// Length returns the physical length of the offset under the norm, scaling
// each axis by the voxel spacing. NoNorm yields 0.
func (o Offset) Length(n Norm, spacing models.Vec3) float64 {
	x := math.Abs(float64(o.DX) * spacing.X)
	y := math.Abs(float64(o.DY) * spacing.Y)
	z := math.Abs(float64(o.DZ) * spacing.Z)
	switch n {
	case Manhattan:
		return x + y + z
	case Euclidean:
		return math.Sqrt(x*x + y*y + z*z)
	case Chebyshev:
		return math.Max(x, math.Max(y, z))
	default:
		return 0
	}
}

// Neighborhood returns every non-zero offset within the Chebyshev radius,
// i.e. rings 1..radius around a voxel. In planar mode offsets leaving the
// slice are dropped. Offsets are not limited to unit steps when radius > 1.
func Neighborhood(radius int, planarOnly bool) []Offset {
	if radius < 1 {
		radius = 1
	}
	var out []Offset
	zr := radius
	if planarOnly {
		zr = 0
	}
	for dz := -zr; dz <= zr; dz++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out = append(out, Offset{dx, dy, dz})
			}
		}
	}
	return out
}
