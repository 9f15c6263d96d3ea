package interpolation

import (
	"fmt"
	"math"
	"strings"

	"radiomics3d/internal/models"
)

// Kind selects the interpolation kernel used when re-gridding a volume
type Kind int

const (
	Nearest Kind = iota
	Trilinear
	TricubicSpline
	TricubicPolynomial
)

var kindNames = map[Kind]string{
	Nearest:            "nearest",
	Trilinear:          "trilinear",
	TricubicSpline:     "tricubic-spline",
	TricubicPolynomial: "tricubic-polynomial",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a configuration string into a Kind
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == key {
			return k, nil
		}
	}
	return Nearest, fmt.Errorf("unknown interpolation kind %q", s)
}

// sampler evaluates the source data at a continuous voxel coordinate
type sampler func(data []float64, g models.Grid, x, y, z float64) float64

func (k Kind) sampler() sampler {
	switch k {
	case Trilinear:
		return sampleTrilinear
	case TricubicSpline:
		return splineTable.sample
	case TricubicPolynomial:
		return polynomialTable.sample
	default:
		return sampleNearest
	}
}

// valueAt returns the sample at integer coordinates, 0 outside the grid
func valueAt(data []float64, g models.Grid, x, y, z int) float64 {
	if !g.Contains(x, y, z) {
		return 0
	}
	return data[g.Index(x, y, z)]
}

// sampleNearest picks the physically nearest of the 8 integer corners around
// the coordinate. Ties go to the corner visited first, lower indices first.
func sampleNearest(data []float64, g models.Grid, x, y, z float64) float64 {
	x0, y0, z0 := int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))

	best := math.Inf(1)
	bx, by, bz := x0, y0, z0
	for dz := 0; dz <= 1; dz++ {
		for dy := 0; dy <= 1; dy++ {
			for dx := 0; dx <= 1; dx++ {
				cx, cy, cz := x0+dx, y0+dy, z0+dz
				ex := x - float64(cx)
				ey := y - float64(cy)
				ez := z - float64(cz)
				d := ex*ex + ey*ey + ez*ez
				if d < best {
					best = d
					bx, by, bz = cx, cy, cz
				}
			}
		}
	}
	return valueAt(data, g, bx, by, bz)
}

// sampleTrilinear blends the 8 surrounding corners by their fractional
// offsets. Corners outside the grid contribute 0.
func sampleTrilinear(data []float64, g models.Grid, x, y, z float64) float64 {
	x0, y0, z0 := int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))
	fx, fy, fz := x-float64(x0), y-float64(y0), z-float64(z0)

	wx := [2]float64{1 - fx, fx}
	wy := [2]float64{1 - fy, fy}
	wz := [2]float64{1 - fz, fz}

	var sum float64
	for dz := 0; dz <= 1; dz++ {
		for dy := 0; dy <= 1; dy++ {
			for dx := 0; dx <= 1; dx++ {
				w := wx[dx] * wy[dy] * wz[dz]
				if w == 0 {
					continue
				}
				sum += w * valueAt(data, g, x0+dx, y0+dy, z0+dz)
			}
		}
	}
	return sum
}
