package interpolation

import (
	"math"

	"radiomics3d/internal/models"
)

// tableSteps is the number of quantization steps of the fractional offset
const tableSteps = 256

// cubicTable stores the 4 tap weights for every quantized fractional offset.
// Row s holds the weights for taps -1, 0, 1, 2 at offset s/tableSteps.
type cubicTable [tableSteps + 1][4]float64

var (
	splineTable     = newCubicTable(bspline)
	polynomialTable = newCubicTable(keys)
)

func newCubicTable(kernel func(t float64) float64) *cubicTable {
	var tbl cubicTable
	for s := 0; s <= tableSteps; s++ {
		f := float64(s) / tableSteps
		tbl[s] = [4]float64{
			kernel(f + 1),
			kernel(f),
			kernel(1 - f),
			kernel(2 - f),
		}
	}
	return &tbl
}

// bspline is the cubic B-spline basis
func bspline(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		return (4 - 6*t*t + 3*t*t*t) / 6
	case t < 2:
		u := 2 - t
		return u * u * u / 6
	default:
		return 0
	}
}

// keysA is the free parameter of the cubic convolution kernel
const keysA = -0.5

// keys is the interpolating cubic convolution kernel
func keys(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t <= 1:
		return (keysA+2)*t*t*t - (keysA+3)*t*t + 1
	case t < 2:
		return keysA*t*t*t - 5*keysA*t*t + 8*keysA*t - 4*keysA
	default:
		return 0
	}
}

// weights returns the taps for a fractional offset in [0,1]
func (tbl *cubicTable) weights(f float64) [4]float64 {
	s := int(math.Round(f * tableSteps))
	if s < 0 {
		s = 0
	} else if s > tableSteps {
		s = tableSteps
	}
	return tbl[s]
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// sample runs the separable 4-tap convolution along z, then y, then x.
// Tap indices falling outside the grid are clamped to the nearest edge.
func (tbl *cubicTable) sample(data []float64, g models.Grid, x, y, z float64) float64 {
	x0, y0, z0 := int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))
	wx := tbl.weights(x - float64(x0))
	wy := tbl.weights(y - float64(y0))
	wz := tbl.weights(z - float64(z0))

	var xs, ys, zs [4]int
	for t := 0; t < 4; t++ {
		xs[t] = clamp(x0-1+t, g.Width)
		ys[t] = clamp(y0-1+t, g.Height)
		zs[t] = clamp(z0-1+t, g.Depth)
	}

	var plane [4][4]float64
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += wz[k] * data[g.Index(xs[i], ys[j], zs[k])]
			}
			plane[j][i] = s
		}
	}

	var row [4]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			row[i] += wy[j] * plane[j][i]
		}
	}

	var sum float64
	for i := 0; i < 4; i++ {
		sum += wx[i] * row[i]
	}
	return sum
}
