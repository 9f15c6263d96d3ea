// Package glcm builds gray level co-occurrence matrices over the direction
// model and derives the co-occurrence texture features.
package glcm

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/direction"
)

// Aggregation selects how per-direction matrices are combined into one
// feature value
type Aggregation int

const (
	// Average computes features per direction and reports their mean over the
	// directions whose matrix is present
	Average Aggregation = iota

	// Merged sums the weighted direction matrices and computes features once
	Merged
)

// ParseAggregation converts a configuration string into an Aggregation
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "average":
		return Average, nil
	case "merged":
		return Merged, nil
	default:
		return Average, fmt.Errorf("unknown GLCM aggregation %q", s)
	}
}

func (a Aggregation) String() string {
	if a == Merged {
		return "merged"
	}
	return "average"
}

// Params holds the co-occurrence settings for one extraction
type Params struct {
	// Distance is the integer step k applied to every direction
	Distance int

	// Weighting selects the norm used for exp(-d^2) distance weighting
	Weighting direction.Norm

	Aggregation Aggregation

	// Force2D restricts the analysis to the 4 in-slice directions
	Force2D bool

	// Workers bounds the number of directions built concurrently
	Workers int
}

// DefaultParams returns a step of 1, no weighting and averaged aggregation
func DefaultParams() Params {
	return Params{Distance: 1, Workers: runtime.NumCPU()}
}

// Matrix is the co-occurrence matrix of one direction
type Matrix struct {
	// Direction is the index into the direction table
	Direction int

	// Counts holds the symmetric pair counts, nil when no pair occurred
	Counts *mat.SymDense

	// Weight is the distance weight exp(-d^2) applied when merging
	Weight float64
}

// Absent reports whether no voxel pair occurred along the direction
func (m Matrix) Absent() bool {
	return m.Counts == nil
}

// Normalized returns a copy of the weighted counts scaled to sum to 1, or nil
// when the matrix is absent
func (m Matrix) Normalized() *mat.SymDense {
	if m.Absent() {
		return nil
	}
	return normalize(m.Counts)
}

func normalize(s *mat.SymDense) *mat.SymDense {
	total := mat.Sum(s)
	if total == 0 {
		return nil
	}
	n := s.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.ScaleSym(1/total, s)
	return out
}

// Build computes one co-occurrence matrix per active direction. Directions
// are processed concurrently; each worker writes only its own slot.
func Build(dv *models.DiscretizedVolume, p Params) ([]Matrix, error) {
	if p.Distance < 1 {
		return nil, fmt.Errorf("%w: GLCM distance must be at least 1, got %d", models.ErrInvalidInput, p.Distance)
	}
	if dv.NumLevels < 1 {
		return nil, fmt.Errorf("%w: discretized volume has no gray levels", models.ErrInvalidInput)
	}

	dirs := direction.Active(p.Force2D)
	out := make([]Matrix, len(dirs))

	var g errgroup.Group
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for slot, d := range dirs {
		slot, d := slot, d
		g.Go(func() error {
			off := direction.At(d).Scaled(p.Distance)
			out[slot] = Matrix{
				Direction: d,
				Counts:    count(dv, off),
				Weight:    math.Exp(-math.Pow(off.Length(p.Weighting, dv.Spacing), 2)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// count fills the symmetric co-occurrence counts for one offset. Every
// unordered voxel pair increments both M[i][j] and M[j][i]; in the upper
// triangular storage a diagonal hit adds 2.
func count(dv *models.DiscretizedVolume, off direction.Offset) *mat.SymDense {
	n := dv.NumLevels
	data := make([]float64, n*n)
	pairs := 0

	for z := 0; z < dv.Depth; z++ {
		nz := z + off.DZ
		if nz < 0 || nz >= dv.Depth {
			continue
		}
		for y := 0; y < dv.Height; y++ {
			ny := y + off.DY
			if ny < 0 || ny >= dv.Height {
				continue
			}
			for x := 0; x < dv.Width; x++ {
				nx := x + off.DX
				if nx < 0 || nx >= dv.Width {
					continue
				}
				i := dv.Levels[dv.Index(x, y, z)]
				if i == models.Undefined {
					continue
				}
				j := dv.Levels[dv.Index(nx, ny, nz)]
				if j == models.Undefined {
					continue
				}
				a, b := i-1, j-1
				if a > b {
					a, b = b, a
				}
				if a == b {
					data[a*n+b] += 2
				} else {
					data[a*n+b]++
				}
				pairs++
			}
		}
	}

	if pairs == 0 {
		return nil
	}
	return mat.NewSymDense(n, data)
}

// Merge sums the weighted matrices of every present direction. It returns
// nil when all directions are absent.
func Merge(ms []Matrix) *mat.SymDense {
	var sum *mat.SymDense
	for _, m := range ms {
		if m.Absent() {
			continue
		}
		w := mat.NewSymDense(m.Counts.SymmetricDim(), nil)
		w.ScaleSym(m.Weight, m.Counts)
		if sum == nil {
			sum = w
			continue
		}
		sum.AddSym(sum, w)
	}
	return sum
}
