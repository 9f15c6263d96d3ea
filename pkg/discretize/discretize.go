// Package discretize quantizes ROI intensities into integer gray levels.
package discretize

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"radiomics3d/internal/models"
)

// Policy selects how intensities are mapped to gray levels
type Policy int

const (
	// FixedBinNumber splits the ROI intensity range into a fixed number of levels
	FixedBinNumber Policy = iota

	// FixedBinSize uses levels of a fixed intensity width
	FixedBinSize
)

// ParsePolicy converts a configuration string into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fbn", "fixedbinnumber", "fixedcount":
		return FixedBinNumber, nil
	case "fbs", "fixedbinsize", "fixedwidth":
		return FixedBinSize, nil
	default:
		return FixedBinNumber, fmt.Errorf("unknown discretization policy %q", s)
	}
}

func (p Policy) String() string {
	switch p {
	case FixedBinNumber:
		return "fixedBinNumber"
	case FixedBinSize:
		return "fixedBinSize"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Params holds the discretization settings for one extraction
type Params struct {
	Policy Policy

	// BinCount is the number of levels for FixedBinNumber
	BinCount int

	// BinWidth is the level width for FixedBinSize
	BinWidth float64

	// Minimum pins the lower bound for FixedBinSize to a re-segmentation
	// bound instead of the ROI minimum. Nil uses the ROI minimum.
	Minimum *float64
}

// Validate checks the settings independently of any volume
func (p Params) Validate() error {
	switch p.Policy {
	case FixedBinNumber:
		if p.BinCount < 1 {
			return fmt.Errorf("%w: bin count must be at least 1, got %d", models.ErrDiscretization, p.BinCount)
		}
	case FixedBinSize:
		if !(p.BinWidth > 0) {
			return fmt.Errorf("%w: bin width must be positive, got %g", models.ErrDiscretization, p.BinWidth)
		}
	default:
		return fmt.Errorf("%w: unknown policy %v", models.ErrDiscretization, p.Policy)
	}
	return nil
}

// Discretize quantizes the ROI voxels of the volume. Voxels outside the ROI
// are marked models.Undefined.
//
// Parameters:
//   - v: the intensity volume
//   - roi: one membership flag per voxel of v
//   - p: the discretization settings
//
// Returns:
//   - the discretized volume, or an error wrapping models.ErrDiscretization when
//     the bin width is not smaller than the ROI intensity range
func Discretize(v models.Volume, roi []bool, p Params) (*models.DiscretizedVolume, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(roi) != len(v.Data) {
		return nil, fmt.Errorf("%w: ROI has %d voxels, volume has %d", models.ErrInvalidInput, len(roi), len(v.Data))
	}

	values := make([]float64, 0, len(roi))
	for i, in := range roi {
		if in {
			values = append(values, v.Data[i])
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty ROI", models.ErrInvalidInput)
	}
	lo, hi := floats.Min(values), floats.Max(values)

	out := &models.DiscretizedVolume{
		Grid:   v.Grid,
		Levels: make([]int, len(v.Data)),
	}

	var level func(x float64) int
	switch p.Policy {
	case FixedBinNumber:
		n := p.BinCount
		out.Minimum = lo
		out.BinWidth = (hi - lo) / float64(n)
		level = func(x float64) int {
			if hi == lo {
				return 1
			}
			if x >= hi {
				return n
			}
			l := int(math.Floor(float64(n)*(x-lo)/(hi-lo))) + 1
			if l < 1 {
				l = 1
			}
			// rounding can push values just below hi into level n+1
			if l > n {
				l = n
			}
			return l
		}
	case FixedBinSize:
		min := lo
		if p.Minimum != nil {
			min = *p.Minimum
		}
		if p.BinWidth >= hi-lo {
			return nil, fmt.Errorf("%w: bin width %g is not smaller than the ROI intensity range %g",
				models.ErrDiscretization, p.BinWidth, hi-lo)
		}
		out.Minimum = min
		out.BinWidth = p.BinWidth
		w := p.BinWidth
		level = func(x float64) int {
			l := int(math.Floor((x-min)/w)) + 1
			if l < 1 {
				l = 1
			}
			return l
		}
	}

	for i, in := range roi {
		if !in {
			out.Levels[i] = models.Undefined
			continue
		}
		l := level(v.Data[i])
		out.Levels[i] = l
		if l > out.NumLevels {
			out.NumLevels = l
		}
	}

	if p.Policy == FixedBinNumber {
		out.NumLevels = p.BinCount
	}
	return out, nil
}
