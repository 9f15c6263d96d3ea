// Package ngtdm builds the neighbourhood gray tone difference table and its
// five texture features.
package ngtdm

import (
	"fmt"
	"math"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/direction"
	"radiomics3d/pkg/features"
)

// Params holds the NGTDM settings for one extraction
type Params struct {
	// Radius is the Chebyshev radius of the neighbourhood, 1 for the 26
	// immediate neighbours
	Radius int

	// Force2D restricts the neighbourhood to the voxel's slice
	Force2D bool
}

// Row aggregates one gray level
type Row struct {
	Level int

	// Count is the number of voxels at the level with a valid neighbourhood
	Count int

	// Probability is Count over the total number of counted voxels
	Probability float64

	// Sum accumulates |level - neighbourhood mean| over counted voxels
	Sum float64
}

// Table holds one row per gray level
type Table struct {
	Rows []Row

	// Voxels is the number of voxels with at least one valid neighbour
	Voxels int
}

// Build computes the table. Neighbours must lie inside the grid and the ROI;
// a voxel without any valid neighbour is not counted.
func Build(dv *models.DiscretizedVolume, p Params) (*Table, error) {
	if p.Radius < 1 {
		return nil, fmt.Errorf("%w: NGTDM radius must be at least 1, got %d", models.ErrInvalidInput, p.Radius)
	}
	if dv.NumLevels < 1 {
		return nil, fmt.Errorf("%w: discretized volume has no gray levels", models.ErrInvalidInput)
	}

	offsets := direction.Neighborhood(p.Radius, p.Force2D)
	t := &Table{Rows: make([]Row, dv.NumLevels)}
	for i := range t.Rows {
		t.Rows[i].Level = i + 1
	}

	for idx, g := range dv.Levels {
		if g == models.Undefined {
			continue
		}
		if g > dv.NumLevels {
			return nil, fmt.Errorf("%w: gray level %d exceeds %d levels", models.ErrInvalidInput, g, dv.NumLevels)
		}
		x, y, z := dv.Coords(idx)

		var sum, n int
		for _, o := range offsets {
			l := dv.LevelAt(x+o.DX, y+o.DY, z+o.DZ)
			if l == models.Undefined {
				continue
			}
			sum += l
			n++
		}
		if n == 0 {
			continue
		}

		r := &t.Rows[g-1]
		r.Count++
		r.Sum += math.Abs(float64(g) - float64(sum)/float64(n))
		t.Voxels++
	}

	if t.Voxels > 0 {
		for i := range t.Rows {
			t.Rows[i].Probability = float64(t.Rows[i].Count) / float64(t.Voxels)
		}
	}
	return t, nil
}

// Feature identifies one NGTDM feature
type Feature int

const (
	Coarseness Feature = iota
	Contrast
	Busyness
	Complexity
	Strength

	// NumFeatures is the number of NGTDM features
	NumFeatures
)

var featureNames = [NumFeatures]string{
	Coarseness: "Coarseness",
	Contrast:   "Contrast",
	Busyness:   "Busyness",
	Complexity: "Complexity",
	Strength:   "Strength",
}

func (f Feature) String() string {
	if f >= 0 && f < NumFeatures {
		return featureNames[f]
	}
	return fmt.Sprintf("Feature(%d)", int(f))
}

// Values holds one result per feature; NaN marks an undefined value
type Values [NumFeatures]float64

// Evaluate computes the five features. Pairwise sums only visit levels that
// occur, so no term divides by a zero probability.
func (t *Table) Evaluate() Values {
	var out Values
	for i := range out {
		out[i] = math.NaN()
	}
	if t == nil || t.Voxels == 0 {
		return out
	}

	var present []Row
	for _, r := range t.Rows {
		if r.Count > 0 {
			present = append(present, r)
		}
	}
	ngp := float64(len(present))
	nv := float64(t.Voxels)

	var weighted, total float64
	for _, r := range present {
		weighted += r.Probability * r.Sum
		total += r.Sum
	}

	var contrastSum, busyDenom, complexity, strength float64
	for _, a := range present {
		i := float64(a.Level)
		for _, b := range present {
			j := float64(b.Level)
			d := i - j
			contrastSum += a.Probability * b.Probability * d * d
			busyDenom += math.Abs(i*a.Probability - j*b.Probability)
			complexity += math.Abs(d) * (a.Probability*a.Sum + b.Probability*b.Sum) / (a.Probability + b.Probability)
			strength += (a.Probability + b.Probability) * d * d
		}
	}

	if weighted > 0 {
		out[Coarseness] = 1 / weighted
	}

	out[Contrast] = 0
	if ngp > 1 {
		out[Contrast] = contrastSum / (ngp * (ngp - 1)) * total / nv
	}

	out[Busyness] = 0
	if busyDenom > 0 {
		out[Busyness] = weighted / busyDenom
	}

	out[Complexity] = complexity / nv

	out[Strength] = 0
	if total > 0 {
		out[Strength] = strength / total
	}
	return out
}

// Compute builds the table and returns the features keyed by family and
// feature name
func Compute(dv *models.DiscretizedVolume, p Params) (features.Row, error) {
	t, err := Build(dv, p)
	if err != nil {
		return nil, err
	}
	vals := t.Evaluate()

	row := make(features.Row, NumFeatures)
	for f := Feature(0); f < NumFeatures; f++ {
		row[features.Key(features.NGTDM, f.String())] = features.Of(vals[f])
	}
	return row, nil
}
