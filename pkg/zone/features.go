package zone

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/features"
)

// Feature identifies one zone feature. The same formulas serve the size and
// distance variants; only the column attribute and the reported name differ.
type Feature int

const (
	SmallEmphasis Feature = iota
	LargeEmphasis
	LowGrayLevelEmphasis
	HighGrayLevelEmphasis
	SmallLowGrayLevelEmphasis
	SmallHighGrayLevelEmphasis
	LargeLowGrayLevelEmphasis
	LargeHighGrayLevelEmphasis
	GrayLevelNonUniformity
	GrayLevelNonUniformityNormalized
	NonUniformity
	NonUniformityNormalized
	ZonePercentage
	GrayLevelVariance
	Variance
	Entropy

	// NumFeatures is the number of zone features per family
	NumFeatures
)

var sizeNames = [NumFeatures]string{
	SmallEmphasis:                    "SmallZoneEmphasis",
	LargeEmphasis:                    "LargeZoneEmphasis",
	LowGrayLevelEmphasis:             "LowGrayLevelZoneEmphasis",
	HighGrayLevelEmphasis:            "HighGrayLevelZoneEmphasis",
	SmallLowGrayLevelEmphasis:        "SmallZoneLowGrayLevelEmphasis",
	SmallHighGrayLevelEmphasis:       "SmallZoneHighGrayLevelEmphasis",
	LargeLowGrayLevelEmphasis:        "LargeZoneLowGrayLevelEmphasis",
	LargeHighGrayLevelEmphasis:       "LargeZoneHighGrayLevelEmphasis",
	GrayLevelNonUniformity:           "GrayLevelNonUniformity",
	GrayLevelNonUniformityNormalized: "GrayLevelNonUniformityNormalized",
	NonUniformity:                    "ZoneSizeNonUniformity",
	NonUniformityNormalized:          "ZoneSizeNonUniformityNormalized",
	ZonePercentage:                   "ZonePercentage",
	GrayLevelVariance:                "GrayLevelVariance",
	Variance:                         "ZoneSizeVariance",
	Entropy:                          "ZoneSizeEntropy",
}

var distanceNames = [NumFeatures]string{
	SmallEmphasis:                    "SmallDistanceEmphasis",
	LargeEmphasis:                    "LargeDistanceEmphasis",
	LowGrayLevelEmphasis:             "LowGrayLevelZoneEmphasis",
	HighGrayLevelEmphasis:            "HighGrayLevelZoneEmphasis",
	SmallLowGrayLevelEmphasis:        "SmallDistanceLowGrayLevelEmphasis",
	SmallHighGrayLevelEmphasis:       "SmallDistanceHighGrayLevelEmphasis",
	LargeLowGrayLevelEmphasis:        "LargeDistanceLowGrayLevelEmphasis",
	LargeHighGrayLevelEmphasis:       "LargeDistanceHighGrayLevelEmphasis",
	GrayLevelNonUniformity:           "GrayLevelNonUniformity",
	GrayLevelNonUniformityNormalized: "GrayLevelNonUniformityNormalized",
	NonUniformity:                    "ZoneDistanceNonUniformity",
	NonUniformityNormalized:          "ZoneDistanceNonUniformityNormalized",
	ZonePercentage:                   "ZonePercentage",
	GrayLevelVariance:                "GrayLevelVariance",
	Variance:                         "ZoneDistanceVariance",
	Entropy:                          "ZoneDistanceEntropy",
}

// Name returns the reported feature name for the family
func (f Feature) Name(family features.Family) string {
	if f < 0 || f >= NumFeatures {
		return fmt.Sprintf("Feature(%d)", int(f))
	}
	if family == features.GLDZM {
		return distanceNames[f]
	}
	return sizeNames[f]
}

func (f Feature) String() string {
	return f.Name(features.GLSZM)
}

// Values holds one result per feature; NaN marks an undefined value
type Values [NumFeatures]float64

// Evaluate computes the zone features of a matrix. Cells are normalized by the
// total zone count. A matrix without zones yields all NaN.
func Evaluate(m *Matrix) Values {
	var out Values
	for i := range out {
		out[i] = math.NaN()
	}
	if m == nil || m.Counts == nil || m.Zones == 0 {
		return out
	}

	rows, cols := m.Counts.Dims()
	ns := float64(m.Zones)

	levelSums := make([]float64, rows)
	for i := range levelSums {
		levelSums[i] = floats.Sum(mat.Row(nil, i, m.Counts))
	}
	colSums := make([]float64, cols)
	for j := range colSums {
		colSums[j] = floats.Sum(mat.Col(nil, j, m.Counts))
	}

	var sEmph, lEmph, lowG, highG, slg, shg, llg, lhg float64
	var muLevel, muCol float64
	p := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		g := float64(i + 1)
		for j := 0; j < cols; j++ {
			s := m.Counts.At(i, j)
			if s == 0 {
				continue
			}
			v := float64(m.Columns[j])
			slg += s / (g * g * v * v)
			shg += s * g * g / (v * v)
			llg += s * v * v / (g * g)
			lhg += s * g * g * v * v
			pij := s / ns
			p = append(p, pij)
			muLevel += g * pij
			muCol += v * pij
		}
	}
	for j, s := range colSums {
		v := float64(m.Columns[j])
		sEmph += s / (v * v)
		lEmph += s * v * v
	}
	for i, s := range levelSums {
		g := float64(i + 1)
		lowG += s / (g * g)
		highG += s * g * g
	}

	var varLevel, varCol float64
	for i := 0; i < rows; i++ {
		g := float64(i + 1)
		for j := 0; j < cols; j++ {
			s := m.Counts.At(i, j)
			if s == 0 {
				continue
			}
			v := float64(m.Columns[j])
			pij := s / ns
			varLevel += (g - muLevel) * (g - muLevel) * pij
			varCol += (v - muCol) * (v - muCol) * pij
		}
	}

	out[SmallEmphasis] = sEmph / ns
	out[LargeEmphasis] = lEmph / ns
	out[LowGrayLevelEmphasis] = lowG / ns
	out[HighGrayLevelEmphasis] = highG / ns
	out[SmallLowGrayLevelEmphasis] = slg / ns
	out[SmallHighGrayLevelEmphasis] = shg / ns
	out[LargeLowGrayLevelEmphasis] = llg / ns
	out[LargeHighGrayLevelEmphasis] = lhg / ns
	out[GrayLevelNonUniformity] = floats.Dot(levelSums, levelSums) / ns
	out[GrayLevelNonUniformityNormalized] = floats.Dot(levelSums, levelSums) / (ns * ns)
	out[NonUniformity] = floats.Dot(colSums, colSums) / ns
	out[NonUniformityNormalized] = floats.Dot(colSums, colSums) / (ns * ns)
	if m.Voxels > 0 {
		out[ZonePercentage] = ns / float64(m.Voxels)
	}
	out[GrayLevelVariance] = varLevel
	out[Variance] = varCol
	out[Entropy] = stat.Entropy(p) / math.Ln2
	return out
}

// Params holds the zone settings for one extraction
type Params struct {
	// Force2D labels zones within slices using 8-connectivity
	Force2D bool
}

// SizeZone labels the zones of the discretized volume and returns the GLSZM
// features
func SizeZone(dv *models.DiscretizedVolume, p Params) (features.Row, error) {
	if err := checkVolume(dv); err != nil {
		return nil, err
	}
	zones := Label(dv, p.Force2D, nil)
	m := NewMatrix(zones, dv.NumLevels, dv.DefinedCount(), BySize)
	return row(features.GLSZM, Evaluate(m)), nil
}

// DistanceZone labels the zones of the discretized volume and returns the
// GLDZM features. Zone distances come from ref when it is not nil, otherwise
// from the distance to the ROI border.
func DistanceZone(dv *models.DiscretizedVolume, p Params, ref *models.DiscretizedVolume) (features.Row, error) {
	if err := checkVolume(dv); err != nil {
		return nil, err
	}

	var distance []int
	if ref != nil {
		d, err := ReferenceDistance(dv, ref)
		if err != nil {
			return nil, err
		}
		distance = d
	} else {
		distance = BorderDistance(dv, p.Force2D)
	}

	zones := Label(dv, p.Force2D, distance)
	m := NewMatrix(zones, dv.NumLevels, dv.DefinedCount(), ByDistance)
	return row(features.GLDZM, Evaluate(m)), nil
}

func checkVolume(dv *models.DiscretizedVolume) error {
	if dv == nil || dv.NumLevels < 1 {
		return fmt.Errorf("%w: discretized volume has no gray levels", models.ErrInvalidInput)
	}
	for _, l := range dv.Levels {
		if l > dv.NumLevels {
			return fmt.Errorf("%w: gray level %d exceeds %d levels", models.ErrInvalidInput, l, dv.NumLevels)
		}
	}
	return nil
}

func row(family features.Family, vals Values) features.Row {
	r := make(features.Row, NumFeatures)
	for f := Feature(0); f < NumFeatures; f++ {
		r[features.Key(family, f.Name(family))] = features.Of(vals[f])
	}
	return r
}
