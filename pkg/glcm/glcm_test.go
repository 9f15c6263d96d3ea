package glcm

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/direction"
	"radiomics3d/pkg/discretize"
	"radiomics3d/pkg/features"
)

const tolerance = 1e-6

// fixture is the 4x4 single-slice grid used by the reference co-occurrence
// example, indexed [y][x]
var fixture = [4][4]int{
	{1, 2, 2, 3},
	{1, 2, 3, 3},
	{4, 2, 4, 1},
	{4, 1, 2, 3},
}

func fixtureVolume() *models.DiscretizedVolume {
	dv := &models.DiscretizedVolume{
		Grid:      models.Grid{Width: 4, Height: 4, Depth: 1, Spacing: models.Vec3{X: 1, Y: 1, Z: 1}},
		Levels:    make([]int, 16),
		NumLevels: 4,
		BinWidth:  1,
		Minimum:   0.5,
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			dv.Levels[dv.Index(x, y, 0)] = fixture[y][x]
		}
	}
	return dv
}

// symmetric builds a 4x4 reference matrix from upper-triangle pair counts,
// mirroring the off-diagonal entries and doubling diagonal pairs
func symmetric(pairs map[[2]int]float64) *mat.SymDense {
	m := mat.NewSymDense(4, nil)
	for k, v := range pairs {
		i, j := k[0]-1, k[1]-1
		if i == j {
			m.SetSym(i, j, 2*v)
		} else {
			m.SetSym(i, j, v)
		}
	}
	return m
}

// Reference matrices for 0, 45, 90 and 135 degrees, as unordered pair counts
var references = map[int]*mat.SymDense{
	14: symmetric(map[[2]int]float64{{1, 2}: 3, {2, 2}: 1, {2, 3}: 3, {3, 3}: 1, {2, 4}: 2, {1, 4}: 2}),
	15: symmetric(map[[2]int]float64{{1, 2}: 2, {2, 2}: 1, {3, 3}: 1, {2, 4}: 2, {2, 3}: 1, {3, 4}: 1, {1, 4}: 1}),
	16: symmetric(map[[2]int]float64{{1, 1}: 1, {1, 4}: 1, {4, 4}: 1, {2, 2}: 2, {1, 2}: 1, {2, 3}: 1, {3, 4}: 1, {2, 4}: 1, {3, 3}: 1, {1, 3}: 2}),
	17: symmetric(map[[2]int]float64{{1, 2}: 2, {2, 3}: 2, {2, 4}: 1, {1, 3}: 1, {1, 4}: 1, {2, 2}: 1, {3, 4}: 1}),
}

func referenceEntropy(m *mat.SymDense) float64 {
	total := mat.Sum(m)
	var h float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			p := m.At(i, j) / total
			if p > 0 {
				h -= p * math.Log2(p)
			}
		}
	}
	return h
}

// TestReferenceMatrices verifies the per-direction matrices on the 4x4 fixture
func TestReferenceMatrices(t *testing.T) {
	p := DefaultParams()
	p.Force2D = true
	ms, err := Build(fixtureVolume(), p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(ms) != 4 {
		t.Fatalf("Expected 4 planar matrices, got %d", len(ms))
	}

	for _, m := range ms {
		ref := references[m.Direction]
		if m.Absent() {
			t.Fatalf("Direction %d should not be absent", m.Direction)
		}
		if !mat.EqualApprox(m.Counts, ref, 1e-12) {
			t.Errorf("Direction %d:\n got %v\nwant %v", m.Direction,
				mat.Formatted(m.Counts), mat.Formatted(ref))
		}
	}
}

// TestReferenceFeatures checks joint maximum, contrast and entropy per
// direction against the fixture
func TestReferenceFeatures(t *testing.T) {
	want := map[int]struct{ jointMax, contrast float64 }{
		14: {3.0 / 24, 64.0 / 24},
		15: {2.0 / 18, 42.0 / 18},
		16: {4.0 / 24, 48.0 / 24},
		17: {2.0 / 18, 44.0 / 18},
	}

	for d, ref := range references {
		v := Evaluate(ref)
		if math.Abs(v[JointMaximum]-want[d].jointMax) > tolerance {
			t.Errorf("Direction %d: joint maximum %f, expected %f", d, v[JointMaximum], want[d].jointMax)
		}
		if math.Abs(v[Contrast]-want[d].contrast) > tolerance {
			t.Errorf("Direction %d: contrast %f, expected %f", d, v[Contrast], want[d].contrast)
		}
		if e := referenceEntropy(ref); math.Abs(v[JointEntropy]-e) > tolerance {
			t.Errorf("Direction %d: entropy %f, expected %f", d, v[JointEntropy], e)
		}
	}

	if e := referenceEntropy(references[14]); math.Abs(e-3.2924812503605785) > tolerance {
		t.Errorf("0 degree entropy: expected 3.29248, got %f", e)
	}
}

// TestAverageAggregation checks the mean over directions and that absent
// out-of-slice directions are excluded in 3D mode
func TestAverageAggregation(t *testing.T) {
	p := DefaultParams()
	ms3d, err := Build(fixtureVolume(), p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(ms3d) != 13 {
		t.Fatalf("Expected 13 matrices, got %d", len(ms3d))
	}
	absent := 0
	for _, m := range ms3d {
		if m.Absent() {
			absent++
			if direction.At(m.Direction).Planar() {
				t.Errorf("In-slice direction %d should not be absent", m.Direction)
			}
		}
	}
	if absent != 9 {
		t.Errorf("Expected 9 absent directions on a single slice, got %d", absent)
	}

	v := Aggregate(ms3d, Average)
	wantContrast := (64.0/24 + 42.0/18 + 48.0/24 + 44.0/18) / 4
	if math.Abs(v[Contrast]-wantContrast) > tolerance {
		t.Errorf("Averaged contrast %f, expected %f", v[Contrast], wantContrast)
	}

	p.Force2D = true
	ms2d, _ := Build(fixtureVolume(), p)
	v2 := Aggregate(ms2d, Average)
	for f := Feature(0); f < NumFeatures; f++ {
		if math.Abs(v[f]-v2[f]) > 1e-12 && !(math.IsNaN(v[f]) && math.IsNaN(v2[f])) {
			t.Errorf("%v: 3D %f differs from 2D %f on a single slice", f, v[f], v2[f])
		}
	}
}

// TestMergedAggregation checks that merging sums the direction counts
func TestMergedAggregation(t *testing.T) {
	p := DefaultParams()
	p.Force2D = true
	ms, _ := Build(fixtureVolume(), p)

	merged := Merge(ms)
	if got := mat.Sum(merged); got != 24+18+24+18 {
		t.Errorf("Expected merged total 84, got %f", got)
	}

	v := Aggregate(ms, Merged)
	if want := (64.0 + 42 + 48 + 44) / 84; math.Abs(v[Contrast]-want) > tolerance {
		t.Errorf("Merged contrast %f, expected %f", v[Contrast], want)
	}
}

// TestDistanceWeighting checks exp(-d^2) weights under each norm
func TestDistanceWeighting(t *testing.T) {
	dv := fixtureVolume()
	dv.Spacing = models.Vec3{X: 0.5, Y: 0.5, Z: 1}

	p := DefaultParams()
	p.Force2D = true
	p.Weighting = direction.Chebyshev
	ms, _ := Build(dv, p)
	for _, m := range ms {
		if math.Abs(m.Weight-math.Exp(-0.25)) > 1e-12 {
			t.Errorf("Chebyshev weight for direction %d: %f", m.Direction, m.Weight)
		}
	}

	p.Weighting = direction.Manhattan
	ms, _ = Build(dv, p)
	for _, m := range ms {
		want := math.Exp(-0.25)
		if off := direction.At(m.Direction); off.DX != 0 && off.DY != 0 {
			want = math.Exp(-1)
		}
		if math.Abs(m.Weight-want) > 1e-12 {
			t.Errorf("Manhattan weight for direction %d: got %f, expected %f", m.Direction, m.Weight, want)
		}
	}

	p.Weighting = direction.NoNorm
	ms, _ = Build(dv, p)
	for _, m := range ms {
		if m.Weight != 1 {
			t.Errorf("Unweighted direction %d has weight %f", m.Direction, m.Weight)
		}
	}
}

// TestUniformRegion verifies the degenerate single-level case
func TestUniformRegion(t *testing.T) {
	dv := &models.DiscretizedVolume{
		Grid:      models.Grid{Width: 3, Height: 3, Depth: 3, Spacing: models.Vec3{X: 1, Y: 1, Z: 1}},
		Levels:    make([]int, 27),
		NumLevels: 8,
	}
	for i := range dv.Levels {
		dv.Levels[i] = 1
	}

	row, err := Compute(dv, DefaultParams())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	check := func(f Feature, want float64) {
		v := row[features.Key(features.GLCM, f.String())]
		if !v.Defined || math.Abs(v.V-want) > tolerance {
			t.Errorf("%v: expected %f, got %v", f, want, v)
		}
	}
	check(AngularSecondMoment, 1)
	check(Contrast, 0)
	check(JointEntropy, 0)
	check(JointMaximum, 1)

	if v := row[features.Key(features.GLCM, Correlation.String())]; v.Defined {
		t.Errorf("Correlation should be undefined for a single level, got %v", v)
	}
}

// TestNormalizedSumsToOne checks every present normalized matrix
func TestNormalizedSumsToOne(t *testing.T) {
	dv := &models.DiscretizedVolume{
		Grid:      models.Grid{Width: 5, Height: 4, Depth: 3, Spacing: models.Vec3{X: 1, Y: 1, Z: 2}},
		Levels:    make([]int, 60),
		NumLevels: 6,
	}
	for i := range dv.Levels {
		dv.Levels[i] = (i*7)%6 + 1
		if i%11 == 0 {
			dv.Levels[i] = models.Undefined
		}
	}

	p := DefaultParams()
	p.Distance = 2
	ms, err := Build(dv, p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, m := range ms {
		if m.Absent() {
			continue
		}
		if s := mat.Sum(m.Normalized()); math.Abs(s-1) > 1e-12 {
			t.Errorf("Direction %d: normalized sum %f", m.Direction, s)
		}
	}
}

// TestAllAbsent verifies that an ROI without pairs yields undefined features
func TestAllAbsent(t *testing.T) {
	dv := &models.DiscretizedVolume{
		Grid:      models.Grid{Width: 3, Height: 3, Depth: 1, Spacing: models.Vec3{X: 1, Y: 1, Z: 1}},
		Levels:    []int{-1, -1, -1, -1, 2, -1, -1, -1, -1},
		NumLevels: 2,
	}

	row, err := Compute(dv, DefaultParams())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for k, v := range row {
		if v.Defined {
			t.Errorf("%s should be undefined, got %v", k, v)
		}
	}
	if len(row) != int(NumFeatures) {
		t.Errorf("Expected %d features, got %d", NumFeatures, len(row))
	}
}

// TestLevelsNearMaximum builds matrices for a plateau whose values sit a few
// ulps below the ROI maximum, next to voxels at the maximum
func TestLevelsNearMaximum(t *testing.T) {
	lo, hi, n := -39.81762788294259, 11.704634967263951, 48
	below := math.Nextafter(hi, math.Inf(-1))
	data := []float64{
		lo, below, hi, below,
		below, hi, below, hi,
		hi, below, lo, below,
		below, hi, below, hi,
	}
	vol, err := models.NewVolume(data, models.Grid{Width: 4, Height: 4, Depth: 1, Spacing: models.Vec3{X: 1, Y: 1, Z: 1}})
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}
	roi := make([]bool, len(data))
	for i := range roi {
		roi[i] = true
	}
	dv, err := discretize.Discretize(vol, roi, discretize.Params{Policy: discretize.FixedBinNumber, BinCount: n})
	if err != nil {
		t.Fatalf("Discretize failed: %v", err)
	}

	row, err := Compute(dv, DefaultParams())
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(row) != int(NumFeatures) {
		t.Errorf("Expected %d features, got %d", NumFeatures, len(row))
	}
	ms, err := Build(dv, DefaultParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, m := range ms {
		if m.Absent() {
			continue
		}
		if r, _ := m.Counts.Dims(); r != n {
			t.Errorf("Direction %d: expected %dx%d matrix, got %d rows", m.Direction, n, n, r)
		}
	}
}

// TestInvalidDistance checks the step distance guard
func TestInvalidDistance(t *testing.T) {
	p := DefaultParams()
	p.Distance = 0
	if _, err := Build(fixtureVolume(), p); err == nil {
		t.Errorf("Expected an error for distance 0")
	}
}
