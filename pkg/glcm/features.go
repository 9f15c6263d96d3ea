package glcm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/features"
)

// Feature identifies one co-occurrence feature
type Feature int

const (
	JointMaximum Feature = iota
	JointAverage
	JointVariance
	JointEntropy
	DifferenceAverage
	DifferenceVariance
	DifferenceEntropy
	SumAverage
	SumVariance
	SumEntropy
	AngularSecondMoment
	Contrast
	Dissimilarity
	InverseDifference
	NormalizedInverseDifference
	InverseDifferenceMoment
	NormalizedInverseDifferenceMoment
	InverseVariance
	Correlation
	Autocorrelation
	ClusterTendency
	ClusterShade
	ClusterProminence
	InformationCorrelation1
	InformationCorrelation2

	// NumFeatures is the number of co-occurrence features
	NumFeatures
)

var featureNames = [NumFeatures]string{
	JointMaximum:                      "JointMaximum",
	JointAverage:                      "JointAverage",
	JointVariance:                     "JointVariance",
	JointEntropy:                      "JointEntropy",
	DifferenceAverage:                 "DifferenceAverage",
	DifferenceVariance:                "DifferenceVariance",
	DifferenceEntropy:                 "DifferenceEntropy",
	SumAverage:                        "SumAverage",
	SumVariance:                       "SumVariance",
	SumEntropy:                        "SumEntropy",
	AngularSecondMoment:               "AngularSecondMoment",
	Contrast:                          "Contrast",
	Dissimilarity:                     "Dissimilarity",
	InverseDifference:                 "InverseDifference",
	NormalizedInverseDifference:       "NormalizedInverseDifference",
	InverseDifferenceMoment:           "InverseDifferenceMoment",
	NormalizedInverseDifferenceMoment: "NormalizedInverseDifferenceMoment",
	InverseVariance:                   "InverseVariance",
	Correlation:                       "Correlation",
	Autocorrelation:                   "Autocorrelation",
	ClusterTendency:                   "ClusterTendency",
	ClusterShade:                      "ClusterShade",
	ClusterProminence:                 "ClusterProminence",
	InformationCorrelation1:           "InformationCorrelation1",
	InformationCorrelation2:           "InformationCorrelation2",
}

func (f Feature) String() string {
	if f >= 0 && f < NumFeatures {
		return featureNames[f]
	}
	return fmt.Sprintf("Feature(%d)", int(f))
}

// Values holds one result per feature; NaN marks an undefined value
type Values [NumFeatures]float64

// coefficients are the distributions derived from a normalized matrix
type coefficients struct {
	n int

	// p is the full normalized matrix in row-major order
	p []float64

	// px is the row marginal; the matrix is symmetric so it equals the column
	// marginal
	px []float64

	// sum[k-2] is the probability of i+j == k for k in 2..2n
	sum []float64

	// diff[k] is the probability of |i-j| == k for k in 0..n-1
	diff []float64

	mu    float64
	sigma float64
}

func newCoefficients(norm *mat.SymDense) *coefficients {
	n := norm.SymmetricDim()
	c := &coefficients{
		n:    n,
		p:    make([]float64, n*n),
		px:   make([]float64, n),
		sum:  make([]float64, 2*n-1),
		diff: make([]float64, n),
	}

	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			v := norm.At(a, b)
			c.p[a*n+b] = v
			c.px[a] += v
			c.sum[a+b] += v
			k := a - b
			if k < 0 {
				k = -k
			}
			c.diff[k] += v
		}
	}

	for a, v := range c.px {
		c.mu += float64(a+1) * v
	}
	var variance float64
	for a, v := range c.px {
		d := float64(a+1) - c.mu
		variance += d * d * v
	}
	c.sigma = math.Sqrt(variance)
	return c
}

// entropy2 is the Shannon entropy in bits
func entropy2(p []float64) float64 {
	return stat.Entropy(p) / math.Ln2
}

// Evaluate computes every feature of a co-occurrence matrix. The matrix may
// be raw counts; it is normalized first. A nil or empty matrix yields all NaN.
func Evaluate(m *mat.SymDense) Values {
	var out Values
	for i := range out {
		out[i] = math.NaN()
	}
	if m == nil {
		return out
	}
	norm := normalize(m)
	if norm == nil {
		return out
	}
	c := newCoefficients(norm)
	n := c.n
	ng := float64(n)

	out[JointMaximum] = floats.Max(c.p)
	out[JointAverage] = c.mu
	out[JointVariance] = c.sigma * c.sigma
	hxy := entropy2(c.p)
	out[JointEntropy] = hxy

	var diffAvg float64
	for k, v := range c.diff {
		diffAvg += float64(k) * v
	}
	var diffVar, contrast, invDiff, normInvDiff, idm, idmn, invVar float64
	for k, v := range c.diff {
		fk := float64(k)
		diffVar += (fk - diffAvg) * (fk - diffAvg) * v
		contrast += fk * fk * v
		invDiff += v / (1 + fk)
		normInvDiff += v / (1 + fk/ng)
		idm += v / (1 + fk*fk)
		idmn += v / (1 + fk*fk/(ng*ng))
		if k > 0 {
			invVar += v / (fk * fk)
		}
	}
	out[DifferenceAverage] = diffAvg
	out[DifferenceVariance] = diffVar
	out[DifferenceEntropy] = entropy2(c.diff)
	out[Contrast] = contrast
	out[Dissimilarity] = diffAvg
	out[InverseDifference] = invDiff
	out[NormalizedInverseDifference] = normInvDiff
	out[InverseDifferenceMoment] = idm
	out[NormalizedInverseDifferenceMoment] = idmn
	out[InverseVariance] = invVar

	var sumAvg float64
	for k, v := range c.sum {
		sumAvg += float64(k+2) * v
	}
	var sumVar float64
	for k, v := range c.sum {
		d := float64(k+2) - sumAvg
		sumVar += d * d * v
	}
	out[SumAverage] = sumAvg
	out[SumVariance] = sumVar
	out[SumEntropy] = entropy2(c.sum)

	out[AngularSecondMoment] = floats.Dot(c.p, c.p)

	var auto, tendency, shade, prominence, hxy1, hxy2 float64
	for a := 0; a < n; a++ {
		i := float64(a + 1)
		for b := 0; b < n; b++ {
			j := float64(b + 1)
			v := c.p[a*n+b]
			pp := c.px[a] * c.px[b]
			if pp > 0 {
				hxy2 -= pp * math.Log2(pp)
			}
			if v == 0 {
				continue
			}
			auto += i * j * v
			s := i + j - 2*c.mu
			tendency += s * s * v
			shade += s * s * s * v
			prominence += s * s * s * s * v
			hxy1 -= v * math.Log2(pp)
		}
	}
	out[Autocorrelation] = auto
	out[ClusterTendency] = tendency
	out[ClusterShade] = shade
	out[ClusterProminence] = prominence

	// Undefined for a single occupied level, where both terms are 0/0
	if c.sigma > 0 {
		out[Correlation] = (auto - c.mu*c.mu) / (c.sigma * c.sigma)
	}
	if hx := entropy2(c.px); hx > 0 {
		out[InformationCorrelation1] = (hxy - hxy1) / hx
	}
	out[InformationCorrelation2] = math.Sqrt(math.Max(0, 1-math.Exp(-2*(hxy2-hxy))))

	return out
}

// Aggregate combines per-direction matrices according to the aggregation.
// For Average, each feature is the mean over the directions where it is
// defined; a feature with no defined direction stays NaN.
func Aggregate(ms []Matrix, a Aggregation) Values {
	if a == Merged {
		return Evaluate(Merge(ms))
	}

	var sums Values
	var counts [NumFeatures]int
	for _, m := range ms {
		if m.Absent() {
			continue
		}
		v := Evaluate(m.Counts)
		for f := range v {
			if math.IsNaN(v[f]) {
				continue
			}
			sums[f] += v[f]
			counts[f]++
		}
	}

	var out Values
	for f := range out {
		if counts[f] == 0 {
			out[f] = math.NaN()
			continue
		}
		out[f] = sums[f] / float64(counts[f])
	}
	return out
}

// Compute builds the matrices for the discretized volume and returns the
// aggregated features keyed by family and feature name
func Compute(dv *models.DiscretizedVolume, p Params) (features.Row, error) {
	ms, err := Build(dv, p)
	if err != nil {
		return nil, err
	}
	vals := Aggregate(ms, p.Aggregation)

	row := make(features.Row, NumFeatures)
	for f := Feature(0); f < NumFeatures; f++ {
		row[features.Key(features.GLCM, f.String())] = features.Of(vals[f])
	}
	return row, nil
}
