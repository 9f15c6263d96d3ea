package zone

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Matrix counts zones by gray level (rows) and by a zone attribute (columns),
// zone size for GLSZM or zone distance for GLDZM. Only attribute values that
// occur get a column, so a large ROI does not produce a dense matrix as wide
// as its largest zone.
type Matrix struct {
	// Counts is NumLevels x len(Columns); nil when there are no zones
	Counts *mat.Dense

	// Columns holds the ascending attribute value of each column
	Columns []int

	// Zones is the total number of zones
	Zones int

	// Voxels is the number of ROI voxels
	Voxels int
}

// NewMatrix tabulates zones by level and by the attribute key returns
func NewMatrix(zones []Zone, numLevels, voxels int, key func(Zone) int) *Matrix {
	m := &Matrix{Zones: len(zones), Voxels: voxels}
	if len(zones) == 0 || numLevels < 1 {
		return m
	}

	seen := make(map[int]bool)
	for _, z := range zones {
		seen[key(z)] = true
	}
	for v := range seen {
		m.Columns = append(m.Columns, v)
	}
	sort.Ints(m.Columns)

	col := make(map[int]int, len(m.Columns))
	for j, v := range m.Columns {
		col[v] = j
	}

	m.Counts = mat.NewDense(numLevels, len(m.Columns), nil)
	for _, z := range zones {
		r, c := z.Level-1, col[key(z)]
		m.Counts.Set(r, c, m.Counts.At(r, c)+1)
	}
	return m
}

// BySize is the GLSZM column key
func BySize(z Zone) int { return z.Size }

// ByDistance is the GLDZM column key
func ByDistance(z Zone) int { return z.Distance }

// Count returns the number of zones at the gray level with the attribute value
func (m *Matrix) Count(level, value int) int {
	if m.Counts == nil {
		return 0
	}
	j := sort.SearchInts(m.Columns, value)
	if j == len(m.Columns) || m.Columns[j] != value {
		return 0
	}
	r, _ := m.Counts.Dims()
	if level < 1 || level > r {
		return 0
	}
	return int(m.Counts.At(level-1, j))
}
