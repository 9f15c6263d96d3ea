package zone

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"radiomics3d/internal/models"
)

// voxelPoint is a background voxel position stored in the kd-tree. Distances
// are squared Manhattan distances: the squared per-axis difference returned by
// Compare never exceeds them, which keeps the tree's pruning exact.
type voxelPoint struct {
	X, Y, Z int
}

// Compare implements the kdtree.Comparable interface
func (p voxelPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(voxelPoint)
	switch d {
	case 0:
		return float64(p.X - q.X)
	case 1:
		return float64(p.Y - q.Y)
	case 2:
		return float64(p.Z - q.Z)
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the kd-tree
func (p voxelPoint) Dims() int { return 3 }

// Distance returns the squared Manhattan distance between two voxels
func (p voxelPoint) Distance(c kdtree.Comparable) float64 {
	m := float64(manhattan(p, c.(voxelPoint)))
	return m * m
}

func manhattan(p, q voxelPoint) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y) + abs(p.Z-q.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// voxelPoints is a collection of voxelPoint that satisfies kdtree.Interface
type voxelPoints []voxelPoint

func (p voxelPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p voxelPoints) Len() int                              { return len(p) }
func (p voxelPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p voxelPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(voxelPlane{voxelPoints: p, Dim: d}, kdtree.MedianOfRandoms(voxelPlane{voxelPoints: p, Dim: d}, 100))
}

// voxelPlane implements sort.Interface and kdtree.SortSlicer for voxelPoints
type voxelPlane struct {
	voxelPoints
	kdtree.Dim
}

func (p voxelPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.voxelPoints[i].X < p.voxelPoints[j].X
	case 1:
		return p.voxelPoints[i].Y < p.voxelPoints[j].Y
	case 2:
		return p.voxelPoints[i].Z < p.voxelPoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p voxelPlane) Slice(start, end int) kdtree.SortSlicer {
	return voxelPlane{voxelPoints: p.voxelPoints[start:end], Dim: p.Dim}
}

func (p voxelPlane) Swap(i, j int) {
	p.voxelPoints[i], p.voxelPoints[j] = p.voxelPoints[j], p.voxelPoints[i]
}

var faceOffsets = [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}

// BorderDistance returns, for every ROI voxel, the minimum number of
// face-connected steps needed to leave the ROI. Voxels on the ROI edge get 1.
// Leaving the grid counts as leaving the ROI. In planar mode steps stay
// within the slice. Non-ROI voxels get 0.
func BorderDistance(dv *models.DiscretizedVolume, planar bool) []int {
	faces := faceOffsets[:]
	if planar {
		faces = faceOffsets[:4]
	}

	// Only background voxels touching the ROI can be the nearest exit
	trees := make(map[int]*kdtree.Tree)
	var boundary []voxelPoint
	for idx, level := range dv.Levels {
		if level != models.Undefined {
			continue
		}
		x, y, z := dv.Coords(idx)
		for _, f := range faces {
			nx, ny, nz := x+f[0], y+f[1], z+f[2]
			if dv.Contains(nx, ny, nz) && dv.Levels[dv.Index(nx, ny, nz)] != models.Undefined {
				boundary = append(boundary, voxelPoint{x, y, z})
				break
			}
		}
	}

	if planar {
		bySlice := make(map[int]voxelPoints)
		for _, p := range boundary {
			bySlice[p.Z] = append(bySlice[p.Z], p)
		}
		for z, pts := range bySlice {
			trees[z] = kdtree.New(pts, false)
		}
	} else if len(boundary) > 0 {
		trees[0] = kdtree.New(voxelPoints(boundary), false)
	}

	out := make([]int, len(dv.Levels))
	for idx, level := range dv.Levels {
		if level == models.Undefined {
			continue
		}
		x, y, z := dv.Coords(idx)

		d := min(x+1, dv.Width-x, y+1, dv.Height-y)
		if !planar {
			d = min(d, z+1, dv.Depth-z)
		}

		key := 0
		if planar {
			key = z
		}
		if tree, ok := trees[key]; ok {
			if _, sq := tree.Nearest(voxelPoint{x, y, z}); !math.IsInf(sq, 1) {
				if m := int(math.Round(math.Sqrt(sq))); m < d {
					d = m
				}
			}
		}
		out[idx] = d
	}
	return out
}

// ReferenceDistance takes zone distances from an independently discretized,
// co-registered auxiliary map. Every ROI voxel of dv must carry a level in ref.
func ReferenceDistance(dv, ref *models.DiscretizedVolume) ([]int, error) {
	if !dv.SameShape(ref.Grid) {
		return nil, fmt.Errorf("%w: reference map is %dx%dx%d but the volume is %dx%dx%d", models.ErrInvalidInput,
			ref.Width, ref.Height, ref.Depth, dv.Width, dv.Height, dv.Depth)
	}
	out := make([]int, len(dv.Levels))
	for idx, level := range dv.Levels {
		if level == models.Undefined {
			continue
		}
		r := ref.Levels[idx]
		if r == models.Undefined {
			return nil, fmt.Errorf("%w: reference map undefined inside the ROI at voxel %d", models.ErrInvalidInput, idx)
		}
		out[idx] = r
	}
	return out, nil
}
