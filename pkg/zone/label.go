// Package zone labels connected same-level regions of a discretized volume and
// derives the size-zone (GLSZM) and distance-zone (GLDZM) texture features.
package zone

import (
	"math"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/direction"
)

// Zone is a maximal connected set of ROI voxels sharing one gray level
type Zone struct {
	Level int

	// Size is the number of member voxels
	Size int

	// Distance is the minimum reference distance among member voxels; 0 when
	// labeling ran without a distance map
	Distance int
}

// Label finds every zone of the discretized volume. Zones are 26-connected,
// or 8-connected within a slice when planar is set, in which case a zone
// never crosses slices. When distance is not nil it must hold one value per
// voxel and each zone records the minimum over its members.
//
// Growth uses an explicit work list over the flat voxel array with a visited
// marker per voxel, so every voxel joins exactly one zone and zone size is
// bounded only by memory.
func Label(dv *models.DiscretizedVolume, planar bool, distance []int) []Zone {
	offsets := connectivity(planar)
	visited := make([]bool, len(dv.Levels))
	stack := make([]int, 0, 64)

	var zones []Zone
	for seed, level := range dv.Levels {
		if level == models.Undefined || visited[seed] {
			continue
		}

		z := Zone{Level: level, Distance: math.MaxInt}
		if distance == nil {
			z.Distance = 0
		}

		visited[seed] = true
		stack = append(stack[:0], seed)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			z.Size++
			if distance != nil && distance[cur] < z.Distance {
				z.Distance = distance[cur]
			}

			x, y, zz := dv.Coords(cur)
			for _, o := range offsets {
				nx, ny, nz := x+o.DX, y+o.DY, zz+o.DZ
				if !dv.Contains(nx, ny, nz) {
					continue
				}
				n := dv.Index(nx, ny, nz)
				if visited[n] || dv.Levels[n] != level {
					continue
				}
				visited[n] = true
				stack = append(stack, n)
			}
		}
		zones = append(zones, z)
	}
	return zones
}

// connectivity returns the unit offsets joining zone members: the active
// direction set plus the antipode of each direction
func connectivity(planar bool) []direction.Offset {
	var out []direction.Offset
	for _, i := range direction.Active(planar) {
		out = append(out, direction.At(i), direction.At(direction.Antipode(i)))
	}
	return out
}
