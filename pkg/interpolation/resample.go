// Package interpolation re-grids intensity volumes and ROI masks to a target
// voxel spacing.
package interpolation

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"radiomics3d/internal/models"
)

// DefaultThreshold is the partial-volume threshold applied to interpolated masks
const DefaultThreshold = 0.5

// Resampler re-grids volumes and masks to a fixed target spacing. The kernel
// is chosen independently for intensities and for masks.
type Resampler struct {
	// Target is the voxel spacing of the output grid in mm
	Target models.Vec3

	// VolumeKind is the kernel used for intensity volumes
	VolumeKind Kind

	// MaskKind is the kernel used for masks before re-binarization
	MaskKind Kind

	// Threshold is the partial-volume threshold: interpolated mask values at or
	// above it become foreground
	Threshold float64

	// Workers bounds the number of slices resampled concurrently
	Workers int
}

// NewResampler validates the target spacing and threshold
func NewResampler(target models.Vec3, volumeKind, maskKind Kind, threshold float64) (*Resampler, error) {
	if !target.Positive() {
		return nil, fmt.Errorf("%w: target spacing must be positive, got %+v", models.ErrInvalidInput, target)
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: partial-volume threshold must be in (0,1], got %g",
			models.ErrInvalidInput, threshold)
	}
	return &Resampler{
		Target:     target,
		VolumeKind: volumeKind,
		MaskKind:   maskKind,
		Threshold:  threshold,
		Workers:    runtime.NumCPU(),
	}, nil
}

// TargetGrid returns the grid a source grid is mapped to. Each dimension is
// ceil(dim * spacing / target) so that small inputs never collapse to zero.
// The physical center of the grid is preserved.
func TargetGrid(src models.Grid, target models.Vec3) models.Grid {
	dst := models.Grid{
		Width:   targetDim(src.Width, src.Spacing.X, target.X),
		Height:  targetDim(src.Height, src.Spacing.Y, target.Y),
		Depth:   targetDim(src.Depth, src.Spacing.Z, target.Z),
		Spacing: target,
	}
	dst.Origin = models.Vec3{
		X: src.Origin.X + float64(src.Width-1)/2*src.Spacing.X - float64(dst.Width-1)/2*target.X,
		Y: src.Origin.Y + float64(src.Height-1)/2*src.Spacing.Y - float64(dst.Height-1)/2*target.Y,
		Z: src.Origin.Z + float64(src.Depth-1)/2*src.Spacing.Z - float64(dst.Depth-1)/2*target.Z,
	}
	return dst
}

func targetDim(dim int, spacing, target float64) int {
	n := int(math.Ceil(float64(dim)*spacing/target - 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}

// sourceCoord maps a target voxel index back into continuous source voxel
// units with both grid centers aligned
func sourceCoord(i, dstDim, srcDim int, srcSpacing, dstSpacing float64) float64 {
	return (float64(i)-float64(dstDim-1)/2)*dstSpacing/srcSpacing + float64(srcDim-1)/2
}

// Volume resamples an intensity volume. A volume already at the target
// spacing is returned unchanged.
func (r *Resampler) Volume(v models.Volume) (models.Volume, error) {
	if v.Spacing.Equal(r.Target) {
		return v, nil
	}
	dst := TargetGrid(v.Grid, r.Target)
	data, err := r.regrid(v.Data, v.Grid, dst, r.VolumeKind.sampler())
	if err != nil {
		return models.Volume{}, err
	}
	return models.NewVolume(data, dst)
}

// Mask resamples a binary mask and re-binarizes the interpolated values with
// the partial-volume threshold. The mask must carry only labels 0 and 1.
func (r *Resampler) Mask(m models.Mask) (models.Mask, error) {
	for _, l := range m.Labels {
		if l < 0 || l > 1 {
			return models.Mask{}, fmt.Errorf("%w: mask label %d found, masks must be binarized before resampling",
				models.ErrResampling, l)
		}
	}
	if m.Spacing.Equal(r.Target) {
		return m, nil
	}

	src := make([]float64, len(m.Labels))
	for i, l := range m.Labels {
		src[i] = float64(l)
	}

	dst := TargetGrid(m.Grid, r.Target)
	values, err := r.regrid(src, m.Grid, dst, r.MaskKind.sampler())
	if err != nil {
		return models.Mask{}, err
	}

	labels := make([]int, len(values))
	for i, val := range values {
		if val >= r.Threshold {
			labels[i] = 1
		}
	}
	return models.NewMask(labels, dst)
}

// regrid evaluates the sampler for every target voxel, one slice per task
func (r *Resampler) regrid(src []float64, from, to models.Grid, sample sampler) ([]float64, error) {
	out := make([]float64, to.Len())

	xs := make([]float64, to.Width)
	for i := range xs {
		xs[i] = sourceCoord(i, to.Width, from.Width, from.Spacing.X, to.Spacing.X)
	}
	ys := make([]float64, to.Height)
	for i := range ys {
		ys[i] = sourceCoord(i, to.Height, from.Height, from.Spacing.Y, to.Spacing.Y)
	}

	var g errgroup.Group
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for z := 0; z < to.Depth; z++ {
		z := z
		g.Go(func() error {
			sz := sourceCoord(z, to.Depth, from.Depth, from.Spacing.Z, to.Spacing.Z)
			base := z * to.Width * to.Height
			for y, sy := range ys {
				row := base + y*to.Width
				for x, sx := range xs {
					out[row+x] = sample(src, from, sx, sy, sz)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
