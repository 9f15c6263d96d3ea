package radiomics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/discretize"
	"radiomics3d/pkg/features"
	"radiomics3d/pkg/glcm"
	"radiomics3d/pkg/interpolation"
	"radiomics3d/pkg/logging"
	"radiomics3d/pkg/ngtdm"
	"radiomics3d/pkg/visualization"
	"radiomics3d/pkg/volumeio"
	"radiomics3d/pkg/zone"
)

// Extractor computes the texture features of a volume inside an ROI.
//
// The extraction consists of several steps:
// 1. Checking that volume and mask share a grid and selecting the ROI label
// 2. Resampling volume and mask to the target spacing
// 3. Discretizing the ROI intensities
// 4. Computing the enabled feature families concurrently
//
// An Extractor holds no per-extraction state and may be used from several
// goroutines at once.
type Extractor struct {
	params Params
	logger logging.Logger
}

// NewExtractor validates the parameters and returns an extractor with its own
// copy of them. A nil logger discards all messages.
func NewExtractor(params Params, logger logging.Logger) (*Extractor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Extractor{params: params.clone(), logger: logger}, nil
}

// Params returns a copy of the extraction settings
func (e *Extractor) Params() Params {
	return e.params.clone()
}

// Extract runs the pipeline and returns one row holding every feature of the
// enabled families. GLDZM distances are measured to the ROI border.
func (e *Extractor) Extract(ctx context.Context, vol models.Volume, mask models.Mask) (features.Row, error) {
	return e.ExtractWithReference(ctx, vol, mask, nil)
}

// ExtractWithReference is like Extract, but GLDZM zone distances are read from
// ref, an auxiliary map on the volume grid. The map is resampled with the
// volume kernel and discretized over the ROI with Params.Reference. A nil ref
// measures distances to the ROI border.
func (e *Extractor) ExtractWithReference(ctx context.Context, vol models.Volume, mask models.Mask, ref *models.Volume) (features.Row, error) {
	p := e.params
	tlog := logging.NewTimeLog(e.logger)

	// Step 1: Select the region of interest
	e.logger.Debugf("Step 1: Selecting ROI label %d...", p.Label)
	if err := models.CheckPaired(vol, mask, p.Label); err != nil {
		return nil, err
	}
	if ref != nil && !ref.SameShape(vol.Grid) {
		return nil, fmt.Errorf("%w: reference map is %dx%dx%d but volume is %dx%dx%d", models.ErrInvalidInput,
			ref.Width, ref.Height, ref.Depth, vol.Width, vol.Height, vol.Depth)
	}
	mask = mask.Binarize(p.Label)

	// Step 2: Resample
	if p.Spacing != nil {
		e.logger.Debugf("Step 2: Resampling to %gx%gx%g mm...", p.Spacing.X, p.Spacing.Y, p.Spacing.Z)
		r, err := interpolation.NewResampler(*p.Spacing, p.VolumeKind, p.MaskKind, p.Threshold)
		if err != nil {
			return nil, err
		}
		r.Workers = p.NumCores

		if vol, err = r.Volume(vol); err != nil {
			return nil, err
		}
		if mask, err = r.Mask(mask); err != nil {
			return nil, err
		}
		if ref != nil {
			resampled, err := r.Volume(*ref)
			if err != nil {
				return nil, err
			}
			ref = &resampled
		}
		if mask.Count(1) == 0 {
			return nil, fmt.Errorf("%w: ROI is empty after resampling", models.ErrResampling)
		}
		tlog.Debugf("resampled to %dx%dx%d", vol.Width, vol.Height, vol.Depth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	roi := mask.ROI(1)

	// Step 3: Discretize
	e.logger.Debugf("Step 3: Discretizing with %v...", p.Discretization.Policy)
	dv, err := discretize.Discretize(vol, roi, p.Discretization)
	if err != nil {
		return nil, err
	}
	if err := checkCoverage(dv, mask); err != nil {
		return nil, err
	}
	var refLevels *models.DiscretizedVolume
	if ref != nil {
		if refLevels, err = discretize.Discretize(*ref, roi, p.Reference); err != nil {
			return nil, fmt.Errorf("reference map: %w", err)
		}
		if err := checkCoverage(refLevels, mask); err != nil {
			return nil, fmt.Errorf("reference map: %w", err)
		}
	}
	tlog.Debugf("discretized %d ROI voxels into %d levels", dv.DefinedCount(), dv.NumLevels)

	if p.SaveIntermediaryResults {
		e.saveIntermediaryResults(vol, roi, dv)
	}

	// Step 4: Feature families
	e.logger.Debugf("Step 4: Computing %d feature families...", len(p.Families))
	rows := make([]features.Row, len(p.Families))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range p.Families {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, err := e.family(f, dv, refLevels)
			if err != nil {
				return fmt.Errorf("%v: %w", f, err)
			}
			rows[i] = row
			tlog.Debugf("%v done", f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(features.Row)
	for _, r := range rows {
		out.Merge(r)
	}
	tlog.Infof("extracted %d features from %d ROI voxels", len(out), dv.DefinedCount())
	return out, nil
}

// checkCoverage verifies that exactly the ROI voxels of the binary mask carry
// a gray level in [1..NumLevels]
func checkCoverage(dv *models.DiscretizedVolume, mask models.Mask) error {
	if len(dv.Levels) != len(mask.Labels) {
		return fmt.Errorf("%w: %d levels for a mask of %d voxels", models.ErrDiscretization, len(dv.Levels), len(mask.Labels))
	}
	for i, l := range dv.Levels {
		in := mask.Labels[i] == 1
		if in != (l != models.Undefined) {
			return fmt.Errorf("%w: voxel %d has level %d but ROI membership %v", models.ErrDiscretization, i, l, in)
		}
		if in && (l < 1 || l > dv.NumLevels) {
			return fmt.Errorf("%w: voxel %d has level %d outside [1..%d]", models.ErrDiscretization, i, l, dv.NumLevels)
		}
	}
	return nil
}

// family computes the features of one family
func (e *Extractor) family(f features.Family, dv, ref *models.DiscretizedVolume) (features.Row, error) {
	p := e.params
	switch f {
	case features.GLCM:
		return glcm.Compute(dv, p.GLCM)
	case features.GLSZM:
		return zone.SizeZone(dv, zone.Params{Force2D: p.Force2D})
	case features.GLDZM:
		return zone.DistanceZone(dv, zone.Params{Force2D: p.Force2D}, ref)
	case features.NGTDM:
		return ngtdm.Compute(dv, ngtdm.Params{Radius: p.NGTDMRadius, Force2D: p.Force2D})
	default:
		return nil, fmt.Errorf("%w: unknown feature family %v", models.ErrInvalidInput, f)
	}
}

// saveIntermediaryResults writes the Z slices of the resampled volume, the ROI
// and the discretized levels, plus the resampled volume as a raw float32 file.
// Failures are logged and do not stop the extraction.
func (e *Extractor) saveIntermediaryResults(vol models.Volume, roi []bool, dv *models.DiscretizedVolume) {
	dir := e.params.IntermediaryDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.logger.Warningf("Failed to create intermediary directory: %v", err)
		return
	}

	stages := []struct {
		name string
		view func() (*visualization.Viewer, error)
	}{
		{"01_resampled_volume", func() (*visualization.Viewer, error) { return visualization.FromVolume(vol) }},
		{"02_roi", func() (*visualization.Viewer, error) { return visualization.FromROI(roi, vol.Grid) }},
		{"03_discretized", func() (*visualization.Viewer, error) { return visualization.FromLevels(dv) }},
	}
	for _, s := range stages {
		v, err := s.view()
		if err == nil {
			err = v.SaveSliceSequence("z", filepath.Join(dir, s.name))
		}
		if err != nil {
			e.logger.Warningf("Failed to save %s: %v", s.name, err)
		}
	}

	raw := filepath.Join(dir, fmt.Sprintf("01_resampled_volume_%dx%dx%d.raw", vol.Width, vol.Height, vol.Depth))
	if err := volumeio.WriteRaw(raw, vol.Data, volumeio.Float32); err != nil {
		e.logger.Warningf("Failed to save %s: %v", raw, err)
	}
}
