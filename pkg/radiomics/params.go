// Package radiomics runs the texture feature extraction pipeline: mask
// selection, resampling, discretization and the feature families.
package radiomics

import (
	"fmt"
	"runtime"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/config"
	"radiomics3d/pkg/direction"
	"radiomics3d/pkg/discretize"
	"radiomics3d/pkg/features"
	"radiomics3d/pkg/glcm"
	"radiomics3d/pkg/interpolation"
)

// Params holds the settings of one extraction. An Extractor keeps its own
// copy, so changing a Params value after NewExtractor has no effect.
type Params struct {
	// Label is the mask label of the region of interest
	Label int

	// Spacing is the target voxel spacing. Nil keeps the native grid.
	Spacing *models.Vec3

	// VolumeKind and MaskKind select the resampling kernels
	VolumeKind interpolation.Kind
	MaskKind   interpolation.Kind

	// Threshold re-binarizes the resampled mask
	Threshold float64

	Discretization discretize.Params

	// Reference discretizes the auxiliary GLDZM distance map. It never uses
	// the volume's settings.
	Reference discretize.Params

	// Force2D computes every family slice by slice
	Force2D bool

	// Families lists the enabled feature families
	Families []features.Family

	// GLCM distance, weighting and aggregation. Force2D and Workers are
	// taken from the extraction settings.
	GLCM glcm.Params

	// NGTDMRadius is the Chebyshev radius of the NGTDM neighbourhood
	NGTDMRadius int

	// NumCores bounds the parallel work of each step
	NumCores int

	// SaveIntermediaryResults writes slice images of the resampled volume,
	// the ROI and the discretized levels to IntermediaryDir
	SaveIntermediaryResults bool
	IntermediaryDir         string
}

// DefaultParams returns the settings of config.DefaultConfig
func DefaultParams() Params {
	p, err := ParamsFromConfig(config.DefaultConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// ParamsFromConfig converts a loaded configuration into extraction settings
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	if err := cfg.Validate(); err != nil {
		return Params{}, err
	}

	p := Params{
		Label:                   cfg.ROI.Label,
		Threshold:               cfg.Resampling.Threshold,
		Force2D:                 cfg.Texture.Force2D,
		NGTDMRadius:             cfg.Texture.NGTDM.Radius,
		NumCores:                cfg.Processing.NumCores,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         cfg.Output.IntermediaryDir,
	}

	if s := cfg.Resampling.Spacing; len(s) == 3 {
		p.Spacing = &models.Vec3{X: s[0], Y: s[1], Z: s[2]}
	}

	var err error
	if p.VolumeKind, err = interpolation.ParseKind(cfg.Resampling.Interpolation); err != nil {
		return Params{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if p.MaskKind, err = interpolation.ParseKind(cfg.Resampling.MaskInterpolation); err != nil {
		return Params{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	policy, err := discretize.ParsePolicy(cfg.Discretization.Policy)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	p.Discretization = discretize.Params{
		Policy:   policy,
		BinCount: cfg.Discretization.BinCount,
		BinWidth: cfg.Discretization.BinWidth,
	}
	if m := cfg.Discretization.Minimum; m != nil {
		minimum := *m
		p.Discretization.Minimum = &minimum
	}

	refPolicy, err := discretize.ParsePolicy(cfg.Texture.GLDZM.ReferencePolicy)
	if err != nil {
		return Params{}, fmt.Errorf("%w: reference map: %v", models.ErrInvalidInput, err)
	}
	p.Reference = discretize.Params{
		Policy:   refPolicy,
		BinCount: cfg.Texture.GLDZM.ReferenceBinCount,
		BinWidth: cfg.Texture.GLDZM.ReferenceBinWidth,
	}

	for _, name := range cfg.Texture.Families {
		f, err := features.ParseFamily(name)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		p.Families = append(p.Families, f)
	}

	p.GLCM.Distance = cfg.Texture.GLCM.Distance
	if p.GLCM.Weighting, err = direction.ParseNorm(cfg.Texture.GLCM.Weighting); err != nil {
		return Params{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if p.GLCM.Aggregation, err = glcm.ParseAggregation(cfg.Texture.GLCM.Aggregation); err != nil {
		return Params{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	return p, nil
}

// Validate checks the settings independently of any volume
func (p Params) Validate() error {
	if p.Label < 1 {
		return fmt.Errorf("%w: ROI label must be positive, got %d", models.ErrInvalidInput, p.Label)
	}
	if p.Spacing != nil && !p.Spacing.Positive() {
		return fmt.Errorf("%w: target spacing must be positive, got %+v", models.ErrInvalidInput, *p.Spacing)
	}
	if p.Spacing != nil && (p.Threshold <= 0 || p.Threshold > 1) {
		return fmt.Errorf("%w: mask threshold must be in (0, 1], got %g", models.ErrInvalidInput, p.Threshold)
	}
	if err := p.Discretization.Validate(); err != nil {
		return err
	}
	if err := p.Reference.Validate(); err != nil {
		return fmt.Errorf("reference map: %w", err)
	}
	if len(p.Families) == 0 {
		return fmt.Errorf("%w: no feature family enabled", models.ErrInvalidInput)
	}
	for _, f := range p.Families {
		switch f {
		case features.GLCM:
			if p.GLCM.Distance < 1 {
				return fmt.Errorf("%w: GLCM distance must be at least 1, got %d", models.ErrInvalidInput, p.GLCM.Distance)
			}
		case features.NGTDM:
			if p.NGTDMRadius < 1 {
				return fmt.Errorf("%w: NGTDM radius must be at least 1, got %d", models.ErrInvalidInput, p.NGTDMRadius)
			}
		case features.GLSZM, features.GLDZM:
		default:
			return fmt.Errorf("%w: unknown feature family %v", models.ErrInvalidInput, f)
		}
	}
	return nil
}

// clone returns a deep copy so the extractor never shares mutable state with
// the caller
func (p Params) clone() Params {
	c := p
	if p.Spacing != nil {
		s := *p.Spacing
		c.Spacing = &s
	}
	if p.Discretization.Minimum != nil {
		m := *p.Discretization.Minimum
		c.Discretization.Minimum = &m
	}
	c.Families = append([]features.Family(nil), p.Families...)
	if c.NumCores < 1 {
		c.NumCores = runtime.NumCPU()
	}
	c.GLCM.Force2D = c.Force2D
	c.GLCM.Workers = c.NumCores
	return c
}
