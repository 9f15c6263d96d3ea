package models

import "errors"

// Error kinds shared by every stage of an extraction. Stages wrap them with
// context, callers test with errors.Is.
var (
	// ErrInvalidInput covers mismatched volume/mask shapes, an absent ROI label
	// and non-positive spacing
	ErrInvalidInput = errors.New("invalid input")

	// ErrDiscretization covers an unusable bin width and voxel count mismatches
	// after quantization
	ErrDiscretization = errors.New("discretization failure")

	// ErrResampling covers masks that break the single-label assumption
	ErrResampling = errors.New("resampling failure")
)
