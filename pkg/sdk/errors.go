package livetable

import "github.com/kailas-cloud/livetable/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEvaluation   = domain.ErrEvaluation
	ErrResolution   = domain.ErrResolution
	ErrFault        = domain.ErrFault
	ErrInvalidQuery = domain.ErrInvalidQuery
	ErrViewClosed   = domain.ErrViewClosed
)
