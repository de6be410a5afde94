package aggregate

import "errors"

var (
	ErrNoUpdates     = errors.New("no updates provided for aggregation")
	ErrZeroSamples   = errors.New("total sample count across updates is zero")
	ErrUnknownMethod = errors.New("unknown aggregation method")
)
