package apiutil

import "errors"

var (
	// ErrValidation indicates that an error was returned by the API.
	ErrValidation = errors.New("something went wrong with the request")

	// ErrMissingClientID indicates a request without a client identity.
	ErrMissingClientID = errors.New("missing client id")

	// ErrMissingWeights indicates an update without model weights.
	ErrMissingWeights = errors.New("missing model weights")

	// ErrInvalidSampleCount indicates a non-positive sample count.
	ErrInvalidSampleCount = errors.New("sample count must be positive")

	// ErrInvalidTrainingSteps indicates a training step count below one.
	ErrInvalidTrainingSteps = errors.New("training steps must be at least one")

	// ErrUnsupportedContentType indicates an unacceptable or missing content-type.
	ErrUnsupportedContentType = errors.New("invalid content type")

	// ErrInvalidQueryParams indicates invalid query parameters.
	ErrInvalidQueryParams = errors.New("invalid query parameters")
)
