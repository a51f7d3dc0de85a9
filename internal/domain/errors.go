package domain

import "errors"

var (
	// ErrInvalidInput is returned for a missing or unrecognized source URL
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransformFailed is returned when the downloader exits nonzero or cannot be started
	ErrTransformFailed = errors.New("transform failed")

	// ErrMissingArtifact is returned when the downloader reports success but no file matches the job id
	ErrMissingArtifact = errors.New("artifact missing after successful transform")

	// ErrNotFound is returned when no artifact exists for a job id or filename
	ErrNotFound = errors.New("artifact not found")

	// ErrBusy is returned when the transform queue is full
	ErrBusy = errors.New("transform queue is full")
)

// InputError carries a user-facing reason and matches ErrInvalidInput.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInputError creates a new input validation error
func NewInputError(reason string) error {
	return &InputError{Reason: reason}
}
