package mission

import "errors"

var (
	// ErrNotFound reports a mission, stage, or vehicle lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition reports an operation rejected by lifecycle rules.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrOutOfRange reports a zone index outside the addressed collection.
	ErrOutOfRange = errors.New("zone index out of range")
)
