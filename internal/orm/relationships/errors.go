package relationships

import "errors"

var (
	// ErrUnknownTarget is returned when a relationship points at an unregistered type
	ErrUnknownTarget = errors.New("unknown relationship target")

	// ErrInvalidRelationType is returned when an operation does not support the relationship kind
	ErrInvalidRelationType = errors.New("invalid relationship type")

	// ErrTooManyTargets is returned when a singular relationship is given more than one id
	ErrTooManyTargets = errors.New("relationship accepts a single target")
)
