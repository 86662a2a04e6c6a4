package workflow

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine matches exactly one of
// ErrValidation, ErrNotFound or ErrStorage under errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// Validation errors
var (
	ErrMissingField      = fmt.Errorf("%w: missing required field", ErrValidation)
	ErrInvalidReason     = fmt.Errorf("%w: invalid reason for leaving", ErrValidation)
	ErrInvalidDate       = fmt.Errorf("%w: invalid last working day", ErrValidation)
	ErrEmptyNote         = fmt.Errorf("%w: note text is empty", ErrValidation)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidExpression = fmt.Errorf("%w: invalid expression", ErrValidation)
)

// Lookup errors
var (
	ErrInstanceNotFound = fmt.Errorf("instance %w", ErrNotFound)
	ErrStageNotFound    = fmt.Errorf("stage %w", ErrNotFound)
	ErrTaskNotFound     = fmt.Errorf("task %w", ErrNotFound)
	ErrTeamNotFound     = fmt.Errorf("team %w", ErrNotFound)
)
