package describe

import (
	"errors"

	"rruletext/internal/numword"
	"rruletext/internal/recurrence"
)

// Every failure aborts the render; callers match these with errors.Is.
var (
	ErrInvalidInterval      = numword.ErrInvalidInterval
	ErrInvalidNumeral       = numword.ErrInvalidNumeral
	ErrEmptySchedule        = recurrence.ErrEmptySchedule
	ErrUnsupportedFrequency = errors.New("unsupported frequency")
	// ErrTermination covers a rule with both a count and an until bound, or
	// with neither when open-ended rendering was not requested.
	ErrTermination = errors.New("recurrence must end by exactly one of count or until")
)
