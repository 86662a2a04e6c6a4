// Package schedule derives absolute stage due dates from an employee's last
// working day and the creation instant of a request.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/songzhibin97/offboarding/types"
)

// DateLayout is the calendar date format accepted for the last working day.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrUnknownAnchor = errors.New("unknown due date anchor")
)

// ParseDate parses a YYYY-MM-DD calendar date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Due applies a single rule.
func Due(rule types.DueRule, lwd, created time.Time) (time.Time, error) {
	switch rule.Anchor {
	case types.AnchorCreated:
		return created.AddDate(0, 0, rule.Days), nil
	case types.AnchorLastWorkingDay:
		return lwd.AddDate(0, 0, rule.Days), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownAnchor, rule.Anchor)
	}
}

// Calculate returns the due date of every stage keyed by stage id. The last
// working day is interpreted in the location of created.
func Calculate(
	stages []types.StageTemplate, lastWorkingDay string, created time.Time,
) (map[string]time.Time, error) {
	lwd, err := ParseDate(lastWorkingDay, created.Location())
	if err != nil {
		return nil, err
	}

	res := make(map[string]time.Time, len(stages))
	for _, s := range stages {
		due, err := Due(s.Due, lwd, created)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.ID, err)
		}
		res[s.ID] = due
	}
	return res, nil
}
