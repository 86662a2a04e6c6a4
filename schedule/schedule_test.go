package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/offboarding/schedule"
	"github.com/songzhibin97/offboarding/templates"
	"github.com/songzhibin97/offboarding/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculate(t *testing.T) {
	created := date(2024, time.February, 1)

	due, err := schedule.Calculate(templates.Templates(), "2024-02-15", created)
	require.NoError(t, err)
	require.Len(t, due, 7)

	assert.Equal(t, created, due[templates.StageInitialRequest])
	assert.Equal(t, date(2024, time.February, 2), due[templates.StagePeopleOpsReview])
	assert.Equal(t, date(2024, time.February, 8), due[templates.StagePreLWD])
	assert.Equal(t, date(2024, time.February, 15), due[templates.StageLWD])
	assert.Equal(t, date(2024, time.February, 15), due[templates.StageExitInterview])
	assert.Equal(t, date(2024, time.February, 22), due[templates.StagePostLWD])
	assert.Equal(t, date(2024, time.February, 29), due[templates.StageFinalClosure])
}

func TestCalculateKeepsCreationTimeOfDay(t *testing.T) {
	created := time.Date(2024, time.February, 1, 15, 30, 0, 0, time.UTC)

	due, err := schedule.Calculate(templates.Templates(), "2024-02-15", created)
	require.NoError(t, err)
	assert.Equal(t, created.Add(24*time.Hour), due[templates.StagePeopleOpsReview])
	assert.Equal(t, date(2024, time.February, 15), due[templates.StageLWD])
}

func TestCalculateInvalidDate(t *testing.T) {
	for _, in := range []string{"", "15/02/2024", "2024-02-30", "tomorrow"} {
		_, err := schedule.Calculate(templates.Templates(), in, time.Now())
		assert.ErrorIs(t, err, schedule.ErrInvalidDate, in)
	}
}

func TestDueUnknownAnchor(t *testing.T) {
	_, err := schedule.Due(types.DueRule{Anchor: "sometime"}, time.Now(), time.Now())
	assert.ErrorIs(t, err, schedule.ErrUnknownAnchor)
}

func TestParseDateLocation(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	d, err := schedule.ParseDate("2024-02-15", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, d.Location())
	assert.Equal(t, 0, d.Hour())

	d, err = schedule.ParseDate("2024-02-15", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, d.Location())
}
