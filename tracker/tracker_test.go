package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/offboarding/log"
	"github.com/songzhibin97/offboarding/types"
)

var start = time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC)

func newTracker() *Tracker {
	return New(WithClock(func() time.Time { return start }), WithLogger(log.Discard()))
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()

	c, err := tr.Start(ctx, "EMP001")
	require.NoError(t, err)
	assert.Equal(t, "EMP001", c.EmployeeID)
	assert.Equal(t, start, c.StartDate)
	assert.Equal(t, types.StatusInProgress, c.Status)
	require.Len(t, c.Departments, 6)
	assert.Equal(t, Departments(), []string{"HR", "IT", "Finance", "Legal", "Admin", "Manager"})
	for _, dept := range c.Departments {
		assert.Equal(t, types.StatusPending, dept.Status)
		for _, item := range dept.Tasks {
			assert.Equal(t, types.StatusPending, item.Status)
		}
	}

	_, err = tr.Start(ctx, "EMP001")
	assert.ErrorIs(t, err, ErrAlreadyTracked)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = tr.Start(ctx, "")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()
	_, err := tr.Start(ctx, "EMP001")
	require.NoError(t, err)

	c, err := tr.Update(ctx, "EMP001", DepartmentAdmin, "reclaim_access_cards", types.StatusCompleted)
	require.NoError(t, err)
	admin := c.department(DepartmentAdmin)
	assert.Equal(t, types.StatusInProgress, admin.Status)
	assert.Nil(t, admin.CompletedDate)

	c, err = tr.Update(ctx, "EMP001", DepartmentAdmin, "facility_clearance", types.StatusCompleted)
	require.NoError(t, err)
	admin = c.department(DepartmentAdmin)
	assert.Equal(t, types.StatusCompleted, admin.Status)
	require.NotNil(t, admin.CompletedDate)
	assert.Equal(t, start, *admin.CompletedDate)
	assert.Equal(t, types.StatusInProgress, c.Status)

	c, err = tr.Update(ctx, "EMP001", DepartmentAdmin, "facility_clearance", types.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, c.department(DepartmentAdmin).Status)
}

func TestUpdateCompletesChecklist(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()
	c, err := tr.Start(ctx, "EMP001")
	require.NoError(t, err)

	for _, dept := range c.Departments {
		for _, item := range dept.Tasks {
			c, err = tr.Update(ctx, "EMP001", dept.Name, item.Key, types.StatusCompleted)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, types.StatusCompleted, c.Status)

	p, err := tr.Progress(ctx, "EMP001")
	require.NoError(t, err)
	assert.Equal(t, 16, p.TotalTasks)
	assert.Equal(t, 16, p.CompletedTasks)
}

func TestUpdateErrors(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()
	_, err := tr.Start(ctx, "EMP001")
	require.NoError(t, err)

	_, err = tr.Update(ctx, "EMP404", DepartmentIT, "backup_files", types.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotTracked)
	_, err = tr.Update(ctx, "EMP001", "Marketing", "backup_files", types.StatusCompleted)
	assert.ErrorIs(t, err, ErrUnknownDepartment)
	_, err = tr.Update(ctx, "EMP001", DepartmentIT, "check_loans", types.StatusCompleted)
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = tr.Update(ctx, "EMP001", DepartmentIT, "backup_files", types.StatusUnknown)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()
	_, err := tr.Start(ctx, "EMP001")
	require.NoError(t, err)

	_, err = tr.Update(ctx, "EMP001", DepartmentFinance, "check_loans", types.StatusCompleted)
	require.NoError(t, err)
	_, err = tr.Update(ctx, "EMP001", DepartmentFinance, "calculate_settlement", types.StatusBlocked)
	require.NoError(t, err)

	p, err := tr.Progress(ctx, "EMP001")
	require.NoError(t, err)
	assert.Equal(t, 16, p.TotalTasks)
	assert.Equal(t, 1, p.CompletedTasks)
	assert.Equal(t, start, p.StartDate)

	finance := p.Departments[2]
	assert.Equal(t, DepartmentFinance, finance.Name)
	assert.Equal(t, 1, finance.CompletedTasks)
	assert.Equal(t, 3, finance.TotalTasks)
	assert.Equal(t, types.StatusInProgress, finance.Status)

	_, err = tr.Progress(ctx, "EMP404")
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()
	_, err := tr.Start(ctx, "EMP001")
	require.NoError(t, err)

	c, err := tr.Get(ctx, "EMP001")
	require.NoError(t, err)
	c.Departments[0].Tasks[0].Status = types.StatusCompleted

	again, err := tr.Get(ctx, "EMP001")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, again.Departments[0].Tasks[0].Status)
}
