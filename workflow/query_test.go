package workflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/offboarding/templates"
	"github.com/songzhibin97/offboarding/types"
)

func TestOverdue(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	id, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	now := time.Date(2024, time.February, 9, 12, 0, 0, 0, time.UTC)
	overdue, err := engine.Overdue(ctx, now)
	require.NoError(t, err)

	days := make(map[string]int)
	for _, o := range overdue {
		assert.Equal(t, id, o.InstanceID)
		assert.Equal(t, "EMP001", o.EmployeeID)
		assert.Equal(t, "Sara Ahmed", o.EmployeeName)
		days[o.StageID] = o.DaysOverdue
	}
	assert.Equal(t, map[string]int{
		templates.StageInitialRequest:  8,
		templates.StagePeopleOpsReview: 7,
		templates.StagePreLWD:          1,
	}, days)

	completeStage(t, engine, id, templates.StageInitialRequest)
	overdue, err = engine.Overdue(ctx, now)
	require.NoError(t, err)
	assert.Len(t, overdue, 2)
}

func TestOverdueBoundary(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	// Due exactly now is not overdue.
	overdue, err := engine.Overdue(ctx, createdAt)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	overdue, err = engine.Overdue(ctx, createdAt.Add(time.Nanosecond))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, templates.StageInitialRequest, overdue[0].StageID)
	assert.Equal(t, 0, overdue[0].DaysOverdue)
	assert.Equal(t, []string{"line_manager"}, overdue[0].Teams)

	overdue, err = engine.Overdue(ctx, createdAt.Add(47*time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, 1, overdue[0].DaysOverdue)
	assert.Equal(t, 0, overdue[1].DaysOverdue)
}

func TestTasksForTeam(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	id, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	views, err := engine.TasksForTeam(ctx, types.TeamFinance)
	require.NoError(t, err)

	var ids []string
	for _, v := range views {
		assert.Equal(t, id, v.InstanceID)
		assert.Equal(t, "Sara Ahmed", v.EmployeeName)
		assert.Equal(t, types.StatusPending, v.Status)
		ids = append(ids, v.TaskID)
	}
	assert.ElementsMatch(t, []string{"close_hala_card", "settle_loans", "process_final_payment"}, ids)
}

func TestTasksForTeamCoversEveryTask(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	want := map[types.Team]int{
		types.TeamLineManager:          2,
		types.TeamPeopleOps:            12,
		types.TeamIT:                   3,
		types.TeamFacilities:           3,
		types.TeamCorporateDevelopment: 2,
		types.TeamFinance:              3,
		types.TeamHR:                   3,
	}

	seen := make(map[string]bool)
	for _, team := range types.AllTeams() {
		views, err := engine.TasksForTeam(ctx, team)
		require.NoError(t, err)
		assert.Len(t, views, want[team], team.String())
		for _, v := range views {
			seen[v.StageID+"/"+v.TaskID] = true
		}
	}
	assert.Len(t, seen, templates.TotalTasks())
}

func TestTasksForTeamUnknown(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.TasksForTeam(context.Background(), types.Team(99))
	assert.ErrorIs(t, err, ErrTeamNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTasksForTeamBlockedBy(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	id, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	views, err := engine.TasksForTeam(ctx, types.TeamPeopleOps)
	require.NoError(t, err)
	for _, v := range views {
		if v.TaskID == "review_employee_details" {
			assert.Equal(t, []string{templates.StageInitialRequest}, v.BlockedBy)
		}
	}

	completeStage(t, engine, id, templates.StageInitialRequest)
	blockers, err := engine.Blockers(ctx, id, templates.StagePeopleOpsReview, "review_employee_details")
	require.NoError(t, err)
	assert.Empty(t, blockers)
}

func TestBlockers(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	id, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	blockers, err := engine.Blockers(ctx, id, templates.StageExitInterview, "document_interview")
	require.NoError(t, err)
	assert.Equal(t, []string{"collect_feedback"}, blockers)

	blockers, err = engine.Blockers(ctx, id, templates.StageFinalClosure, "verify_all_steps_completed")
	require.NoError(t, err)
	assert.Len(t, blockers, 6)

	// Prerequisites are advisory.
	require.NoError(t, engine.SetTaskStatus(ctx, id, templates.StageExitInterview,
		"document_interview", types.StatusCompleted, "hr", ""))

	_, err = engine.Blockers(ctx, id, "step_99", "x")
	assert.ErrorIs(t, err, ErrStageNotFound)
	_, err = engine.Blockers(ctx, id, templates.StageExitInterview, "x")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = engine.Blockers(ctx, "OB-missing", templates.StageExitInterview, "x")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestExportReport(t *testing.T) {
	ctx := context.Background()
	engine, clk := newTestEngine(t)

	id, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	clk.Set(createdAt.Add(3 * time.Hour))
	completeStage(t, engine, id, templates.StagePeopleOpsReview)
	clk.Set(createdAt.Add(time.Hour))
	completeStage(t, engine, id, templates.StageInitialRequest)
	require.NoError(t, engine.SetTaskStatus(ctx, id, templates.StagePreLWD,
		"close_hala_card", types.StatusCompleted, "finance", ""))
	require.NoError(t, engine.AddNote(ctx, id, "Employee requested early release", "hr"))

	report, err := engine.ExportReport(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, report.InstanceID)
	assert.Equal(t, "EMP001", report.Employee.EmployeeID)
	assert.Equal(t, types.StatusInProgress, report.Summary.Status)
	assert.InDelta(t, 6.0/28.0*100, report.Summary.OverallProgress, 1e-9)
	assert.Equal(t, templates.StagePreLWD, report.Summary.CurrentStep)
	require.Len(t, report.Stages, 7)
	assert.Equal(t, []string{"people_ops", "corporate_development", "finance"}, report.Stages[2].Teams)

	require.Len(t, report.Timeline, 2)
	assert.Equal(t, templates.StageInitialRequest, report.Timeline[0].StageID)
	assert.Equal(t, templates.StagePeopleOpsReview, report.Timeline[1].StageID)
	initial, ok := templates.Stage(templates.StageInitialRequest)
	require.True(t, ok)
	assert.Equal(t, "Completed: "+initial.Name, report.Timeline[0].Action)

	assert.Equal(t, TeamCount{Total: 11, Completed: 1}, report.TeamSummary["finance"])
	assert.Equal(t, TeamCount{Total: 2, Completed: 2}, report.TeamSummary["line_manager"])
	assert.Equal(t, TeamCount{Total: 17, Completed: 4}, report.TeamSummary["people_ops"])
	assert.Equal(t, TeamCount{Total: 8, Completed: 1}, report.TeamSummary["corporate_development"])
	assert.Equal(t, TeamCount{Total: 6, Completed: 0}, report.TeamSummary["it"])
	assert.Equal(t, TeamCount{Total: 6, Completed: 0}, report.TeamSummary["facilities"])
	assert.Equal(t, TeamCount{Total: 3, Completed: 0}, report.TeamSummary["hr"])
	assert.Len(t, report.TeamSummary, 7)

	require.Len(t, report.Notes, 1)
	assert.Equal(t, "hr", report.Notes[0].Author)

	_, err = engine.ExportReport(ctx, "OB-missing")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestExportReportJSON(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	id, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)
	report, err := engine.ExportReport(ctx, id)
	require.NoError(t, err)

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "resignation", doc["employee_data"].(map[string]any)["reason_for_leaving"])
	assert.Equal(t, "pending", doc["workflow_summary"].(map[string]any)["status"])

	steps := doc["steps_detail"].([]any)
	first := steps[0].(map[string]any)
	assert.Equal(t, []any{"line_manager"}, first["responsible_team"])
	task := first["tasks"].([]any)[0].(map[string]any)
	assert.Equal(t, "pending", task["status"])
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	engine, clk := newTestEngine(t)

	first, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)

	other := employee("EMP002")
	other.Name = "Khalid Noor"
	other.Department = "Finance"
	other.ReasonForLeaving = types.ReasonTermination
	other.LastWorkingDay = "2024-03-31"
	_, err = engine.Create(ctx, other)
	require.NoError(t, err)
	completeStage(t, engine, first, templates.StageInitialRequest)

	clk.Set(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		expression string
		want       []string
	}{
		{`reason == "resignation"`, []string{"EMP001"}},
		{`department == "Finance"`, []string{"EMP002"}},
		{`progress > 0`, []string{"EMP001"}},
		{`status == "pending"`, []string{"EMP002"}},
		{`overdue_stages >= 2`, []string{"EMP001", "EMP002"}},
		{`days_until_lwd > 30`, []string{"EMP002"}},
		{`days_until_lwd == 5 && completed_tasks == 2`, []string{"EMP001"}},
		{`total_tasks == 28`, []string{"EMP001", "EMP002"}},
		{`name startsWith "Zed"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			summaries, err := engine.Find(ctx, tt.expression)
			require.NoError(t, err)
			var got []string
			for _, s := range summaries {
				got = append(got, s.EmployeeID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindStalled(t *testing.T) {
	ctx := context.Background()
	engine, clk := newTestEngine(t)

	_, err := engine.Find(ctx, "stalled")
	require.NoError(t, err)

	_, err = engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)
	later := employee("EMP002")
	later.LastWorkingDay = "2024-03-31"
	_, err = engine.Create(ctx, later)
	require.NoError(t, err)

	clk.Set(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC))
	summaries, err := engine.Find(ctx, "stalled")
	require.NoError(t, err)
	assert.Empty(t, summaries)

	clk.Set(time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC))
	summaries, err = engine.Find(ctx, `stalled && reason == "resignation"`)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "EMP001", summaries[0].EmployeeID)
}

func TestFindInvalidExpression(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	for _, expression := range []string{"", "progress +", "salary > 10", "progress + 1"} {
		_, err := engine.Find(ctx, expression)
		assert.ErrorIs(t, err, ErrInvalidExpression, expression)
		assert.ErrorIs(t, err, ErrValidation, expression)
	}

	_, err := engine.Create(ctx, employee("EMP001"))
	require.NoError(t, err)
	_, err = engine.Find(ctx, "progress + 1")
	assert.ErrorIs(t, err, ErrInvalidExpression)
}
