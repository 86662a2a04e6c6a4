package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/offboarding/types"
)

func TestTemplatesShape(t *testing.T) {
	stages := Templates()
	require.Len(t, stages, 7)

	wantTasks := []int{2, 3, 8, 6, 3, 3, 3}
	for i, s := range stages {
		assert.Equal(t, StageIDs()[i], s.ID)
		assert.NotEmpty(t, s.Teams, s.ID)
		assert.Len(t, s.Tasks, wantTasks[i], s.ID)

		seen := map[string]bool{}
		for _, task := range s.Tasks {
			assert.False(t, seen[task.ID], "duplicate task %s in %s", task.ID, s.ID)
			seen[task.ID] = true
			if task.Team != types.TeamUnknown {
				assert.True(t, s.Teams.Contains(task.Team), "%s override outside stage teams", task.ID)
			}
		}
	}
	assert.Equal(t, 28, TotalTasks())
}

func TestTemplatesReturnsCopies(t *testing.T) {
	first := Templates()
	first[0].Tasks[0].Name = "mutated"
	first[0].Teams[0] = types.TeamIT
	first[2].Tasks = nil

	second := Templates()
	assert.Equal(t, "Capture Employee Details", second[0].Tasks[0].Name)
	assert.Equal(t, types.TeamLineManager, second[0].Teams[0])
	assert.Len(t, second[2].Tasks, 8)
}

func TestStageLookup(t *testing.T) {
	s, ok := Stage(StageLWD)
	require.True(t, ok)
	assert.Equal(t, types.NewTeamSet(types.TeamIT, types.TeamFacilities), s.Teams)
	assert.Equal(t, types.DueRule{Anchor: types.AnchorLastWorkingDay}, s.Due)

	_, ok = Stage("step_8_missing")
	assert.False(t, ok)
}

func TestDependencyGraph(t *testing.T) {
	graph := DependencyGraph()

	assert.Equal(t, []string{"capture_employee_details"},
		graph[StageInitialRequest]["validate_request"])
	assert.Equal(t, []string{"notify_corporate_dev"},
		graph[StagePreLWD]["handle_equity_matters"])
	assert.Equal(t, []string{"collect_feedback"},
		graph[StageExitInterview]["document_interview"])
	assert.Len(t, graph[StageFinalClosure]["verify_all_steps_completed"], 6)
	assert.Empty(t, graph[StageLWD]["revoke_system_access"])

	graph[StageInitialRequest]["validate_request"][0] = "changed"
	assert.Equal(t, "capture_employee_details",
		DependencyGraph()[StageInitialRequest]["validate_request"][0])
}
