package storage

import (
	"time"

	"github.com/songzhibin97/offboarding/types"
)

var created = time.Date(2024, time.February, 1, 9, 0, 0, 0, time.UTC)

// newInstance builds a small two-stage instance for storage tests.
func newInstance(id string) *types.Instance {
	done := created.Add(time.Hour)
	return &types.Instance{
		ID: id,
		Employee: types.EmployeeData{
			EmployeeID:       "EMP001",
			Name:             "John Doe",
			Email:            "john.doe@company.com",
			LastWorkingDay:   "2024-02-15",
			ReasonForLeaving: types.ReasonResignation,
			Department:       "Engineering",
		},
		CreatedDate:     created,
		Status:          types.StatusInProgress,
		OverallProgress: 50,
		CurrentStep:     "step_2",
		Stages: []*types.Stage{
			{
				ID:            "step_1",
				Name:          "First",
				Teams:         types.NewTeamSet(types.TeamLineManager),
				DueDate:       created,
				Status:        types.StatusCompleted,
				CompletedDate: &done,
				Tasks: []*types.Task{{
					ID:            "a",
					Name:          "A",
					Status:        types.StatusCompleted,
					CompletedDate: &done,
					CompletedBy:   "Jane",
					Notes:         []types.Note{{Date: done, Text: "done", Author: "Jane"}},
				}},
			},
			{
				ID:      "step_2",
				Name:    "Second",
				Teams:   types.NewTeamSet(types.TeamIT, types.TeamFacilities),
				DueDate: created.Add(24 * time.Hour),
				Status:  types.StatusPending,
				Tasks: []*types.Task{{
					ID:        "b",
					Name:      "B",
					Team:      types.TeamIT,
					DependsOn: []string{"a"},
					Status:    types.StatusPending,
					Notes:     []types.Note{},
				}},
			},
		},
		Notes:       []types.Note{},
		Attachments: []string{},
	}
}
