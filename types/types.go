package types

import (
	"slices"
	"time"
)

// Due rule anchors.
const (
	AnchorCreated        = "created"
	AnchorLastWorkingDay = "last_working_day"
)

// TeamSet holds the one or more teams responsible for a stage.
// Order is preserved and duplicates are dropped.
type TeamSet []Team

// NewTeamSet builds a TeamSet from the given teams.
func NewTeamSet(teams ...Team) TeamSet {
	set := make(TeamSet, 0, len(teams))
	for _, t := range teams {
		if !set.Contains(t) {
			set = append(set, t)
		}
	}
	return set
}

// Contains reports whether t is in the set.
func (s TeamSet) Contains(t Team) bool {
	return slices.Contains(s, t)
}

// Strings returns the string tags of the set.
func (s TeamSet) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.String()
	}
	return out
}

// DueRule places a stage's due date relative to an anchor date.
type DueRule struct {
	Anchor string `json:"anchor"`
	Days   int    `json:"days"`
}

// TaskTemplate defines a task inside a stage template.
type TaskTemplate struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Team           Team     `json:"team,omitempty"` // TeamUnknown inherits the stage teams
	DependsOn      []string `json:"depends_on,omitempty"`
	RequiredFields []string `json:"required_fields,omitempty"`
}

// StageTemplate defines one stage of the offboarding workflow.
type StageTemplate struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Teams       TeamSet        `json:"teams"`
	Timing      string         `json:"timing"`
	Due         DueRule        `json:"due"`
	Tasks       []TaskTemplate `json:"tasks"`
	DependsOn   []string       `json:"depends_on,omitempty"`
}

// EmployeeData is the employee information submitted with a request.
type EmployeeData struct {
	EmployeeID       string `json:"employee_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	LastWorkingDay   string `json:"last_working_day"` // YYYY-MM-DD
	ReasonForLeaving Reason `json:"reason_for_leaving"`
	LineManager      string `json:"line_manager,omitempty"`
	Department       string `json:"department,omitempty"`
	Position         string `json:"position,omitempty"`
}

// Note is a timestamped free-text annotation.
type Note struct {
	Date   time.Time `json:"date"`
	Text   string    `json:"note"`
	Author string    `json:"added_by"`
}

// Task is a task materialized for one instance.
type Task struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Team          Team       `json:"team,omitempty"`
	DependsOn     []string   `json:"depends_on,omitempty"`
	Status        Status     `json:"status"`
	CompletedDate *time.Time `json:"completed_date"`
	CompletedBy   string     `json:"completed_by"`
	Notes         []Note     `json:"notes"`
}

// Stage is a stage materialized for one instance.
type Stage struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Teams         TeamSet    `json:"teams"`
	Timing        string     `json:"timing"`
	DependsOn     []string   `json:"depends_on,omitempty"`
	DueDate       time.Time  `json:"due_date"`
	Status        Status     `json:"status"`
	CompletedDate *time.Time `json:"completed_date"`
	Tasks         []*Task    `json:"tasks"`
}

// Instance is one employee's offboarding case.
type Instance struct {
	ID              string       `json:"request_id"`
	Employee        EmployeeData `json:"employee_data"`
	CreatedDate     time.Time    `json:"created_date"`
	Status          Status       `json:"status"`
	OverallProgress float64      `json:"overall_progress"`
	CurrentStep     string       `json:"current_step"`
	Stages          []*Stage     `json:"steps"`
	Notes           []Note       `json:"notes"`
	Attachments     []string     `json:"attachments"`
}

// Stage returns the stage with the given id.
func (i *Instance) Stage(id string) (*Stage, bool) {
	for _, s := range i.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Task returns the task with the given id.
func (s *Stage) Task(id string) (*Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// ResponsibleFor reports whether the task is attributed to team. A task
// without an override belongs to every team of its stage.
func (s *Stage) ResponsibleFor(t *Task, team Team) bool {
	if !s.Teams.Contains(team) {
		return false
	}
	return t.Team == TeamUnknown || t.Team == team
}
