package workflow

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/songzhibin97/offboarding/schedule"
	"github.com/songzhibin97/offboarding/types"
)

const day = 24 * time.Hour

// OverdueStage is a stage past its due date that is not completed.
type OverdueStage struct {
	InstanceID   string    `json:"request_id"`
	EmployeeName string    `json:"employee_name"`
	EmployeeID   string    `json:"employee_id"`
	StageID      string    `json:"step_id"`
	StageName    string    `json:"step_name"`
	Teams        []string  `json:"responsible_team"`
	DueDate      time.Time `json:"due_date"`
	DaysOverdue  int       `json:"days_overdue"`
}

// TaskView is a task flattened with enough context to render on its own.
type TaskView struct {
	InstanceID      string       `json:"request_id"`
	EmployeeName    string       `json:"employee_name"`
	EmployeeID      string       `json:"employee_id"`
	StageID         string       `json:"step_id"`
	StageName       string       `json:"step_name"`
	TaskID          string       `json:"task_id"`
	TaskName        string       `json:"task_name"`
	TaskDescription string       `json:"task_description"`
	Status          types.Status `json:"status"`
	DueDate         time.Time    `json:"due_date"`
	CompletedDate   *time.Time   `json:"completed_date"`
	CompletedBy     string       `json:"completed_by"`
	BlockedBy       []string     `json:"blocked_by"`
}

// Summary is the headline state of one instance.
type Summary struct {
	InstanceID      string       `json:"request_id"`
	EmployeeID      string       `json:"employee_id"`
	EmployeeName    string       `json:"employee_name"`
	Department      string       `json:"department,omitempty"`
	Reason          types.Reason `json:"reason_for_leaving"`
	Status          types.Status `json:"status"`
	OverallProgress float64      `json:"overall_progress"`
	CreatedDate     time.Time    `json:"created_date"`
	CurrentStep     string       `json:"current_step"`
	OverdueStages   int          `json:"overdue_stages"`
}

// StageDetail is the per-stage section of a report.
type StageDetail struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Teams         []string      `json:"responsible_team"`
	Status        types.Status  `json:"status"`
	DueDate       time.Time     `json:"due_date"`
	CompletedDate *time.Time    `json:"completed_date"`
	Tasks         []*types.Task `json:"tasks"`
}

// TimelineEntry records the completion of one stage.
type TimelineEntry struct {
	Date    time.Time `json:"date"`
	Action  string    `json:"action"`
	StageID string    `json:"step_id"`
	Teams   []string  `json:"team"`
}

// TeamCount is a per-team task tally.
type TeamCount struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Report is the full structured export of one instance.
type Report struct {
	InstanceID  string               `json:"request_id"`
	Employee    types.EmployeeData   `json:"employee_data"`
	Summary     Summary              `json:"workflow_summary"`
	Stages      []StageDetail        `json:"steps_detail"`
	Timeline    []TimelineEntry      `json:"timeline"`
	TeamSummary map[string]TeamCount `json:"team_summary"`
	Notes       []types.Note         `json:"notes"`
}

// OverallProgress is the percentage of completed tasks, 0 when the
// instance has no tasks.
func OverallProgress(inst *types.Instance) float64 {
	total, completed := 0, 0
	for _, stage := range inst.Stages {
		for _, task := range stage.Tasks {
			total++
			if task.Status == types.StatusCompleted {
				completed++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// Overdue lists every non-completed stage whose due date is before now.
func (e *Engine) Overdue(ctx context.Context, now time.Time) ([]OverdueStage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := []OverdueStage{}
	for _, ent := range e.snapshot() {
		ent.mu.Lock()
		inst := ent.inst
		for _, stage := range inst.Stages {
			if !isOverdue(stage, now) {
				continue
			}
			res = append(res, OverdueStage{
				InstanceID:   inst.ID,
				EmployeeName: inst.Employee.Name,
				EmployeeID:   inst.Employee.EmployeeID,
				StageID:      stage.ID,
				StageName:    stage.Name,
				Teams:        stage.Teams.Strings(),
				DueDate:      stage.DueDate,
				DaysOverdue:  int(now.Sub(stage.DueDate) / day),
			})
		}
		ent.mu.Unlock()
	}
	return res, nil
}

// TasksForTeam lists every task attributed to team across all instances.
func (e *Engine) TasksForTeam(ctx context.Context, team types.Team) ([]TaskView, error) {
	if !team.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrTeamNotFound, team)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := []TaskView{}
	for _, ent := range e.snapshot() {
		ent.mu.Lock()
		inst := ent.inst
		for _, stage := range inst.Stages {
			for _, task := range stage.Tasks {
				if !stage.ResponsibleFor(task, team) {
					continue
				}
				res = append(res, TaskView{
					InstanceID:      inst.ID,
					EmployeeName:    inst.Employee.Name,
					EmployeeID:      inst.Employee.EmployeeID,
					StageID:         stage.ID,
					StageName:       stage.Name,
					TaskID:          task.ID,
					TaskName:        task.Name,
					TaskDescription: task.Description,
					Status:          task.Status,
					DueDate:         stage.DueDate,
					CompletedDate:   copyTime(task.CompletedDate),
					CompletedBy:     task.CompletedBy,
					BlockedBy:       unmetPrerequisites(inst, stage, task),
				})
			}
		}
		ent.mu.Unlock()
	}
	return res, nil
}

// Blockers returns the prerequisites of a task that are not yet completed.
// Prerequisites are advisory and never prevent a status change.
func (e *Engine) Blockers(ctx context.Context, id, stageID, taskID string) ([]string, error) {
	ent, err := e.getEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	stage, ok := ent.inst.Stage(stageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
	}
	task, ok := stage.Task(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrTaskNotFound, taskID, stageID)
	}
	return unmetPrerequisites(ent.inst, stage, task), nil
}

// ExportReport builds the structured report of one instance.
func (e *Engine) ExportReport(ctx context.Context, id string) (*Report, error) {
	ent, err := e.getEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	inst := ent.inst.Clone()
	ent.mu.Unlock()

	now := e.now()
	report := &Report{
		InstanceID:  inst.ID,
		Employee:    inst.Employee,
		Summary:     summarize(inst, now),
		Stages:      make([]StageDetail, 0, len(inst.Stages)),
		Timeline:    []TimelineEntry{},
		TeamSummary: make(map[string]TeamCount),
		Notes:       inst.Notes,
	}

	for _, stage := range inst.Stages {
		report.Stages = append(report.Stages, StageDetail{
			ID:            stage.ID,
			Name:          stage.Name,
			Teams:         stage.Teams.Strings(),
			Status:        stage.Status,
			DueDate:       stage.DueDate,
			CompletedDate: stage.CompletedDate,
			Tasks:         stage.Tasks,
		})

		if stage.Status == types.StatusCompleted && stage.CompletedDate != nil {
			report.Timeline = append(report.Timeline, TimelineEntry{
				Date:    *stage.CompletedDate,
				Action:  "Completed: " + stage.Name,
				StageID: stage.ID,
				Teams:   stage.Teams.Strings(),
			})
		}

		for _, team := range stage.Teams {
			count := report.TeamSummary[team.String()]
			// Every task of a stage counts toward each of its teams.
			for _, task := range stage.Tasks {
				count.Total++
				if task.Status == types.StatusCompleted {
					count.Completed++
				}
			}
			report.TeamSummary[team.String()] = count
		}
	}

	sort.SliceStable(report.Timeline, func(i, j int) bool {
		return report.Timeline[i].Date.Before(report.Timeline[j].Date)
	})
	return report, nil
}

// Find returns the summaries of instances matching a boolean expression.
// The expression sees request_id, employee_id, name, email, department,
// position, line_manager, reason, status, progress, completed_tasks,
// total_tasks, overdue_stages, days_until_lwd and current_step. With the
// default evaluator it also sees stalled, true once the last working day
// has passed while stages are still overdue.
func (e *Engine) Find(ctx context.Context, expression string) ([]Summary, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidExpression)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := e.now()
	entries := e.snapshot()
	if len(entries) == 0 {
		// Compile against an empty case so a bad expression still fails.
		empty := &types.Instance{CreatedDate: now}
		if _, err := e.evaluator.Evaluate(expression, findEnv(empty, now)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
		}
		return []Summary{}, nil
	}

	res := []Summary{}
	for _, ent := range entries {
		ent.mu.Lock()
		env := findEnv(ent.inst, now)
		summary := summarize(ent.inst, now)
		ent.mu.Unlock()

		ok, err := e.evaluator.Evaluate(expression, env)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
		}
		if ok {
			res = append(res, summary)
		}
	}
	return res, nil
}

func summarize(inst *types.Instance, now time.Time) Summary {
	overdue := 0
	for _, stage := range inst.Stages {
		if isOverdue(stage, now) {
			overdue++
		}
	}
	return Summary{
		InstanceID:      inst.ID,
		EmployeeID:      inst.Employee.EmployeeID,
		EmployeeName:    inst.Employee.Name,
		Department:      inst.Employee.Department,
		Reason:          inst.Employee.ReasonForLeaving,
		Status:          inst.Status,
		OverallProgress: inst.OverallProgress,
		CreatedDate:     inst.CreatedDate,
		CurrentStep:     inst.CurrentStep,
		OverdueStages:   overdue,
	}
}

func stalled(env map[string]any) any {
	overdue, _ := env["overdue_stages"].(int)
	days, _ := env["days_until_lwd"].(int)
	return overdue > 0 && days < 0
}

func findEnv(inst *types.Instance, now time.Time) map[string]any {
	total, completed := 0, 0
	for _, stage := range inst.Stages {
		for _, task := range stage.Tasks {
			total++
			if task.Status == types.StatusCompleted {
				completed++
			}
		}
	}

	summary := summarize(inst, now)
	daysUntilLWD := 0
	if lwd, err := schedule.ParseDate(inst.Employee.LastWorkingDay, now.Location()); err == nil {
		daysUntilLWD = int(math.Floor(lwd.Sub(now).Hours() / 24))
	}

	return map[string]any{
		"request_id":      inst.ID,
		"employee_id":     inst.Employee.EmployeeID,
		"name":            inst.Employee.Name,
		"email":           inst.Employee.Email,
		"department":      inst.Employee.Department,
		"position":        inst.Employee.Position,
		"line_manager":    inst.Employee.LineManager,
		"reason":          inst.Employee.ReasonForLeaving.String(),
		"status":          inst.Status.String(),
		"progress":        summary.OverallProgress,
		"completed_tasks": completed,
		"total_tasks":     total,
		"overdue_stages":  summary.OverdueStages,
		"days_until_lwd":  daysUntilLWD,
		"current_step":    inst.CurrentStep,
	}
}

func isOverdue(stage *types.Stage, now time.Time) bool {
	return stage.Status != types.StatusCompleted && stage.DueDate.Before(now)
}

// unmetPrerequisites resolves a task's dependencies against stage ids of the
// instance first and task ids of the same stage second. Unknown references
// are ignored.
func unmetPrerequisites(inst *types.Instance, stage *types.Stage, task *types.Task) []string {
	unmet := []string{}
	for _, dep := range task.DependsOn {
		if s, ok := inst.Stage(dep); ok {
			if s.Status != types.StatusCompleted {
				unmet = append(unmet, dep)
			}
			continue
		}
		if t, ok := stage.Task(dep); ok && t.Status != types.StatusCompleted {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
