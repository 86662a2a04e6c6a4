package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/songzhibin97/offboarding/events"
	"github.com/songzhibin97/offboarding/log"
	"github.com/songzhibin97/offboarding/types"
)

// SetTaskStatus writes a new status onto a task and recomputes the stage
// and workflow state. Any status may follow any other.
func (e *Engine) SetTaskStatus(
	ctx context.Context, id, stageID, taskID string, status types.Status, actor, note string,
) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}

	var (
		now            time.Time
		stageDone      bool
		workflowDone   bool
		stageName      string
		progress       float64
		previousStatus types.Status
	)
	err := e.update(ctx, id, func(inst *types.Instance) error {
		stage, ok := inst.Stage(stageID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
		}
		task, ok := stage.Task(taskID)
		if !ok {
			return fmt.Errorf("%w: %s in %s", ErrTaskNotFound, taskID, stageID)
		}

		now = e.now()
		previousStatus = task.Status
		task.Status = status
		if status == types.StatusCompleted {
			task.CompletedDate = &now
			task.CompletedBy = actor
		}
		if strings.TrimSpace(note) != "" {
			task.Notes = append(task.Notes, types.Note{Date: now, Text: note, Author: actor})
		}

		stageDone = recomputeStage(stage, now)
		workflowDone = recomputeInstance(inst)
		stageName = stage.Name
		progress = inst.OverallProgress
		return nil
	})
	if err != nil {
		e.logger.Warn("Task update failed",
			log.InstanceID(id), log.StageID(stageID), log.TaskID(taskID), log.Error(err))
		return err
	}

	e.logger.Info("Task status updated",
		log.InstanceID(id), log.StageID(stageID), log.TaskID(taskID),
		log.Status(status), log.Actor(actor))

	e.publishEvent(ctx, events.TypeTaskUpdated, id, now, map[string]any{
		"step_id":         stageID,
		"task_id":         taskID,
		"previous_status": previousStatus.String(),
		"status":          status.String(),
		"updated_by":      actor,
	})
	if stageDone {
		e.publishEvent(ctx, events.TypeStageCompleted, id, now, map[string]any{
			"step_id":   stageID,
			"step_name": stageName,
			"progress":  progress,
		})
	}
	if workflowDone {
		e.publishEvent(ctx, events.TypeWorkflowCompleted, id, now, nil)
	}
	return nil
}

// AddNote appends an annotation to the instance note log.
func (e *Engine) AddNote(ctx context.Context, id, text, author string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyNote
	}

	var now time.Time
	err := e.update(ctx, id, func(inst *types.Instance) error {
		now = e.now()
		inst.Notes = append(inst.Notes, types.Note{Date: now, Text: text, Author: author})
		return nil
	})
	if err != nil {
		e.logger.Warn("Adding note failed", log.InstanceID(id), log.Error(err))
		return err
	}

	e.logger.Info("Note added", log.InstanceID(id), log.Actor(author))
	e.publishEvent(ctx, events.TypeNoteAdded, id, now, map[string]any{
		"added_by": author,
	})
	return nil
}

// recomputeStage derives the stage status from its tasks and reports
// whether the stage has just become completed.
func recomputeStage(stage *types.Stage, now time.Time) bool {
	prev := stage.Status
	stage.Status = deriveStatus(len(stage.Tasks), func(i int) types.Status {
		return stage.Tasks[i].Status
	})
	if stage.Status == types.StatusCompleted && prev != types.StatusCompleted {
		stage.CompletedDate = &now
		return true
	}
	return false
}

// recomputeInstance refreshes progress, status and the current step and
// reports whether the workflow has just become completed.
func recomputeInstance(inst *types.Instance) bool {
	prev := inst.Status
	inst.OverallProgress = OverallProgress(inst)
	inst.Status = deriveStatus(len(inst.Stages), func(i int) types.Status {
		return inst.Stages[i].Status
	})

	inst.CurrentStep = ""
	for _, stage := range inst.Stages {
		if stage.Status != types.StatusCompleted {
			inst.CurrentStep = stage.ID
			break
		}
	}
	if inst.CurrentStep == "" && len(inst.Stages) > 0 {
		inst.CurrentStep = inst.Stages[len(inst.Stages)-1].ID
	}

	return inst.Status == types.StatusCompleted && prev != types.StatusCompleted
}

// deriveStatus is completed when every child is completed, pending when
// every child is pending, and in progress otherwise.
func deriveStatus(n int, child func(i int) types.Status) types.Status {
	allCompleted, allPending := true, true
	for i := 0; i < n; i++ {
		switch child(i) {
		case types.StatusCompleted:
			allPending = false
		case types.StatusPending:
			allCompleted = false
		default:
			allCompleted = false
			allPending = false
		}
	}
	switch {
	case allCompleted:
		return types.StatusCompleted
	case allPending:
		return types.StatusPending
	default:
		return types.StatusInProgress
	}
}
