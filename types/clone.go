package types

import (
	"slices"
	"time"
)

// Clone returns a deep copy of the template.
func (s StageTemplate) Clone() StageTemplate {
	res := s
	res.Teams = slices.Clone(s.Teams)
	res.DependsOn = slices.Clone(s.DependsOn)
	res.Tasks = make([]TaskTemplate, len(s.Tasks))
	for i, t := range s.Tasks {
		res.Tasks[i] = t.Clone()
	}
	return res
}

// Clone returns a deep copy of the template.
func (t TaskTemplate) Clone() TaskTemplate {
	res := t
	res.DependsOn = slices.Clone(t.DependsOn)
	res.RequiredFields = slices.Clone(t.RequiredFields)
	return res
}

// Clone returns a deep copy of the instance. Mutating the copy never
// affects the original.
func (i *Instance) Clone() *Instance {
	if i == nil {
		return nil
	}
	res := *i
	res.Notes = cloneNotes(i.Notes)
	res.Attachments = slices.Clone(i.Attachments)
	res.Stages = make([]*Stage, len(i.Stages))
	for n, s := range i.Stages {
		res.Stages[n] = s.Clone()
	}
	return &res
}

// Clone returns a deep copy of the stage.
func (s *Stage) Clone() *Stage {
	res := *s
	res.Teams = slices.Clone(s.Teams)
	res.DependsOn = slices.Clone(s.DependsOn)
	res.CompletedDate = cloneTime(s.CompletedDate)
	res.Tasks = make([]*Task, len(s.Tasks))
	for n, t := range s.Tasks {
		res.Tasks[n] = t.Clone()
	}
	return &res
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	res := *t
	res.DependsOn = slices.Clone(t.DependsOn)
	res.CompletedDate = cloneTime(t.CompletedDate)
	res.Notes = cloneNotes(t.Notes)
	return &res
}

func cloneNotes(notes []Note) []Note {
	if notes == nil {
		return []Note{}
	}
	return slices.Clone(notes)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
