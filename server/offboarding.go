package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/offboarding/types"
	"github.com/songzhibin97/offboarding/workflow"
)

type (
	// CreateResponse is returned when a request is opened
	CreateResponse struct {
		RequestID string `json:"request_id"`
	}

	// InstancesResponse lists instances
	InstancesResponse struct {
		Instances []*types.Instance `json:"instances"`
		Count     int               `json:"count"`
	}

	// UpdateTaskRequest sets the status of one task
	UpdateTaskRequest struct {
		Status    types.Status `json:"status"`
		UpdatedBy string       `json:"updated_by"`
		Notes     string       `json:"notes"`
	}

	// AddNoteRequest appends a note to a request
	AddNoteRequest struct {
		Note    string `json:"note"`
		AddedBy string `json:"added_by"`
	}

	// QueryRequest filters requests with a boolean expression
	QueryRequest struct {
		Expression string `json:"expression"`
	}

	// QueryResponse lists the summaries matching a query
	QueryResponse struct {
		Instances []workflow.Summary `json:"instances"`
		Count     int                `json:"count"`
	}

	// BlockersResponse lists unmet prerequisites of a task
	BlockersResponse struct {
		TaskID    string   `json:"task_id"`
		BlockedBy []string `json:"blocked_by"`
	}

	// TeamTasksResponse lists the tasks of a team
	TeamTasksResponse struct {
		Team  types.Team          `json:"team"`
		Tasks []workflow.TaskView `json:"tasks"`
		Count int                 `json:"count"`
	}

	// OverdueResponse lists overdue stages
	OverdueResponse struct {
		AsOf   time.Time               `json:"as_of"`
		Stages []workflow.OverdueStage `json:"overdue"`
		Count  int                     `json:"count"`
	}
)

func (s *Server) createOffboarding(c *gin.Context) {
	var req types.EmployeeData
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	id, err := s.engine.Create(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateResponse{RequestID: id})
}

func (s *Server) listOffboarding(c *gin.Context) {
	var filter types.Status
	if q := c.Query("status"); q != "" {
		st, err := types.ParseStatus(q)
		if err != nil {
			s.writeError(c, fmt.Errorf("%w: status: %w", ErrInvalidQuery, err))
			return
		}
		filter = st
	}

	list, err := s.engine.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	res := make([]*types.Instance, 0, len(list))
	for _, inst := range list {
		if filter == types.StatusUnknown || inst.Status == filter {
			res = append(res, inst)
		}
	}
	c.JSON(http.StatusOK, InstancesResponse{Instances: res, Count: len(res)})
}

func (s *Server) getOffboarding(c *gin.Context) {
	inst, err := s.engine.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) getReport(c *gin.Context) {
	report, err := s.engine.ExportReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) updateTask(c *gin.Context) {
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	err := s.engine.SetTaskStatus(ctx, id, c.Param("stageID"), c.Param("taskID"),
		req.Status, req.UpdatedBy, req.Notes)
	if err != nil {
		s.writeError(c, err)
		return
	}

	inst, err := s.engine.Get(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) addNote(c *gin.Context) {
	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := s.engine.AddNote(ctx, id, req.Note, req.AddedBy); err != nil {
		s.writeError(c, err)
		return
	}

	inst, err := s.engine.Get(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inst.Notes)
}

func (s *Server) getBlockers(c *gin.Context) {
	taskID := c.Param("taskID")
	blockers, err := s.engine.Blockers(c.Request.Context(),
		c.Param("id"), c.Param("stageID"), taskID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, BlockersResponse{TaskID: taskID, BlockedBy: blockers})
}

func (s *Server) queryOffboarding(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	res, err := s.engine.Find(c.Request.Context(), req.Expression)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, QueryResponse{Instances: res, Count: len(res)})
}

func (s *Server) listTeamTasks(c *gin.Context) {
	team, err := types.ParseTeam(c.Param("team"))
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", workflow.ErrTeamNotFound, err))
		return
	}

	tasks, err := s.engine.TasksForTeam(c.Request.Context(), team)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TeamTasksResponse{Team: team, Tasks: tasks, Count: len(tasks)})
}

func (s *Server) listOverdue(c *gin.Context) {
	now := s.now()
	if q := c.Query("at"); q != "" {
		at, err := time.Parse(time.RFC3339, q)
		if err != nil {
			s.writeError(c, fmt.Errorf("%w: at: %w", ErrInvalidQuery, err))
			return
		}
		now = at
	}

	stages, err := s.engine.Overdue(c.Request.Context(), now)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OverdueResponse{AsOf: now, Stages: stages, Count: len(stages)})
}
