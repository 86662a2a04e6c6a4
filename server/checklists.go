package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/offboarding/types"
)

// ChecklistUpdateRequest sets the status of one checklist task. An empty
// body marks the task completed.
type ChecklistUpdateRequest struct {
	Status types.Status `json:"status"`
}

func (s *Server) startChecklist(c *gin.Context) {
	checklist, err := s.tracker.Start(c.Request.Context(), c.Param("employeeID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checklist)
}

func (s *Server) getChecklist(c *gin.Context) {
	progress, err := s.tracker.Progress(c.Request.Context(), c.Param("employeeID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (s *Server) updateChecklist(c *gin.Context) {
	req := ChecklistUpdateRequest{Status: types.StatusCompleted}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
			return
		}
	}

	checklist, err := s.tracker.Update(c.Request.Context(),
		c.Param("employeeID"), c.Param("department"), c.Param("task"), req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checklist)
}
