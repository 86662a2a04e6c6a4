package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/offboarding/tracker"
)

// EmployeesResponse lists employee records.
type EmployeesResponse struct {
	Employees []tracker.Employee `json:"employees"`
	Count     int                `json:"count"`
}

// EmployeeStatusRequest changes the employment status of a record.
type EmployeeStatusRequest struct {
	Status tracker.EmployeeStatus `json:"status" binding:"required"`
}

func (s *Server) addEmployee(c *gin.Context) {
	var req tracker.NewEmployee
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	emp, err := s.directory.Add(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

func (s *Server) listEmployees(c *gin.Context) {
	var (
		list []tracker.Employee
		err  error
	)
	if dept, ok := c.GetQuery("department"); ok {
		list, err = s.directory.ListByDepartment(c.Request.Context(), dept)
	} else {
		list, err = s.directory.List(c.Request.Context())
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, EmployeesResponse{Employees: list, Count: len(list)})
}

func (s *Server) getEmployee(c *gin.Context) {
	emp, err := s.directory.Get(c.Request.Context(), c.Param("employeeID"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

func (s *Server) updateEmployeeStatus(c *gin.Context) {
	var req EmployeeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
		return
	}

	emp, err := s.directory.UpdateStatus(c.Request.Context(), c.Param("employeeID"), req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, emp)
}
