package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/offboarding/log"
	"github.com/songzhibin97/offboarding/tracker"
	"github.com/songzhibin97/offboarding/workflow"
)

// Server implements the HTTP API of the offboarding service
type Server struct {
	engine    *workflow.Engine
	tracker   *tracker.Tracker
	directory *tracker.Directory
	now       func() time.Time
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

var (
	// ErrInvalidJSON is returned when a request body cannot be decoded
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrInvalidQuery is returned when a query parameter cannot be parsed
	ErrInvalidQuery = errors.New("invalid query parameter")
)

// Option configures a Server
type Option func(*Server)

// WithClock replaces the clock used when no explicit time is requested
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithDirectory sets the employee directory. An empty one is used otherwise
func WithDirectory(d *tracker.Directory) Option {
	return func(s *Server) { s.directory = d }
}

// NewServer creates a new HTTP API server
func NewServer(eng *workflow.Engine, tr *tracker.Tracker, opts ...Option) *Server {
	s := &Server{
		engine:  eng,
		tracker: tr,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.directory == nil {
		s.directory = tracker.NewDirectory()
	}
	return s
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	router.GET("/health", s.handleHealth)

	ob := router.Group("/offboarding")
	{
		ob.POST("", s.createOffboarding)
		ob.GET("", s.listOffboarding)
		ob.POST("/query", s.queryOffboarding)
		ob.GET("/:id", s.getOffboarding)
		ob.GET("/:id/report", s.getReport)
		ob.POST("/:id/notes", s.addNote)
		ob.PUT("/:id/stages/:stageID/tasks/:taskID", s.updateTask)
		ob.GET("/:id/stages/:stageID/tasks/:taskID/blockers", s.getBlockers)
	}

	router.GET("/teams/:team/tasks", s.listTeamTasks)
	router.GET("/overdue", s.listOverdue)

	emp := router.Group("/employees")
	{
		emp.POST("", s.addEmployee)
		emp.GET("", s.listEmployees)
		emp.GET("/:employeeID", s.getEmployee)
		emp.PUT("/:employeeID/status", s.updateEmployeeStatus)
	}

	cl := router.Group("/checklists")
	{
		cl.POST("/:employeeID", s.startChecklist)
		cl.GET("/:employeeID", s.getChecklist)
		cl.PUT("/:employeeID/:department/:task", s.updateChecklist)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	list, err := s.engine.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"instances": len(list),
	})
}

// writeError translates an error kind into an HTTP status
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			slog.String("path", c.FullPath()),
			log.Error(err))
	}
	c.JSON(status, ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrAlreadyTracked):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidJSON),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, workflow.ErrValidation),
		errors.Is(err, tracker.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, tracker.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
