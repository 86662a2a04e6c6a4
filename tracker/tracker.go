// Package tracker keeps employee records and the per-department
// offboarding checklist of each employee. It is independent of the
// workflow engine; the two records are not kept in sync.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/songzhibin97/offboarding/log"
	"github.com/songzhibin97/offboarding/types"
)

var (
	// ErrInvalid marks a malformed checklist request.
	ErrInvalid = errors.New("invalid checklist request")
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("checklist entry not found")

	ErrAlreadyTracked    = fmt.Errorf("%w: employee is already tracked", ErrInvalid)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid status", ErrInvalid)
	ErrNotTracked        = fmt.Errorf("employee %w", ErrNotFound)
	ErrUnknownDepartment = fmt.Errorf("department %w", ErrNotFound)
	ErrUnknownTask       = fmt.Errorf("task %w", ErrNotFound)
)

// Department names.
const (
	DepartmentHR      = "HR"
	DepartmentIT      = "IT"
	DepartmentFinance = "Finance"
	DepartmentLegal   = "Legal"
	DepartmentAdmin   = "Admin"
	DepartmentManager = "Manager"
)

type taskDef struct{ key, name string }

type departmentDef struct {
	name  string
	tasks []taskDef
}

var departments = []departmentDef{
	{DepartmentHR, []taskDef{
		{"submit_resignation_letter", "Submit Resignation Letter"},
		{"change_status_to_resigned", "Change Status to Resigned"},
		{"schedule_exit_interview", "Schedule Exit Interview"},
	}},
	{DepartmentIT, []taskDef{
		{"revoke_system_access", "Revoke System Access"},
		{"return_company_device", "Return Company Device"},
		{"backup_files", "Backup Files"},
	}},
	{DepartmentFinance, []taskDef{
		{"calculate_settlement", "Calculate Settlement"},
		{"check_loans", "Check Loans"},
		{"generate_final_payslip", "Generate Final Payslip"},
	}},
	{DepartmentLegal, []taskDef{
		{"nda_status_check", "NDA Status Check"},
		{"document_return", "Document Return"},
		{"dispute_resolution", "Dispute Resolution"},
	}},
	{DepartmentAdmin, []taskDef{
		{"reclaim_access_cards", "Reclaim Access Cards/Keys"},
		{"facility_clearance", "Facility Clearance"},
	}},
	{DepartmentManager, []taskDef{
		{"confirm_handover", "Confirm Handover"},
		{"approve_exit_checklist", "Approve Exit Checklist"},
	}},
}

// Item is one checklist task.
type Item struct {
	Key    string       `json:"key"`
	Name   string       `json:"name"`
	Status types.Status `json:"status"`
}

// Department is the checklist of one department.
type Department struct {
	Name          string       `json:"name"`
	Status        types.Status `json:"status"`
	Tasks         []Item       `json:"tasks"`
	CompletedDate *time.Time   `json:"completed_date"`
}

// Checklist is an employee's checklist across all departments.
type Checklist struct {
	EmployeeID  string       `json:"employee_id"`
	StartDate   time.Time    `json:"start_date"`
	Status      types.Status `json:"status"`
	Departments []Department `json:"departments"`
}

// DepartmentProgress tallies one department.
type DepartmentProgress struct {
	Name           string       `json:"name"`
	Status         types.Status `json:"status"`
	CompletedTasks int          `json:"completed_tasks"`
	TotalTasks     int          `json:"total_tasks"`
	CompletedDate  *time.Time   `json:"completed_date"`
}

// Progress tallies the whole checklist.
type Progress struct {
	EmployeeID     string               `json:"employee_id"`
	Status         types.Status         `json:"status"`
	CompletedTasks int                  `json:"completed_tasks"`
	TotalTasks     int                  `json:"total_tasks"`
	StartDate      time.Time            `json:"start_date"`
	Departments    []DepartmentProgress `json:"departments"`
}

// Tracker stores checklists in memory.
type Tracker struct {
	mu         sync.Mutex
	checklists map[string]*Checklist
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the tracker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		checklists: make(map[string]*Checklist),
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Departments returns the department names in checklist order.
func Departments() []string {
	names := make([]string, len(departments))
	for i, d := range departments {
		names[i] = d.name
	}
	return names
}

// Start opens a checklist for an employee with every task pending.
func (t *Tracker) Start(ctx context.Context, employeeID string) (*Checklist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if employeeID == "" {
		return nil, fmt.Errorf("%w: employee id is required", ErrInvalid)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.checklists[employeeID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTracked, employeeID)
	}

	c := &Checklist{
		EmployeeID:  employeeID,
		StartDate:   t.now(),
		Status:      types.StatusInProgress,
		Departments: make([]Department, 0, len(departments)),
	}
	for _, def := range departments {
		dept := Department{
			Name:   def.name,
			Status: types.StatusPending,
			Tasks:  make([]Item, 0, len(def.tasks)),
		}
		for _, task := range def.tasks {
			dept.Tasks = append(dept.Tasks, Item{Key: task.key, Name: task.name, Status: types.StatusPending})
		}
		c.Departments = append(c.Departments, dept)
	}
	t.checklists[employeeID] = c

	t.logger.Info("Checklist started", log.EmployeeID(employeeID))
	return c.clone(), nil
}

// Get returns a copy of the employee's checklist.
func (t *Tracker) Get(ctx context.Context, employeeID string) (*Checklist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.checklists[employeeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, employeeID)
	}
	return c.clone(), nil
}

// Update sets the status of one department task and recomputes the
// department and checklist status.
func (t *Tracker) Update(
	ctx context.Context, employeeID, department, task string, status types.Status,
) (*Checklist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.checklists[employeeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, employeeID)
	}
	dept := c.department(department)
	if dept == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDepartment, department)
	}
	item := dept.item(task)
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, task)
	}

	item.Status = status
	now := t.now()
	dept.recompute(now)
	c.recompute()

	t.logger.Info("Checklist task updated",
		log.EmployeeID(employeeID),
		slog.String("department", department),
		log.TaskID(task),
		log.Status(status))
	return c.clone(), nil
}

// Progress tallies the employee's checklist.
func (t *Tracker) Progress(ctx context.Context, employeeID string) (*Progress, error) {
	c, err := t.Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	p := &Progress{
		EmployeeID:  c.EmployeeID,
		Status:      c.Status,
		StartDate:   c.StartDate,
		Departments: make([]DepartmentProgress, 0, len(c.Departments)),
	}
	for _, dept := range c.Departments {
		dp := DepartmentProgress{
			Name:          dept.Name,
			Status:        dept.Status,
			TotalTasks:    len(dept.Tasks),
			CompletedDate: dept.CompletedDate,
		}
		for _, item := range dept.Tasks {
			if item.Status == types.StatusCompleted {
				dp.CompletedTasks++
			}
		}
		p.TotalTasks += dp.TotalTasks
		p.CompletedTasks += dp.CompletedTasks
		p.Departments = append(p.Departments, dp)
	}
	return p, nil
}

func (c *Checklist) department(name string) *Department {
	for i := range c.Departments {
		if c.Departments[i].Name == name {
			return &c.Departments[i]
		}
	}
	return nil
}

func (d *Department) item(key string) *Item {
	for i := range d.Tasks {
		if d.Tasks[i].Key == key {
			return &d.Tasks[i]
		}
	}
	return nil
}

func (d *Department) recompute(now time.Time) {
	completed, pending := 0, 0
	for _, item := range d.Tasks {
		switch item.Status {
		case types.StatusCompleted:
			completed++
		case types.StatusPending:
			pending++
		}
	}

	prev := d.Status
	switch {
	case completed == len(d.Tasks):
		d.Status = types.StatusCompleted
		if prev != types.StatusCompleted {
			d.CompletedDate = &now
		}
	case pending == len(d.Tasks):
		d.Status = types.StatusPending
	default:
		d.Status = types.StatusInProgress
	}
}

func (c *Checklist) recompute() {
	for _, dept := range c.Departments {
		if dept.Status != types.StatusCompleted {
			c.Status = types.StatusInProgress
			return
		}
	}
	c.Status = types.StatusCompleted
}

func (c *Checklist) clone() *Checklist {
	out := *c
	out.Departments = make([]Department, len(c.Departments))
	for i, dept := range c.Departments {
		dept.Tasks = append([]Item(nil), dept.Tasks...)
		if dept.CompletedDate != nil {
			at := *dept.CompletedDate
			dept.CompletedDate = &at
		}
		out.Departments[i] = dept
	}
	return &out
}
