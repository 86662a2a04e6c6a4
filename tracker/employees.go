package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/songzhibin97/offboarding/log"
)

var (
	ErrInvalidEmployee       = fmt.Errorf("%w: invalid employee", ErrInvalid)
	ErrInvalidEmployeeStatus = fmt.Errorf("%w: invalid employee status", ErrInvalid)
	ErrEmployeeNotFound      = fmt.Errorf("employee record %w", ErrNotFound)
)

// EmployeeStatus is the employment state of an employee record.
type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeResigned EmployeeStatus = "resigned"
)

// Valid reports whether s is a known employee status.
func (s EmployeeStatus) Valid() bool {
	return s == EmployeeActive || s == EmployeeResigned
}

// NewEmployee is the data needed to register an employee.
type NewEmployee struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// Employee is a directory record.
type Employee struct {
	ID         string         `json:"employee_id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Department string         `json:"department"`
	Position   string         `json:"position"`
	Status     EmployeeStatus `json:"status"`
	JoinDate   string         `json:"join_date"` // YYYY-MM-DD
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Directory stores employee records in memory.
type Directory struct {
	mu        sync.RWMutex
	employees map[string]*Employee
	newID     func() string
	now       func() time.Time
	logger    *slog.Logger
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithDirectoryClock replaces the wall clock.
func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) { d.now = now }
}

// WithIDSource replaces the random record id source.
func WithIDSource(newID func() string) DirectoryOption {
	return func(d *Directory) { d.newID = newID }
}

// WithDirectoryLogger sets the directory logger.
func WithDirectoryLogger(logger *slog.Logger) DirectoryOption {
	return func(d *Directory) { d.logger = logger }
}

// NewDirectory creates an empty Directory.
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		employees: make(map[string]*Employee),
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add registers an active employee and returns the stored record.
func (d *Directory) Add(ctx context.Context, data NewEmployee) (*Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, f := range []struct{ name, value string }{
		{"name", data.Name},
		{"email", data.Email},
		{"department", data.Department},
		{"position", data.Position},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidEmployee, f.name)
		}
	}

	now := d.now()
	emp := &Employee{
		ID:         d.newID(),
		Name:       strings.TrimSpace(data.Name),
		Email:      strings.TrimSpace(data.Email),
		Department: strings.TrimSpace(data.Department),
		Position:   strings.TrimSpace(data.Position),
		Status:     EmployeeActive,
		JoinDate:   now.Format("2006-01-02"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.employees[emp.ID]; ok {
		return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidEmployee, emp.ID)
	}
	d.employees[emp.ID] = emp

	d.logger.Info("Employee added",
		log.EmployeeID(emp.ID),
		slog.String("department", emp.Department))
	res := *emp
	return &res, nil
}

// Get returns a copy of one record.
func (d *Directory) Get(ctx context.Context, id string) (*Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	emp, ok := d.employees[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	res := *emp
	return &res, nil
}

// List returns every record ordered by creation time, then id.
func (d *Directory) List(ctx context.Context) ([]Employee, error) {
	return d.filter(ctx, func(*Employee) bool { return true })
}

// ListByDepartment returns the records of one department. The match is
// exact.
func (d *Directory) ListByDepartment(ctx context.Context, department string) ([]Employee, error) {
	return d.filter(ctx, func(e *Employee) bool { return e.Department == department })
}

// UpdateStatus changes the employment status of a record.
func (d *Directory) UpdateStatus(
	ctx context.Context, id string, status EmployeeStatus,
) (*Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmployeeStatus, status)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	emp, ok := d.employees[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	emp.Status = status
	emp.UpdatedAt = d.now()

	d.logger.Info("Employee status updated",
		log.EmployeeID(id),
		slog.String("status", string(status)))
	res := *emp
	return &res, nil
}

func (d *Directory) filter(ctx context.Context, keep func(*Employee) bool) ([]Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	res := make([]Employee, 0, len(d.employees))
	for _, emp := range d.employees {
		if keep(emp) {
			res = append(res, *emp)
		}
	}
	d.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}
