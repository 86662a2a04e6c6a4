package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/songzhibin97/gkit/generator"

	"github.com/songzhibin97/offboarding/events"
	"github.com/songzhibin97/offboarding/log"
	"github.com/songzhibin97/offboarding/rules"
	"github.com/songzhibin97/offboarding/schedule"
	"github.com/songzhibin97/offboarding/storage"
	"github.com/songzhibin97/offboarding/templates"
	"github.com/songzhibin97/offboarding/types"
)

// idTimeLayout is the timestamp component of a request id.
const idTimeLayout = "20060102150405"

// Engine owns every active offboarding instance. Writes to one instance are
// serialized by that instance's lock; different instances proceed
// independently.
type Engine struct {
	instances map[string]*entry
	mu        sync.RWMutex
	evaluator rules.Evaluator
	storage   storage.Storage
	eventBus  *events.EventBus
	generate  generator.Generator
	now       func() time.Time
	logger    *slog.Logger
}

// derivedVariables is implemented by evaluators that compute extra
// variables from the query environment.
type derivedVariables interface {
	AddOptionFunc(name string, f func(map[string]any) any)
}

type entry struct {
	id      string
	created time.Time
	mu      sync.Mutex
	inst    *types.Instance
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for timestamps and due dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger used by the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEventBus makes the engine publish to an existing bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(e *Engine) {
		if bus != nil {
			e.eventBus = bus
		}
	}
}

// NewEngine creates a new Engine with the given id generator, persistence
// collaborator and expression evaluator.
func NewEngine(
	generate generator.Generator, store storage.Storage, evaluator rules.Evaluator,
	opts ...Option,
) (*Engine, error) {
	if generate == nil {
		return nil, errors.New("generator is required")
	}
	if store == nil {
		store = storage.NewMemoryStorage()
	}
	if evaluator == nil {
		evaluator = rules.NewExprEvaluator()
	}
	if derived, ok := evaluator.(derivedVariables); ok {
		derived.AddOptionFunc("stalled", stalled)
	}

	e := &Engine{
		instances: make(map[string]*entry),
		evaluator: evaluator,
		storage:   store,
		generate:  generate,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.eventBus == nil {
		e.eventBus = events.NewEventBus()
	}
	return e, nil
}

// SubscribeEvent subscribes an event handler to a specific event type and
// returns the token UnsubscribeEvent takes.
func (e *Engine) SubscribeEvent(eventType string, handler events.EventHandler) uint64 {
	return e.eventBus.Subscribe(eventType, handler)
}

// UnsubscribeEvent removes a subscription made with SubscribeEvent.
func (e *Engine) UnsubscribeEvent(eventType string, token uint64) bool {
	return e.eventBus.Unsubscribe(eventType, token)
}

// Create validates the employee data and materializes a new instance from
// the template registry. Nothing is stored when validation fails.
func (e *Engine) Create(ctx context.Context, data types.EmployeeData) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := validateEmployee(data); err != nil {
		e.logger.Warn("Offboarding request rejected",
			log.EmployeeID(data.EmployeeID), log.Error(err))
		return "", err
	}

	created := e.now()
	stages := templates.Templates()
	due, err := schedule.Calculate(stages, data.LastWorkingDay, created)
	if err != nil {
		e.logger.Warn("Offboarding request rejected",
			log.EmployeeID(data.EmployeeID), log.Error(err))
		return "", fmt.Errorf("%w: %w", ErrInvalidDate, err)
	}

	seq, err := e.generate.NextID()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}
	id := fmt.Sprintf("OB-%s-%s-%s",
		data.EmployeeID, created.Format(idTimeLayout), strconv.FormatUint(seq, 36))

	inst := &types.Instance{
		ID:          id,
		Employee:    data,
		CreatedDate: created,
		Status:      types.StatusPending,
		Stages:      make([]*types.Stage, 0, len(stages)),
		Notes:       []types.Note{},
		Attachments: []string{},
	}
	for _, tpl := range stages {
		inst.Stages = append(inst.Stages, newStage(tpl, due[tpl.ID]))
	}
	if len(inst.Stages) > 0 {
		inst.CurrentStep = inst.Stages[0].ID
	}

	if err := e.storage.SaveInstance(ctx, inst); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	e.mu.Lock()
	e.instances[id] = &entry{id: id, created: created, inst: inst}
	e.mu.Unlock()

	e.logger.Info("Created offboarding request",
		log.InstanceID(id), log.EmployeeID(data.EmployeeID))
	e.publishEvent(ctx, events.TypeInstanceCreated, id, created, map[string]any{
		"employee_id": data.EmployeeID,
	})
	return id, nil
}

// Get returns a copy of the instance.
func (e *Engine) Get(ctx context.Context, id string) (*types.Instance, error) {
	ent, err := e.getEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.inst.Clone(), nil
}

// List returns copies of all cached instances ordered by creation time.
func (e *Engine) List(ctx context.Context) ([]*types.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := e.snapshot()
	res := make([]*types.Instance, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		res = append(res, ent.inst.Clone())
		ent.mu.Unlock()
	}
	return res, nil
}

// Load fills the cache from the persistence collaborator. Instances that
// are already cached are kept as they are: every update is persisted before
// it is cached, so the cached copy is never older than the stored one.
// It returns the number of instances added to the cache.
func (e *Engine) Load(ctx context.Context) (int, error) {
	insts, err := e.storage.ListInstances(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	added := 0
	for _, inst := range insts {
		if _, ok := e.instances[inst.ID]; ok {
			continue
		}
		e.instances[inst.ID] = &entry{id: inst.ID, created: inst.CreatedDate, inst: inst}
		added++
	}
	e.logger.Info("Loaded offboarding instances",
		slog.Int("stored", len(insts)), slog.Int("added", added))
	return added, nil
}

// Checkpoint writes every cached instance to the persistence collaborator.
func (e *Engine) Checkpoint(ctx context.Context) error {
	insts, err := e.List(ctx)
	if err != nil {
		return err
	}

	if batch, ok := e.storage.(storage.BatchStorage); ok {
		if err := batch.SaveInstances(ctx, insts); err != nil {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return nil
	}
	for _, inst := range insts {
		if err := e.storage.SaveInstance(ctx, inst); err != nil {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}
	return nil
}

// Stop gracefully stops the engine.
func (e *Engine) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.eventBus.Stop()
	return nil
}

// getEntry retrieves an instance entry, checking the cache first then storage.
func (e *Engine) getEntry(ctx context.Context, id string) (*entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	ent, ok := e.instances[id]
	e.mu.RUnlock()
	if ok {
		return ent, nil
	}

	inst, err := e.storage.GetInstance(ctx, id)
	if errors.Is(err, storage.ErrInstanceNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.instances[id]; ok {
		return ent, nil
	}
	ent = &entry{id: inst.ID, created: inst.CreatedDate, inst: inst}
	e.instances[id] = ent
	return ent, nil
}

// update runs fn against a copy of the instance under its lock. The copy
// replaces the cached instance only after it has been persisted.
func (e *Engine) update(
	ctx context.Context, id string, fn func(inst *types.Instance) error,
) error {
	ent, err := e.getEntry(ctx, id)
	if err != nil {
		return err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()

	next := ent.inst.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := e.storage.SaveInstance(ctx, next); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	ent.inst = next
	return nil
}

// snapshot returns the cached entries ordered by creation time, then id.
func (e *Engine) snapshot() []*entry {
	e.mu.RLock()
	res := make([]*entry, 0, len(e.instances))
	for _, ent := range e.instances {
		res = append(res, ent)
	}
	e.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if !res[i].created.Equal(res[j].created) {
			return res[i].created.Before(res[j].created)
		}
		return res[i].id < res[j].id
	})
	return res
}

// publishEvent publishes an event to the event bus. Publishing never blocks
// and never fails the operation that raised it.
func (e *Engine) publishEvent(
	ctx context.Context, eventType, instanceID string, at time.Time, data map[string]any,
) {
	err := e.eventBus.Publish(ctx, events.Event{
		Type:       eventType,
		InstanceID: instanceID,
		Time:       at,
		Data:       data,
	})
	if err != nil && !errors.Is(err, events.ErrNoHandler) {
		e.logger.Warn("Event dropped",
			slog.String("event_type", eventType),
			log.InstanceID(instanceID), log.Error(err))
	}
}

func validateEmployee(data types.EmployeeData) error {
	fields := []struct {
		name  string
		value string
	}{
		{"employee_id", data.EmployeeID},
		{"name", data.Name},
		{"email", data.Email},
		{"last_working_day", data.LastWorkingDay},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if data.ReasonForLeaving == types.ReasonUnknown {
		return fmt.Errorf("%w: reason_for_leaving", ErrMissingField)
	}
	if !data.ReasonForLeaving.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidReason, data.ReasonForLeaving)
	}
	return nil
}

func newStage(tpl types.StageTemplate, due time.Time) *types.Stage {
	stage := &types.Stage{
		ID:          tpl.ID,
		Name:        tpl.Name,
		Description: tpl.Description,
		Teams:       tpl.Teams,
		Timing:      tpl.Timing,
		DependsOn:   tpl.DependsOn,
		DueDate:     due,
		Status:      types.StatusPending,
		Tasks:       make([]*types.Task, 0, len(tpl.Tasks)),
	}
	for _, t := range tpl.Tasks {
		stage.Tasks = append(stage.Tasks, &types.Task{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Team:        t.Team,
			DependsOn:   t.DependsOn,
			Status:      types.StatusPending,
			Notes:       []types.Note{},
		})
	}
	return stage
}
