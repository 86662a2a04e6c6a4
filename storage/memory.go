package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/songzhibin97/offboarding/types"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Instances are copied on the way in and on the way out.
type MemoryStorage struct {
	instances map[string]*types.Instance
	mu        sync.RWMutex
}

// NewMemoryStorage creates a new MemoryStorage instance.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		instances: make(map[string]*types.Instance),
	}
}

// SaveInstance saves an instance to memory.
func (s *MemoryStorage) SaveInstance(ctx context.Context, inst *types.Instance) error {
	return withContextError(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.instances[inst.ID] = inst.Clone()
		return nil
	})
}

// GetInstance retrieves an instance from memory.
func (s *MemoryStorage) GetInstance(ctx context.Context, id string) (*types.Instance, error) {
	return withContext(ctx, func() (*types.Instance, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		inst, ok := s.instances[id]
		if !ok {
			return nil, fmt.Errorf("%w: id=%s", ErrInstanceNotFound, id)
		}
		return inst.Clone(), nil
	})
}

// ListInstances returns copies of all instances ordered by id.
func (s *MemoryStorage) ListInstances(ctx context.Context) ([]*types.Instance, error) {
	return withContext(ctx, func() ([]*types.Instance, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		res := make([]*types.Instance, 0, len(s.instances))
		for _, inst := range s.instances {
			res = append(res, inst.Clone())
		}
		sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
		return res, nil
	})
}

// SaveInstances saves multiple instances in a single lock.
func (s *MemoryStorage) SaveInstances(ctx context.Context, insts []*types.Instance) error {
	return withContextError(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, inst := range insts {
			s.instances[inst.ID] = inst.Clone()
		}
		return nil
	})
}
