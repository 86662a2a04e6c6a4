package storage

import (
	"context"
	"errors"

	"github.com/songzhibin97/offboarding/types"
)

// ErrInstanceNotFound is returned when no record exists for an id.
var ErrInstanceNotFound = errors.New("instance not found")

// Storage defines the interface for persisting and retrieving offboarding
// instances.
type Storage interface {
	// SaveInstance saves an instance, replacing any previous record.
	SaveInstance(ctx context.Context, inst *types.Instance) error

	// GetInstance retrieves an instance by ID.
	GetInstance(ctx context.Context, id string) (*types.Instance, error)

	// ListInstances returns every stored instance.
	ListInstances(ctx context.Context) ([]*types.Instance, error)
}

// BatchStorage is implemented by stores that can save many instances at once.
type BatchStorage interface {
	SaveInstances(ctx context.Context, insts []*types.Instance) error
}

// withContext is a standalone generic helper function.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	default:
		return fn()
	}
}

// withContextError handles context cancellation for operations that only return an error.
func withContextError(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}
