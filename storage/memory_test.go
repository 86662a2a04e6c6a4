package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/songzhibin97/offboarding/types"
)

func TestMemoryStorage(t *testing.T) {
	t.Run("NewMemoryStorage", func(t *testing.T) {
		store := NewMemoryStorage()
		assert.NotNil(t, store)
		assert.NotNil(t, store.instances)
		assert.Empty(t, store.instances)
	})

	t.Run("SaveAndGetInstance", func(t *testing.T) {
		store := NewMemoryStorage()
		ctx := context.Background()

		inst := newInstance("OB-1")
		err := store.SaveInstance(ctx, inst)
		assert.NoError(t, err)

		got, err := store.GetInstance(ctx, "OB-1")
		assert.NoError(t, err)
		assert.Equal(t, inst, got)

		_, err = store.GetInstance(ctx, "OB-2")
		assert.ErrorIs(t, err, ErrInstanceNotFound)
	})

	t.Run("CopiesOnSaveAndGet", func(t *testing.T) {
		store := NewMemoryStorage()
		ctx := context.Background()

		inst := newInstance("OB-1")
		require.NoError(t, store.SaveInstance(ctx, inst))
		inst.Stages[0].Tasks[0].Status = types.StatusBlocked

		got, err := store.GetInstance(ctx, "OB-1")
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompleted, got.Stages[0].Tasks[0].Status)

		got.Stages[1].Tasks[0].Notes = append(got.Stages[1].Tasks[0].Notes, types.Note{Text: "x"})
		again, err := store.GetInstance(ctx, "OB-1")
		require.NoError(t, err)
		assert.Empty(t, again.Stages[1].Tasks[0].Notes)
	})

	t.Run("SaveInstancesAndList", func(t *testing.T) {
		store := NewMemoryStorage()
		ctx := context.Background()

		insts := []*types.Instance{newInstance("OB-3"), newInstance("OB-1"), newInstance("OB-2")}
		err := store.SaveInstances(ctx, insts)
		assert.NoError(t, err)

		list, err := store.ListInstances(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "OB-1", list[0].ID)
		assert.Equal(t, "OB-2", list[1].ID)
		assert.Equal(t, "OB-3", list[2].ID)
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		store := NewMemoryStorage()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.SaveInstance(ctx, newInstance("OB-1"))
		assert.ErrorIs(t, err, context.Canceled)

		_, err = store.GetInstance(ctx, "OB-1")
		assert.ErrorIs(t, err, context.Canceled)

		_, err = store.ListInstances(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		store := NewMemoryStorage()
		ctx := context.Background()
		var wg sync.WaitGroup

		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("OB-%d", i)
				assert.NoError(t, store.SaveInstance(ctx, newInstance(id)))
				_, err := store.GetInstance(ctx, id)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		list, err := store.ListInstances(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 50)
	})
}
