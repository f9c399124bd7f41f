// Package storagetest holds a conformance suite shared by the checkpoint
// store backends.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/embetter-go/pkg/storage"
)

// NewCheckpoint returns a checkpoint with plausible contents.
func NewCheckpoint(id int64, name string, createdAt time.Time) *storage.Checkpoint {
	return &storage.Checkpoint{
		ID:        id,
		Name:      name,
		Size:      4,
		InputDim:  6,
		Classes:   []string{"a", "b"},
		Epochs:    2,
		Loss:      []float64{0.69, 0.51},
		State:     []byte(fmt.Sprintf(`{"size":4,"input_dim":6,"id":%d}`, id)),
		Metadata:  map[string]interface{}{"neg_samples": float64(3)},
		CreatedAt: createdAt,
	}
}

// Run exercises every CheckpointStore operation against store. The store
// must start empty.
func Run(t *testing.T, store storage.CheckpointStore) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("SaveAndGet", func(t *testing.T) {
		cp := NewCheckpoint(101, "save-get", base)
		require.NoError(t, store.Save(ctx, cp))
		assert.Equal(t, storage.Checksum(cp.State), cp.Hash)

		got, err := store.Get(ctx, 101)
		require.NoError(t, err)
		assert.Equal(t, cp.Name, got.Name)
		assert.Equal(t, cp.Size, got.Size)
		assert.Equal(t, cp.InputDim, got.InputDim)
		assert.Equal(t, cp.Classes, got.Classes)
		assert.Equal(t, cp.Epochs, got.Epochs)
		assert.Equal(t, cp.Loss, got.Loss)
		assert.Equal(t, cp.State, got.State)
		assert.Equal(t, cp.Hash, got.Hash)
		assert.Equal(t, cp.Metadata, got.Metadata)
		assert.True(t, cp.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, 999999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("SaveRejectsInvalid", func(t *testing.T) {
		assert.Error(t, store.Save(ctx, &storage.Checkpoint{Name: "x", State: []byte("{}")}))
		assert.Error(t, store.Save(ctx, &storage.Checkpoint{ID: 5, State: []byte("{}")}))
		assert.Error(t, store.Save(ctx, &storage.Checkpoint{ID: 5, Name: "x"}))
	})

	t.Run("LatestAndList", func(t *testing.T) {
		for i := int64(0); i < 3; i++ {
			cp := NewCheckpoint(200+i, "series", base.Add(time.Duration(i)*time.Minute))
			cp.Epochs = int(i + 1)
			require.NoError(t, store.Save(ctx, cp))
		}
		require.NoError(t, store.Save(ctx, NewCheckpoint(300, "other", base.Add(time.Hour))))

		latest, err := store.Latest(ctx, "series")
		require.NoError(t, err)
		assert.Equal(t, int64(202), latest.ID)
		assert.Equal(t, 3, latest.Epochs)
		assert.NotEmpty(t, latest.State)

		_, err = store.Latest(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		list, err := store.List(ctx, &storage.ListOptions{Name: "series"})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []int64{202, 201, 200}, ids(list))
		assert.Empty(t, list[0].State)
		assert.Equal(t, []string{"a", "b"}, list[0].Classes)

		page, err := store.List(ctx, &storage.ListOptions{Name: "series", Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []int64{201}, ids(page))

		all, err := store.List(ctx, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 4)
		assert.Equal(t, int64(300), all[0].ID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, NewCheckpoint(400, "delete", base)))
		require.NoError(t, store.Delete(ctx, 400))

		_, err := store.Get(ctx, 400)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, 400), storage.ErrNotFound)
	})
}

func ids(cps []*storage.Checkpoint) []int64 {
	out := make([]int64, len(cps))
	for i, cp := range cps {
		out[i] = cp.ID
	}
	return out
}
