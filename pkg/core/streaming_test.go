package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embetter "github.com/oceanbase/embetter-go/pkg/core"
)

func TestFitStream(t *testing.T) {
	client := newTestClient(t, embetter.WithEpochs(4))
	X, y := toyData()

	var epochs []*embetter.EpochResult
	var final *embetter.EpochResult
	for ep := range client.FitStream(context.Background(), X, y) {
		if ep.Done {
			final = ep
			continue
		}
		epochs = append(epochs, ep)
	}

	require.NotNil(t, final)
	require.NoError(t, final.Error)
	require.Len(t, epochs, 4)
	for i, ep := range epochs {
		assert.Equal(t, i+1, ep.Epoch)
		assert.Equal(t, 4, ep.Epochs)
		assert.Equal(t, final.Result.Loss[i], ep.Loss)
	}
	assert.Equal(t, 4, final.Result.Epochs)
}

func TestFitStreamError(t *testing.T) {
	client := newTestClient(t)

	var results []*embetter.EpochResult
	for ep := range client.FitStream(context.Background(), [][]float64{{1}}, []string{"a", "b"}) {
		results = append(results, ep)
	}

	require.Len(t, results, 1)
	assert.True(t, results[0].Done)
	assert.ErrorIs(t, results[0].Error, embetter.ErrInvalidInput)
}

func TestEmbedStream(t *testing.T) {
	client := newTestClient(t, embetter.WithEpochs(1))
	X, y := toyData()
	ctx := context.Background()

	_, err := client.Fit(ctx, X, y)
	require.NoError(t, err)
	want, err := client.Embed(ctx, X)
	require.NoError(t, err)

	var got [][]float64
	var batches int
	for batch := range client.EmbedStream(ctx, X, 5) {
		require.NoError(t, batch.Error)
		assert.Equal(t, batches, batch.BatchIndex)
		assert.Equal(t, batches*5, batch.Offset)
		assert.Equal(t, batches == 2, batch.IsLastBatch)
		got = append(got, batch.Embeddings...)
		batches++
	}

	assert.Equal(t, 3, batches)
	assert.Equal(t, want, got)
}

func TestEmbedStreamEmptyInput(t *testing.T) {
	client := newTestClient(t)

	var results []*embetter.StreamingEmbedResult
	for batch := range client.EmbedStream(context.Background(), nil, 10) {
		results = append(results, batch)
	}

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Error, embetter.ErrInvalidInput)
}
