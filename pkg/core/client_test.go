package core_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	embetter "github.com/oceanbase/embetter-go/pkg/core"
	embeddermock "github.com/oceanbase/embetter-go/pkg/embedder/mock"
	"github.com/oceanbase/embetter-go/pkg/logging"
	"github.com/oceanbase/embetter-go/pkg/pairs"
	sqliteStore "github.com/oceanbase/embetter-go/pkg/storage/sqlite"
)

func newTestClient(t *testing.T, opts ...embetter.Option) *embetter.Client {
	t.Helper()
	base := []embetter.Option{
		embetter.WithLogger(zerolog.Nop()),
		embetter.WithSeed(7),
		embetter.WithVerbose(0),
		embetter.WithSize(4),
	}
	client, err := embetter.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// toyData returns three well separated clusters of two-dimensional points.
func toyData() ([][]float64, []string) {
	X := [][]float64{
		{1.0, 0.1}, {0.9, 0.0}, {1.1, 0.2}, {1.0, -0.1},
		{0.0, 1.0}, {0.1, 0.9}, {-0.1, 1.1}, {0.2, 1.0},
		{-1.0, -1.0}, {-0.9, -1.1}, {-1.1, -0.9}, {-1.0, -0.8},
	}
	y := []string{
		"east", "east", "east", "east",
		"north", "north", "north", "north",
		"south", "south", "south", "south",
	}
	return X, y
}

func newSQLiteStore(t *testing.T, path string) *sqliteStore.Client {
	t.Helper()
	store, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: path})
	require.NoError(t, err)
	return store
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := embetter.New(embetter.WithLogger(zerolog.Nop()), embetter.WithSize(0))
	assert.ErrorIs(t, err, embetter.ErrInvalidConfig)

	_, err = embetter.NewClient(nil)
	assert.ErrorIs(t, err, embetter.ErrInvalidConfig)
}

func TestTranslate(t *testing.T) {
	client := newTestClient(t, embetter.WithNegSamples(1))

	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	triples, err := client.Translate(X, []string{"a", "b", "a"})
	require.NoError(t, err)

	assert.Equal(t, 6, triples.Len())
	assert.Equal(t, 3, triples.Positives())
	for i := range triples.X1 {
		assert.Len(t, triples.X1[i], 4)
		assert.Len(t, triples.X2[i], 4)
	}
	assert.Equal(t, []string{"a", "b"}, client.Classes())
}

func TestTranslateLegacyNegatives(t *testing.T) {
	client := newTestClient(t, embetter.WithNegSamples(2), embetter.WithNegativeMode(pairs.NegativeLegacy))

	triples, err := client.Translate([][]float64{{1}}, []string{"a"}, embetter.WithClasses([]string{"a", "b", "c"}))
	require.NoError(t, err)
	require.Equal(t, 3, triples.Len())

	assert.Equal(t, []float64{0, 1, 0, 0}, triples.X2[0])
	for i := 1; i < triples.Len(); i++ {
		assert.Equal(t, []float64{0, 0, 0, 1}, triples.X2[i])
		assert.Equal(t, 0.0, triples.Sim[i])
	}
}

func TestTranslateMultiOutput(t *testing.T) {
	client := newTestClient(t, embetter.WithMultiOutput(true), embetter.WithNegSamples(0))

	triples, err := client.TranslateMultiOutput(
		[][]float64{{1, 0}, {0, 1}},
		[][]float64{{1, 1, 0}, {0, 0, 1}},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, triples.Len())
	assert.Equal(t, 3, triples.Positives())
}

func TestTranslateMultiOutputRejectsLabelClient(t *testing.T) {
	client := newTestClient(t)

	_, err := client.TranslateMultiOutput([][]float64{{1, 0}}, [][]float64{{1, 0}})
	assert.ErrorIs(t, err, embetter.ErrInvalidInput)
}

func TestFitReducesLoss(t *testing.T) {
	client := newTestClient(t,
		embetter.WithNegSamples(2),
		embetter.WithEpochs(40),
		embetter.WithBatchSize(8),
		embetter.WithLearningRate(0.01),
	)

	X, y := toyData()
	result, err := client.Fit(context.Background(), X, y)
	require.NoError(t, err)

	assert.Equal(t, 36, result.Triples)
	assert.Equal(t, 12, result.Positives)
	assert.Equal(t, 40, result.Epochs)
	require.Len(t, result.Loss, 40)
	assert.Less(t, result.FinalLoss(), result.Loss[0])
	assert.Equal(t, []string{"east", "north", "south"}, result.Classes)
	assert.True(t, client.Fitted())
}

func TestFitIsReproducibleWithSeed(t *testing.T) {
	X, y := toyData()
	ctx := context.Background()

	embed := func() [][]float64 {
		client := newTestClient(t, embetter.WithEpochs(3))
		_, err := client.Fit(ctx, X, y)
		require.NoError(t, err)
		out, err := client.Embed(ctx, X)
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, embed(), embed())
}

func TestFitContinuesTraining(t *testing.T) {
	client := newTestClient(t, embetter.WithEpochs(2))
	X, y := toyData()
	ctx := context.Background()

	first, err := client.Fit(ctx, X, y)
	require.NoError(t, err)
	second, err := client.Fit(ctx, X, y)
	require.NoError(t, err)

	assert.Equal(t, 2, first.Epochs)
	assert.Equal(t, 2, second.Epochs)
	assert.NotEqual(t, first.Loss, second.Loss)
}

func TestFitValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("length mismatch", func(t *testing.T) {
		client := newTestClient(t)
		_, err := client.Fit(ctx, [][]float64{{1}, {2}}, []string{"a"})
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	})

	t.Run("ragged rows", func(t *testing.T) {
		client := newTestClient(t)
		_, err := client.Fit(ctx, [][]float64{{1, 2}, {3}}, []string{"a", "b"})
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	})

	t.Run("single class leaves no negatives", func(t *testing.T) {
		client := newTestClient(t, embetter.WithNegSamples(1))
		_, err := client.Fit(ctx, [][]float64{{1}, {2}}, []string{"a", "a"})
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
		assert.ErrorIs(t, err, pairs.ErrEmptyNegativePool)
	})

	t.Run("multi-output client rejects string labels", func(t *testing.T) {
		client := newTestClient(t, embetter.WithMultiOutput(true))
		_, err := client.Fit(ctx, [][]float64{{1}}, []string{"a"})
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	})

	t.Run("label client rejects label matrix", func(t *testing.T) {
		client := newTestClient(t)
		_, err := client.FitMultiOutput(ctx, [][]float64{{1}}, [][]float64{{1, 0}})
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	})

	t.Run("width change after fit", func(t *testing.T) {
		client := newTestClient(t, embetter.WithEpochs(1))
		X, y := toyData()
		_, err := client.Fit(ctx, X, y)
		require.NoError(t, err)

		_, err = client.Fit(ctx, [][]float64{{1, 2, 3}, {4, 5, 6}}, []string{"a", "b"})
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	})
}

func TestFitCancelled(t *testing.T) {
	client := newTestClient(t, embetter.WithEpochs(5))
	X, y := toyData()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := client.Fit(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Epochs)
	assert.False(t, client.Fitted())
}

func TestFitMultiOutput(t *testing.T) {
	client := newTestClient(t, embetter.WithMultiOutput(true), embetter.WithNegSamples(1), embetter.WithEpochs(2))

	X := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	Y := [][]float64{{1, 0, 0}, {0, 1, 0}, {1, 0, 1}}
	result, err := client.FitMultiOutput(context.Background(), X, Y)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Triples)
	assert.Equal(t, 4, result.Positives)
	assert.Nil(t, result.Classes)
	assert.Nil(t, client.Classes())

	classes, err := client.EmbedClasses(context.Background())
	require.NoError(t, err)
	assert.Len(t, classes, 3)
}

func TestEmbed(t *testing.T) {
	client := newTestClient(t, embetter.WithEpochs(2))
	X, y := toyData()
	ctx := context.Background()

	_, err := client.Fit(ctx, X, y)
	require.NoError(t, err)

	t.Run("feature rows are padded into anchors", func(t *testing.T) {
		out, err := client.Embed(ctx, X)
		require.NoError(t, err)
		require.Len(t, out, len(X))
		for _, row := range out {
			assert.Len(t, row, 4)
		}
	})

	t.Run("full-width rows pass through", func(t *testing.T) {
		fromFeatures, err := client.Embed(ctx, X[:1])
		require.NoError(t, err)
		full, err := client.Embed(ctx, [][]float64{pairs.Anchor(X[0], 3)})
		require.NoError(t, err)
		assert.InDeltaSlice(t, fromFeatures[0], full[0], 1e-12)
	})

	t.Run("other widths are rejected", func(t *testing.T) {
		_, err := client.Embed(ctx, [][]float64{{1, 2, 3, 4}})
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	})

	t.Run("empty input is rejected", func(t *testing.T) {
		_, err := client.Embed(ctx, nil)
		assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	})
}

func TestEmbedBuildsUnfittedModel(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	out, err := client.Embed(ctx, [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 4)
	assert.False(t, client.Fitted())

	// The model is now fixed at input width 3.
	_, err = client.Fit(ctx, [][]float64{{1, 2, 3}, {4, 5, 6}}, []string{"a", "b"})
	assert.ErrorIs(t, err, embetter.ErrInvalidInput)
}

func TestEmbedClassesAndSimilarity(t *testing.T) {
	client := newTestClient(t, embetter.WithEpochs(2))
	ctx := context.Background()

	_, err := client.EmbedClasses(ctx)
	assert.ErrorIs(t, err, embetter.ErrNotFitted)
	_, err = client.Similarity(ctx, [][]float64{{1}}, [][]float64{{1}})
	assert.ErrorIs(t, err, embetter.ErrNotFitted)

	X, y := toyData()
	_, err = client.Fit(ctx, X, y)
	require.NoError(t, err)

	classes, err := client.EmbedClasses(ctx)
	require.NoError(t, err)
	assert.Len(t, classes, 3)

	anchors := [][]float64{pairs.Anchor(X[0], 3), pairs.Anchor(X[4], 3)}
	candidates := [][]float64{pairs.Candidate(2, 3, 0), pairs.Candidate(2, 3, 1)}
	scores, err := client.Similarity(ctx, anchors, candidates)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	for _, s := range scores {
		assert.Greater(t, s, 0.0)
		assert.Less(t, s, 1.0)
	}

	_, err = client.Similarity(ctx, anchors, candidates[:1])
	assert.ErrorIs(t, err, embetter.ErrInvalidInput)
}

func TestFitSim(t *testing.T) {
	client := newTestClient(t, embetter.WithEpochs(3))
	ctx := context.Background()

	X1 := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	X2 := [][]float64{{1, 0, 0}, {0, 0, 1}, {0, 0, 1}}
	sim := []float64{1, 0, 1}

	result, err := client.FitSim(ctx, X1, X2, sim)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Triples)
	assert.Equal(t, 2, result.Positives)
	assert.Equal(t, 3, result.Epochs)

	result, err = client.PartialFitSim(ctx, X1, X2, sim)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Epochs)

	_, err = client.FitSim(ctx, X1, X2, sim[:2])
	assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	_, err = client.FitSim(ctx, X1, X2, []float64{1, 2, 0})
	assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	_, err = client.FitSim(ctx, X1, [][]float64{{1}, {0}, {1}}, sim)
	assert.ErrorIs(t, err, embetter.ErrInvalidInput)
}

func TestFitText(t *testing.T) {
	provider := &embeddermock.Provider{}
	texts := []string{"warm sunny day", "cold rainy night", "bright morning", "dark evening"}
	provider.On("EmbedBatch", mock.Anything, texts).Return([][]float64{
		{0.9, 0.1}, {0.1, 0.9}, {0.8, 0.2}, {0.2, 0.8},
	}, nil)
	provider.On("EmbedBatch", mock.Anything, []string{"sunny afternoon"}).Return([][]float64{{0.85, 0.15}}, nil)
	provider.On("Close").Return(nil)

	client := newTestClient(t, embetter.WithEmbedder(provider), embetter.WithEpochs(2))
	ctx := context.Background()

	result, err := client.FitText(ctx, texts, []string{"day", "night", "day", "night"})
	require.NoError(t, err)
	assert.Equal(t, []string{"day", "night"}, result.Classes)

	out, err := client.EmbedText(ctx, []string{"sunny afternoon"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Len(t, out[0], 4)

	require.NoError(t, client.Close())
	provider.AssertExpectations(t)
}

func TestTextWithoutEmbedder(t *testing.T) {
	client := newTestClient(t)
	_, err := client.FitText(context.Background(), []string{"a"}, []string{"x"})
	assert.ErrorIs(t, err, embetter.ErrNoEmbedder)
	_, err = client.EmbedText(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, embetter.ErrNoEmbedder)
}

func TestCheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")

	trained := newTestClient(t, embetter.WithCheckpointStore(newSQLiteStore(t, dbPath)), embetter.WithEpochs(3))
	X, y := toyData()
	_, err := trained.Fit(ctx, X, y)
	require.NoError(t, err)

	cp, err := trained.Save(ctx, "regions")
	require.NoError(t, err)
	assert.NotZero(t, cp.ID)
	assert.Equal(t, "regions", cp.Name)
	assert.Equal(t, 4, cp.Size)
	assert.Equal(t, 5, cp.InputDim)
	assert.Equal(t, 2, cp.NumFeatures)
	assert.Equal(t, 3, cp.NumClasses)
	assert.Equal(t, 3, cp.Epochs)
	assert.NotEmpty(t, cp.Hash)

	want, err := trained.Embed(ctx, X)
	require.NoError(t, err)

	restored := newTestClient(t, embetter.WithCheckpointStore(newSQLiteStore(t, dbPath)), embetter.WithSeed(99))
	loaded, err := restored.Load(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, cp.ID, loaded.ID)
	assert.Equal(t, []string{"east", "north", "south"}, restored.Classes())
	assert.True(t, restored.Fitted())

	got, err := restored.Embed(ctx, X)
	require.NoError(t, err)
	for i := range want {
		assert.InDeltaSlice(t, want[i], got[i], 1e-12)
	}

	latest, err := restored.LoadLatest(ctx, "regions")
	require.NoError(t, err)
	assert.Equal(t, cp.ID, latest.ID)
}

func TestCheckpointListAndDelete(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t,
		embetter.WithCheckpointStore(newSQLiteStore(t, filepath.Join(t.TempDir(), "list.db"))),
		embetter.WithEpochs(1),
	)

	X, y := toyData()
	_, err := client.Fit(ctx, X, y)
	require.NoError(t, err)

	first, err := client.Save(ctx, "regions")
	require.NoError(t, err)
	second, err := client.Save(ctx, "regions")
	require.NoError(t, err)
	_, err = client.Save(ctx, "other")
	require.NoError(t, err)

	list, err := client.ListCheckpoints(ctx, "regions", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	all, err := client.ListCheckpoints(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, client.DeleteCheckpoint(ctx, first.ID))
	_, err = client.Load(ctx, first.ID)
	assert.ErrorIs(t, err, embetter.ErrCheckpointNotFound)
	assert.ErrorIs(t, client.DeleteCheckpoint(ctx, first.ID), embetter.ErrCheckpointNotFound)
}

func TestCheckpointMismatch(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mismatch.db")

	small := newTestClient(t, embetter.WithCheckpointStore(newSQLiteStore(t, dbPath)), embetter.WithEpochs(1))
	X, y := toyData()
	_, err := small.Fit(ctx, X, y)
	require.NoError(t, err)
	cp, err := small.Save(ctx, "small")
	require.NoError(t, err)

	wide := newTestClient(t, embetter.WithCheckpointStore(newSQLiteStore(t, dbPath)), embetter.WithSize(8))
	_, err = wide.Load(ctx, cp.ID)
	assert.ErrorIs(t, err, embetter.ErrCheckpointMismatch)
	assert.False(t, wide.Fitted())

	multi := newTestClient(t, embetter.WithCheckpointStore(newSQLiteStore(t, dbPath)), embetter.WithMultiOutput(true))
	_, err = multi.Load(ctx, cp.ID)
	assert.ErrorIs(t, err, embetter.ErrCheckpointMismatch)
}

func TestCheckpointErrors(t *testing.T) {
	ctx := context.Background()

	noStore := newTestClient(t)
	_, err := noStore.Save(ctx, "x")
	assert.ErrorIs(t, err, embetter.ErrNoCheckpointStore)
	_, err = noStore.Load(ctx, 1)
	assert.ErrorIs(t, err, embetter.ErrNoCheckpointStore)
	_, err = noStore.ListCheckpoints(ctx, "", 0)
	assert.ErrorIs(t, err, embetter.ErrNoCheckpointStore)

	withStore := newTestClient(t, embetter.WithCheckpointStore(newSQLiteStore(t, filepath.Join(t.TempDir(), "err.db"))))
	_, err = withStore.Save(ctx, "unfitted")
	assert.ErrorIs(t, err, embetter.ErrNotFitted)
	_, err = withStore.Save(ctx, "")
	assert.ErrorIs(t, err, embetter.ErrInvalidInput)
	_, err = withStore.LoadLatest(ctx, "missing")
	assert.ErrorIs(t, err, embetter.ErrCheckpointNotFound)
}

func TestNewClientFromConfigOpensStore(t *testing.T) {
	cfg := embetter.DefaultConfig()
	cfg.Model.Verbose = 0
	cfg.Model.Seed = 3
	cfg.Model.Epochs = 1
	cfg.Logging = &logging.Config{Level: "error"}
	cfg.CheckpointStore = &embetter.CheckpointStoreConfig{
		Provider: "sqlite",
		Config: map[string]interface{}{
			"db_path":    filepath.Join(t.TempDir(), "cfg.db"),
			"table_name": "custom_checkpoints",
		},
	}

	client, err := embetter.NewClient(cfg)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	X, y := toyData()
	_, err = client.Fit(context.Background(), X, y)
	require.NoError(t, err)
	_, err = client.Save(context.Background(), "from-config")
	require.NoError(t, err)
}

func TestNewClientFromConfigUsesQwenEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input struct {
				Texts []string `json:"texts"`
			} `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		embeddings := make([]map[string]interface{}, len(req.Input.Texts))
		for i, text := range req.Input.Texts {
			embeddings[i] = map[string]interface{}{
				"text_index": i,
				"embedding":  []float64{float64(len(text)), 1},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"output": map[string]interface{}{"embeddings": embeddings},
		})
	}))
	defer srv.Close()

	cfg := embetter.DefaultConfig()
	cfg.Model.Verbose = 0
	cfg.Model.Size = 4
	cfg.Model.Epochs = 1
	cfg.Logging = &logging.Config{Level: "error"}
	cfg.Embedder = &embetter.EmbedderConfig{
		Provider:   "qwen",
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Dimensions: 2,
		BatchSize:  2,
	}

	client, err := embetter.NewClient(cfg)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	result, err := client.FitText(context.Background(),
		[]string{"ok", "terrible", "fine", "awful"},
		[]string{"pos", "neg", "pos", "neg"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"neg", "pos"}, result.Classes)
}

func TestCloseReleasesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embetter.log")
	cfg := embetter.DefaultConfig()
	cfg.Model.Verbose = 0
	cfg.Logging = &logging.Config{Level: "info", OutputFile: path}

	client, err := embetter.NewClient(cfg)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	// the log file is already closed, so a second close reports it
	assert.Error(t, client.Close())
}
