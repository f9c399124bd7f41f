package core

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/oceanbase/embetter-go/pkg/embedder"
	openaiEmbedder "github.com/oceanbase/embetter-go/pkg/embedder/openai"
	qwenEmbedder "github.com/oceanbase/embetter-go/pkg/embedder/qwen"
	"github.com/oceanbase/embetter-go/pkg/labels"
	"github.com/oceanbase/embetter-go/pkg/logging"
	"github.com/oceanbase/embetter-go/pkg/nn"
	"github.com/oceanbase/embetter-go/pkg/pairs"
	"github.com/oceanbase/embetter-go/pkg/storage"
	"github.com/oceanbase/embetter-go/pkg/storage/oceanbase"
	postgresStore "github.com/oceanbase/embetter-go/pkg/storage/postgres"
	sqliteStore "github.com/oceanbase/embetter-go/pkg/storage/sqlite"
)

// Client is the embetter estimator.
//
// It learns dense embeddings by training a two-tower similarity network on
// pairs synthesized from labeled data:
//   - every sample's features form an anchor
//   - every true label forms a positive candidate
//   - NegSamples absent labels per sample form negative candidates
//
// Successive fit calls continue training the same weights. The client is
// thread-safe: training calls are serialized, while Embed and Similarity
// may run concurrently.
//
// Example usage:
//
//	client, _ := core.New(core.WithSize(16), core.WithEpochs(20))
//	defer client.Close()
//
//	_, err := client.Fit(ctx, X, []string{"cat", "dog", "cat"})
//	vectors, err := client.Embed(ctx, X)
type Client struct {
	// config contains the client configuration.
	config *Config

	// model is the similarity network, built on first use.
	model *nn.Model

	// binarizer holds the label vocabulary (nil until a label fit or in multi-output mode).
	binarizer *labels.Binarizer

	// numFeatures and numClasses are d and c of the last label-driven fit.
	numFeatures int
	numClasses  int

	// epochs and loss accumulate over all fit calls.
	epochs int
	loss   []float64

	// rng drives pair sampling, initialization and shuffling.
	rng *rand.Rand

	// store persists checkpoints (nil if not configured).
	store storage.CheckpointStore

	// embedder featurizes text (nil if not configured).
	embedder embedder.Provider

	logger      zerolog.Logger
	storeLogger zerolog.Logger

	// logCloser releases the log file opened from the logging config (nil with WithLogger).
	logCloser io.Closer

	// snowflakeNode generates unique checkpoint IDs.
	snowflakeNode *snowflake.Node

	// mu protects concurrent access to the client.
	mu sync.RWMutex
}

// NewClient creates a new embetter client from a configuration.
//
// The checkpoint store and embedder are created from their config sections
// when present.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, err := core.NewClient(config)
func NewClient(cfg *Config) (*Client, error) {
	return newClient(cfg, &clientOptions{})
}

// New creates a client from DefaultConfig modified by options.
//
// Example:
//
//	client, err := core.New(
//	    core.WithNegSamples(3),
//	    core.WithSeed(42),
//	    core.WithCheckpointStore(store),
//	)
func New(opts ...Option) (*Client, error) {
	o := &clientOptions{config: DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	return newClient(o.config, o)
}

func newClient(cfg *Config, o *clientOptions) (*Client, error) {
	if cfg == nil {
		return nil, NewEmbetterError("NewClient", fmt.Errorf("%w: nil config", ErrInvalidConfig))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logger zerolog.Logger
	var logCloser io.Closer
	if o.logger != nil {
		logger = *o.logger
	} else {
		l, closer, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, NewEmbetterError("NewClient", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
		}
		logger, logCloser = l, closer
	}
	fail := func(err error) (*Client, error) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, NewEmbetterError("NewClient", err)
	}
	logger = logging.Component(logger, "embetter")

	seed := cfg.Model.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec

	model, err := nn.NewModel(nn.Config{
		Size:         cfg.Model.Size,
		LearningRate: cfg.Model.LearningRate,
		Rand:         rng,
	})
	if err != nil {
		return fail(err)
	}

	// Initialize checkpoint store
	store := o.store
	backend := "custom"
	if store == nil && cfg.CheckpointStore != nil {
		backend = cfg.CheckpointStore.Provider
		store, err = initCheckpointStore(*cfg.CheckpointStore)
		if err != nil {
			return fail(err)
		}
	}

	// Initialize embedder
	provider := o.embedder
	if provider == nil && cfg.Embedder != nil {
		provider, err = initEmbedder(*cfg.Embedder)
		if err != nil {
			if store != nil {
				_ = store.Close()
			}
			return fail(err)
		}
	}

	// Initialize Snowflake ID generator
	node, err := snowflake.NewNode(1)
	if err != nil {
		return fail(err)
	}

	if cfg.Model.NegativeSampling == pairs.NegativeLegacy {
		logger.Warn().Msg("legacy negative sampling: every negative pair encodes the last class")
	}

	return &Client{
		config:        cfg,
		model:         model,
		rng:           rng,
		store:         store,
		embedder:      provider,
		logger:        logger,
		logCloser:     logCloser,
		storeLogger:   logging.Storage(logger, backend),
		snowflakeNode: node,
	}, nil
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return *c.config
}

// Classes returns the label vocabulary in column order, or nil if the
// client has not been fitted on string labels.
func (c *Client) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.classesLocked()
}

func (c *Client) classesLocked() []string {
	if c.binarizer == nil || !c.binarizer.Fitted() {
		return nil
	}
	return c.binarizer.Classes()
}

// Fitted reports whether the model has been trained at least one epoch.
func (c *Client) Fitted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epochs > 0
}

// Translate binarizes y and generates training pairs for X without training.
//
// The label vocabulary is refit from y (or from WithClasses), as a fit would.
//
// Example:
//
//	triples, err := client.Translate(X, y)
//	fmt.Println(triples.Len(), triples.Positives())
func (c *Client) Translate(X [][]float64, y []string, opts ...FitOption) (*pairs.Triples, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.Model.MultiOutput {
		return nil, NewEmbetterError("Translate", fmt.Errorf("%w: client is in multi-output mode, use TranslateMultiOutput", ErrInvalidInput))
	}
	b, Y, err := c.binarize("Translate", X, y, applyFitOptions(opts))
	if err != nil {
		return nil, err
	}
	triples, err := c.generate(X, Y)
	if err != nil {
		return nil, NewEmbetterError("Translate", err)
	}
	c.binarizer = b
	return triples, nil
}

// TranslateMultiOutput generates training pairs from a multi-hot label matrix.
func (c *Client) TranslateMultiOutput(X, Y [][]float64) (*pairs.Triples, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.config.Model.MultiOutput {
		return nil, NewEmbetterError("TranslateMultiOutput", fmt.Errorf("%w: client is in label mode, use Translate", ErrInvalidInput))
	}
	triples, err := c.generate(X, Y)
	if err != nil {
		return nil, NewEmbetterError("TranslateMultiOutput", err)
	}
	return triples, nil
}

// Fit binarizes string labels, generates pairs and trains for the configured
// number of epochs.
//
// Parameters:
//   - ctx: Context for cancellation, checked before every mini-batch
//   - X: Feature rows of equal width
//   - y: One label per row
//   - opts: Optional WithClasses vocabulary
//
// Returns ErrInvalidInput in multi-output mode; use FitMultiOutput there.
func (c *Client) Fit(ctx context.Context, X [][]float64, y []string, opts ...FitOption) (*FitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fitLabels(ctx, "Fit", X, y, applyFitOptions(opts), nil)
}

// FitMultiOutput trains on a multi-hot label matrix Y (one column per class).
//
// Returns ErrInvalidInput unless the client is in multi-output mode.
func (c *Client) FitMultiOutput(ctx context.Context, X, Y [][]float64) (*FitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fitMatrix(ctx, "FitMultiOutput", X, Y, nil)
}

// FitSim trains directly on supplied pairs (x1[i], x2[i]) with similarity
// targets sim[i], bypassing pair generation.
func (c *Client) FitSim(ctx context.Context, X1, X2 [][]float64, sim []float64) (*FitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fitPairs(ctx, "FitSim", X1, X2, sim)
}

// PartialFitSim trains on supplied pairs, continuing from the current
// weights. It behaves exactly like FitSim, which never resets the model.
func (c *Client) PartialFitSim(ctx context.Context, X1, X2 [][]float64, sim []float64) (*FitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fitPairs(ctx, "PartialFitSim", X1, X2, sim)
}

// Embed runs rows through the shared tower and returns one vector of width
// Size per row.
//
// Rows may be full model inputs (features followed by class columns) or,
// after a label-driven fit, plain feature rows, which are zero-padded into
// anchors. An unbuilt model is built for the width of X.
func (c *Client) Embed(ctx context.Context, X [][]float64) ([][]float64, error) {
	if err := validateRows(X); err != nil {
		return nil, NewEmbetterError("Embed", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewEmbetterError("Embed", err)
	}

	if err := c.ensureBuilt(len(X[0])); err != nil {
		return nil, NewEmbetterError("Embed", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := X
	if len(X[0]) != c.model.InputDim() && c.numFeatures > 0 && len(X[0]) == c.numFeatures {
		rows = make([][]float64, len(X))
		for i, x := range X {
			rows[i] = pairs.Anchor(x, c.numClasses)
		}
	}
	return c.embedRows("Embed", rows)
}

// EmbedClasses returns the embedding of every class candidate, in Classes
// order (column order in multi-output mode).
func (c *Client) EmbedClasses(ctx context.Context) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewEmbetterError("EmbedClasses", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.numClasses == 0 || !c.model.Built() {
		return nil, NewEmbetterError("EmbedClasses", ErrNotFitted)
	}
	rows := make([][]float64, c.numClasses)
	for j := range rows {
		rows[j] = pairs.Candidate(c.numFeatures, c.numClasses, j)
	}
	return c.embedRows("EmbedClasses", rows)
}

// Similarity returns the model's similarity score in (0, 1) for every pair
// (X1[i], X2[i]) of full-width inputs.
func (c *Client) Similarity(ctx context.Context, X1, X2 [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewEmbetterError("Similarity", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.model.Built() {
		return nil, NewEmbetterError("Similarity", ErrNotFitted)
	}
	m1, m2, err := pairMatrices(X1, X2, nil)
	if err != nil {
		return nil, NewEmbetterError("Similarity", err)
	}
	if _, cols := m1.Dims(); cols != c.model.InputDim() {
		return nil, NewEmbetterError("Similarity", fmt.Errorf("%w: model input width %d, got %d", ErrInvalidInput, c.model.InputDim(), cols))
	}
	scores, err := c.model.Predict(m1, m2)
	if err != nil {
		return nil, NewEmbetterError("Similarity", err)
	}
	return scores, nil
}

// FitText featurizes texts with the configured embedder and fits on the
// resulting vectors.
//
// Example:
//
//	_, err := client.FitText(ctx, []string{"great film", "dull plot"}, []string{"pos", "neg"})
func (c *Client) FitText(ctx context.Context, texts []string, y []string, opts ...FitOption) (*FitResult, error) {
	X, err := c.featurize(ctx, "FitText", texts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fitLabels(ctx, "FitText", X, y, applyFitOptions(opts), nil)
}

// EmbedText featurizes texts with the configured embedder and embeds them.
func (c *Client) EmbedText(ctx context.Context, texts []string) ([][]float64, error) {
	X, err := c.featurize(ctx, "EmbedText", texts)
	if err != nil {
		return nil, err
	}
	return c.Embed(ctx, X)
}

// Close closes the checkpoint store, the embedder and the log file.
//
// Example:
//
//	defer client.Close()
func (c *Client) Close() error {
	var errs []error

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.embedder != nil {
		if err := c.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.logCloser != nil {
		if err := c.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0] // Return the first error
	}

	return nil
}

// fitLabels is Fit with the write lock held. onEpoch, if set, observes
// every completed epoch.
func (c *Client) fitLabels(ctx context.Context, op string, X [][]float64, y []string, fitOpts *FitOptions, onEpoch func(nn.EpochStats)) (*FitResult, error) {
	if c.config.Model.MultiOutput {
		return nil, NewEmbetterError(op, fmt.Errorf("%w: client is in multi-output mode, use FitMultiOutput", ErrInvalidInput))
	}

	b, Y, err := c.binarize(op, X, y, fitOpts)
	if err != nil {
		return nil, err
	}

	result, err := c.fitGenerated(ctx, op, X, Y, onEpoch)
	if result != nil {
		result.Classes = b.Classes()
	}
	if err != nil {
		return result, err
	}

	c.binarizer = b
	return result, nil
}

// fitMatrix is FitMultiOutput with the write lock held.
func (c *Client) fitMatrix(ctx context.Context, op string, X, Y [][]float64, onEpoch func(nn.EpochStats)) (*FitResult, error) {
	if !c.config.Model.MultiOutput {
		return nil, NewEmbetterError(op, fmt.Errorf("%w: client is not in multi-output mode, use Fit", ErrInvalidInput))
	}

	result, err := c.fitGenerated(ctx, op, X, Y, onEpoch)
	if err != nil {
		return result, err
	}
	c.binarizer = nil
	return result, nil
}

// fitGenerated generates pairs from X and multi-hot Y and trains on them.
func (c *Client) fitGenerated(ctx context.Context, op string, X, Y [][]float64, onEpoch func(nn.EpochStats)) (*FitResult, error) {
	triples, err := c.generate(X, Y)
	if err != nil {
		return nil, NewEmbetterError(op, err)
	}

	d, k := len(X[0]), len(Y[0])
	if c.model.Built() && c.model.InputDim() != d+k {
		return nil, NewEmbetterError(op, fmt.Errorf("%w: model input width %d, got %d features + %d classes",
			ErrInvalidInput, c.model.InputDim(), d, k))
	}

	c.logger.Debug().
		Int("samples", len(X)).
		Int("features", d).
		Int("classes", k).
		Int("triples", triples.Len()).
		Int("positives", triples.Positives()).
		Msg("generated training pairs")

	result, err := c.train(ctx, op, triples.X1, triples.X2, triples.Sim, onEpoch)
	if result != nil {
		result.Positives = triples.Positives()
	}
	if err != nil {
		return result, err
	}

	c.numFeatures, c.numClasses = d, k
	return result, nil
}

// fitPairs is FitSim with the write lock held.
func (c *Client) fitPairs(ctx context.Context, op string, X1, X2 [][]float64, sim []float64) (*FitResult, error) {
	if len(sim) != len(X1) {
		return nil, NewEmbetterError(op, fmt.Errorf("%w: %d pairs, %d targets", ErrInvalidInput, len(X1), len(sim)))
	}
	for i, s := range sim {
		if s < 0 || s > 1 {
			return nil, NewEmbetterError(op, fmt.Errorf("%w: target %d is %g, want [0, 1]", ErrInvalidInput, i, s))
		}
	}

	result, err := c.train(ctx, op, X1, X2, sim, nil)
	if result != nil {
		for _, s := range sim {
			if s == 1 {
				result.Positives++
			}
		}
	}
	return result, err
}

// train runs the configured epochs on the given pairs. The returned result
// covers the epochs that completed even when err is non-nil.
func (c *Client) train(ctx context.Context, op string, X1, X2 [][]float64, sim []float64, onEpoch func(nn.EpochStats)) (*FitResult, error) {
	m1, m2, err := pairMatrices(X1, X2, sim)
	if err != nil {
		return nil, NewEmbetterError(op, err)
	}

	verbose := c.config.Model.Verbose
	cfg := nn.TrainConfig{
		Epochs:    c.config.Model.Epochs,
		BatchSize: c.config.Model.BatchSize,
		OnEpoch: func(s nn.EpochStats) {
			if verbose >= 1 {
				c.logger.Info().
					Str("op", op).
					Int("epoch", s.Epoch).
					Int("epochs", s.Epochs).
					Float64("loss", s.Loss).
					Dur("duration", s.Duration).
					Msg("epoch complete")
			}
			if onEpoch != nil {
				onEpoch(s)
			}
		},
	}
	if verbose >= 2 {
		cfg.OnBatch = func(s nn.BatchStats) {
			c.logger.Debug().
				Str("op", op).
				Int("epoch", s.Epoch).
				Int("batch", s.Batch).
				Int("batches", s.Batches).
				Float64("loss", s.Loss).
				Msg("batch complete")
		}
	}

	hist, err := c.model.Fit(ctx, m1, m2, sim, cfg)
	result := &FitResult{Triples: len(sim)}
	if hist != nil {
		result.Epochs = len(hist.Loss)
		result.Loss = hist.Loss
		c.epochs += len(hist.Loss)
		c.loss = append(c.loss, hist.Loss...)
	}
	if err != nil {
		return result, NewEmbetterError(op, err)
	}
	return result, nil
}

// binarize fits a fresh binarizer for y without committing it to the client.
func (c *Client) binarize(op string, X [][]float64, y []string, fitOpts *FitOptions) (*labels.Binarizer, [][]float64, error) {
	if len(X) != len(y) {
		return nil, nil, NewEmbetterError(op, fmt.Errorf("%w: %d samples, %d labels", ErrInvalidInput, len(X), len(y)))
	}

	b := labels.NewBinarizer()
	var err error
	if len(fitOpts.Classes) > 0 {
		err = b.FitClasses(fitOpts.Classes)
	} else {
		err = b.Fit(y)
	}
	if err != nil {
		return nil, nil, NewEmbetterError(op, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}

	Y, err := b.Transform(y)
	if err != nil {
		return nil, nil, NewEmbetterError(op, err)
	}
	return b, Y, nil
}

// generate runs the pair generator with the client's settings.
func (c *Client) generate(X, Y [][]float64) (*pairs.Triples, error) {
	triples, err := pairs.Generate(X, Y, &pairs.Options{
		NegSamples: c.config.Model.NegSamples,
		Negatives:  c.config.Model.NegativeSampling,
		Rand:       c.rng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return triples, nil
}

// ensureBuilt builds the model for width if nothing has built it yet.
func (c *Client) ensureBuilt(width int) error {
	c.mu.RLock()
	built := c.model.Built()
	c.mu.RUnlock()
	if built {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model.Built() {
		return nil
	}
	c.logger.Debug().Int("input_dim", width).Msg("building unfitted model")
	return c.model.Build(width)
}

// embedRows embeds full-width rows with a read lock held.
func (c *Client) embedRows(op string, rows [][]float64) ([][]float64, error) {
	m, err := nn.FromRows(rows)
	if err != nil {
		return nil, NewEmbetterError(op, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	e, err := c.model.Embed(m)
	if err != nil {
		return nil, NewEmbetterError(op, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	return nn.ToRows(e), nil
}

func (c *Client) featurize(ctx context.Context, op string, texts []string) ([][]float64, error) {
	if c.embedder == nil {
		return nil, NewEmbetterError(op, ErrNoEmbedder)
	}
	if len(texts) == 0 {
		return nil, NewEmbetterError(op, fmt.Errorf("%w: no texts", ErrInvalidInput))
	}
	batch := 0
	if c.config.Embedder != nil {
		batch = c.config.Embedder.BatchSize
	}
	X, err := embedder.EmbedAll(ctx, c.embedder, texts, batch)
	if err != nil {
		return nil, NewEmbetterError(op, err)
	}
	return X, nil
}

// pairMatrices validates and converts pair inputs. sim is skipped when nil.
func pairMatrices(X1, X2 [][]float64, sim []float64) (m1, m2 *mat.Dense, err error) {
	if len(X1) != len(X2) {
		return nil, nil, fmt.Errorf("%w: %d anchors, %d candidates", ErrInvalidInput, len(X1), len(X2))
	}
	if m1, err = nn.FromRows(X1); err != nil {
		return nil, nil, fmt.Errorf("%w: anchors: %v", ErrInvalidInput, err)
	}
	if m2, err = nn.FromRows(X2); err != nil {
		return nil, nil, fmt.Errorf("%w: candidates: %v", ErrInvalidInput, err)
	}
	if _, c1 := m1.Dims(); c1 != len(X2[0]) {
		return nil, nil, fmt.Errorf("%w: anchor width %d, candidate width %d", ErrInvalidInput, c1, len(X2[0]))
	}
	if sim != nil && len(sim) != len(X1) {
		return nil, nil, fmt.Errorf("%w: %d pairs, %d targets", ErrInvalidInput, len(X1), len(sim))
	}
	return m1, m2, nil
}

func validateRows(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidInput)
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("%w: zero-width rows", ErrInvalidInput)
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has width %d, want %d", ErrInvalidInput, i, len(row), width)
		}
	}
	return nil
}

// initCheckpointStore initializes the checkpoint store backend.
func initCheckpointStore(cfg CheckpointStoreConfig) (storage.CheckpointStore, error) {
	p := providerConfig(cfg.Config)
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:    p.str("db_path", "./embetter.db"),
			TableName: p.str("table_name", ""),
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:      p.str("host", "localhost"),
			Port:      p.integer("port", 5432),
			User:      p.str("user", "postgres"),
			Password:  p.str("password", ""),
			DBName:    p.str("db_name", "embetter"),
			TableName: p.str("table_name", ""),
			SSLMode:   p.str("ssl_mode", "disable"),
		})
	case "oceanbase":
		return oceanbase.NewClient(&oceanbase.Config{
			Host:      p.str("host", "127.0.0.1"),
			Port:      p.integer("port", 2881),
			User:      p.str("user", "root@sys"),
			Password:  p.str("password", ""),
			DBName:    p.str("db_name", "embetter"),
			TableName: p.str("table_name", ""),
		})
	default:
		return nil, fmt.Errorf("%w: unknown checkpoint store provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// initEmbedder initializes the embedder provider.
func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "qwen":
		return qwenEmbedder.NewClient(&qwenEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedder provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
