package core

import (
	"github.com/rs/zerolog"

	"github.com/oceanbase/embetter-go/pkg/embedder"
	"github.com/oceanbase/embetter-go/pkg/pairs"
	"github.com/oceanbase/embetter-go/pkg/storage"
)

// Option is a function type for configuring a client built with New.
type Option func(*clientOptions)

// clientOptions collects New options: config overrides plus injected
// dependencies that take precedence over the config sections.
type clientOptions struct {
	config   *Config
	logger   *zerolog.Logger
	store    storage.CheckpointStore
	embedder embedder.Provider
}

// WithSize sets the embedding width.
func WithSize(size int) Option {
	return func(o *clientOptions) {
		o.config.Model.Size = size
	}
}

// WithNegSamples sets the number of negative pairs per sample.
func WithNegSamples(n int) Option {
	return func(o *clientOptions) {
		o.config.Model.NegSamples = n
	}
}

// WithEpochs sets the number of epochs per fit call.
func WithEpochs(epochs int) Option {
	return func(o *clientOptions) {
		o.config.Model.Epochs = epochs
	}
}

// WithBatchSize sets the mini-batch size.
func WithBatchSize(size int) Option {
	return func(o *clientOptions) {
		o.config.Model.BatchSize = size
	}
}

// WithVerbose sets the training log level (0, 1 or 2).
func WithVerbose(level int) Option {
	return func(o *clientOptions) {
		o.config.Model.Verbose = level
	}
}

// WithMultiOutput switches the client to multi-hot label matrices.
//
// Example:
//
//	client, _ := core.New(core.WithMultiOutput(true))
//	result, _ := client.FitMultiOutput(ctx, X, Y)
func WithMultiOutput(multi bool) Option {
	return func(o *clientOptions) {
		o.config.Model.MultiOutput = multi
	}
}

// WithSeed makes pair sampling and training reproducible.
func WithSeed(seed int64) Option {
	return func(o *clientOptions) {
		o.config.Model.Seed = seed
	}
}

// WithLearningRate sets the Adam learning rate.
func WithLearningRate(lr float64) Option {
	return func(o *clientOptions) {
		o.config.Model.LearningRate = lr
	}
}

// WithNegativeMode selects how negative candidates are encoded.
func WithNegativeMode(mode pairs.NegativeMode) Option {
	return func(o *clientOptions) {
		o.config.Model.NegativeSampling = mode
	}
}

// WithLogger sets the client logger, overriding the logging config.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = &logger
	}
}

// WithCheckpointStore sets the checkpoint store, overriding the store config.
// The client closes it on Close.
func WithCheckpointStore(store storage.CheckpointStore) Option {
	return func(o *clientOptions) {
		o.store = store
	}
}

// WithEmbedder sets the text embedding provider, overriding the embedder config.
// The client closes it on Close.
func WithEmbedder(p embedder.Provider) Option {
	return func(o *clientOptions) {
		o.embedder = p
	}
}

// FitOption is a function type for configuring Fit and Translate calls.
type FitOption func(*FitOptions)

// FitOptions contains per-call options for label-driven training.
type FitOptions struct {
	// Classes fixes the label vocabulary instead of deriving it from y.
	Classes []string
}

// WithClasses fixes the label vocabulary for one call. Labels outside it
// get no positive pair.
//
// Example:
//
//	_, _ = client.Fit(ctx, X, y, core.WithClasses([]string{"neg", "neu", "pos"}))
func WithClasses(classes []string) FitOption {
	return func(opts *FitOptions) {
		opts.Classes = classes
	}
}

func applyFitOptions(opts []FitOption) *FitOptions {
	fitOpts := &FitOptions{}
	for _, opt := range opts {
		opt(fitOpts)
	}
	return fitOpts
}
