package core

import (
	"context"
	"fmt"

	"github.com/oceanbase/embetter-go/pkg/labels"
	"github.com/oceanbase/embetter-go/pkg/nn"
	"github.com/oceanbase/embetter-go/pkg/storage"
)

// Save stores the current model, vocabulary and loss history as a new
// checkpoint under name.
//
// Example:
//
//	cp, err := client.Save(ctx, "sentiment")
//	fmt.Println(cp.ID, cp.Epochs)
func (c *Client) Save(ctx context.Context, name string) (*Checkpoint, error) {
	if c.store == nil {
		return nil, NewEmbetterError("Save", ErrNoCheckpointStore)
	}
	if name == "" {
		return nil, NewEmbetterError("Save", fmt.Errorf("%w: checkpoint name is required", ErrInvalidInput))
	}

	c.mu.RLock()
	cp, err := c.snapshot(name)
	c.mu.RUnlock()
	if err != nil {
		return nil, NewEmbetterError("Save", err)
	}

	if err := c.store.Save(ctx, cp); err != nil {
		return nil, NewEmbetterError("Save", err)
	}

	c.storeLogger.Info().
		Int64("checkpoint_id", cp.ID).
		Str("name", name).
		Int("epochs", cp.Epochs).
		Msg("checkpoint saved")

	return toCheckpoint(cp), nil
}

// Load restores the model and vocabulary from the checkpoint with the given ID.
//
// The checkpoint must match the client's Size and multi-output mode;
// otherwise ErrCheckpointMismatch is returned and the client is unchanged.
func (c *Client) Load(ctx context.Context, id int64) (*Checkpoint, error) {
	if c.store == nil {
		return nil, NewEmbetterError("Load", ErrNoCheckpointStore)
	}

	cp, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, NewEmbetterError("Load", err)
	}
	if err := c.restore(cp); err != nil {
		return nil, NewEmbetterError("Load", err)
	}
	return toCheckpoint(cp), nil
}

// LoadLatest restores the newest checkpoint saved under name.
func (c *Client) LoadLatest(ctx context.Context, name string) (*Checkpoint, error) {
	if c.store == nil {
		return nil, NewEmbetterError("LoadLatest", ErrNoCheckpointStore)
	}

	cp, err := c.store.Latest(ctx, name)
	if err != nil {
		return nil, NewEmbetterError("LoadLatest", err)
	}
	if err := c.restore(cp); err != nil {
		return nil, NewEmbetterError("LoadLatest", err)
	}
	return toCheckpoint(cp), nil
}

// ListCheckpoints returns checkpoint summaries, newest first. An empty name
// lists every estimator; limit <= 0 means no limit.
func (c *Client) ListCheckpoints(ctx context.Context, name string, limit int) ([]*Checkpoint, error) {
	if c.store == nil {
		return nil, NewEmbetterError("ListCheckpoints", ErrNoCheckpointStore)
	}

	stored, err := c.store.List(ctx, &storage.ListOptions{Name: name, Limit: limit})
	if err != nil {
		return nil, NewEmbetterError("ListCheckpoints", err)
	}

	result := make([]*Checkpoint, len(stored))
	for i, cp := range stored {
		result[i] = toCheckpoint(cp)
	}
	return result, nil
}

// DeleteCheckpoint removes a checkpoint by ID.
func (c *Client) DeleteCheckpoint(ctx context.Context, id int64) error {
	if c.store == nil {
		return NewEmbetterError("DeleteCheckpoint", ErrNoCheckpointStore)
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return NewEmbetterError("DeleteCheckpoint", err)
	}

	c.storeLogger.Info().Int64("checkpoint_id", id).Msg("checkpoint deleted")
	return nil
}

// snapshot builds a storage record of the current state. Requires at least
// a read lock.
func (c *Client) snapshot(name string) (*storage.Checkpoint, error) {
	if !c.model.Built() {
		return nil, ErrNotFitted
	}
	st, err := c.model.State()
	if err != nil {
		return nil, err
	}
	data, err := nn.MarshalState(st)
	if err != nil {
		return nil, err
	}

	m := c.config.Model
	return &storage.Checkpoint{
		ID:       c.snowflakeNode.Generate().Int64(),
		Name:     name,
		Size:     st.Size,
		InputDim: st.InputDim,
		Classes:  c.classesLocked(),
		Epochs:   c.epochs,
		Loss:     append([]float64(nil), c.loss...),
		State:    data,
		Metadata: map[string]interface{}{
			metaNumFeatures:      c.numFeatures,
			metaNumClasses:       c.numClasses,
			metaMultiOutput:      m.MultiOutput,
			metaNegSamples:       m.NegSamples,
			metaNegativeSampling: string(m.NegativeSampling),
			metaBatchSize:        m.BatchSize,
			metaLearningRate:     m.LearningRate,
		},
	}, nil
}

// restore replaces the client state with a loaded checkpoint.
func (c *Client) restore(cp *storage.Checkpoint) error {
	if cp.Size != c.config.Model.Size {
		return fmt.Errorf("%w: checkpoint size %d, client size %d", ErrCheckpointMismatch, cp.Size, c.config.Model.Size)
	}
	if metaBool(cp.Metadata, metaMultiOutput) != c.config.Model.MultiOutput {
		return fmt.Errorf("%w: multi-output mode differs", ErrCheckpointMismatch)
	}

	st, err := nn.UnmarshalState(cp.State)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointMismatch, err)
	}
	if st.Size != cp.Size || st.InputDim != cp.InputDim {
		return fmt.Errorf("%w: state shape %dx%d, record %dx%d",
			ErrCheckpointMismatch, st.InputDim, st.Size, cp.InputDim, cp.Size)
	}

	var b *labels.Binarizer
	if len(cp.Classes) > 0 {
		b = labels.NewBinarizer()
		if err := b.FitClasses(cp.Classes); err != nil {
			return fmt.Errorf("%w: %v", ErrCheckpointMismatch, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	model, err := nn.FromState(st, c.rng)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointMismatch, err)
	}

	c.model = model
	c.binarizer = b
	c.numFeatures = metaInt(cp.Metadata, metaNumFeatures)
	c.numClasses = metaInt(cp.Metadata, metaNumClasses)
	c.epochs = cp.Epochs
	c.loss = append([]float64(nil), cp.Loss...)

	c.storeLogger.Info().
		Int64("checkpoint_id", cp.ID).
		Str("name", cp.Name).
		Int("epochs", cp.Epochs).
		Msg("checkpoint loaded")
	return nil
}
