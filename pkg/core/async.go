package core

import (
	"context"
	"sync"
)

// AsyncClient provides asynchronous embetter operations.
//
// It wraps the synchronous Client and runs every call in its own goroutine.
// Training calls still serialize on the client lock; embedding calls run
// concurrently. Wait blocks until every started operation has finished.
//
// Example:
//
//	asyncClient, _ := core.NewAsyncClient(config)
//	defer asyncClient.Close()
//
//	fitChan := asyncClient.FitAsync(ctx, X, y)
//	result := <-fitChan
//	if result.Error != nil {
//	    log.Fatal(result.Error)
//	}
type AsyncClient struct {
	*Client
	wg sync.WaitGroup
}

// FitAsyncResult is the outcome of an asynchronous fit.
type FitAsyncResult struct {
	Result *FitResult
	Error  error
}

// EmbedAsyncResult is the outcome of an asynchronous embed.
type EmbedAsyncResult struct {
	Embeddings [][]float64
	Error      error
}

// CheckpointResult is the outcome of an asynchronous save or load.
type CheckpointResult struct {
	Checkpoint *Checkpoint
	Error      error
}

// NewAsyncClient creates a new asynchronous embetter client.
//
// Parameters:
//   - cfg: embetter configuration
//
// Returns:
//   - *AsyncClient: The asynchronous client instance
//   - error: Error if configuration is invalid or initialization fails
func NewAsyncClient(cfg *Config) (*AsyncClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &AsyncClient{
		Client: client,
	}, nil
}

// Async wraps an existing client. The wrapper shares the client's model.
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{Client: c}
}

// FitAsync trains on labeled rows asynchronously.
func (ac *AsyncClient) FitAsync(ctx context.Context, X [][]float64, y []string, opts ...FitOption) <-chan *FitAsyncResult {
	return ac.runFit(func() (*FitResult, error) {
		return ac.Fit(ctx, X, y, opts...)
	})
}

// FitMultiOutputAsync trains on a multi-hot label matrix asynchronously.
func (ac *AsyncClient) FitMultiOutputAsync(ctx context.Context, X, Y [][]float64) <-chan *FitAsyncResult {
	return ac.runFit(func() (*FitResult, error) {
		return ac.FitMultiOutput(ctx, X, Y)
	})
}

// FitSimAsync trains on supplied pairs asynchronously.
func (ac *AsyncClient) FitSimAsync(ctx context.Context, X1, X2 [][]float64, sim []float64) <-chan *FitAsyncResult {
	return ac.runFit(func() (*FitResult, error) {
		return ac.FitSim(ctx, X1, X2, sim)
	})
}

// EmbedAsync embeds rows asynchronously.
//
// Parameters:
//   - ctx: Context for controlling request lifecycle
//   - X: Feature rows or full model inputs
//
// Returns:
//   - <-chan *EmbedAsyncResult: Channel that receives the embeddings and error
func (ac *AsyncClient) EmbedAsync(ctx context.Context, X [][]float64) <-chan *EmbedAsyncResult {
	resultChan := make(chan *EmbedAsyncResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		embeddings, err := ac.Embed(ctx, X)
		resultChan <- &EmbedAsyncResult{
			Embeddings: embeddings,
			Error:      err,
		}
		close(resultChan)
	}()

	return resultChan
}

// SaveAsync saves a checkpoint asynchronously.
func (ac *AsyncClient) SaveAsync(ctx context.Context, name string) <-chan *CheckpointResult {
	return ac.runCheckpoint(func() (*Checkpoint, error) {
		return ac.Save(ctx, name)
	})
}

// LoadAsync restores a checkpoint asynchronously.
func (ac *AsyncClient) LoadAsync(ctx context.Context, id int64) <-chan *CheckpointResult {
	return ac.runCheckpoint(func() (*Checkpoint, error) {
		return ac.Load(ctx, id)
	})
}

// Wait waits for all async operations to complete.
func (ac *AsyncClient) Wait() {
	ac.wg.Wait()
}

// Close waits for pending operations and then closes the client.
func (ac *AsyncClient) Close() error {
	ac.wg.Wait()
	return ac.Client.Close()
}

func (ac *AsyncClient) runFit(fn func() (*FitResult, error)) <-chan *FitAsyncResult {
	resultChan := make(chan *FitAsyncResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		result, err := fn()
		resultChan <- &FitAsyncResult{
			Result: result,
			Error:  err,
		}
		close(resultChan)
	}()

	return resultChan
}

func (ac *AsyncClient) runCheckpoint(fn func() (*Checkpoint, error)) <-chan *CheckpointResult {
	resultChan := make(chan *CheckpointResult, 1)
	ac.wg.Add(1)

	go func() {
		defer ac.wg.Done()
		cp, err := fn()
		resultChan <- &CheckpointResult{
			Checkpoint: cp,
			Error:      err,
		}
		close(resultChan)
	}()

	return resultChan
}
