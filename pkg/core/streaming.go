package core

import (
	"context"
	"time"

	"github.com/oceanbase/embetter-go/pkg/nn"
)

// EpochResult reports one completed epoch of a streaming fit.
//
// The last message on the channel has Done set and carries the overall
// FitResult or the error that ended training.
type EpochResult struct {
	// Epoch is the 1-based index of the epoch within this call.
	Epoch int

	// Epochs is the number of epochs requested.
	Epochs int

	// Loss is the mean training loss of the epoch.
	Loss float64

	// Duration is the wall time of the epoch.
	Duration time.Duration

	// Done marks the final message.
	Done bool

	// Result is the fit summary (final message only).
	Result *FitResult

	// Error contains any error that ended training (final message only).
	Error error
}

// StreamingEmbedResult contains a batch of embeddings from EmbedStream.
type StreamingEmbedResult struct {
	// Embeddings is a batch of vectors, aligned with the input rows.
	Embeddings [][]float64

	// Offset is the index of the first row of this batch in the input.
	Offset int

	// BatchIndex is the index of this batch (0-based).
	BatchIndex int

	// IsLastBatch indicates whether this is the last batch.
	IsLastBatch bool

	// Error contains any error that occurred during streaming (if any).
	Error error
}

// FitStream runs Fit in a goroutine and reports every epoch on the
// returned channel as it completes.
//
// The channel is buffered for every epoch plus the final message, so
// training never blocks on a slow reader. It is closed after the final
// message.
//
// Example:
//
//	for ep := range client.FitStream(ctx, X, y) {
//	    if ep.Done {
//	        if ep.Error != nil {
//	            log.Fatal(ep.Error)
//	        }
//	        break
//	    }
//	    fmt.Printf("epoch %d/%d loss %.4f\n", ep.Epoch, ep.Epochs, ep.Loss)
//	}
func (c *Client) FitStream(ctx context.Context, X [][]float64, y []string, opts ...FitOption) <-chan *EpochResult {
	resultChan := make(chan *EpochResult, c.config.Model.Epochs+1)

	go func() {
		defer close(resultChan)

		c.mu.Lock()
		defer c.mu.Unlock()

		result, err := c.fitLabels(ctx, "FitStream", X, y, applyFitOptions(opts), func(s nn.EpochStats) {
			resultChan <- &EpochResult{
				Epoch:    s.Epoch,
				Epochs:   s.Epochs,
				Loss:     s.Loss,
				Duration: s.Duration,
			}
		})
		resultChan <- &EpochResult{
			Epochs: c.config.Model.Epochs,
			Done:   true,
			Result: result,
			Error:  err,
		}
	}()

	return resultChan
}

// EmbedStream embeds X in batches of batchSize rows, sending each batch on
// the returned channel.
//
// The channel is closed when all batches have been sent, an error occurs or
// ctx is cancelled.
//
// Example:
//
//	for batch := range client.EmbedStream(ctx, X, 256) {
//	    if batch.Error != nil {
//	        log.Fatal(batch.Error)
//	    }
//	    index(batch.Offset, batch.Embeddings)
//	}
func (c *Client) EmbedStream(ctx context.Context, X [][]float64, batchSize int) <-chan *StreamingEmbedResult {
	resultChan := make(chan *StreamingEmbedResult, 1)

	go func() {
		defer close(resultChan)

		if len(X) == 0 {
			sendEmbedResult(ctx, resultChan, &StreamingEmbedResult{
				IsLastBatch: true,
				Error:       NewEmbetterError("EmbedStream", ErrInvalidInput),
			})
			return
		}
		if batchSize <= 0 {
			batchSize = len(X)
		}

		batchIndex := 0
		for offset := 0; offset < len(X); offset += batchSize {
			end := offset + batchSize
			if end > len(X) {
				end = len(X)
			}

			embeddings, err := c.Embed(ctx, X[offset:end])
			if err != nil {
				sendEmbedResult(ctx, resultChan, &StreamingEmbedResult{
					Offset:     offset,
					BatchIndex: batchIndex,
					Error:      NewEmbetterError("EmbedStream", err),
				})
				return
			}

			if !sendEmbedResult(ctx, resultChan, &StreamingEmbedResult{
				Embeddings:  embeddings,
				Offset:      offset,
				BatchIndex:  batchIndex,
				IsLastBatch: end >= len(X),
			}) {
				return
			}
			batchIndex++
		}
	}()

	return resultChan
}

func sendEmbedResult(ctx context.Context, ch chan<- *StreamingEmbedResult, r *StreamingEmbedResult) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
