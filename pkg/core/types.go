package core

import "time"

// FitResult summarizes one training call.
//
// Example:
//
//	result, _ := client.Fit(ctx, X, y)
//	fmt.Printf("%d pairs, final loss %.4f\n", result.Triples, result.Loss[len(result.Loss)-1])
type FitResult struct {
	// Triples is the number of (anchor, candidate, similarity) pairs trained on.
	Triples int `json:"triples"`

	// Positives is the number of pairs with similarity 1.
	Positives int `json:"positives"`

	// Epochs is the number of epochs completed in this call.
	Epochs int `json:"epochs"`

	// Loss is the mean training loss of each completed epoch.
	Loss []float64 `json:"loss"`

	// Classes is the label vocabulary in column order (nil in multi-output mode).
	Classes []string `json:"classes,omitempty"`
}

// FinalLoss returns the loss of the last epoch, or 0 if none completed.
func (r *FitResult) FinalLoss() float64 {
	if r == nil || len(r.Loss) == 0 {
		return 0
	}
	return r.Loss[len(r.Loss)-1]
}

// Checkpoint describes a saved model.
type Checkpoint struct {
	// ID is the unique identifier of the checkpoint.
	ID int64 `json:"id"`

	// Name groups successive checkpoints of one estimator.
	Name string `json:"name"`

	// Size is the embedding width.
	Size int `json:"size"`

	// InputDim is the model input width (NumFeatures + NumClasses).
	InputDim int `json:"input_dim"`

	// NumFeatures is the feature width d, or 0 if only pair data was seen.
	NumFeatures int `json:"num_features"`

	// NumClasses is the class count c, or 0 if only pair data was seen.
	NumClasses int `json:"num_classes"`

	// Classes is the label vocabulary (nil in multi-output mode).
	Classes []string `json:"classes,omitempty"`

	// Epochs is the total number of epochs trained.
	Epochs int `json:"epochs"`

	// Loss is the full per-epoch loss history.
	Loss []float64 `json:"loss"`

	// Hash is the checksum of the stored model state.
	Hash string `json:"hash"`

	// Metadata contains the estimator settings at save time.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the checkpoint was saved.
	CreatedAt time.Time `json:"created_at"`
}
