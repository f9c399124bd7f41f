package core

import (
	"encoding/json"
	"strconv"

	"github.com/oceanbase/embetter-go/pkg/storage"
)

// Metadata keys written by Save.
const (
	metaNumFeatures      = "num_features"
	metaNumClasses       = "num_classes"
	metaMultiOutput      = "multi_output"
	metaNegSamples       = "neg_samples"
	metaNegativeSampling = "negative_sampling"
	metaBatchSize        = "batch_size"
	metaLearningRate     = "learning_rate"
)

// toCheckpoint converts a storage.Checkpoint to the public summary type.
func toCheckpoint(cp *storage.Checkpoint) *Checkpoint {
	if cp == nil {
		return nil
	}
	return &Checkpoint{
		ID:          cp.ID,
		Name:        cp.Name,
		Size:        cp.Size,
		InputDim:    cp.InputDim,
		NumFeatures: metaInt(cp.Metadata, metaNumFeatures),
		NumClasses:  metaInt(cp.Metadata, metaNumClasses),
		Classes:     cp.Classes,
		Epochs:      cp.Epochs,
		Loss:        cp.Loss,
		Hash:        cp.Hash,
		Metadata:    cp.Metadata,
		CreatedAt:   cp.CreatedAt,
	}
}

// metaInt reads an integer metadata value. JSON round trips turn ints into
// float64, and some drivers hand back json.Number.
func metaInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

func metaBool(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// providerConfig reads typed values from a store config map populated from
// the environment, JSON or YAML.
type providerConfig map[string]interface{}

func (p providerConfig) str(key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

func (p providerConfig) integer(key string, def int) int {
	if _, ok := p[key]; !ok {
		return def
	}
	if n := metaInt(p, key); n != 0 {
		return n
	}
	if s, ok := p[key].(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}
