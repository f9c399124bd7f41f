package nn

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// State is a serializable snapshot of a built model: tower weights and the
// optimizer moments, so training can resume where it stopped.
type State struct {
	Size     int       `json:"size"`
	InputDim int       `json:"input_dim"`
	W1       []float64 `json:"w1"`
	B1       []float64 `json:"b1"`
	W2       []float64 `json:"w2"`
	B2       []float64 `json:"b2"`
	LR       float64   `json:"learning_rate"`
	Adam     AdamState `json:"adam"`
}

// State returns a deep copy of the model parameters.
func (m *Model) State() (*State, error) {
	if !m.Built() {
		return nil, ErrNotBuilt
	}
	p := m.tower.params()
	return &State{
		Size:     m.size,
		InputDim: m.inputDim,
		W1:       append([]float64(nil), p[0]...),
		B1:       append([]float64(nil), p[1]...),
		W2:       append([]float64(nil), p[2]...),
		B2:       append([]float64(nil), p[3]...),
		LR:       m.opt.LR,
		Adam:     m.opt.state(),
	}, nil
}

// FromState rebuilds a model from a snapshot. rng drives later shuffling and
// may be nil.
func FromState(s *State, rng *rand.Rand) (*Model, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvalidConfig)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	m, err := NewModel(Config{Size: s.Size, LearningRate: s.LR, Rand: rng})
	if err != nil {
		return nil, err
	}
	m.inputDim = s.InputDim
	m.tower = &Tower{
		Hidden: &Dense{
			W:       mat.NewDense(s.InputDim, s.Size, append([]float64(nil), s.W1...)),
			B:       append([]float64(nil), s.B1...),
			Sigmoid: true,
		},
		Output: &Dense{
			W: mat.NewDense(s.Size, s.Size, append([]float64(nil), s.W2...)),
			B: append([]float64(nil), s.B2...),
		},
	}
	m.opt.restore(s.Adam)
	return m, nil
}

func (s *State) validate() error {
	if s.Size <= 0 || s.InputDim <= 0 {
		return fmt.Errorf("%w: state dims %dx%d", ErrShapeMismatch, s.InputDim, s.Size)
	}
	want := []int{s.InputDim * s.Size, s.Size, s.Size * s.Size, s.Size}
	got := []int{len(s.W1), len(s.B1), len(s.W2), len(s.B2)}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: parameter %d has %d values, want %d", ErrShapeMismatch, i, got[i], want[i])
		}
	}
	if s.Adam.M == nil {
		return nil
	}
	if len(s.Adam.M) != len(want) || len(s.Adam.V) != len(want) {
		return fmt.Errorf("%w: optimizer state has %d slots", ErrShapeMismatch, len(s.Adam.M))
	}
	for i := range want {
		if len(s.Adam.M[i]) != want[i] || len(s.Adam.V[i]) != want[i] {
			return fmt.Errorf("%w: optimizer slot %d", ErrShapeMismatch, i)
		}
	}
	return nil
}

// MarshalState encodes a model snapshot as JSON.
func MarshalState(s *State) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState decodes a snapshot produced by MarshalState.
func UnmarshalState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode model state: %w", err)
	}
	return &s, nil
}
