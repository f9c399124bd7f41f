// Package nn implements the two-tower similarity network used to learn
// embeddings from (anchor, candidate, similarity) triples.
//
// Both inputs pass through the same Tower. The model output is
// sigmoid((cos(e1, e2) - 0.5) * 5), trained with binary cross-entropy and
// Adam. Gradients are derived by hand for this architecture.
package nn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotBuilt indicates use of a model whose input width is not known yet.
	ErrNotBuilt = errors.New("nn: model not built")

	// ErrShapeMismatch indicates inputs with incompatible dimensions.
	ErrShapeMismatch = errors.New("nn: shape mismatch")

	// ErrInvalidConfig indicates invalid model or training parameters.
	ErrInvalidConfig = errors.New("nn: invalid config")
)

const (
	// normEpsilon floors the squared norm during l2-normalization.
	normEpsilon = 1e-12

	// similarity head: sigmoid((cos - simShift) * simScale)
	simShift = 0.5
	simScale = 5.0
)

// Config configures a Model.
type Config struct {
	// Size is the embedding width (both layers of the tower).
	Size int

	// LearningRate is the Adam learning rate. Defaults to DefaultLearningRate.
	LearningRate float64

	// Rand drives weight initialization and shuffling. Time-seeded if nil.
	Rand *rand.Rand
}

// Model is a two-tower cosine-similarity network with shared weights.
//
// A Model is not safe for concurrent use.
type Model struct {
	size     int
	inputDim int
	tower    *Tower
	opt      *Adam
	rng      *rand.Rand
}

// NewModel creates an unbuilt model. The input width is fixed on the first
// call to Build or Fit.
func NewModel(cfg Config) (*Model, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, cfg.Size)
	}
	if cfg.LearningRate < 0 {
		return nil, fmt.Errorf("%w: negative learning rate", ErrInvalidConfig)
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
	return &Model{
		size: cfg.Size,
		opt:  NewAdam(cfg.LearningRate),
		rng:  rng,
	}, nil
}

// Size returns the embedding width.
func (m *Model) Size() int { return m.size }

// InputDim returns the input width, or 0 if the model is not built.
func (m *Model) InputDim() int { return m.inputDim }

// Built reports whether the weights exist.
func (m *Model) Built() bool { return m.tower != nil }

// Build initializes the weights for inputs of width inputDim. Building an
// already built model with the same width is a no-op.
func (m *Model) Build(inputDim int) error {
	if inputDim <= 0 {
		return fmt.Errorf("%w: input width must be positive, got %d", ErrShapeMismatch, inputDim)
	}
	if m.Built() {
		if inputDim != m.inputDim {
			return fmt.Errorf("%w: model built for width %d, got %d", ErrShapeMismatch, m.inputDim, inputDim)
		}
		return nil
	}
	m.tower = newTower(inputDim, m.size, m.rng)
	m.inputDim = inputDim
	return nil
}

// TrainConfig controls a call to Fit.
type TrainConfig struct {
	Epochs    int
	BatchSize int

	// NoShuffle keeps the sample order fixed across epochs.
	NoShuffle bool

	// OnEpoch is called after every epoch.
	OnEpoch func(EpochStats)

	// OnBatch is called after every optimizer step.
	OnBatch func(BatchStats)
}

// EpochStats summarizes one training epoch.
type EpochStats struct {
	Epoch    int
	Epochs   int
	Loss     float64
	Samples  int
	Duration time.Duration
}

// BatchStats summarizes one optimizer step.
type BatchStats struct {
	Epoch   int
	Batch   int
	Batches int
	Loss    float64
}

// History records the mean training loss of each epoch.
type History struct {
	Loss []float64
}

// Fit trains the model on pairs (x1[i], x2[i]) with targets y[i] in [0, 1].
// Training continues from the current weights and optimizer state.
//
// The context is checked before every mini-batch; on cancellation the
// weights keep the updates applied so far and the context error is returned.
func (m *Model) Fit(ctx context.Context, x1, x2 *mat.Dense, y []float64, cfg TrainConfig) (*History, error) {
	if cfg.Epochs <= 0 || cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: epochs and batch size must be positive", ErrInvalidConfig)
	}
	n, err := m.checkPairs(x1, x2, y)
	if err != nil {
		return nil, err
	}

	batches := (n + cfg.BatchSize - 1) / cfg.BatchSize
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	hist := &History{Loss: make([]float64, 0, cfg.Epochs)}
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		start := time.Now()
		if !cfg.NoShuffle {
			m.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		total := 0.0
		for b := 0; b < batches; b++ {
			if err := ctx.Err(); err != nil {
				return hist, err
			}
			lo := b * cfg.BatchSize
			hi := lo + cfg.BatchSize
			if hi > n {
				hi = n
			}
			idx := order[lo:hi]
			by := make([]float64, len(idx))
			for i, k := range idx {
				by[i] = y[k]
			}

			loss, g := m.lossAndGrad(gather(x1, idx), gather(x2, idx), by)
			m.opt.Step(m.tower.params(), g.flat())
			total += loss * float64(len(idx))

			if cfg.OnBatch != nil {
				cfg.OnBatch(BatchStats{Epoch: epoch + 1, Batch: b + 1, Batches: batches, Loss: loss})
			}
		}

		epochLoss := total / float64(n)
		hist.Loss = append(hist.Loss, epochLoss)
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(EpochStats{
				Epoch:    epoch + 1,
				Epochs:   cfg.Epochs,
				Loss:     epochLoss,
				Samples:  n,
				Duration: time.Since(start),
			})
		}
	}
	return hist, nil
}

// Embed runs the shared tower on x and returns one embedding row per input row.
func (m *Model) Embed(x *mat.Dense) (*mat.Dense, error) {
	if !m.Built() {
		return nil, ErrNotBuilt
	}
	if _, c := x.Dims(); c != m.inputDim {
		return nil, fmt.Errorf("%w: model built for width %d, got %d", ErrShapeMismatch, m.inputDim, c)
	}
	e, _ := m.tower.forward(x)
	return e, nil
}

// Predict returns the similarity score of every pair (x1[i], x2[i]).
func (m *Model) Predict(x1, x2 *mat.Dense) ([]float64, error) {
	if !m.Built() {
		return nil, ErrNotBuilt
	}
	n, err := m.checkPairs(x1, x2, nil)
	if err != nil {
		return nil, err
	}
	e1, _ := m.tower.forward(x1)
	e2, _ := m.tower.forward(x2)
	out := make([]float64, n)
	for i := range out {
		c := cosine(e1.RawRowView(i), e2.RawRowView(i))
		out[i] = sigmoid((c.value - simShift) * simScale)
	}
	return out, nil
}

// Loss returns the mean binary cross-entropy of the model on the given pairs.
func (m *Model) Loss(x1, x2 *mat.Dense, y []float64) (float64, error) {
	if !m.Built() {
		return 0, ErrNotBuilt
	}
	if _, err := m.checkPairs(x1, x2, y); err != nil {
		return 0, err
	}
	loss, _ := m.lossAndGrad(x1, x2, y)
	return loss, nil
}

// checkPairs validates pair inputs, building the model if needed. y is
// skipped when nil.
func (m *Model) checkPairs(x1, x2 *mat.Dense, y []float64) (int, error) {
	r1, c1 := x1.Dims()
	r2, c2 := x2.Dims()
	if r1 != r2 || c1 != c2 {
		return 0, fmt.Errorf("%w: pair inputs %dx%d and %dx%d", ErrShapeMismatch, r1, c1, r2, c2)
	}
	if y != nil && len(y) != r1 {
		return 0, fmt.Errorf("%w: %d pairs, %d targets", ErrShapeMismatch, r1, len(y))
	}
	if err := m.Build(c1); err != nil {
		return 0, err
	}
	return r1, nil
}

// lossAndGrad runs forward and backward passes over one batch and returns
// the mean loss with the parameter gradients of that mean.
func (m *Model) lossAndGrad(x1, x2 *mat.Dense, y []float64) (float64, *gradients) {
	e1, c1 := m.tower.forward(x1)
	e2, c2 := m.tower.forward(x2)

	n := len(y)
	d1 := mat.NewDense(n, m.size, nil)
	d2 := mat.NewDense(n, m.size, nil)

	loss := 0.0
	for i := 0; i < n; i++ {
		a, b := e1.RawRowView(i), e2.RawRowView(i)
		c := cosine(a, b)
		z := (c.value - simShift) * simScale
		loss += bceWithLogit(z, y[i])

		dCos := (sigmoid(z) - y[i]) / float64(n) * simScale
		c.gradA(a, b, dCos, d1.RawRowView(i))
		c.gradB(a, b, dCos, d2.RawRowView(i))
	}

	g := newGradients(m.tower)
	m.tower.backward(c1, d1, g)
	m.tower.backward(c2, d2, g)
	return loss / float64(n), g
}

// cosineTerms holds the cosine of two vectors and the norms used to compute it.
type cosineTerms struct {
	value  float64
	na, nb float64
	// floored reports whether a norm hit normEpsilon and is treated as constant.
	flooredA, flooredB bool
}

func cosine(a, b []float64) cosineTerms {
	sa, sb := floats.Dot(a, a), floats.Dot(b, b)
	t := cosineTerms{
		flooredA: sa < normEpsilon,
		flooredB: sb < normEpsilon,
	}
	t.na = math.Sqrt(math.Max(sa, normEpsilon))
	t.nb = math.Sqrt(math.Max(sb, normEpsilon))
	t.value = floats.Dot(a, b) / (t.na * t.nb)
	return t
}

// gradA writes scale * d cos / d a into dst.
func (t cosineTerms) gradA(a, b []float64, scale float64, dst []float64) {
	for j := range dst {
		g := b[j] / t.nb
		if !t.flooredA {
			g -= t.value * a[j] / t.na
		}
		dst[j] = scale * g / t.na
	}
}

// gradB writes scale * d cos / d b into dst.
func (t cosineTerms) gradB(a, b []float64, scale float64, dst []float64) {
	for j := range dst {
		g := a[j] / t.na
		if !t.flooredB {
			g -= t.value * b[j] / t.nb
		}
		dst[j] = scale * g / t.nb
	}
}

// bceWithLogit is binary cross-entropy of sigmoid(z) against y, computed
// without forming the probability.
func bceWithLogit(z, y float64) float64 {
	return math.Max(z, 0) - z*y + math.Log1p(math.Exp(-math.Abs(z)))
}
