package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dense is a fully connected layer computing act(x·W + b).
type Dense struct {
	W       *mat.Dense
	B       []float64
	Sigmoid bool
}

// newDense creates a layer with a Glorot-uniform kernel and a zero bias.
func newDense(in, out int, sigmoidAct bool, rng *rand.Rand) *Dense {
	limit := math.Sqrt(6 / float64(in+out))
	data := make([]float64, in*out)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return &Dense{
		W:       mat.NewDense(in, out, data),
		B:       make([]float64, out),
		Sigmoid: sigmoidAct,
	}
}

func (l *Dense) forward(x mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(x, l.W)
	out.Apply(func(_, j int, v float64) float64 {
		v += l.B[j]
		if l.Sigmoid {
			return sigmoid(v)
		}
		return v
	}, &out)
	return &out
}

// Tower is the shared embedding network: a sigmoid hidden layer followed by
// a linear projection of the same width.
type Tower struct {
	Hidden *Dense
	Output *Dense
}

func newTower(inputDim, size int, rng *rand.Rand) *Tower {
	return &Tower{
		Hidden: newDense(inputDim, size, true, rng),
		Output: newDense(size, size, false, rng),
	}
}

// towerCache keeps the activations backward needs.
type towerCache struct {
	x *mat.Dense
	h *mat.Dense
}

func (t *Tower) forward(x *mat.Dense) (*mat.Dense, *towerCache) {
	h := t.Hidden.forward(x)
	return t.Output.forward(h), &towerCache{x: x, h: h}
}

// gradients mirrors the tower parameters.
type gradients struct {
	W1 *mat.Dense
	B1 []float64
	W2 *mat.Dense
	B2 []float64
}

func newGradients(t *Tower) *gradients {
	in, size := t.Hidden.W.Dims()
	return &gradients{
		W1: mat.NewDense(in, size, nil),
		B1: make([]float64, size),
		W2: mat.NewDense(size, size, nil),
		B2: make([]float64, size),
	}
}

func (g *gradients) flat() [][]float64 {
	return [][]float64{g.W1.RawMatrix().Data, g.B1, g.W2.RawMatrix().Data, g.B2}
}

// backward accumulates into g the parameter gradients for the upstream
// gradient dOut with respect to the tower output.
func (t *Tower) backward(c *towerCache, dOut *mat.Dense, g *gradients) {
	var dW2 mat.Dense
	dW2.Mul(c.h.T(), dOut)
	g.W2.Add(g.W2, &dW2)
	addColSums(g.B2, dOut)

	var dH mat.Dense
	dH.Mul(dOut, t.Output.W.T())
	dH.Apply(func(i, j int, v float64) float64 {
		h := c.h.At(i, j)
		return v * h * (1 - h)
	}, &dH)

	var dW1 mat.Dense
	dW1.Mul(c.x.T(), &dH)
	g.W1.Add(g.W1, &dW1)
	addColSums(g.B1, &dH)
}

func (t *Tower) params() [][]float64 {
	return [][]float64{
		t.Hidden.W.RawMatrix().Data,
		t.Hidden.B,
		t.Output.W.RawMatrix().Data,
		t.Output.B,
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
