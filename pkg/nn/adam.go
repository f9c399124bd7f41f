package nn

import "math"

// Default Adam hyperparameters.
const (
	DefaultLearningRate = 0.001
	defaultBeta1        = 0.9
	defaultBeta2        = 0.999
	defaultEpsilon      = 1e-7
)

// Adam is the Adam optimizer with bias-corrected moment estimates.
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	t int
	m [][]float64
	v [][]float64
}

// NewAdam returns an optimizer with the given learning rate and default betas.
func NewAdam(lr float64) *Adam {
	if lr <= 0 {
		lr = DefaultLearningRate
	}
	return &Adam{
		LR:      lr,
		Beta1:   defaultBeta1,
		Beta2:   defaultBeta2,
		Epsilon: defaultEpsilon,
	}
}

func (a *Adam) ensure(params [][]float64) {
	if len(a.m) == len(params) {
		return
	}
	a.m = make([][]float64, len(params))
	a.v = make([][]float64, len(params))
	for i, p := range params {
		a.m[i] = make([]float64, len(p))
		a.v[i] = make([]float64, len(p))
	}
}

// Step updates params in place from grads. Both must have the same layout
// on every call.
func (a *Adam) Step(params, grads [][]float64) {
	a.ensure(params)
	a.t++
	b1Corr := 1 - math.Pow(a.Beta1, float64(a.t))
	b2Corr := 1 - math.Pow(a.Beta2, float64(a.t))

	for i, p := range params {
		mi, vi, gi := a.m[i], a.v[i], grads[i]
		for j := range p {
			g := gi[j]
			mi[j] = a.Beta1*mi[j] + (1-a.Beta1)*g
			vi[j] = a.Beta2*vi[j] + (1-a.Beta2)*g*g
			mhat := mi[j] / b1Corr
			vhat := vi[j] / b2Corr
			p[j] -= a.LR * mhat / (math.Sqrt(vhat) + a.Epsilon)
		}
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int {
	return a.t
}

// AdamState is the serializable optimizer state.
type AdamState struct {
	Steps int         `json:"steps"`
	M     [][]float64 `json:"m,omitempty"`
	V     [][]float64 `json:"v,omitempty"`
}

func (a *Adam) state() AdamState {
	return AdamState{Steps: a.t, M: copyRows(a.m), V: copyRows(a.v)}
}

func (a *Adam) restore(s AdamState) {
	a.t = s.Steps
	a.m = copyRows(s.M)
	a.v = copyRows(s.V)
}

func copyRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}
