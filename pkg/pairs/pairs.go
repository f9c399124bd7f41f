// Package pairs turns a labeled feature matrix into training triples for a
// two-tower similarity model.
//
// Every sample produces an anchor row (its features followed by a zero label
// block) that is paired with candidate rows (a zero feature block followed by
// a one-hot class vector). Candidates for the sample's true classes carry
// similarity 1; a fixed number of candidates drawn from its absent classes
// carry similarity 0.
package pairs

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Predefined errors returned by Generate.
var (
	// ErrEmptyInput indicates that the feature matrix has no rows.
	ErrEmptyInput = errors.New("pairs: empty input")

	// ErrNoClasses indicates that the label matrix has no columns.
	ErrNoClasses = errors.New("pairs: label matrix has no columns")

	// ErrShapeMismatch indicates misaligned or ragged matrices.
	ErrShapeMismatch = errors.New("pairs: shape mismatch")

	// ErrEmptyNegativePool indicates a sample with no absent classes to draw negatives from.
	ErrEmptyNegativePool = errors.New("pairs: no negative classes to sample from")

	// ErrInvalidOptions indicates invalid generation options.
	ErrInvalidOptions = errors.New("pairs: invalid options")
)

// NegativeMode selects which class index a negative candidate encodes.
type NegativeMode string

const (
	// NegativeSampled encodes the class index that was drawn from the
	// sample's absent classes.
	NegativeSampled NegativeMode = "sampled"

	// NegativeLegacy encodes the last class index (c-1) for every negative
	// draw, whatever the sample's labels. The draws still happen (and consume
	// randomness), but their value is discarded. This reproduces the
	// historical embetter output.
	NegativeLegacy NegativeMode = "legacy"
)

// Valid reports whether m is a known mode. The empty mode is valid and
// behaves as NegativeSampled.
func (m NegativeMode) Valid() bool {
	switch m {
	case "", NegativeSampled, NegativeLegacy:
		return true
	}
	return false
}

// Options controls pair generation.
type Options struct {
	// NegSamples is the number of negative triples emitted per sample.
	NegSamples int

	// Negatives selects the negative encoding. Defaults to NegativeSampled.
	Negatives NegativeMode

	// Rand is the source for negative draws. A time-seeded source is used if nil.
	Rand *rand.Rand
}

// Triples holds aligned anchor rows, candidate rows and similarity targets.
type Triples struct {
	// X1 holds anchor rows: features followed by a zero label block.
	X1 [][]float64

	// X2 holds candidate rows: a zero feature block followed by a one-hot class vector.
	X2 [][]float64

	// Sim holds the similarity target (0 or 1) of each pair.
	Sim []float64
}

// Len returns the number of triples.
func (t *Triples) Len() int {
	return len(t.Sim)
}

// Positives returns the number of triples with similarity 1.
func (t *Triples) Positives() int {
	n := 0
	for _, s := range t.Sim {
		if s == 1 {
			n++
		}
	}
	return n
}

func (t *Triples) add(x1, x2 []float64, sim float64) {
	t.X1 = append(t.X1, x1)
	t.X2 = append(t.X2, x2)
	t.Sim = append(t.Sim, sim)
}

// Anchor returns x followed by c zeros.
func Anchor(x []float64, c int) []float64 {
	out := make([]float64, len(x)+c)
	copy(out, x)
	return out
}

// Candidate returns d zeros followed by a one-hot vector of width c with
// index j set.
func Candidate(d, c, j int) []float64 {
	out := make([]float64, d+c)
	out[d+j] = 1
	return out
}

// Generate builds training triples from the feature matrix x (n×d) and the
// multi-hot label matrix y (n×c).
//
// For each sample, one triple per true label is emitted (in ascending class
// order) followed by opts.NegSamples triples whose classes are drawn with
// replacement from the sample's absent classes. The total number of triples
// is the number of true labels plus n*opts.NegSamples.
//
// Anchor rows are shared between the triples of a sample; callers must not
// mutate them.
func Generate(x, y [][]float64, opts *Options) (*Triples, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.NegSamples < 0 {
		return nil, fmt.Errorf("%w: negative sample count %d", ErrInvalidOptions, opts.NegSamples)
	}
	if !opts.Negatives.Valid() {
		return nil, fmt.Errorf("%w: unknown negative mode %q", ErrInvalidOptions, opts.Negatives)
	}
	d, c, err := shape(x, y)
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = newRand()
	}
	legacy := opts.Negatives == NegativeLegacy

	out := &Triples{}
	pool := make([]int, 0, c)
	for i := range x {
		anchor := Anchor(x[i], c)

		pool = pool[:0]
		for j, v := range y[i] {
			if v == 1 {
				out.add(anchor, Candidate(d, c, j), 1)
			} else if v == 0 {
				pool = append(pool, j)
			}
		}

		if opts.NegSamples == 0 {
			continue
		}
		if len(pool) == 0 {
			return nil, fmt.Errorf("%w: sample %d", ErrEmptyNegativePool, i)
		}
		for k := 0; k < opts.NegSamples; k++ {
			j := pool[rng.Intn(len(pool))]
			if legacy {
				j = c - 1
			}
			out.add(anchor, Candidate(d, c, j), 0)
		}
	}
	return out, nil
}

func shape(x, y [][]float64) (int, int, error) {
	if len(x) == 0 {
		return 0, 0, ErrEmptyInput
	}
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%w: %d feature rows, %d label rows", ErrShapeMismatch, len(x), len(y))
	}
	d, c := len(x[0]), len(y[0])
	if c == 0 {
		return 0, 0, ErrNoClasses
	}
	for i := range x {
		if len(x[i]) != d {
			return 0, 0, fmt.Errorf("%w: feature row %d has width %d, want %d", ErrShapeMismatch, i, len(x[i]), d)
		}
		if len(y[i]) != c {
			return 0, 0, fmt.Errorf("%w: label row %d has width %d, want %d", ErrShapeMismatch, i, len(y[i]), c)
		}
	}
	return d, c, nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
}
