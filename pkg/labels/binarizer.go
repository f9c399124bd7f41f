// Package labels provides one-vs-rest binarization of categorical labels.
package labels

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFitted indicates that Transform was called before Fit.
	ErrNotFitted = errors.New("labels: binarizer not fitted")

	// ErrEmptyLabels indicates that no labels or classes were supplied.
	ErrEmptyLabels = errors.New("labels: no labels")
)

// Binarizer maps string labels to indicator rows with one column per class.
//
// Classes are kept in sorted order, so column j always corresponds to
// Classes()[j]. Unlike some binarizers, two classes produce two columns.
type Binarizer struct {
	classes []string
	index   map[string]int
}

// NewBinarizer returns an unfitted Binarizer.
func NewBinarizer() *Binarizer {
	return &Binarizer{}
}

// Fit learns the class vocabulary from the observed labels.
func (b *Binarizer) Fit(y []string) error {
	return b.FitClasses(y)
}

// FitClasses fixes the class vocabulary. Duplicates are removed and the
// classes are sorted.
func (b *Binarizer) FitClasses(classes []string) error {
	if len(classes) == 0 {
		return ErrEmptyLabels
	}
	seen := make(map[string]struct{}, len(classes))
	uniq := make([]string, 0, len(classes))
	for _, c := range classes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		uniq = append(uniq, c)
	}
	sort.Strings(uniq)

	b.classes = uniq
	b.index = make(map[string]int, len(uniq))
	for i, c := range uniq {
		b.index[c] = i
	}
	return nil
}

// Fitted reports whether a vocabulary has been learned.
func (b *Binarizer) Fitted() bool {
	return len(b.classes) > 0
}

// Classes returns a copy of the class vocabulary in column order.
func (b *Binarizer) Classes() []string {
	out := make([]string, len(b.classes))
	copy(out, b.classes)
	return out
}

// NumClasses returns the number of columns Transform produces.
func (b *Binarizer) NumClasses() int {
	return len(b.classes)
}

// Transform converts labels to indicator rows. A label outside the
// vocabulary produces an all-zero row.
func (b *Binarizer) Transform(y []string) ([][]float64, error) {
	if !b.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(y))
	for i, label := range y {
		row := make([]float64, len(b.classes))
		if j, ok := b.index[label]; ok {
			row[j] = 1
		}
		out[i] = row
	}
	return out, nil
}

// FitTransform fits the vocabulary on y and transforms it.
func (b *Binarizer) FitTransform(y []string) ([][]float64, error) {
	if err := b.Fit(y); err != nil {
		return nil, err
	}
	return b.Transform(y)
}

// InverseTransform maps indicator (or score) rows back to labels by taking
// the highest-scoring column of each row. Ties resolve to the lowest column.
func (b *Binarizer) InverseTransform(y [][]float64) ([]string, error) {
	if !b.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]string, len(y))
	for i, row := range y {
		if len(row) != len(b.classes) {
			return nil, fmt.Errorf("labels: row %d has width %d, want %d", i, len(row), len(b.classes))
		}
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = b.classes[best]
	}
	return out, nil
}
