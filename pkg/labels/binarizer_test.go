package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinarizer_Fit(t *testing.T) {
	b := NewBinarizer()
	require.NoError(t, b.Fit([]string{"dog", "cat", "dog", "bird"}))

	assert.Equal(t, []string{"bird", "cat", "dog"}, b.Classes())
	assert.Equal(t, 3, b.NumClasses())

	y, err := b.Transform([]string{"cat", "bird", "dog"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 1},
	}, y)
}

func TestBinarizer_TwoClassesKeepTwoColumns(t *testing.T) {
	b := NewBinarizer()
	y, err := b.FitTransform([]string{"no", "yes", "yes"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}, {0, 1}}, y)
}

func TestBinarizer_FitClasses(t *testing.T) {
	b := NewBinarizer()
	require.NoError(t, b.FitClasses([]string{"c", "a", "b", "a"}))
	assert.Equal(t, []string{"a", "b", "c"}, b.Classes())

	// labels outside the vocabulary have no hot column
	y, err := b.Transform([]string{"a", "z"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0, 0}, {0, 0, 0}}, y)
}

func TestBinarizer_InverseTransform(t *testing.T) {
	b := NewBinarizer()
	require.NoError(t, b.Fit([]string{"x", "y", "z"}))

	got, err := b.InverseTransform([][]float64{
		{0, 0, 1},
		{0.2, 0.7, 0.1},
		{0.5, 0.5, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y", "x"}, got)

	_, err = b.InverseTransform([][]float64{{1, 0}})
	assert.Error(t, err)
}

func TestBinarizer_Errors(t *testing.T) {
	b := NewBinarizer()

	_, err := b.Transform([]string{"a"})
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = b.InverseTransform([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.ErrorIs(t, b.Fit(nil), ErrEmptyLabels)
	assert.False(t, b.Fitted())
}

func TestBinarizer_ClassesIsCopy(t *testing.T) {
	b := NewBinarizer()
	require.NoError(t, b.Fit([]string{"a", "b"}))
	classes := b.Classes()
	classes[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, b.Classes())
}
