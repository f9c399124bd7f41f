// Package mock provides a testify mock of embedder.Provider.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Provider is a mock implementation of embedder.Provider.
type Provider struct {
	mock.Mock
}

// Embed mocks embedder.Provider.Embed.
func (m *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// EmbedBatch mocks embedder.Provider.EmbedBatch.
func (m *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float64), args.Error(1)
}

// Dimensions mocks embedder.Provider.Dimensions.
func (m *Provider) Dimensions() int {
	return m.Called().Int(0)
}

// Close mocks embedder.Provider.Close.
func (m *Provider) Close() error {
	return m.Called().Error(0)
}
