package learning

import (
	"context"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// Store abstracts persistence for learned patterns.
type Store interface {
	StorePatterns(ctx context.Context, patterns []models.LearnedPattern) error
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, patterns []models.LearnedPattern) error

// StorePatterns implements Store.
func (f StoreFunc) StorePatterns(ctx context.Context, patterns []models.LearnedPattern) error {
	return f(ctx, patterns)
}
