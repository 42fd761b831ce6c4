package search

import (
	"context"

	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
)

// FeatureSource supplies per-dataset fetch outcomes (normally the bounded
// feature cache).
type FeatureSource interface {
	Fetch(ctx context.Context, datasetID string) dataset.Outcome
}
