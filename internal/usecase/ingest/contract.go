package ingest

import (
	"context"

	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
)

// Catalog is the slice of the metadata service the fetch pipeline needs.
type Catalog interface {
	Package(ctx context.Context, id string) (dataset.Metadata, error)
	FetchResource(ctx context.Context, url string) ([]byte, error)
}
