package resolve

import "context"

// Catalog is the slice of the metadata service used for selector
// expansion.
type Catalog interface {
	GroupPackages(ctx context.Context, groupID string) ([]string, error)
	TagPackages(ctx context.Context, tag string) ([]string, error)
}
