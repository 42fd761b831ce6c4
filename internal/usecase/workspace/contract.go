package workspace

import (
	"context"

	domws "github.com/B-Leucht/open-atlas/internal/domain/workspace"
)

// Repository defines the persistence contract for workspaces.
type Repository interface {
	Create(ctx context.Context, ws domws.Workspace) error
	Get(ctx context.Context, id string) (domws.Workspace, error)
	Update(ctx context.Context, ws domws.Workspace) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domws.Workspace, error)
}
