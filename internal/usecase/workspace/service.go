// Package workspace handles workspace CRUD operations.
package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domws "github.com/B-Leucht/open-atlas/internal/domain/workspace"
)

// Fields carries the caller-supplied workspace attributes.
type Fields struct {
	Name        string
	Description string
	DatasetIDs  []string
	Groups      []string
	Tags        []string
}

// Service handles workspace CRUD.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a workspace service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates and stores a new workspace under a fresh id.
func (s *Service) Create(ctx context.Context, f Fields) (domws.Workspace, error) {
	ws, err := domws.New(uuid.NewString(), f.Name, f.Description, f.DatasetIDs, f.Groups, f.Tags, s.now())
	if err != nil {
		return domws.Workspace{}, fmt.Errorf("validate workspace: %w", err)
	}

	if err := s.repo.Create(ctx, ws); err != nil {
		return domws.Workspace{}, fmt.Errorf("create workspace: %w", err)
	}

	return ws, nil
}

// Get retrieves a workspace by id.
func (s *Service) Get(ctx context.Context, id string) (domws.Workspace, error) {
	ws, err := s.repo.Get(ctx, id)
	if err != nil {
		return domws.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	return ws, nil
}

// List returns all workspaces.
func (s *Service) List(ctx context.Context) ([]domws.Workspace, error) {
	workspaces, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return workspaces, nil
}

// Update revalidates and overwrites an existing workspace, keeping its
// creation time.
func (s *Service) Update(ctx context.Context, id string, f Fields) (domws.Workspace, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domws.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}

	next, err := current.Updated(f.Name, f.Description, f.DatasetIDs, f.Groups, f.Tags, s.now())
	if err != nil {
		return domws.Workspace{}, fmt.Errorf("validate workspace: %w", err)
	}

	if err := s.repo.Update(ctx, next); err != nil {
		return domws.Workspace{}, fmt.Errorf("update workspace: %w", err)
	}

	return next, nil
}

// Delete removes a workspace.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}
