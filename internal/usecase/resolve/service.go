// Package resolve expands a workspace's dataset selectors into a flat,
// deduplicated dataset id set.
package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/B-Leucht/open-atlas/internal/domain/workspace"
)

// Service resolves workspace selectors against the catalog.
type Service struct {
	catalog Catalog
	logger  *zap.Logger
}

// New creates a resolver.
func New(catalog Catalog, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// Resolve returns the deduplicated dataset ids selected by a workspace:
// explicit ids first, then group members, then tag matches, each in
// first-seen order. A failing group or tag lookup contributes nothing and
// is logged; resolution never fails as a whole.
func (s *Service) Resolve(ctx context.Context, ws workspace.Workspace) []string {
	seen := make(map[string]struct{})
	var ids []string

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range ws.DatasetIDs() {
		add(id)
	}

	for _, group := range ws.Groups() {
		members, err := s.catalog.GroupPackages(ctx, group)
		if err != nil {
			s.logger.Warn("group resolution failed",
				zap.String("workspace_id", ws.ID()),
				zap.String("group", group),
				zap.Error(err),
			)
			continue
		}
		for _, id := range members {
			add(id)
		}
	}

	for _, tag := range ws.Tags() {
		matches, err := s.catalog.TagPackages(ctx, tag)
		if err != nil {
			s.logger.Warn("tag resolution failed",
				zap.String("workspace_id", ws.ID()),
				zap.String("tag", tag),
				zap.Error(err),
			)
			continue
		}
		for _, id := range matches {
			add(id)
		}
	}

	return ids
}
