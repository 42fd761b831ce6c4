// Package workspace holds the saved dataset-selection aggregate.
package workspace

import (
	"fmt"
	"time"

	"github.com/B-Leucht/open-atlas/internal/domain"
)

// MaxNameLength bounds the workspace name.
const MaxNameLength = 256

// Workspace is a named selection of catalog datasets, chosen by explicit
// dataset ids, catalog groups, and catalog tags (immutable value object).
type Workspace struct {
	id          string
	name        string
	description string
	datasetIDs  []string
	groups      []string
	tags        []string
	createdAt   time.Time
	updatedAt   time.Time
}

// New validates and creates a Workspace. The union of the three selector
// sets must be non-empty; each set is deduplicated preserving order.
func New(id, name, description string, datasetIDs, groups, tags []string, now time.Time) (Workspace, error) {
	if id == "" {
		return Workspace{}, fmt.Errorf("%w: id is required", domain.ErrInvalidWorkspace)
	}
	if name == "" {
		return Workspace{}, fmt.Errorf("%w: name is required", domain.ErrInvalidWorkspace)
	}
	if len(name) > MaxNameLength {
		return Workspace{}, fmt.Errorf("%w: name too long (max %d)", domain.ErrInvalidWorkspace, MaxNameLength)
	}

	datasetIDs = dedupe(datasetIDs)
	groups = dedupe(groups)
	tags = dedupe(tags)

	if len(datasetIDs)+len(groups)+len(tags) == 0 {
		return Workspace{}, fmt.Errorf(
			"%w: at least one dataset id, group, or tag is required", domain.ErrInvalidWorkspace,
		)
	}

	return Workspace{
		id:          id,
		name:        name,
		description: description,
		datasetIDs:  datasetIDs,
		groups:      groups,
		tags:        tags,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct creates a Workspace without validation (storage hydration).
func Reconstruct(
	id, name, description string, datasetIDs, groups, tags []string,
	createdAt, updatedAt time.Time,
) Workspace {
	return Workspace{
		id: id, name: name, description: description,
		datasetIDs: datasetIDs, groups: groups, tags: tags,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// Updated returns a revalidated copy with new fields, keeping the identity
// and creation time.
func (w Workspace) Updated(name, description string, datasetIDs, groups, tags []string, now time.Time) (Workspace, error) {
	next, err := New(w.id, name, description, datasetIDs, groups, tags, now)
	if err != nil {
		return Workspace{}, err
	}
	next.createdAt = w.createdAt
	return next, nil
}

// ID returns the workspace identifier.
func (w Workspace) ID() string { return w.id }

// Name returns the display name.
func (w Workspace) Name() string { return w.name }

// Description returns the free-text description.
func (w Workspace) Description() string { return w.description }

// DatasetIDs returns the explicitly selected dataset ids.
func (w Workspace) DatasetIDs() []string { return cloneStrings(w.datasetIDs) }

// Groups returns the selected catalog group ids.
func (w Workspace) Groups() []string { return cloneStrings(w.groups) }

// Tags returns the selected catalog tags.
func (w Workspace) Tags() []string { return cloneStrings(w.tags) }

// CreatedAt returns the creation time.
func (w Workspace) CreatedAt() time.Time { return w.createdAt }

// UpdatedAt returns the last modification time.
func (w Workspace) UpdatedAt() time.Time { return w.updatedAt }

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
