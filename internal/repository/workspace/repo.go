// Package workspace persists workspace records as JSON values in the
// key-value store.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/B-Leucht/open-atlas/internal/db"
	"github.com/B-Leucht/open-atlas/internal/domain"
	domws "github.com/B-Leucht/open-atlas/internal/domain/workspace"
)

// store is the consumer interface for workspace persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/workspace.Repository.
type Repo struct {
	store store
}

// New creates a workspace repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a new workspace, failing if the id is taken.
func (r *Repo) Create(ctx context.Context, ws domws.Workspace) error {
	key := wsKey(ws.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	return r.put(ctx, key, ws)
}

// Get retrieves a workspace by id.
func (r *Repo) Get(ctx context.Context, id string) (domws.Workspace, error) {
	data, err := r.store.Get(ctx, wsKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domws.Workspace{}, domain.ErrNotFound
		}
		return domws.Workspace{}, fmt.Errorf("get workspace %s: %w", id, err)
	}

	return workspaceFromJSON(data)
}

// Update overwrites an existing workspace.
func (r *Repo) Update(ctx context.Context, ws domws.Workspace) error {
	key := wsKey(ws.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	return r.put(ctx, key, ws)
}

// Delete removes a workspace by id.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := wsKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del workspace %s: %w", id, err)
	}
	return nil
}

// List returns all workspaces sorted by creation time.
func (r *Repo) List(ctx context.Context) ([]domws.Workspace, error) {
	keys, err := r.store.Scan(ctx, wsKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan workspaces: %w", err)
	}

	workspaces := make([]domws.Workspace, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("get workspace %s: %w", key, err)
		}
		ws, err := workspaceFromJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse workspace %s: %w", key, err)
		}
		workspaces = append(workspaces, ws)
	}

	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].CreatedAt().Before(workspaces[j].CreatedAt())
	})

	return workspaces, nil
}

func (r *Repo) put(ctx context.Context, key string, ws domws.Workspace) error {
	data, err := workspaceToJSON(ws)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("set workspace %s: %w", ws.ID(), err)
	}
	return nil
}

// Key pattern: atlas:workspace:{id}

func wsKey(id string) string {
	return fmt.Sprintf("%sworkspace:%s", domain.KeyPrefix, id)
}

func workspaceToJSON(ws domws.Workspace) ([]byte, error) {
	data, err := json.Marshal(newDTO(ws))
	if err != nil {
		return nil, fmt.Errorf("marshal workspace %s: %w", ws.ID(), err)
	}
	return data, nil
}

func workspaceFromJSON(data []byte) (domws.Workspace, error) {
	var d dto
	if err := json.Unmarshal(data, &d); err != nil {
		return domws.Workspace{}, fmt.Errorf("unmarshal workspace: %w", err)
	}
	return d.toDomain(), nil
}
