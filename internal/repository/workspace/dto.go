package workspace

import (
	"time"

	domws "github.com/B-Leucht/open-atlas/internal/domain/workspace"
)

// dto is the stored JSON shape of a workspace.
type dto struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	DatasetIDs  []string  `json:"dataset_ids,omitempty"`
	Groups      []string  `json:"groups,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newDTO(ws domws.Workspace) dto {
	return dto{
		ID:          ws.ID(),
		Name:        ws.Name(),
		Description: ws.Description(),
		DatasetIDs:  ws.DatasetIDs(),
		Groups:      ws.Groups(),
		Tags:        ws.Tags(),
		CreatedAt:   ws.CreatedAt(),
		UpdatedAt:   ws.UpdatedAt(),
	}
}

func (d dto) toDomain() domws.Workspace {
	return domws.Reconstruct(
		d.ID, d.Name, d.Description,
		d.DatasetIDs, d.Groups, d.Tags,
		d.CreatedAt, d.UpdatedAt,
	)
}
