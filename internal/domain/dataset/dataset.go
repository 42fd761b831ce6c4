// Package dataset holds catalog dataset metadata and the per-dataset fetch
// outcome type.
package dataset

import "github.com/B-Leucht/open-atlas/internal/domain/feature"

// Resource is one downloadable representation of a dataset.
type Resource struct {
	Format string
	URL    string
}

// Metadata is the catalog's description of a dataset. It lives only as
// long as the cache entry derived from it.
type Metadata struct {
	ID        string
	Name      string
	Title     string
	Resources []Resource
}

// DisplayTitle returns the best human-readable name available.
func (m Metadata) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// Summary is one catalog search hit, used for dataset discovery.
type Summary struct {
	ID           string
	Name         string
	Title        string
	Notes        string
	NumResources int
	Tags         []string
}

// Outcome is the explicit result of fetching one dataset: either a
// normalized feature collection or an unavailability reason. It replaces
// blanket error-to-empty coercion so the orchestrator can report which
// datasets contributed nothing and why.
type Outcome struct {
	title    string
	features feature.Collection
	reason   string
	ok       bool
}

// Fetched creates a successful outcome.
func Fetched(title string, features feature.Collection) Outcome {
	return Outcome{title: title, features: features, ok: true}
}

// Unavailable creates a degraded outcome. title may be empty when metadata
// itself was unreachable.
func Unavailable(title, reason string) Outcome {
	return Outcome{title: title, reason: reason}
}

// Available reports whether the dataset produced a usable collection.
func (o Outcome) Available() bool { return o.ok }

// Title returns the dataset title captured during the fetch ("" if none).
func (o Outcome) Title() string { return o.title }

// Features returns the normalized collection (empty when unavailable).
func (o Outcome) Features() feature.Collection { return o.features }

// Reason returns the unavailability reason ("" when available).
func (o Outcome) Reason() string { return o.reason }
