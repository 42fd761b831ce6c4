package search

import "github.com/B-Leucht/open-atlas/internal/domain/feature"

// Location is a geographic reference point for proximity ranking.
type Location struct {
	Lat float64
	Lon float64
}

// Request holds one search's parameters. Zero Limit/MaxPerDataset fall
// back to the service defaults; Ref nil disables distance annotation.
type Request struct {
	Query         string
	Ref           *Location
	Limit         int
	Offset        int
	MaxPerDataset int
}

// DatasetReport describes one requested dataset's contribution to a
// result, present for every requested dataset id so callers can tell "no
// matches" from "source unavailable".
type DatasetReport struct {
	Title        string `json:"title"`
	FeatureCount int    `json:"feature_count"`
	Unavailable  bool   `json:"unavailable,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Result is one page of merged, ranked features.
type Result struct {
	Total    int
	HasMore  bool
	Features []feature.Feature
	Datasets map[string]DatasetReport
}

// Stats summarizes a workspace's datasets without filtering.
type Stats struct {
	TotalFeatures int
	Datasets      map[string]DatasetReport
}
