// Package ingest turns a catalog dataset id into a normalized feature
// collection: metadata lookup, resource selection, download, and format
// normalization. Every failure degrades to an unavailable outcome so one
// bad dataset never poisons a multi-dataset search.
package ingest

import (
	"context"
	"strings"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
	"github.com/B-Leucht/open-atlas/internal/domain/feature"
	"github.com/B-Leucht/open-atlas/internal/metrics"
)

// formatTiers is the resource selection priority. First matching resource
// within the earliest matching tier wins.
var formatTiers = []string{"geojson", "json", "csv"}

// Service fetches and normalizes datasets.
type Service struct {
	catalog Catalog
	logger  *zap.Logger
}

// New creates an ingest service.
func New(catalog Catalog, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// Fetch resolves one dataset to a feature collection outcome. It never
// returns an error: upstream and format failures become unavailable
// outcomes (logged), empty datasets are available with zero features.
func (s *Service) Fetch(ctx context.Context, id string) dataset.Outcome {
	out := s.fetch(ctx, id)
	if out.Available() {
		metrics.DatasetFetchTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.DatasetFetchTotal.WithLabelValues("unavailable").Inc()
		s.logger.Warn("dataset unavailable",
			zap.String("dataset_id", id),
			zap.String("reason", out.Reason()),
		)
	}
	return out
}

func (s *Service) fetch(ctx context.Context, id string) dataset.Outcome {
	meta, err := s.catalog.Package(ctx, id)
	if err != nil {
		return dataset.Unavailable("", "metadata fetch failed: "+err.Error())
	}
	title := meta.DisplayTitle()

	res, format, found := selectResource(meta.Resources)
	if !found {
		return dataset.Unavailable(title, "no usable resource")
	}

	body, err := s.catalog.FetchResource(ctx, res.URL)
	if err != nil {
		return dataset.Unavailable(title, "resource download failed: "+err.Error())
	}

	var features feature.Collection
	switch format {
	case "csv":
		features, err = NormalizeTabular(body)
	default:
		features, err = parseFeatureCollection(body)
	}
	if err != nil {
		return dataset.Unavailable(title, "normalize "+format+": "+err.Error())
	}

	return dataset.Fetched(title, features)
}

// selectResource picks the first resource matching the earliest format
// tier. Format comparison is case-insensitive.
func selectResource(resources []dataset.Resource) (dataset.Resource, string, bool) {
	for _, tier := range formatTiers {
		for _, r := range resources {
			if strings.EqualFold(strings.TrimSpace(r.Format), tier) && r.URL != "" {
				return r, tier, true
			}
		}
	}
	return dataset.Resource{}, "", false
}

// parseFeatureCollection decodes a GeoJSON (or loosely-labeled JSON)
// feature collection body.
func parseFeatureCollection(body []byte) (feature.Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, err
	}
	return feature.FromGeoJSON(fc), nil
}
