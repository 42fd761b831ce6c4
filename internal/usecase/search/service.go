// Package search orchestrates cross-dataset feature search: concurrent
// fetch, sampling, merge, text filtering, distance annotation, ranking,
// and pagination.
package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
	"github.com/B-Leucht/open-atlas/internal/domain/feature"
	"github.com/B-Leucht/open-atlas/internal/domain/geo"
)

// Service executes searches over a set of resolved dataset ids.
type Service struct {
	source        FeatureSource
	logger        *zap.Logger
	defaultLimit  int
	maxLimit      int
	maxPerDataset int
	concurrency   int
}

// New creates a search service with conservative defaults.
func New(source FeatureSource, logger *zap.Logger) *Service {
	return &Service{
		source:        source,
		logger:        logger,
		defaultLimit:  20,
		maxLimit:      100,
		maxPerDataset: 500,
		concurrency:   4,
	}
}

// WithPagination configures the default and maximum page sizes.
func (s *Service) WithPagination(defaultLimit, maxLimit int) *Service {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// WithFetch configures the fan-out width and the per-dataset sample cap.
func (s *Service) WithFetch(concurrency, maxPerDataset int) *Service {
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	if maxPerDataset > 0 {
		s.maxPerDataset = maxPerDataset
	}
	return s
}

// Search runs the pipeline over the given dataset ids. Partial results
// from a subset of datasets are expected, not an error; the per-dataset
// reports say which datasets contributed nothing and why.
func (s *Service) Search(ctx context.Context, datasetIDs []string, req Request) (Result, error) {
	limit, offset, maxPer := s.normalize(req)

	outcomes := s.fetchAll(ctx, datasetIDs)

	merged := make([]feature.Feature, 0)
	reports := make(map[string]DatasetReport, len(datasetIDs))
	for i, id := range datasetIDs {
		out := outcomes[i]
		reports[id] = reportFor(id, out)

		sampled := sampleStride(out.Features(), maxPer)
		for j := range sampled {
			sampled[j].DatasetID = id
		}
		merged = append(merged, sampled...)
	}

	filtered := filterByQuery(merged, req.Query)

	if req.Ref != nil {
		annotateDistance(filtered, *req.Ref)
		sortByDistance(filtered)
	}

	for i := range filtered {
		r := reports[filtered[i].DatasetID]
		r.FeatureCount++
		reports[filtered[i].DatasetID] = r
	}

	total := len(filtered)
	page := paginate(filtered, offset, limit)

	return Result{
		Total:    total,
		HasMore:  offset+limit < total,
		Features: page,
		Datasets: reports,
	}, nil
}

// DatasetStats fetches every dataset without filtering and reports raw
// feature counts, for the workspace stats endpoint.
func (s *Service) DatasetStats(ctx context.Context, datasetIDs []string) Stats {
	outcomes := s.fetchAll(ctx, datasetIDs)

	stats := Stats{Datasets: make(map[string]DatasetReport, len(datasetIDs))}
	for i, id := range datasetIDs {
		out := outcomes[i]
		r := reportFor(id, out)
		r.FeatureCount = len(out.Features())
		stats.Datasets[id] = r
		stats.TotalFeatures += r.FeatureCount
	}
	return stats
}

// fetchAll fans out one fetch task per dataset id with bounded
// concurrency. Slots are index-addressed so merge order follows the
// caller's dataset order, not completion order.
func (s *Service) fetchAll(ctx context.Context, datasetIDs []string) []dataset.Outcome {
	outcomes := make([]dataset.Outcome, len(datasetIDs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range datasetIDs {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = s.source.Fetch(ctx, id)
			return nil
		})
	}
	// Fetches degrade instead of erroring, so Wait cannot fail.
	_ = g.Wait()

	return outcomes
}

func (s *Service) normalize(req Request) (limit, offset, maxPer int) {
	limit = req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	offset = req.Offset
	if offset < 0 {
		offset = 0
	}
	maxPer = req.MaxPerDataset
	if maxPer <= 0 {
		maxPer = s.maxPerDataset
	}
	return limit, offset, maxPer
}

func reportFor(id string, out dataset.Outcome) DatasetReport {
	title := out.Title()
	if title == "" {
		title = id
	}
	return DatasetReport{
		Title:       title,
		Unavailable: !out.Available(),
		Reason:      out.Reason(),
	}
}

// filterByQuery keeps features whose property values contain the trimmed,
// lower-cased query as a substring. A blank query keeps everything.
func filterByQuery(features []feature.Feature, query string) []feature.Feature {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return features
	}

	kept := features[:0]
	for _, f := range features {
		if strings.Contains(f.Properties.SearchText(), q) {
			kept = append(kept, f)
		}
	}
	return kept
}

// annotateDistance attaches distance_km to every point feature with
// resolvable geographic coordinates, rounded to two decimals.
func annotateDistance(features []feature.Feature, ref Location) {
	for i := range features {
		pt, ok := features[i].Geometry.(orb.Point)
		if !ok {
			continue
		}
		lat, lon, ok := geo.PointGeographic(pt)
		if !ok {
			continue
		}
		d := math.Round(geo.HaversineKm(ref.Lat, ref.Lon, lat, lon)*100) / 100
		features[i].DistanceKm = &d
	}
}

// sortByDistance stable-sorts ascending; features without a distance rank
// last.
func sortByDistance(features []feature.Feature) {
	dist := func(f feature.Feature) float64 {
		if f.DistanceKm == nil {
			return math.Inf(1)
		}
		return *f.DistanceKm
	}
	sort.SliceStable(features, func(i, j int) bool {
		return dist(features[i]) < dist(features[j])
	})
}

func paginate(features []feature.Feature, offset, limit int) []feature.Feature {
	if offset >= len(features) {
		return []feature.Feature{}
	}
	end := offset + limit
	if end > len(features) {
		end = len(features)
	}
	return features[offset:end]
}
