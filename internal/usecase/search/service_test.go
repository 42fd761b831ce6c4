package search

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
	"github.com/B-Leucht/open-atlas/internal/domain/feature"
)

// --- Mocks ---

type mockSource struct {
	outcomes map[string]dataset.Outcome
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (m *mockSource) Fetch(_ context.Context, id string) dataset.Outcome {
	cur := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if cur <= p || m.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	defer m.inFlight.Add(-1)

	if out, ok := m.outcomes[id]; ok {
		return out
	}
	return dataset.Unavailable("", "unknown dataset")
}

func pointFeature(name string, lon, lat float64) feature.Feature {
	return feature.Feature{
		Geometry:   orb.Point{lon, lat},
		Properties: feature.Properties{"name": feature.String(name)},
	}
}

func newTestService(src FeatureSource) *Service {
	return New(src, zap.NewNop())
}

// --- Search ---

func TestSearch_MergesInDatasetOrder(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{pointFeature("a", 11.5, 48.1)}),
		"ds-2": dataset.Fetched("Two", feature.Collection{pointFeature("b", 11.6, 48.2)}),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1", "ds-2"}, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("total = %d", res.Total)
	}
	if res.Features[0].DatasetID != "ds-1" || res.Features[1].DatasetID != "ds-2" {
		t.Errorf("merge order broken: %s, %s", res.Features[0].DatasetID, res.Features[1].DatasetID)
	}
}

func TestSearch_QueryFilterCaseInsensitive(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{
			pointFeature("Marienplatz", 11.5, 48.1),
			pointFeature("Olympiapark", 11.55, 48.17),
		}),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{Query: "  MARIEN  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("total = %d, want 1", res.Total)
	}
	if res.Features[0].Properties["name"].String() != "Marienplatz" {
		t.Errorf("wrong feature kept: %v", res.Features[0].Properties)
	}
}

func TestSearch_QueryMatchesNumericPropertyText(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{
			{Geometry: orb.Point{11.5, 48.1}, Properties: feature.Properties{"id": feature.Number(80331)}},
			{Geometry: orb.Point{11.6, 48.2}, Properties: feature.Properties{"id": feature.Number(12345)}},
		}),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{Query: "8033"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("total = %d, want 1 via the id's string form", res.Total)
	}
}

func TestSearch_DistanceAnnotationAndSort(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{
			pointFeature("far", 11.7, 48.4),
			pointFeature("near", 11.575, 48.137),
			// No geometry: must sort last, without a distance.
			{Properties: feature.Properties{"name": feature.String("nowhere")}},
		}),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{
		Ref: &Location{Lat: 48.137, Lon: 11.575},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("total = %d", res.Total)
	}

	if res.Features[0].Properties["name"].String() != "near" {
		t.Errorf("nearest not first: %v", res.Features[0].Properties)
	}
	if res.Features[2].Properties["name"].String() != "nowhere" {
		t.Errorf("distanceless feature not last: %v", res.Features[2].Properties)
	}
	if res.Features[0].DistanceKm == nil || *res.Features[0].DistanceKm != 0 {
		t.Errorf("nearest distance = %v, want 0", res.Features[0].DistanceKm)
	}
	if res.Features[2].DistanceKm != nil {
		t.Error("distanceless feature got a distance")
	}
}

func TestSearch_DistanceRoundedToTwoDecimals(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{pointFeature("spot", 11.6, 48.2)}),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{
		Ref: &Location{Lat: 48.137, Lon: 11.575},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := *res.Features[0].DistanceKm
	if d*100 != float64(int64(d*100)) {
		t.Errorf("distance %v not rounded to 2 decimals", d)
	}
}

func TestSearch_Pagination(t *testing.T) {
	col := make(feature.Collection, 0, 25)
	for i := 0; i < 25; i++ {
		col = append(col, pointFeature("spot", 11.5, 48.1))
	}
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", col),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{Limit: 10, Offset: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 25 {
		t.Errorf("total = %d", res.Total)
	}
	if len(res.Features) != 5 {
		t.Errorf("page size = %d, want 5", len(res.Features))
	}
	if res.HasMore {
		t.Error("HasMore should be false on the final page")
	}

	res, err = svc.Search(context.Background(), []string{"ds-1"}, Request{Limit: 10, Offset: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasMore {
		t.Error("HasMore should be true with 15 remaining")
	}
}

func TestSearch_OffsetBeyondTotal(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{pointFeature("spot", 11.5, 48.1)}),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{Limit: 10, Offset: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Features) != 0 {
		t.Errorf("expected empty page, got %d", len(res.Features))
	}
	if res.Total != 1 {
		t.Errorf("total = %d", res.Total)
	}
}

func TestSearch_LimitClampedToMax(t *testing.T) {
	col := make(feature.Collection, 0, 30)
	for i := 0; i < 30; i++ {
		col = append(col, pointFeature("spot", 11.5, 48.1))
	}
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", col),
	}}
	svc := newTestService(src).WithPagination(5, 10)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{Limit: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Features) != 10 {
		t.Errorf("page size = %d, want clamped 10", len(res.Features))
	}

	res, err = svc.Search(context.Background(), []string{"ds-1"}, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Features) != 5 {
		t.Errorf("page size = %d, want default 5", len(res.Features))
	}
}

func TestSearch_PerDatasetSampling(t *testing.T) {
	col := make(feature.Collection, 0, 50)
	for i := 0; i < 50; i++ {
		col = append(col, pointFeature("spot", 11.5, 48.1))
	}
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", col),
	}}
	svc := newTestService(src).WithFetch(2, 10)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{Limit: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 10 {
		t.Errorf("total = %d, want sampled 10", res.Total)
	}
}

func TestSearch_UnavailableDatasetReported(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-ok": dataset.Fetched("Working", feature.Collection{
			pointFeature("a", 11.5, 48.1),
			pointFeature("b", 11.6, 48.2),
			pointFeature("c", 11.7, 48.3),
		}),
		"ds-broken": dataset.Unavailable("Broken", "download failed"),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-ok", "ds-broken"}, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("total = %d, want 3 from the working dataset", res.Total)
	}

	ok := res.Datasets["ds-ok"]
	if ok.Unavailable || ok.FeatureCount != 3 || ok.Title != "Working" {
		t.Errorf("ds-ok report = %+v", ok)
	}
	broken := res.Datasets["ds-broken"]
	if !broken.Unavailable || broken.Reason != "download failed" || broken.FeatureCount != 0 {
		t.Errorf("ds-broken report = %+v", broken)
	}
}

func TestSearch_ReportCountsFilteredFeatures(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{
			pointFeature("match", 11.5, 48.1),
			pointFeature("other", 11.6, 48.2),
		}),
	}}
	svc := newTestService(src)

	res, err := svc.Search(context.Background(), []string{"ds-1"}, Request{Query: "match"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Datasets["ds-1"].FeatureCount; got != 1 {
		t.Errorf("report count = %d, want post-filter 1", got)
	}
}

func TestSearch_ConcurrencyBounded(t *testing.T) {
	outcomes := make(map[string]dataset.Outcome)
	ids := make([]string, 0, 16)
	for _, id := range []string{
		"a", "b", "c", "d", "e", "f", "g", "h",
		"i", "j", "k", "l", "m", "n", "o", "p",
	} {
		outcomes[id] = dataset.Fetched(id, feature.Collection{})
		ids = append(ids, id)
	}
	src := &mockSource{outcomes: outcomes}
	svc := newTestService(src).WithFetch(3, 0)

	if _, err := svc.Search(context.Background(), ids, Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak := src.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency %d exceeded limit 3", peak)
	}
}

func TestSearch_NoDatasets(t *testing.T) {
	svc := newTestService(&mockSource{})

	res, err := svc.Search(context.Background(), nil, Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Features) != 0 || res.HasMore {
		t.Errorf("unexpected result: %+v", res)
	}
}

// --- DatasetStats ---

func TestDatasetStats(t *testing.T) {
	src := &mockSource{outcomes: map[string]dataset.Outcome{
		"ds-1": dataset.Fetched("One", feature.Collection{
			pointFeature("a", 11.5, 48.1),
			pointFeature("b", 11.6, 48.2),
		}),
		"ds-2": dataset.Unavailable("Two", "gone"),
	}}
	svc := newTestService(src)

	stats := svc.DatasetStats(context.Background(), []string{"ds-1", "ds-2"})
	if stats.TotalFeatures != 2 {
		t.Errorf("total = %d", stats.TotalFeatures)
	}
	if stats.Datasets["ds-1"].FeatureCount != 2 {
		t.Errorf("ds-1 count = %d", stats.Datasets["ds-1"].FeatureCount)
	}
	if !stats.Datasets["ds-2"].Unavailable {
		t.Error("ds-2 should be reported unavailable")
	}
}
