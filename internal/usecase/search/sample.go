package search

import "github.com/B-Leucht/open-atlas/internal/domain/feature"

// sampleStride bounds a collection to at most max features by even-stride
// selection: index int(i * n/max) for i in [0, max). The sample spreads
// across the original ordering and is deterministic. The result is always
// a copy: callers annotate features and cache entries must stay pristine.
func sampleStride(features feature.Collection, max int) []feature.Feature {
	n := len(features)
	if max <= 0 || n <= max {
		out := make([]feature.Feature, n)
		copy(out, features)
		return out
	}

	stride := float64(n) / float64(max)
	out := make([]feature.Feature, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, features[int(float64(i)*stride)])
	}
	return out
}
