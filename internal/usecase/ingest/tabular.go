package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/B-Leucht/open-atlas/internal/domain/feature"
)

// ErrNoCoordinateColumns signals a table with no detectable lat/lon
// columns; such a dataset is not geospatially usable.
var ErrNoCoordinateColumns = errors.New("no coordinate columns detected")

// Coordinate column patterns, ordered by priority. German aliases come
// from the catalog's municipal datasets.
var (
	latPatterns = []string{"lat", "latitude", "breitengrad", "y", "northing"}
	lonPatterns = []string{"lon", "lng", "longitude", "laengengrad", "längengrad", "x", "easting"}
)

// NormalizeTabular converts delimited text with a header row into point
// features. Coordinate columns are detected heuristically; rows with
// missing or unparseable coordinates are skipped silently.
func NormalizeTabular(data []byte) (feature.Collection, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoCoordinateColumns
	}

	header := records[0]
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	latIdx := detectColumn(normalized, latPatterns)
	lonIdx := detectColumn(normalized, lonPatterns)
	if latIdx < 0 || lonIdx < 0 {
		return nil, ErrNoCoordinateColumns
	}

	features := make(feature.Collection, 0, len(records)-1)
	for _, row := range records[1:] {
		if latIdx >= len(row) || lonIdx >= len(row) {
			continue
		}
		lat, ok := parseCoordinate(row[latIdx])
		if !ok {
			continue
		}
		lon, ok := parseCoordinate(row[lonIdx])
		if !ok {
			continue
		}

		props := make(feature.Properties, len(header)-2)
		for i, h := range header {
			if i == latIdx || i == lonIdx || i >= len(row) {
				continue
			}
			props[strings.TrimSpace(h)] = feature.String(row[i])
		}

		features = append(features, feature.Feature{
			Geometry:   orb.Point{lon, lat},
			Properties: props,
		})
	}

	return features, nil
}

// detectColumn finds the column for one axis. Pass 1 tries exact/prefix
// matches, pass 2 falls back to substring matches; within a pass the
// earliest pattern wins, and within a pattern the earliest column wins.
func detectColumn(headers []string, patterns []string) int {
	for _, p := range patterns {
		for i, h := range headers {
			if h == p || strings.HasPrefix(h, p) {
				return i
			}
		}
	}
	for _, p := range patterns {
		for i, h := range headers {
			if strings.Contains(h, p) {
				return i
			}
		}
	}
	return -1
}

// parseCoordinate parses a cell as a decimal number, normalizing a comma
// decimal separator. Blank cells and parse failures skip the row.
func parseCoordinate(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	cell = strings.ReplaceAll(cell, ",", ".")
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sniffDelimiter picks the field delimiter from the header line. The
// catalog's exports use semicolons when cells carry comma decimals.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.ContainsRune(line, ';') {
		return ';'
	}
	return ','
}
