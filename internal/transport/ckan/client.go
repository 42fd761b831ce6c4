// Package ckan is a client for the open-data catalog's CKAN Action API and
// for downloading dataset resources.
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
	"github.com/B-Leucht/open-atlas/internal/metrics"
)

// DefaultSearchRows caps how many packages a tag or discovery search pulls.
const DefaultSearchRows = 100

// maxResourceBytes bounds a single resource download (64 MB).
const maxResourceBytes = 64 << 20

// Config holds catalog client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	SearchRows int
	Logger     *zap.Logger
}

// Client talks to a CKAN catalog. All calls carry the configured timeout;
// callers treat failures as "no data available", never as fatal.
type Client struct {
	baseURL string
	rows    int
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a catalog client.
func NewClient(cfg *Config) *Client {
	rows := cfg.SearchRows
	if rows <= 0 {
		rows = DefaultSearchRows
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		rows:    rows,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// envelope is the CKAN Action API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

type packageResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Resources []struct {
		Format string `json:"format"`
		URL    string `json:"url"`
	} `json:"resources"`
}

type searchResult struct {
	Count   int `json:"count"`
	Results []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Title        string `json:"title"`
		Notes        string `json:"notes"`
		NumResources int    `json:"num_resources"`
		Tags         []struct {
			Name string `json:"name"`
		} `json:"tags"`
	} `json:"results"`
}

type groupResult struct {
	Packages []struct {
		ID string `json:"id"`
	} `json:"packages"`
}

// Package fetches dataset metadata via package_show.
func (c *Client) Package(ctx context.Context, id string) (dataset.Metadata, error) {
	var res packageResult
	params := url.Values{"id": {id}}
	if err := c.action(ctx, "package_show", params, &res); err != nil {
		return dataset.Metadata{}, err
	}

	meta := dataset.Metadata{ID: res.ID, Name: res.Name, Title: res.Title}
	for _, r := range res.Resources {
		meta.Resources = append(meta.Resources, dataset.Resource{Format: r.Format, URL: r.URL})
	}
	return meta, nil
}

// SearchPackages runs package_search with an optional free-text query and
// an optional tag filter. Returns the matching summaries and the catalog's
// total match count.
func (c *Client) SearchPackages(ctx context.Context, query, tag string) ([]dataset.Summary, int, error) {
	params := url.Values{"rows": {strconv.Itoa(c.rows)}}
	if query != "" {
		params.Set("q", query)
	}
	if tag != "" {
		params.Set("fq", "tags:"+tag)
	}

	var res searchResult
	if err := c.action(ctx, "package_search", params, &res); err != nil {
		return nil, 0, err
	}

	summaries := make([]dataset.Summary, 0, len(res.Results))
	for _, r := range res.Results {
		s := dataset.Summary{
			ID:           r.ID,
			Name:         r.Name,
			Title:        r.Title,
			Notes:        r.Notes,
			NumResources: r.NumResources,
		}
		for _, t := range r.Tags {
			s.Tags = append(s.Tags, t.Name)
		}
		summaries = append(summaries, s)
	}
	return summaries, res.Count, nil
}

// TagPackages returns the ids of datasets carrying the given tag.
func (c *Client) TagPackages(ctx context.Context, tag string) ([]string, error) {
	summaries, _, err := c.SearchPackages(ctx, "", tag)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// GroupPackages returns the ids of a catalog group's member datasets.
func (c *Client) GroupPackages(ctx context.Context, id string) ([]string, error) {
	params := url.Values{"id": {id}, "include_datasets": {"true"}}
	var res groupResult
	if err := c.action(ctx, "group_show", params, &res); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Packages))
	for _, p := range res.Packages {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// FetchResource downloads a resource body from an arbitrary URL declared
// in dataset metadata.
func (c *Client) FetchResource(ctx context.Context, resourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build resource request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch resource: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch resource: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceBytes))
	if err != nil {
		return nil, fmt.Errorf("read resource body: %w", err)
	}
	return body, nil
}

// Ping verifies catalog availability via the free status_show action.
func (c *Client) Ping(ctx context.Context) error {
	var raw json.RawMessage
	if err := c.action(ctx, "status_show", nil, &raw); err != nil {
		return fmt.Errorf("catalog ping: %w", err)
	}
	return nil
}

// action performs a GET against a CKAN action endpoint and decodes the
// success envelope into out.
func (c *Client) action(ctx context.Context, name string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/api/3/action/%s", c.baseURL, name)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.CatalogRequestDuration.WithLabelValues(name).Observe(duration.Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.CatalogRequestsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: unexpected status %d", name, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	if !env.Success {
		metrics.CatalogRequestsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("%s: catalog reported failure", name)
	}

	metrics.CatalogRequestsTotal.WithLabelValues(name, "success").Inc()

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	return nil
}
