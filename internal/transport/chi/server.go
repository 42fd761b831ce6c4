// Package chi exposes the HTTP API: workspace CRUD, workspace search,
// dataset discovery, stats, and health.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/B-Leucht/open-atlas/internal/domain"
	"github.com/B-Leucht/open-atlas/internal/domain/dataset"
	domws "github.com/B-Leucht/open-atlas/internal/domain/workspace"
	healthuc "github.com/B-Leucht/open-atlas/internal/usecase/health"
	searchuc "github.com/B-Leucht/open-atlas/internal/usecase/search"
	workspaceuc "github.com/B-Leucht/open-atlas/internal/usecase/workspace"
)

// Resolver expands a workspace to its dataset ids.
type Resolver interface {
	Resolve(ctx context.Context, ws domws.Workspace) []string
}

// Discovery searches the catalog for datasets to add to workspaces.
type Discovery interface {
	SearchPackages(ctx context.Context, query, tag string) ([]dataset.Summary, int, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server wires the use case services to chi routes.
type Server struct {
	workspaces    *workspaceuc.Service
	search        *searchuc.Service
	resolver      Resolver
	discovery     Discovery
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	workspaces *workspaceuc.Service,
	search *searchuc.Service,
	resolver Resolver,
	discovery Discovery,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		workspaces: workspaces,
		search:     search,
		resolver:   resolver,
		discovery:  discovery,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidWorkspace, http.StatusBadRequest, "invalid_workspace"),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, "invalid_query"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "workspace_not_found"),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, "workspace_already_exists"),
	}
	return s
}

// Register mounts all routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Route("/workspaces", func(r chi.Router) {
		r.Post("/", s.createWorkspace)
		r.Get("/", s.listWorkspaces)
		r.Route("/{workspaceID}", func(r chi.Router) {
			r.Get("/", s.getWorkspace)
			r.Put("/", s.updateWorkspace)
			r.Delete("/", s.deleteWorkspace)
			r.Get("/datasets", s.workspaceDatasets)
			r.Get("/search", s.searchWorkspace)
			r.Get("/stats", s.workspaceStats)
		})
	})
	r.Get("/datasets/search", s.discoverDatasets)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())
}

// workspaceRequest is the JSON body for create and update.
type workspaceRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DatasetIDs  []string `json:"dataset_ids"`
	Groups      []string `json:"groups"`
	Tags        []string `json:"tags"`
}

func (r workspaceRequest) fields() workspaceuc.Fields {
	return workspaceuc.Fields{
		Name:        r.Name,
		Description: r.Description,
		DatasetIDs:  r.DatasetIDs,
		Groups:      r.Groups,
		Tags:        r.Tags,
	}
}

// createWorkspace handles POST /workspaces.
func (s *Server) createWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	ws, err := s.workspaces.Create(r.Context(), req.fields())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, workspaceToJSON(ws))
}

// listWorkspaces handles GET /workspaces.
func (s *Server) listWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.workspaces.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]map[string]any, len(workspaces))
	for i, ws := range workspaces {
		items[i] = workspaceToJSON(ws)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// getWorkspace handles GET /workspaces/{workspaceID}.
func (s *Server) getWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaces.Get(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceToJSON(ws))
}

// updateWorkspace handles PUT /workspaces/{workspaceID}.
func (s *Server) updateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req workspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	ws, err := s.workspaces.Update(r.Context(), chi.URLParam(r, "workspaceID"), req.fields())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceToJSON(ws))
}

// deleteWorkspace handles DELETE /workspaces/{workspaceID}.
func (s *Server) deleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.workspaces.Delete(r.Context(), chi.URLParam(r, "workspaceID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// workspaceDatasets handles GET /workspaces/{workspaceID}/datasets.
func (s *Server) workspaceDatasets(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaces.Get(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ids := s.resolver.Resolve(r.Context(), ws)
	writeJSON(w, http.StatusOK, map[string]any{"dataset_ids": ids, "count": len(ids)})
}

// searchWorkspace handles GET /workspaces/{workspaceID}/search.
func (s *Server) searchWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaces.Get(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	req, err := searchRequestFromQuery(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ids := s.resolver.Resolve(r.Context(), ws)
	result, err := s.search.Search(r.Context(), ids, req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	features := make([]any, len(result.Features))
	for i, f := range result.Features {
		features[i] = f.ToGeoJSON()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":    req.Query,
		"total":    result.Total,
		"count":    len(result.Features),
		"has_more": result.HasMore,
		"limit":    req.Limit,
		"offset":   req.Offset,
		"results":  features,
		"datasets": result.Datasets,
	})
}

// workspaceStats handles GET /workspaces/{workspaceID}/stats.
func (s *Server) workspaceStats(w http.ResponseWriter, r *http.Request) {
	ws, err := s.workspaces.Get(r.Context(), chi.URLParam(r, "workspaceID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ids := s.resolver.Resolve(r.Context(), ws)
	stats := s.search.DatasetStats(r.Context(), ids)

	writeJSON(w, http.StatusOK, map[string]any{
		"total_features": stats.TotalFeatures,
		"data_sources":   len(ids),
		"datasets":       stats.Datasets,
	})
}

// discoverDatasets handles GET /datasets/search.
func (s *Server) discoverDatasets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	tag := r.URL.Query().Get("tag")

	summaries, count, err := s.discovery.SearchPackages(r.Context(), query, tag)
	if err != nil {
		s.logger.Warn("dataset discovery failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog_unavailable", "Catalog search failed")
		return
	}

	items := make([]map[string]any, len(summaries))
	for i, sum := range summaries {
		items[i] = map[string]any{
			"id":            sum.ID,
			"name":          sum.Name,
			"title":         sum.Title,
			"notes":         sum.Notes,
			"num_resources": sum.NumResources,
			"tags":          sum.Tags,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count, "results": items})
}

// healthz handles GET /healthz.
func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"status": report.Status, "checks": report.Checks})
}

// searchRequestFromQuery parses search parameters; lat/lon must come as a
// pair.
func searchRequestFromQuery(r *http.Request) (searchuc.Request, error) {
	q := r.URL.Query()
	req := searchuc.Request{Query: q.Get("q")}

	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if (latStr == "") != (lonStr == "") {
		return searchuc.Request{}, fmt.Errorf("%w: lat and lon must be supplied together", domain.ErrInvalidQuery)
	}
	if latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return searchuc.Request{}, fmt.Errorf("%w: lat must be a number", domain.ErrInvalidQuery)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return searchuc.Request{}, fmt.Errorf("%w: lon must be a number", domain.ErrInvalidQuery)
		}
		req.Ref = &searchuc.Location{Lat: lat, Lon: lon}
	}

	var err error
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		return searchuc.Request{}, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidQuery)
	}
	if req.Offset, err = intParam(q.Get("offset")); err != nil {
		return searchuc.Request{}, fmt.Errorf("%w: offset must be a non-negative integer", domain.ErrInvalidQuery)
	}

	return req, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid integer")
	}
	return v, nil
}

func workspaceToJSON(ws domws.Workspace) map[string]any {
	return map[string]any{
		"id":          ws.ID(),
		"name":        ws.Name(),
		"description": ws.Description(),
		"dataset_ids": ws.DatasetIDs(),
		"groups":      ws.Groups(),
		"tags":        ws.Tags(),
		"created_at":  ws.CreatedAt(),
		"updated_at":  ws.UpdatedAt(),
	}
}

// handleDomainError maps domain errors to HTTP responses via the ordered
// handler chain; unmatched errors become a logged 500.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "Internal error")
}

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
