package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"corral/internal/cluster"
	"corral/internal/fleet"
	"corral/internal/lifecycle"
	"corral/internal/metrics"
)

// Fleet is the slice of the coordinator the API needs.
type Fleet interface {
	Describe(ctx context.Context, clusterName string) (*lifecycle.FleetState, error)
	Update(ctx context.Context, clusterName string, requested fleet.RequestedStatus) (*lifecycle.FleetState, error)
}

// Server is the corral HTTP API server.
type Server struct {
	fleet     Fleet
	registry  *cluster.Registry
	authToken string
	logger    *slog.Logger
	startAt   time.Time
}

// NewServer creates a new API server. registry may be nil, in which case
// the cluster listing endpoint always returns an empty list.
func NewServer(coordinator Fleet, registry *cluster.Registry, authToken string, logger *slog.Logger) *Server {
	return &Server{
		fleet:     coordinator,
		registry:  registry,
		authToken: authToken,
		logger:    logger.With("component", "api"),
		startAt:   time.Now(),
	}
}

// Handler returns an http.Handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/clusters", s.handleClusters)
	mux.HandleFunc("/v1/clusters/", s.handleCluster)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return s.authMiddleware(mux)
}

// authMiddleware checks for a valid Bearer token if one is configured.
// Health and metrics stay open for probes and scrapers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" && r.URL.Path != "/healthz" && r.URL.Path != "/metrics" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.authToken {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid bearer token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
		return
	}

	type clusterResp struct {
		Name      string    `json:"name"`
		Scheduler string    `json:"scheduler"`
		Version   string    `json:"version"`
		LastSeen  time.Time `json:"lastSeen"`
	}

	result := []clusterResp{}
	if s.registry != nil {
		for _, k := range s.registry.List() {
			result = append(result, clusterResp{
				Name:      k.Ref.Name,
				Scheduler: string(k.Ref.Scheduler),
				Version:   k.Ref.Version,
				LastSeen:  k.LastSeenAt,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": result})
}

// handleCluster routes /v1/clusters/{name}/computefleet.
func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/clusters/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "computefleet" {
		writeError(w, http.StatusNotFound, "NotFound", "unknown resource")
		return
	}
	clusterName := parts[0]

	switch r.Method {
	case http.MethodGet:
		s.describeComputeFleet(w, r, clusterName)
	case http.MethodPatch:
		s.updateComputeFleet(w, r, clusterName)
	default:
		writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	}
}

// fleetResponse is the wire shape for both describe and update.
type fleetResponse struct {
	Status                string    `json:"status"`
	LastStatusUpdatedTime time.Time `json:"lastStatusUpdatedTime"`
}

func (s *Server) describeComputeFleet(w http.ResponseWriter, r *http.Request, clusterName string) {
	st, err := s.fleet.Describe(r.Context(), clusterName)
	if err != nil {
		s.writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fleetResponse{
		Status:                string(st.Status),
		LastStatusUpdatedTime: st.LastUpdatedAt,
	})
}

func (s *Server) updateComputeFleet(w http.ResponseWriter, r *http.Request, clusterName string) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid json body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "status is required")
		return
	}

	st, err := s.fleet.Update(r.Context(), clusterName, fleet.RequestedStatus(req.Status))
	if err != nil {
		s.writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, fleetResponse{
		Status:                string(st.Status),
		LastStatusUpdatedTime: st.LastUpdatedAt,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startAt).String(),
	})
}

// writeFleetError maps the coordinator's error taxonomy to HTTP statuses.
// Untagged errors read as internal faults with no detail leaked.
func (s *Server) writeFleetError(w http.ResponseWriter, err error) {
	var fe *fleet.Error
	if !errors.As(err, &fe) {
		s.logger.Error("unclassified error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch fe.Kind {
	case fleet.KindNotFound:
		status = http.StatusNotFound
	case fleet.KindIncompatibleVersion, fleet.KindInvalidRequest:
		status = http.StatusBadRequest
	case fleet.KindInvalidState, fleet.KindBackendRejected, fleet.KindConflict:
		status = http.StatusConflict
	case fleet.KindBackendUnavailable:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, string(fe.Kind), fe.Message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"kind": kind, "message": message})
}
