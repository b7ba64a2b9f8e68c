package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"corral/internal/cluster"
	"corral/internal/fleet"
	"corral/internal/lifecycle"
)

// fakeFleet scripts coordinator responses.
type fakeFleet struct {
	state     *lifecycle.FleetState
	err       error
	lastName  string
	requested fleet.RequestedStatus
}

func (f *fakeFleet) Describe(_ context.Context, name string) (*lifecycle.FleetState, error) {
	f.lastName = name
	return f.state, f.err
}

func (f *fakeFleet) Update(_ context.Context, name string, requested fleet.RequestedStatus) (*lifecycle.FleetState, error) {
	f.lastName = name
	f.requested = requested
	return f.state, f.err
}

func testServer(f *fakeFleet, token string) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewServer(f, cluster.NewRegistry(logger), token, logger)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestDescribeComputeFleet(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ff := &fakeFleet{state: &lifecycle.FleetState{Status: fleet.StatusRunning, LastUpdatedAt: ts}}
	s := testServer(ff, "")

	rr := doRequest(t, s, http.MethodGet, "/v1/clusters/c1/computefleet", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ff.lastName != "c1" {
		t.Errorf("cluster = %q", ff.lastName)
	}

	var resp struct {
		Status                string    `json:"status"`
		LastStatusUpdatedTime time.Time `json:"lastStatusUpdatedTime"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != "RUNNING" || !resp.LastStatusUpdatedTime.Equal(ts) {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUpdateComputeFleet(t *testing.T) {
	ff := &fakeFleet{state: &lifecycle.FleetState{Status: fleet.StatusStarting, LastUpdatedAt: time.Now()}}
	s := testServer(ff, "")

	rr := doRequest(t, s, http.MethodPatch, "/v1/clusters/c1/computefleet", `{"status":"START_REQUESTED"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ff.requested != fleet.RequestedStart {
		t.Errorf("requested = %q", ff.requested)
	}
}

func TestUpdateRequiresStatus(t *testing.T) {
	s := testServer(&fakeFleet{}, "")

	rr := doRequest(t, s, http.MethodPatch, "/v1/clusters/c1/computefleet", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}
	rr = doRequest(t, s, http.MethodPatch, "/v1/clusters/c1/computefleet", `not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestErrorKindMapping(t *testing.T) {
	cases := []struct {
		kind fleet.ErrorKind
		want int
	}{
		{fleet.KindNotFound, http.StatusNotFound},
		{fleet.KindIncompatibleVersion, http.StatusBadRequest},
		{fleet.KindInvalidRequest, http.StatusBadRequest},
		{fleet.KindInvalidState, http.StatusConflict},
		{fleet.KindBackendRejected, http.StatusConflict},
		{fleet.KindConflict, http.StatusConflict},
		{fleet.KindBackendUnavailable, http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		ff := &fakeFleet{err: &fleet.Error{Kind: c.kind, Message: "msg"}}
		s := testServer(ff, "")

		rr := doRequest(t, s, http.MethodGet, "/v1/clusters/c1/computefleet", "")
		if rr.Code != c.want {
			t.Errorf("%s: status = %d, want %d", c.kind, rr.Code, c.want)
		}

		var e struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
			t.Fatalf("%s: invalid json: %v", c.kind, err)
		}
		if e.Kind != string(c.kind) || e.Message != "msg" {
			t.Errorf("%s: error body = %+v", c.kind, e)
		}
	}
}

func TestUnknownResource(t *testing.T) {
	s := testServer(&fakeFleet{}, "")

	for _, path := range []string{"/v1/clusters/c1", "/v1/clusters/c1/fleet", "/v1/clusters//computefleet"} {
		rr := doRequest(t, s, http.MethodGet, path, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rr.Code)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := testServer(&fakeFleet{}, "")
	rr := doRequest(t, s, http.MethodDelete, "/v1/clusters/c1/computefleet", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ff := &fakeFleet{state: &lifecycle.FleetState{Status: fleet.StatusRunning, LastUpdatedAt: time.Now()}}
	s := testServer(ff, "secret")

	rr := doRequest(t, s, http.MethodGet, "/v1/clusters/c1/computefleet", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/clusters/c1/computefleet", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", rec.Code)
	}

	// Health stays open for probes.
	rr = doRequest(t, s, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", rr.Code)
	}
}

func TestListClusters(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	registry := cluster.NewRegistry(logger)
	registry.Observe(cluster.Ref{Name: "c1", Scheduler: cluster.SchedulerNodeManager, Version: "3.9.1"})
	s := NewServer(&fakeFleet{}, registry, "", logger)

	rr := doRequest(t, s, http.MethodGet, "/v1/clusters", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Clusters []struct {
			Name      string `json:"name"`
			Scheduler string `json:"scheduler"`
		} `json:"clusters"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Clusters) != 1 || resp.Clusters[0].Name != "c1" || resp.Clusters[0].Scheduler != "nodemgr" {
		t.Errorf("resp = %+v", resp)
	}
}
