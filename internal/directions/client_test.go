package directions_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/saferoute-nyc/saferoute/internal/config"
	"github.com/saferoute-nyc/saferoute/internal/directions"
	"github.com/saferoute-nyc/saferoute/internal/logger"
)

const routeBody = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"geometry": {"type": "LineString", "coordinates": [[-73.996, 40.719], [-73.99, 40.72]]},
		"properties": {"summary": {"distance": 1234.5, "duration": 987.6}}
	}]
}`

var (
	tripStart = orb.Point{-73.996, 40.719}
	tripEnd   = orb.Point{-73.99, 40.72}
)

func newClient(t *testing.T, baseURL string) *directions.Client {
	t.Helper()
	return directions.NewClient(config.DirectionsConfig{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		Timeout:       2 * time.Second,
		MaxAttempts:   3,
		BackoffFactor: time.Millisecond,
	}, logger.NewNop())
}

func TestClient_Directions_Unconfigured(t *testing.T) {
	t.Helper()

	client := directions.NewClient(config.DirectionsConfig{}, logger.NewNop())
	if client.Configured() {
		t.Error("Configured() = true without an API key")
	}

	_, err := client.Directions(context.Background(), tripStart, tripEnd, nil)
	if !errors.Is(err, directions.ErrNoAPIKey) {
		t.Errorf("Directions() error = %v, want ErrNoAPIKey", err)
	}
}

func TestClient_Directions_Success(t *testing.T) {
	t.Helper()

	var received atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Store(true)

		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("Authorization = %q, want test-key", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}

		var req struct {
			Coordinates [][]float64    `json:"coordinates"`
			Options     map[string]any `json:"options"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			t.Errorf("decode error: %v", decodeErr)
		}
		if len(req.Coordinates) != 2 || req.Coordinates[0][0] != -73.996 || req.Coordinates[1][1] != 40.72 {
			t.Errorf("coordinates = %v, want [[-73.996 40.719] [-73.99 40.72]]", req.Coordinates)
		}
		if req.Options != nil {
			t.Errorf("options = %v, want omitted without avoidance", req.Options)
		}

		_, _ = w.Write([]byte(routeBody))
	}))
	defer server.Close()

	route, err := newClient(t, server.URL).Directions(context.Background(), tripStart, tripEnd, nil)
	if err != nil {
		t.Fatalf("Directions() error = %v", err)
	}
	if !received.Load() {
		t.Fatal("expected server to receive the request")
	}

	if route.DistanceMeters != 1234.5 {
		t.Errorf("DistanceMeters = %v, want 1234.5", route.DistanceMeters)
	}
	if route.DurationSeconds != 987.6 {
		t.Errorf("DurationSeconds = %v, want 987.6", route.DurationSeconds)
	}
	if len(route.Geometry) != 2 {
		t.Errorf("Geometry has %d points, want 2", len(route.Geometry))
	}
	if route.Fallback {
		t.Error("Fallback = true for a live route")
	}
}

func TestClient_Directions_AvoidancePayload(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Options struct {
				AvoidPolygons struct {
					Type        string          `json:"type"`
					Coordinates json.RawMessage `json:"coordinates"`
				} `json:"avoid_polygons"`
			} `json:"options"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			t.Errorf("decode error: %v", decodeErr)
		}
		if req.Options.AvoidPolygons.Type != "Polygon" {
			t.Errorf("avoid_polygons type = %q, want Polygon", req.Options.AvoidPolygons.Type)
		}
		if len(req.Options.AvoidPolygons.Coordinates) == 0 {
			t.Error("avoid_polygons coordinates missing from request")
		}

		_, _ = w.Write([]byte(routeBody))
	}))
	defer server.Close()

	avoid := &directions.Avoidance{Geometry: orb.Polygon{orb.Ring{
		{-73.995, 40.718}, {-73.993, 40.718}, {-73.993, 40.72}, {-73.995, 40.72}, {-73.995, 40.718},
	}}}
	if _, err := newClient(t, server.URL).Directions(context.Background(), tripStart, tripEnd, avoid); err != nil {
		t.Fatalf("Directions() error = %v", err)
	}
}

func TestClient_Directions_RateLimitRetries(t *testing.T) {
	t.Helper()

	var requestCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requestCount.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Directions(context.Background(), tripStart, tripEnd, nil)
	var rerr *directions.RoutingError
	if !errors.As(err, &rerr) {
		t.Fatalf("Directions() error = %v, want *RoutingError", err)
	}
	if rerr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", rerr.StatusCode)
	}
	if got := requestCount.Load(); got != 3 {
		t.Errorf("engine called %d times, want 3 attempts", got)
	}
}

func TestClient_Directions_BadRequestNotRetried(t *testing.T) {
	t.Helper()

	var requestCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requestCount.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "bad coordinates"}`))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Directions(context.Background(), tripStart, tripEnd, nil)
	var rerr *directions.RoutingError
	if !errors.As(err, &rerr) {
		t.Fatalf("Directions() error = %v, want *RoutingError", err)
	}
	if rerr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", rerr.StatusCode)
	}
	if rerr.Message != "bad coordinates" {
		t.Errorf("Message = %q, want bad coordinates", rerr.Message)
	}
	if got := requestCount.Load(); got != 1 {
		t.Errorf("engine called %d times, want 1 with no retry", got)
	}
}

func TestClient_Directions_EmptyRouteNotRetried(t *testing.T) {
	t.Helper()

	var requestCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requestCount.Add(1)
		_, _ = w.Write([]byte(`{"type": "FeatureCollection", "features": []}`))
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Directions(context.Background(), tripStart, tripEnd, nil)
	var rerr *directions.RoutingError
	if !errors.As(err, &rerr) {
		t.Fatalf("Directions() error = %v, want *RoutingError", err)
	}
	if got := requestCount.Load(); got != 1 {
		t.Errorf("engine called %d times, want 1 with no retry", got)
	}
}

func TestFallback(t *testing.T) {
	t.Helper()

	route := directions.Fallback(tripStart, tripEnd)
	if route.DistanceMeters != 1000 {
		t.Errorf("DistanceMeters = %v, want 1000", route.DistanceMeters)
	}
	if route.DurationSeconds != 900 {
		t.Errorf("DurationSeconds = %v, want 900", route.DurationSeconds)
	}
	if len(route.Geometry) != 2 || route.Geometry[0] != tripStart || route.Geometry[1] != tripEnd {
		t.Errorf("Geometry = %v, want straight segment start to end", route.Geometry)
	}
	if !route.Fallback {
		t.Error("Fallback = false for the synthetic route")
	}
}
