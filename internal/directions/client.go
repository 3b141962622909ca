// Package directions calls the external walking-directions engine and
// degrades to a synthetic straight-line route when it cannot.
package directions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/saferoute-nyc/saferoute/internal/config"
	apperrors "github.com/saferoute-nyc/saferoute/internal/errors"
	"github.com/saferoute-nyc/saferoute/internal/httpclient"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/retry"
)

// Synthetic route values used when the engine cannot be reached.
const (
	fallbackDistanceMeters  = 1000
	fallbackDurationSeconds = 900
)

// ErrNoAPIKey signals that no directions credential is configured. Callers
// treat it as a soft condition and fall back to the straight-line route.
var ErrNoAPIKey = errors.New("no directions API key configured")

// RoutingError is an unrecoverable upstream directions failure: rate
// limiting beyond the retry budget, a non-2xx response, or a response
// without usable route geometry.
type RoutingError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("directions engine error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("directions engine error: %s", e.Message)
}

// Route is one computed walking route.
type Route struct {
	DistanceMeters  float64
	DurationSeconds float64
	Geometry        orb.LineString
	Fallback        bool
}

// Avoidance is the avoid-areas constraint passed to the engine: a single
// Polygon or MultiPolygon, passed through opaquely.
type Avoidance struct {
	Geometry orb.Geometry
}

// Client calls the walking-directions engine.
type Client struct {
	cfg  config.DirectionsConfig
	http *http.Client
	log  logger.Logger
}

// NewClient builds a directions client from cfg.
func NewClient(cfg config.DirectionsConfig, log logger.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: httpclient.New(&httpclient.Config{Timeout: cfg.Timeout}),
		log:  log,
	}
}

// Configured reports whether a directions credential is present. It lets
// callers distinguish the silent no-credential degradation from a live
// engine failure.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

type directionsRequest struct {
	Coordinates [][2]float64       `json:"coordinates"`
	Options     *directionsOptions `json:"options,omitempty"`
}

type directionsOptions struct {
	AvoidPolygons *geojson.Geometry `json:"avoid_polygons,omitempty"`
}

// Directions requests a walking route from start to end, both in lon/lat
// order. Rate limiting and transport failures are retried with linear
// backoff; any other upstream failure is returned immediately as a
// *RoutingError.
func (c *Client) Directions(ctx context.Context, start, end orb.Point, avoid *Avoidance) (*Route, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}

	body := directionsRequest{
		Coordinates: [][2]float64{{start[0], start[1]}, {end[0], end[1]}},
	}
	if avoid != nil && avoid.Geometry != nil {
		body.Options = &directionsOptions{AvoidPolygons: geojson.NewGeometry(avoid.Geometry)}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &RoutingError{Message: fmt.Sprintf("failed to encode request: %v", err)}
	}

	retryCfg := retry.Config{
		MaxAttempts:   c.cfg.MaxAttempts,
		BackoffFactor: c.cfg.BackoffFactor,
		IsRetryable:   isRetryable,
	}

	var route *Route
	err = retry.Do(ctx, retryCfg, func() error {
		r, attemptErr := c.attempt(ctx, payload)
		if attemptErr != nil {
			return attemptErr
		}
		route = r
		return nil
	})
	if err != nil {
		c.log.Warn("directions request failed",
			logger.Bool("avoidance", avoid != nil), logger.Error(err))
		var rerr *RoutingError
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, &RoutingError{Message: err.Error()}
	}

	c.log.Debug("directions request succeeded",
		logger.Bool("avoidance", avoid != nil),
		logger.Float64("distance_m", route.DistanceMeters))
	return route, nil
}

func (c *Client) attempt(ctx context.Context, payload []byte) (*Route, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &RoutingError{Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= apperrors.MinErrorStatusCode {
		routing := &RoutingError{StatusCode: resp.StatusCode, Message: resp.Status}
		if httpErr, ok := apperrors.ParseHTTPError(resp).(*apperrors.HTTPError); ok {
			routing.Message = httpErr.Message
		}
		return nil, routing
	}

	return parseRoute(resp)
}

func parseRoute(resp *http.Response) (*Route, error) {
	var fc struct {
		Features []struct {
			Geometry   *geojson.Geometry `json:"geometry"`
			Properties struct {
				Summary struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
				} `json:"summary"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, &RoutingError{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
		return nil, &RoutingError{Message: "response carried no route"}
	}

	feature := fc.Features[0]
	line, ok := feature.Geometry.Geometry().(orb.LineString)
	if !ok || len(line) < 2 {
		return nil, &RoutingError{Message: "response carried no usable route geometry"}
	}

	return &Route{
		DistanceMeters:  feature.Properties.Summary.Distance,
		DurationSeconds: feature.Properties.Summary.Duration,
		Geometry:        line,
	}, nil
}

// isRetryable retries rate limiting and transport-level failures. Any other
// upstream response is authoritative.
func isRetryable(err error) bool {
	var rerr *RoutingError
	if errors.As(err, &rerr) {
		return rerr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// Fallback returns the synthetic straight-line route between start and end,
// used when the engine is unavailable or unconfigured.
func Fallback(start, end orb.Point) *Route {
	return &Route{
		DistanceMeters:  fallbackDistanceMeters,
		DurationSeconds: fallbackDurationSeconds,
		Geometry:        orb.LineString{start, end},
		Fallback:        true,
	}
}
