// Package geocode resolves place names to coordinates and back through
// the Mapbox places API, with an optional redis response cache.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/saferoute-nyc/saferoute/internal/config"
	apperrors "github.com/saferoute-nyc/saferoute/internal/errors"
	"github.com/saferoute-nyc/saferoute/internal/httpclient"
	"github.com/saferoute-nyc/saferoute/internal/logger"
	"github.com/saferoute-nyc/saferoute/internal/retry"
	"github.com/saferoute-nyc/saferoute/internal/telemetry"
)

const (
	// DefaultLimit is the number of forward results when none is requested.
	DefaultLimit = 5
	// MaxLimit caps the number of forward results per request.
	MaxLimit = 10

	retryAttempts = 3
	retryBackoff  = 500 * time.Millisecond
)

var (
	// ErrNoToken signals that no Mapbox access token is configured.
	ErrNoToken = errors.New("no geocoding access token configured")
	// ErrInvalidToken signals that Mapbox rejected the configured token.
	ErrInvalidToken = errors.New("geocoding access token rejected")
)

// Place is one resolved location.
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Client calls the Mapbox places API.
type Client struct {
	cfg     config.GeocodingConfig
	http    *http.Client
	cache   Cache
	log     logger.Logger
	metrics *telemetry.Provider
}

// NewClient builds a geocoding client. A nil cache disables caching.
func NewClient(cfg config.GeocodingConfig, cache Cache, log logger.Logger, metrics *telemetry.Provider) *Client {
	if cache == nil {
		cache = NopCache{}
	}
	return &Client{
		cfg:     cfg,
		http:    httpclient.New(&httpclient.Config{Timeout: cfg.Timeout}),
		cache:   cache,
		log:     log,
		metrics: metrics,
	}
}

// Configured reports whether an access token is present.
func (c *Client) Configured() bool {
	return c.cfg.Token() != ""
}

// ClampLimit bounds a requested result count to 1..MaxLimit, substituting
// DefaultLimit for zero and negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Forward resolves a free-text query to up to limit places. Proximity, when
// non-nil, biases results toward that point.
func (c *Client) Forward(ctx context.Context, query string, limit int, proximity *orb.Point) ([]Place, error) {
	if !c.Configured() {
		return nil, ErrNoToken
	}
	limit = ClampLimit(limit)

	prox := ""
	if proximity != nil {
		prox = fmt.Sprintf("%g,%g", proximity[0], proximity[1])
	}
	key := fmt.Sprintf("forward:%s:%d:%s", query, limit, prox)
	if places, ok := c.cached(ctx, key); ok {
		return places, nil
	}

	params := url.Values{}
	params.Set("access_token", c.cfg.Token())
	params.Set("autocomplete", "true")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("language", "en")
	if prox != "" {
		params.Set("proximity", prox)
	}
	endpoint := fmt.Sprintf("%s/%s.json?%s", c.cfg.BaseURL, url.PathEscape(query), params.Encode())

	places, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, places)
	return places, nil
}

// Reverse resolves coordinates to the nearest known place. It returns nil
// without error when Mapbox knows nothing there.
func (c *Client) Reverse(ctx context.Context, lng, lat float64) (*Place, error) {
	if !c.Configured() {
		return nil, ErrNoToken
	}

	key := fmt.Sprintf("reverse:%g:%g", lng, lat)
	if places, ok := c.cached(ctx, key); ok {
		return firstPlace(places), nil
	}

	params := url.Values{}
	params.Set("access_token", c.cfg.Token())
	params.Set("limit", "1")
	params.Set("language", "en")
	endpoint := fmt.Sprintf("%s/%g,%g.json?%s", c.cfg.BaseURL, lng, lat, params.Encode())

	places, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, places)
	return firstPlace(places), nil
}

func firstPlace(places []Place) *Place {
	if len(places) == 0 {
		return nil
	}
	return &places[0]
}

func (c *Client) cached(ctx context.Context, key string) ([]Place, bool) {
	raw, ok := c.cache.Get(ctx, key)
	if !ok {
		c.metrics.RecordGeocodeCache(false)
		return nil, false
	}

	var places []Place
	if err := json.Unmarshal(raw, &places); err != nil {
		c.metrics.RecordGeocodeCache(false)
		return nil, false
	}

	c.metrics.RecordGeocodeCache(true)
	return places, true
}

func (c *Client) store(ctx context.Context, key string, places []Place) {
	raw, err := json.Marshal(places)
	if err != nil {
		return
	}
	c.cache.Set(ctx, key, raw)
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]Place, error) {
	retryCfg := retry.Config{
		MaxAttempts:   retryAttempts,
		BackoffFactor: retryBackoff,
		IsRetryable:   isRetryable,
	}

	var places []Place
	err := retry.Do(ctx, retryCfg, func() error {
		p, attemptErr := c.attempt(ctx, endpoint)
		if attemptErr != nil {
			return attemptErr
		}
		places = p
		return nil
	})
	if err != nil {
		c.metrics.RecordGeocodeError()
		c.log.Warn("geocoding request failed", logger.Error(err))
		return nil, err
	}

	return places, nil
}

func (c *Client) attempt(ctx context.Context, endpoint string) ([]Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode >= apperrors.MinErrorStatusCode {
		return nil, apperrors.ParseHTTPError(resp)
	}

	var payload struct {
		Features []struct {
			PlaceName string     `json:"place_name"`
			Center    [2]float64 `json:"center"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	places := make([]Place, 0, len(payload.Features))
	for _, f := range payload.Features {
		places = append(places, Place{
			Name: f.PlaceName,
			Lat:  f.Center[1],
			Lng:  f.Center[0],
		})
	}
	return places, nil
}

// isRetryable retries rate limiting and transport-level failures. A rejected
// token and any other upstream response are authoritative.
func isRetryable(err error) bool {
	if errors.Is(err, ErrInvalidToken) {
		return false
	}
	if code, ok := apperrors.GetHTTPStatusCode(err); ok {
		return code == http.StatusTooManyRequests
	}
	return true
}
