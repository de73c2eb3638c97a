package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
	"github.com/couchcryptid/outage-alert-service/internal/observability"
)

const provider = "mapbox"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	country    string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. Results are restricted to India.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		country: "in",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode forward-geocodes an address. Mapbox has no status field, so the
// response is OK when at least one feature matched and ZERO_RESULTS otherwise.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodeResponse, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(address))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}
	if c.country != "" {
		params.Set("country", c.country)
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		c.logger.Warn("mapbox geocode request failed", "query", address, "error", err)
	case resp.Usable():
		c.metrics.GeocodeRequests.WithLabelValues(provider, "ok").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "empty").Inc()
	}
	return resp, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return domain.GeocodeResponse{}, fmt.Errorf("forward geocode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.GeocodeResponse{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.Unmarshal(body, &mapboxResp); err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("decode response: %w", err)
	}

	out := domain.GeocodeResponse{Status: domain.GeocodeStatusZeroResults, Raw: json.RawMessage(body)}
	for _, f := range mapboxResp.Features {
		// Mapbox uses lon,lat order.
		if len(f.Center) != 2 {
			continue
		}
		out.Results = append(out.Results, domain.GeocodeResult{
			Lat:              f.Center[1],
			Lng:              f.Center[0],
			FormattedAddress: f.PlaceName,
		})
	}
	if len(out.Results) > 0 {
		out.Status = domain.GeocodeStatusOK
	}
	return out, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Relevance float64   `json:"relevance"`
}
