package googlemaps

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

const provider = "google"

// Client implements domain.Geocoder using the Google Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Google geocoding client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://maps.googleapis.com/maps/api/geocode/json",
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode forward-geocodes a free-text address. Provider statuses such as
// ZERO_RESULTS or REQUEST_DENIED come back in the response, not as errors.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodeResponse, error) {
	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}

	start := time.Now()
	resp, err := c.do(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		c.logger.Warn("google geocode request failed", "query", address, "error", err)
	case resp.Usable():
		c.metrics.GeocodeRequests.WithLabelValues(provider, "ok").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "empty").Inc()
		c.logger.Debug("google geocode returned no location", "query", address, "status", resp.Status)
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, fullURL string) (domain.GeocodeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the API key; report the cause only.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return domain.GeocodeResponse{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.GeocodeResponse{}, fmt.Errorf("google API error: status %d: %s", resp.StatusCode, body)
	}

	var gr response
	if err := json.Unmarshal(body, &gr); err != nil {
		return domain.GeocodeResponse{}, fmt.Errorf("decode response: %w", err)
	}

	out := domain.GeocodeResponse{
		Status:       gr.Status,
		ErrorMessage: gr.ErrorMessage,
		Raw:          json.RawMessage(body),
	}
	for _, r := range gr.Results {
		out.Results = append(out.Results, domain.GeocodeResult{
			Lat:              r.Geometry.Location.Lat,
			Lng:              r.Geometry.Location.Lng,
			FormattedAddress: r.FormattedAddress,
		})
	}
	return out, nil
}

// Google Geocoding API response types.

type response struct {
	Status       string   `json:"status"`
	Results      []result `json:"results"`
	ErrorMessage string   `json:"error_message"`
}

type result struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}
