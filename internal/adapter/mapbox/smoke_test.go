//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
	"github.com/couchcryptid/outage-alert-service/internal/observability"
)

// Live Mapbox checks. Needs MAPBOX_TOKEN:
//
//	go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func liveClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Skip("MAPBOX_TOKEN not set")
	}
	return NewClient(token, 10*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLive_ReportQueries(t *testing.T) {
	c := liveClient(t)

	for _, tc := range []struct {
		query    string
		lat, lng float64
	}{
		{"Connaught Place, New Delhi, Delhi", 28.63, 77.22},
		{"Kothrud, Pune, Maharashtra, 411038", 18.50, 73.81},
	} {
		t.Run(tc.query, func(t *testing.T) {
			resp, err := c.Geocode(context.Background(), tc.query)
			require.NoError(t, err)
			require.Equal(t, domain.GeocodeStatusOK, resp.Status)
			assert.InDelta(t, tc.lat, resp.Results[0].Lat, 0.15)
			assert.InDelta(t, tc.lng, resp.Results[0].Lng, 0.15)
		})
	}
}

func TestLive_NonsenseQueryIsNotAnError(t *testing.T) {
	// Fuzzy matching may still return something; only the error matters.
	_, err := liveClient(t).Geocode(context.Background(), "XYZNONEXISTENT99")
	require.NoError(t, err)
}
