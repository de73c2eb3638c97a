package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var (
	errGeocodingDisabled = errors.New("geocoding disabled")
	errNoResults         = errors.New("geocoder returned no results")
)

// GeocodeReport resolves coordinates for a report's location. A query that
// includes a postal code and comes back unusable is retried once without it.
// Failure never aborts the caller: the outcome is degraded and the
// diagnostics describe the last attempt.
func GeocodeReport(ctx context.Context, geocoder Geocoder, in ReportInput, logger *slog.Logger) (Outcome[*Coordinates], GeocodeDiagnostics) {
	if geocoder == nil {
		return Degraded[*Coordinates](nil, errGeocodingDisabled), GeocodeDiagnostics{
			Status: GeocodeStatusDisabled,
			Error:  errGeocodingDisabled.Error(),
		}
	}

	query := in.GeocodeQuery(true)
	resp, err := geocoder.Geocode(ctx, query)
	attempts := 1

	if (err != nil || !resp.Usable()) && in.PinCode != "" {
		logger.Warn("geocoding with postal code failed, retrying without it",
			"query", query,
			"status", resp.Status,
			"error", err,
		)
		query = in.GeocodeQuery(false)
		resp, err = geocoder.Geocode(ctx, query)
		attempts = 2
	}

	diag := GeocodeDiagnostics{Attempts: attempts}

	if err != nil {
		logger.Warn("geocoding failed", "query", query, "attempts", attempts, "error", err)
		diag.Status = GeocodeStatusRequestFailed
		diag.Error = err.Error()
		return Degraded[*Coordinates](nil, err), diag
	}

	diag.Status = resp.Status
	diag.Raw = resp.Raw

	if !resp.Usable() {
		reason := errNoResults
		if resp.Status != GeocodeStatusOK {
			reason = fmt.Errorf("geocoder status %s", resp.Status)
		}
		diag.Error = reason.Error()
		if resp.ErrorMessage != "" {
			diag.Error = resp.ErrorMessage
		}
		logger.Warn("geocoding returned no location", "query", query, "attempts", attempts, "status", resp.Status)
		return Degraded[*Coordinates](nil, reason), diag
	}

	first := resp.Results[0]
	coords := &Coordinates{Lat: first.Lat, Lng: first.Lng}
	diag.Lat = &coords.Lat
	diag.Lng = &coords.Lng
	return OK(coords), diag
}
