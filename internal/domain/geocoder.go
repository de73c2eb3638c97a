package domain

import (
	"context"
	"encoding/json"
)

// Geocoder status values. Providers report their own statuses verbatim; these
// are the ones the service produces or branches on.
const (
	GeocodeStatusOK          = "OK"
	GeocodeStatusZeroResults = "ZERO_RESULTS"
	// GeocodeStatusRequestFailed marks a call that never got a provider answer
	// (timeout, network error, undecodable body).
	GeocodeStatusRequestFailed = "REQUEST_FAILED"
	// GeocodeStatusDisabled is reported when no geocoder is configured.
	GeocodeStatusDisabled = "DISABLED"
)

// GeocodeResult is one candidate location returned by a geocoding provider.
type GeocodeResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
}

// GeocodeResponse is a provider's answer to a forward-geocoding query.
type GeocodeResponse struct {
	Status       string          `json:"status"`
	Results      []GeocodeResult `json:"results"`
	ErrorMessage string          `json:"error_message,omitempty"`
	// Raw is the provider's response body, kept for client-side debugging.
	Raw json.RawMessage `json:"-"`
}

// Usable reports whether the response carries at least one location.
func (r GeocodeResponse) Usable() bool {
	return r.Status == GeocodeStatusOK && len(r.Results) > 0
}

// Geocoder converts free-text addresses to coordinates.
type Geocoder interface {
	// Geocode returns the provider's response for address. Errors are
	// transport-level; a provider-side failure is a non-OK Status.
	Geocode(ctx context.Context, address string) (GeocodeResponse, error)
}
