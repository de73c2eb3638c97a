package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// OfficialReporterEmail is the administrative account whose reports are official.
const OfficialReporterEmail = "alertshipdotco@gmail.com"

// Category is the kind of utility affected by an outage.
type Category string

const (
	CategoryElectricity Category = "electricity"
	CategoryWater       Category = "water"
	CategoryInternet    Category = "internet"
	CategoryGas         Category = "gas"
	CategoryTransport   Category = "transport"
	CategoryOther       Category = "other"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryElectricity,
	CategoryWater,
	CategoryInternet,
	CategoryGas,
	CategoryTransport,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Source tells official reports apart from crowdsourced ones.
type Source string

const (
	SourceOfficial     Source = "official"
	SourceCrowdsourced Source = "crowdsourced"
)

// ClassifySource returns SourceOfficial only for an exact, case-sensitive
// match against OfficialReporterEmail.
func ClassifySource(email string) Source {
	if email == OfficialReporterEmail {
		return SourceOfficial
	}
	return SourceCrowdsourced
}

// ReportInput is an outage report as submitted by a client.
type ReportInput struct {
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Locality    string   `json:"locality"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	PinCode     string   `json:"pinCode,omitempty"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
	UID         string   `json:"uid,omitempty"`
	Email       string   `json:"email,omitempty"`
}

// Validate checks required fields. Errors wrap ErrValidation.
func (in ReportInput) Validate() error {
	if !in.Category.Valid() {
		return fmt.Errorf("%w: invalid category %q", ErrValidation, in.Category)
	}
	required := []struct{ name, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"locality", in.Locality},
		{"city", in.City},
		{"state", in.State},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	return nil
}

// GeocodeQuery builds the geocoder query. The postal code is appended only
// when present; withPinCode=false always omits it.
func (in ReportInput) GeocodeQuery(withPinCode bool) string {
	q := in.Locality + ", " + in.City + ", " + in.State
	if withPinCode && in.PinCode != "" {
		q += ", " + in.PinCode
	}
	return q
}

// Report is a stored outage report. Reports are append-only.
type Report struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Locality    string   `json:"locality"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	PinCode     string   `json:"pinCode,omitempty"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
	UID         string   `json:"uid,omitempty"`
	Email       string   `json:"email"`
	Source      Source   `json:"source"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Timestamp   string   `json:"timestamp"` // ISO-8601, UTC, millisecond precision
}

// ReportFilter narrows ListReports. A zero filter matches every report.
type ReportFilter struct {
	City string
}

// GeocodeDiagnostics exposes what the geocoder said about a report so clients
// can tell "saved without coordinates" apart from a failure.
type GeocodeDiagnostics struct {
	Status   string          `json:"geocodeStatus"`
	Error    string          `json:"geocodeError,omitempty"`
	Attempts int             `json:"geocodeAttempts"`
	Lat      *float64        `json:"lat"`
	Lng      *float64        `json:"lng"`
	Raw      json.RawMessage `json:"geocodeRaw,omitempty"`
}

// IngestResult is returned for every successfully stored report.
type IngestResult struct {
	Report    Report             `json:"report"`
	Geocode   GeocodeDiagnostics `json:"geocode"`
	Published bool               `json:"published"`
}
