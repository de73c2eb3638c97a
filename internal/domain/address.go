package domain

import (
	"regexp"
	"slices"
	"strings"
)

// Address component type labels used by the place/geocoding APIs.
const (
	TypePremise        = "premise"
	TypeNeighborhood   = "neighborhood"
	TypeRoute          = "route"
	TypeLocality       = "locality"
	TypePostalCode     = "postal_code"
	TypeAdminAreaOne   = "administrative_area_level_1"
	TypeAdminAreaTwo   = "administrative_area_level_2"
	TypeSublocality    = "sublocality"
	TypeSublocalityOne = "sublocality_level_1"
)

// sublocalityTypes lists the sublocality labels in collection priority order.
var sublocalityTypes = []string{
	TypeSublocality,
	TypeSublocalityOne,
	"sublocality_level_2",
	"sublocality_level_3",
	"sublocality_level_4",
}

// sectorRe matches planned-city sector names such as "Sector 14",
// "SECTOR  56" or "Sector 14 Extension".
var sectorRe = regexp.MustCompile(`(?i)sector\s*\d+`)

// AddressComponent is one typed segment of a structured place result.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name,omitempty"`
	Types     []string `json:"types"`
}

// PlaceResult is the structured response of an address-search or geocoding API.
type PlaceResult struct {
	AddressComponents []AddressComponent `json:"address_components"`
	Name              string             `json:"name,omitempty"`
	FormattedAddress  string             `json:"formatted_address,omitempty"`
}

// AddressComponents holds the normalized form fields derived from a place.
type AddressComponents struct {
	Premise      string `json:"premise,omitempty"`
	Route        string `json:"route,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Sublocality  string `json:"sublocality,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PinCode      string `json:"pinCode,omitempty"`
}

// NormalizedAddress is a human-readable address plus its normalized fields.
type NormalizedAddress struct {
	Address    string            `json:"address"`
	Components AddressComponents `json:"components"`
}

// NormalizeAddress derives a display address and form fields from a place
// result. It performs no I/O and degrades missing fields to empty strings.
func NormalizeAddress(place PlaceResult) NormalizedAddress {
	norm, _ := normalize(place)
	return norm
}

// normalize also returns the primary line, the first address segment that the
// report form uses as its locality.
func normalize(place PlaceResult) (NormalizedAddress, string) {
	if len(place.AddressComponents) == 0 {
		return NormalizedAddress{Address: firstNonEmpty(place.FormattedAddress, place.Name)}, ""
	}

	comps := place.AddressComponents
	premise := componentOfType(comps, TypePremise)
	neighborhood := componentOfType(comps, TypeNeighborhood)
	route := componentOfType(comps, TypeRoute)
	state := componentOfType(comps, TypeAdminAreaOne)
	city := firstNonEmpty(
		componentOfType(comps, TypeLocality),
		componentOfType(comps, TypeAdminAreaTwo),
		state,
	)
	pinCode := componentOfType(comps, TypePostalCode)
	sublocality := sublocalityLine(sublocalityCandidates(comps))

	primary := firstNonEmpty(premise, neighborhood, sublocality, route, place.Name)

	parts := make([]string, 0, 4)
	for _, part := range []string{primary, city, state, pinCode} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return NormalizedAddress{
		Address: strings.Join(parts, ", "),
		Components: AddressComponents{
			Premise:      premise,
			Route:        route,
			Neighborhood: neighborhood,
			Sublocality:  sublocality,
			City:         city,
			State:        state,
			PinCode:      pinCode,
		},
	}, primary
}

// componentOfType returns the long name of the first component tagged with typ.
func componentOfType(comps []AddressComponent, typ string) string {
	for _, c := range comps {
		if hasType(c, typ) {
			return c.LongName
		}
	}
	return ""
}

// sublocalityCandidates collects distinct sublocality names, ordered by type
// priority and then by encounter order.
func sublocalityCandidates(comps []AddressComponent) []string {
	var out []string
	seen := make(map[string]bool)
	for _, typ := range sublocalityTypes {
		for _, c := range comps {
			if c.LongName == "" || seen[c.LongName] || !hasType(c, typ) {
				continue
			}
			seen[c.LongName] = true
			out = append(out, c.LongName)
		}
	}
	return out
}

// sublocalityLine joins a sector with its parent sub-city when both exist,
// e.g. "Sector 14, Old Gurgaon"; otherwise it returns whichever exists.
func sublocalityLine(candidates []string) string {
	var sector, subCity string
	for _, c := range candidates {
		if sectorRe.MatchString(c) {
			if sector == "" {
				sector = c
			}
		} else if subCity == "" {
			subCity = c
		}
	}
	if sector != "" && subCity != "" {
		return sector + ", " + subCity
	}
	return firstNonEmpty(sector, subCity)
}

func hasType(c AddressComponent, typ string) bool {
	return slices.Contains(c.Types, typ)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
