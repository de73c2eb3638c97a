// Package domain models utility-outage reports and the rules applied when
// they are ingested.
//
// # Categories and Sources
//
// Reports carry one of a fixed set of categories: electricity, water,
// internet, gas, transport, other. A report is "official" when the reporting
// account's email equals the administrative address exactly (case-sensitive,
// no normalization) and "crowdsourced" otherwise.
//
// # Geocoding
//
// Report coordinates are resolved from the free-text location:
//
//	"<locality>, <city>, <state>, <pinCode>"
//
// Postal codes in the source data are often wrong or too new for the
// geocoder, so a query that returns no results is retried exactly once
// without the postal code:
//
//	"<locality>, <city>, <state>"
//
// Geocoding is best effort. A failed lookup (non-OK status, zero results,
// transport error) leaves lat/lng null and the report is still stored; the
// geocoder's status, error and raw response are handed back to the caller as
// diagnostics.
//
// # Address Normalization
//
// Place results from address search are reduced to form fields. The first
// address line is chosen in priority order:
//
//	premise > neighborhood > "<Sector N>, <sub-city>" > sector > sub-city > route > place name
//
// City falls back locality > administrative_area_level_2 >
// administrative_area_level_1; state is always administrative_area_level_1,
// so city and state coincide when the place has neither locality nor
// district.
//
// # Alerts
//
// Each stored report is fanned out to every profile with a saved location in
// the report's city whose preferences include the report's category. An empty
// category preference subscribes to every category.
package domain
