package domain

import (
	"fmt"
	"slices"
	"strings"
)

// SavedLocation is a place a user watches for outages.
type SavedLocation struct {
	Label    string `json:"label"`
	Address  string `json:"address"`
	Locality string `json:"locality,omitempty"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	PinCode  string `json:"pinCode,omitempty"`
}

// NotificationPreferences controls which alerts a user receives and how.
// An empty Categories list subscribes to every category.
type NotificationPreferences struct {
	Categories []Category `json:"categories"`
	Email      bool       `json:"email"`
	Push       bool       `json:"push"`
}

// DefaultPreferences are applied to users who have never changed them:
// every category, email only.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{Categories: []Category{}, Email: true}
}

// Wants reports whether the preferences subscribe to category c.
func (p NotificationPreferences) Wants(c Category) bool {
	return len(p.Categories) == 0 || slices.Contains(p.Categories, c)
}

// PreferencesUpdate is a partial update: nil fields are left unchanged.
type PreferencesUpdate struct {
	Categories *[]Category `json:"categories,omitempty"`
	Email      *bool       `json:"email,omitempty"`
	Push       *bool       `json:"push,omitempty"`
}

// Validate rejects unknown categories. Errors wrap ErrValidation.
func (u PreferencesUpdate) Validate() error {
	if u.Categories == nil {
		return nil
	}
	for _, c := range *u.Categories {
		if !c.Valid() {
			return fmt.Errorf("%w: invalid category %q", ErrValidation, c)
		}
	}
	return nil
}

// Profile is a user's dashboard state.
type Profile struct {
	UID         string                  `json:"uid"`
	Email       string                  `json:"email,omitempty"`
	Locations   []SavedLocation         `json:"locations"`
	Preferences NotificationPreferences `json:"preferences"`
}

// WatchesCity reports whether any saved location is in city.
func (p Profile) WatchesCity(city string) bool {
	for _, loc := range p.Locations {
		if loc.City == city {
			return true
		}
	}
	return false
}

// NewSavedLocation turns a picked place into a saved location. The place is
// normalized first; a location without a resolvable city is rejected.
func NewSavedLocation(label string, place PlaceResult) (SavedLocation, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return SavedLocation{}, fmt.Errorf("%w: label is required", ErrValidation)
	}
	norm, primary := normalize(place)
	if norm.Components.City == "" {
		return SavedLocation{}, fmt.Errorf("%w: place has no city", ErrValidation)
	}
	return SavedLocation{
		Label:    label,
		Address:  norm.Address,
		Locality: primary,
		City:     norm.Components.City,
		State:    norm.Components.State,
		PinCode:  norm.Components.PinCode,
	}, nil
}

