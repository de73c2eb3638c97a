package domain

import (
	"context"
	"fmt"
	"strings"
)

// ProfileStore persists user dashboards. Get returns an empty profile for a
// user that has saved nothing; RemoveLocation returns ErrNotFound when the
// label does not exist.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (Profile, error)
	// PutLocation adds loc, replacing any saved location with the same label.
	PutLocation(ctx context.Context, uid string, loc SavedLocation) (Profile, error)
	RemoveLocation(ctx context.Context, uid, label string) (Profile, error)
	UpdatePreferences(ctx context.Context, uid string, update PreferencesUpdate) (Profile, error)
	// SubscribersForCity returns profiles with at least one location in city.
	SubscribersForCity(ctx context.Context, city string) ([]Profile, error)
}

// ProfileService manages saved locations and notification preferences.
type ProfileService struct {
	store ProfileStore
}

// NewProfileService creates a ProfileService backed by store.
func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

func (s *ProfileService) Get(ctx context.Context, uid string) (Profile, error) {
	if err := requireUID(uid); err != nil {
		return Profile{}, err
	}
	return s.store.Get(ctx, uid)
}

// SaveLocation normalizes place and stores it under label.
func (s *ProfileService) SaveLocation(ctx context.Context, uid, label string, place PlaceResult) (Profile, error) {
	if err := requireUID(uid); err != nil {
		return Profile{}, err
	}
	loc, err := NewSavedLocation(label, place)
	if err != nil {
		return Profile{}, err
	}
	p, err := s.store.PutLocation(ctx, uid, loc)
	if err != nil {
		return Profile{}, fmt.Errorf("save location: %w", err)
	}
	return p, nil
}

func (s *ProfileService) RemoveLocation(ctx context.Context, uid, label string) (Profile, error) {
	if err := requireUID(uid); err != nil {
		return Profile{}, err
	}
	return s.store.RemoveLocation(ctx, uid, strings.TrimSpace(label))
}

// UpdatePreferences merges the non-nil fields of update into the stored preferences.
func (s *ProfileService) UpdatePreferences(ctx context.Context, uid string, update PreferencesUpdate) (Profile, error) {
	if err := requireUID(uid); err != nil {
		return Profile{}, err
	}
	if err := update.Validate(); err != nil {
		return Profile{}, err
	}
	return s.store.UpdatePreferences(ctx, uid, update)
}

// AlertsFor returns the alerts report should raise for subscribed users.
func (s *ProfileService) AlertsFor(ctx context.Context, report Report) ([]Alert, error) {
	if report.City == "" {
		return nil, nil
	}
	profiles, err := s.store.SubscribersForCity(ctx, report.City)
	if err != nil {
		return nil, fmt.Errorf("find subscribers for %s: %w", report.City, err)
	}
	return MatchAlerts(report, profiles), nil
}

func requireUID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("%w: uid is required", ErrValidation)
	}
	return nil
}
