package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Alert channels.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Alert notifies one subscriber about one report.
type Alert struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"report_id"`
	UID       string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	Channels  []string  `json:"channels"`
	Category  Category  `json:"category"`
	Source    Source    `json:"source"`
	Title     string    `json:"title"`
	Locality  string    `json:"locality"`
	City      string    `json:"city"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchAlerts builds one alert per profile that watches the report's city and
// subscribes to its category. Profiles with no enabled channel are skipped.
func MatchAlerts(report Report, profiles []Profile) []Alert {
	now := clock.Now().UTC()
	var alerts []Alert
	for _, p := range profiles {
		if !p.WatchesCity(report.City) || !p.Preferences.Wants(report.Category) {
			continue
		}
		channels := p.Preferences.channels()
		if len(channels) == 0 {
			continue
		}
		alerts = append(alerts, Alert{
			ID:        alertID(report.ID, p.UID),
			ReportID:  report.ID,
			UID:       p.UID,
			Email:     p.Email,
			Channels:  channels,
			Category:  report.Category,
			Source:    report.Source,
			Title:     report.Title,
			Locality:  report.Locality,
			City:      report.City,
			Lat:       report.Lat,
			Lng:       report.Lng,
			CreatedAt: now,
		})
	}
	return alerts
}

func (p NotificationPreferences) channels() []string {
	var out []string
	if p.Email {
		out = append(out, ChannelEmail)
	}
	if p.Push {
		out = append(out, ChannelPush)
	}
	return out
}

// alertID is deterministic so replaying a report does not duplicate alerts downstream.
func alertID(reportID, uid string) string {
	sum := sha256.Sum256([]byte(reportID + "|" + uid))
	return "alert-" + hex.EncodeToString(sum[:8])
}
