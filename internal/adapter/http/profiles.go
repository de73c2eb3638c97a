package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

type saveLocationRequest struct {
	Label string             `json:"label"`
	Place domain.PlaceResult `json:"place"`
}

func (h *handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profiles.Get(r.Context(), chi.URLParam(r, "uid"))
	h.writeProfile(w, r, p, err)
}

func (h *handlers) saveLocation(w http.ResponseWriter, r *http.Request) {
	var req saveLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err, "Failed to save location")
		return
	}
	p, err := h.svc.Profiles.SaveLocation(r.Context(), chi.URLParam(r, "uid"), req.Label, req.Place)
	h.writeProfile(w, r, p, err)
}

func (h *handlers) removeLocation(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath only when the request used a non-canonical
	// encoding such as %2F; otherwise the param is already decoded.
	label := chi.URLParam(r, "label")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(label)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "malformed label")
			return
		}
		label = unescaped
	}
	p, err := h.svc.Profiles.RemoveLocation(r.Context(), chi.URLParam(r, "uid"), label)
	h.writeProfile(w, r, p, err)
}

func (h *handlers) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var update domain.PreferencesUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondError(w, r, h.logger, err, "Failed to update preferences")
		return
	}
	p, err := h.svc.Profiles.UpdatePreferences(r.Context(), chi.URLParam(r, "uid"), update)
	h.writeProfile(w, r, p, err)
}

func (h *handlers) writeProfile(w http.ResponseWriter, r *http.Request, p domain.Profile, err error) {
	if err != nil {
		respondError(w, r, h.logger, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
