package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

// errCreateReport is the only message clients see when the store rejects a
// report.
const errCreateReport = "Failed to create report"

func (h *handlers) createReport(w http.ResponseWriter, r *http.Request) {
	var in domain.ReportInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, h.logger, err, errCreateReport)
		return
	}

	result, err := h.svc.Reports.Ingest(r.Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			writeError(w, http.StatusInternalServerError, codeInternal, errCreateReport)
			return
		}
		respondError(w, r, h.logger, err, errCreateReport)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handlers) listReports(w http.ResponseWriter, r *http.Request) {
	filter := domain.ReportFilter{City: strings.TrimSpace(r.URL.Query().Get("city"))}
	reports, err := h.svc.Reports.ListReports(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err, "Failed to list reports")
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (h *handlers) normalizeAddress(w http.ResponseWriter, r *http.Request) {
	var place domain.PlaceResult
	if err := decodeJSON(r, &place); err != nil {
		respondError(w, r, h.logger, err, "Failed to normalize address")
		return
	}
	writeJSON(w, http.StatusOK, domain.NormalizeAddress(place))
}
