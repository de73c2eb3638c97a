package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/outage-alert-service/internal/adapter/http"
	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

// --- mocks ---

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockReports struct {
	ingestFn func(domain.ReportInput) (domain.IngestResult, error)
	listFn   func(domain.ReportFilter) ([]domain.Report, error)
}

func (m *mockReports) Ingest(_ context.Context, in domain.ReportInput) (domain.IngestResult, error) {
	return m.ingestFn(in)
}

func (m *mockReports) ListReports(_ context.Context, f domain.ReportFilter) ([]domain.Report, error) {
	return m.listFn(f)
}

type mockProfiles struct {
	lastUID   string
	lastLabel string
	err       error
	profile   domain.Profile
	update    domain.PreferencesUpdate
}

func (m *mockProfiles) Get(_ context.Context, uid string) (domain.Profile, error) {
	m.lastUID = uid
	return m.profile, m.err
}

func (m *mockProfiles) SaveLocation(_ context.Context, uid, label string, place domain.PlaceResult) (domain.Profile, error) {
	m.lastUID, m.lastLabel = uid, label
	if m.err != nil {
		return domain.Profile{}, m.err
	}
	loc, err := domain.NewSavedLocation(label, place)
	if err != nil {
		return domain.Profile{}, err
	}
	p := m.profile
	p.Locations = append(p.Locations, loc)
	return p, nil
}

func (m *mockProfiles) RemoveLocation(_ context.Context, uid, label string) (domain.Profile, error) {
	m.lastUID, m.lastLabel = uid, label
	return m.profile, m.err
}

func (m *mockProfiles) UpdatePreferences(_ context.Context, uid string, u domain.PreferencesUpdate) (domain.Profile, error) {
	m.lastUID, m.update = uid, u
	return m.profile, m.err
}

type mockPhotos struct {
	ext, contentType string
	data             []byte
	err              error
}

func (m *mockPhotos) Upload(_ context.Context, ext, contentType string, _ int64, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.ext, m.contentType = ext, contentType
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.data = data
	return "http://minio.local/outage-photos/reports/x" + ext, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	reports  *mockReports
	profiles *mockProfiles
	photos   *mockPhotos
	ready    *mockReadiness
}

func newFixture() *fixture {
	return &fixture{
		reports: &mockReports{
			ingestFn: func(in domain.ReportInput) (domain.IngestResult, error) {
				return domain.IngestResult{Report: domain.Report{ID: "r1", City: in.City}}, nil
			},
			listFn: func(domain.ReportFilter) ([]domain.Report, error) { return nil, nil },
		},
		profiles: &mockProfiles{},
		photos:   &mockPhotos{},
		ready:    &mockReadiness{},
	}
}

func (f *fixture) server() *httpadapter.Server {
	return httpadapter.NewServer(":0", httpadapter.Services{
		Reports:  f.reports,
		Profiles: f.profiles,
		Photos:   f.photos,
		Ready:    f.ready,
	}, httpadapter.Options{
		CORSOrigins:   []string{"http://localhost:3000"},
		PhotoMaxBytes: 1024,
	}, discardLogger())
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newFixture().server(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReflectsChecker(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusOK, do(t, f.server(), http.MethodGet, "/readyz", "").Code)

	f.ready.err = errors.New("mongo unreachable")
	assert.Equal(t, http.StatusServiceUnavailable, do(t, f.server(), http.MethodGet, "/readyz", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newFixture().server(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- reports ---

func TestCreateReport_Success(t *testing.T) {
	f := newFixture()
	body := `{"category":"water","title":"t","description":"d","locality":"Kothrud","city":"Pune","state":"MH"}`

	rec := do(t, f.server(), http.MethodPost, "/api/reports", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.Report.ID)
	assert.Equal(t, "Pune", got.Report.City)
}

func TestCreateReport_ValidationError(t *testing.T) {
	f := newFixture()
	f.reports.ingestFn = func(domain.ReportInput) (domain.IngestResult, error) {
		return domain.IngestResult{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}

	rec := do(t, f.server(), http.MethodPost, "/api/reports", `{"category":"water"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, "title is required", body.Error.Message)
}

func TestCreateReport_PersistenceErrorIsOpaque(t *testing.T) {
	f := newFixture()
	f.reports.ingestFn = func(domain.ReportInput) (domain.IngestResult, error) {
		return domain.IngestResult{}, fmt.Errorf("%w: connection refused on 10.0.0.5", domain.ErrPersistence)
	}

	rec := do(t, f.server(), http.MethodPost, "/api/reports", `{"category":"water"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to create report", decodeError(t, rec).Error.Message)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestCreateReport_MalformedJSON(t *testing.T) {
	rec := do(t, newFixture().server(), http.MethodPost, "/api/reports", `{"category":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed JSON body", decodeError(t, rec).Error.Message)
}

func TestCreateReport_BodyTooLarge(t *testing.T) {
	big := `{"title":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := do(t, newFixture().server(), http.MethodPost, "/api/reports", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListReports_FiltersByCity(t *testing.T) {
	f := newFixture()
	var gotFilter domain.ReportFilter
	f.reports.listFn = func(filter domain.ReportFilter) ([]domain.Report, error) {
		gotFilter = filter
		return []domain.Report{{ID: "r1", City: "Pune"}}, nil
	}

	rec := do(t, f.server(), http.MethodGet, "/api/reports?city=Pune", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pune", gotFilter.City)
	var body struct {
		Reports []domain.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reports, 1)
}

func TestListReports_EmptyIsArray(t *testing.T) {
	rec := do(t, newFixture().server(), http.MethodGet, "/api/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())
}

func TestListReports_StoreErrorIs500(t *testing.T) {
	f := newFixture()
	f.reports.listFn = func(domain.ReportFilter) ([]domain.Report, error) {
		return nil, errors.New("mongo down")
	}
	rec := do(t, f.server(), http.MethodGet, "/api/reports", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "mongo down")
}

// --- address ---

func TestNormalizeAddress(t *testing.T) {
	body := `{"address_components":[
		{"long_name":"Sector 14","types":["sublocality_level_1","sublocality"]},
		{"long_name":"Gurugram","types":["locality"]},
		{"long_name":"Haryana","types":["administrative_area_level_1"]},
		{"long_name":"122001","types":["postal_code"]}
	]}`

	rec := do(t, newFixture().server(), http.MethodPost, "/api/address/normalize", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.NormalizedAddress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Gurugram", got.Components.City)
	assert.Equal(t, "Haryana", got.Components.State)
	assert.Equal(t, "122001", got.Components.PinCode)
}

// --- profiles ---

func TestGetProfile(t *testing.T) {
	f := newFixture()
	f.profiles.profile = domain.Profile{UID: "u1", Locations: []domain.SavedLocation{}, Preferences: domain.DefaultPreferences()}

	rec := do(t, f.server(), http.MethodGet, "/api/profiles/u1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", f.profiles.lastUID)
	assert.JSONEq(t, `{"uid":"u1","locations":[],"preferences":{"categories":[],"email":true,"push":false}}`, rec.Body.String())
}

func TestSaveLocation(t *testing.T) {
	f := newFixture()
	body := `{"label":"home","place":{"address_components":[
		{"long_name":"Kothrud","types":["sublocality"]},
		{"long_name":"Pune","types":["locality"]}
	]}}`

	rec := do(t, f.server(), http.MethodPost, "/api/profiles/u1/locations", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home", f.profiles.lastLabel)
	var got domain.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Locations, 1)
	assert.Equal(t, "Pune", got.Locations[0].City)
}

func TestSaveLocation_NoCityIs400(t *testing.T) {
	body := `{"label":"home","place":{"formatted_address":"somewhere"}}`
	rec := do(t, newFixture().server(), http.MethodPost, "/api/profiles/u1/locations", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "place has no city", decodeError(t, rec).Error.Message)
}

func TestRemoveLocation_UnescapesLabel(t *testing.T) {
	f := newFixture()
	rec := do(t, f.server(), http.MethodDelete, "/api/profiles/u1/locations/home%20office", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "home office", f.profiles.lastLabel)
}

func TestRemoveLocation_DecodesLabelOnce(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "percent sign", path: "50%25%20off", want: "50% off"},
		{name: "escaped escape stays literal", path: "a%2541", want: "a%41"},
		{name: "encoded slash", path: "a%2Fb", want: "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := do(t, f.server(), http.MethodDelete, "/api/profiles/u1/locations/"+tt.path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, f.profiles.lastLabel)
		})
	}
}

func TestRemoveLocation_NotFound(t *testing.T) {
	f := newFixture()
	f.profiles.err = fmt.Errorf("remove location: %w", domain.ErrNotFound)

	rec := do(t, f.server(), http.MethodDelete, "/api/profiles/u1/locations/work", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestUpdatePreferences_PartialBody(t *testing.T) {
	f := newFixture()

	rec := do(t, f.server(), http.MethodPut, "/api/profiles/u1/preferences", `{"push":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.profiles.update.Push)
	assert.True(t, *f.profiles.update.Push)
	assert.Nil(t, f.profiles.update.Email)
	assert.Nil(t, f.profiles.update.Categories)
}

// --- photos ---

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func multipartPhoto(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "photo.bin")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postPhoto(t *testing.T, srv http.Handler, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartPhoto(t, field, data)
	req := httptest.NewRequest(http.MethodPost, "/api/photos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestUploadPhoto_Success(t *testing.T) {
	f := newFixture()

	rec := postPhoto(t, f.server(), "photo", pngHeader)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"photoUrl":"http://minio.local/outage-photos/reports/x.png"}`, rec.Body.String())
	assert.Equal(t, "image/png", f.photos.contentType)
	assert.Equal(t, pngHeader, f.photos.data, "sniffed bytes are replayed to the store")
}

func TestUploadPhoto_RejectsNonImage(t *testing.T) {
	rec := postPhoto(t, newFixture().server(), "photo", []byte("just some text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUploadPhoto_MissingField(t *testing.T) {
	rec := postPhoto(t, newFixture().server(), "file", pngHeader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPhoto_TooLarge(t *testing.T) {
	data := append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
	rec := postPhoto(t, newFixture().server(), "photo", data)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadPhoto_NotConfigured(t *testing.T) {
	f := newFixture()
	srv := httpadapter.NewServer(":0", httpadapter.Services{
		Reports:  f.reports,
		Profiles: f.profiles,
		Ready:    f.ready,
	}, httpadapter.Options{PhotoMaxBytes: 1024}, discardLogger())

	rec := postPhoto(t, srv, "photo", pngHeader)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- middleware ---

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	newFixture().server().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogLine(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture()
	h := httpadapter.NewRouter(httpadapter.Services{
		Reports:  f.reports,
		Profiles: f.profiles,
		Ready:    f.ready,
	}, httpadapter.Options{}, slog.New(slog.NewJSONHandler(&buf, nil)))

	rec := do(t, h, http.MethodGet, "/api/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/reports", entry["path"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}
