package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for report timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// defaultPublishTimeout bounds the announcement of a stored report.
const defaultPublishTimeout = 5 * time.Second

// ReportStore persists outage reports.
type ReportStore interface {
	// Create stores a report and returns its store-assigned identifier.
	Create(ctx context.Context, report Report) (string, error)
	// List returns reports matching the filter.
	List(ctx context.Context, filter ReportFilter) ([]Report, error)
}

// ReportPublisher announces stored reports to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report Report) error
}

// IngestObserver receives ingest outcomes, e.g. for metrics.
type IngestObserver interface {
	ReportIngested(source Source, geocodeStatus string)
	ReportFailed(reason string)
}

// Ingester validates, enriches and stores outage reports.
type Ingester struct {
	identity       IdentityProvider
	geocoder       Geocoder
	store          ReportStore
	publisher      ReportPublisher
	publishTimeout time.Duration
	observer       IngestObserver
	logger         *slog.Logger
}

// IngesterOption configures optional Ingester collaborators.
type IngesterOption func(*Ingester)

// WithPublisher announces every stored report through p.
func WithPublisher(p ReportPublisher) IngesterOption {
	return func(i *Ingester) { i.publisher = p }
}

// WithPublishTimeout caps how long Ingest waits on the publisher.
func WithPublishTimeout(d time.Duration) IngesterOption {
	return func(i *Ingester) {
		if d > 0 {
			i.publishTimeout = d
		}
	}
}

// WithObserver reports ingest outcomes to o.
func WithObserver(o IngestObserver) IngesterOption {
	return func(i *Ingester) { i.observer = o }
}

// NewIngester creates an Ingester. A nil identity provider or geocoder
// degrades the corresponding step; store is required.
func NewIngester(identity IdentityProvider, geocoder Geocoder, store ReportStore, logger *slog.Logger, opts ...IngesterOption) *Ingester {
	i := &Ingester{
		identity:       identity,
		geocoder:       geocoder,
		store:          store,
		publishTimeout: defaultPublishTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest stores a submitted report. Identity and geocoding failures degrade
// the record; only validation (ErrValidation) and store failures
// (ErrPersistence) are returned as errors.
func (i *Ingester) Ingest(ctx context.Context, in ReportInput) (IngestResult, error) {
	if err := in.Validate(); err != nil {
		i.failed("validation")
		return IngestResult{}, err
	}

	email := ResolveReporterEmail(ctx, i.identity, in, i.logger)
	coords, diag := GeocodeReport(ctx, i.geocoder, in, i.logger)

	report := Report{
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		Locality:    in.Locality,
		City:        in.City,
		State:       in.State,
		PinCode:     in.PinCode,
		PhotoURL:    in.PhotoURL,
		UID:         in.UID,
		Email:       email.Value,
		Source:      ClassifySource(email.Value),
		Timestamp:   clock.Now().UTC().Format(TimestampLayout),
	}
	if coords.Value != nil {
		report.Lat = &coords.Value.Lat
		report.Lng = &coords.Value.Lng
	}

	stored := i.persist(ctx, report)
	if err := stored.Err(); err != nil {
		i.logger.Error("report persistence failed", "category", in.Category, "city", in.City, "error", err)
		i.failed("persistence")
		return IngestResult{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	report = stored.Value

	i.logger.Info("report ingested",
		"id", report.ID,
		"source", report.Source,
		"category", report.Category,
		"city", report.City,
		"geocode_status", diag.Status,
		"identity", email.Kind.String(),
	)
	if i.observer != nil {
		i.observer.ReportIngested(report.Source, diag.Status)
	}

	return IngestResult{
		Report:    report,
		Geocode:   diag,
		Published: i.publish(ctx, report),
	}, nil
}

// ListReports returns stored reports, filtered by exact city when set.
func (i *Ingester) ListReports(ctx context.Context, filter ReportFilter) ([]Report, error) {
	reports, err := i.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (i *Ingester) persist(ctx context.Context, report Report) Outcome[Report] {
	id, err := i.store.Create(ctx, report)
	if err != nil {
		return Fatal[Report](err)
	}
	report.ID = id
	return OK(report)
}

// publish is best effort: a stored report stays stored if the announcement fails.
func (i *Ingester) publish(ctx context.Context, report Report) bool {
	if i.publisher == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, i.publishTimeout)
	defer cancel()
	if err := i.publisher.PublishReport(ctx, report); err != nil {
		i.logger.Warn("report publish failed", "id", report.ID, "error", err)
		return false
	}
	return true
}

func (i *Ingester) failed(reason string) {
	if i.observer != nil {
		i.observer.ReportFailed(reason)
	}
}
