package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/outage-alert-service/internal/config"
	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

func newWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
}

// ReportPublisher announces stored reports on the reports topic.
// It implements domain.ReportPublisher.
type ReportPublisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewReportPublisher creates a producer for the configured reports topic.
func NewReportPublisher(cfg *config.Config, logger *slog.Logger) *ReportPublisher {
	w := newWriter(cfg.KafkaBrokers, cfg.KafkaReportsTopic)
	// Publishing happens on the request path; don't wait for a batch to fill.
	w.BatchTimeout = 10 * time.Millisecond
	return &ReportPublisher{writer: w, logger: logger}
}

func (p *ReportPublisher) PublishReport(ctx context.Context, report domain.Report) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %s: %w", report.ID, err)
	}
	p.logger.Debug("report published", "report_id", report.ID, "topic", p.writer.Topic)
	return nil
}

func (p *ReportPublisher) Close() error {
	return p.writer.Close()
}

// AlertWriter produces alerts to the alerts topic.
// It implements pipeline.BatchLoader.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a producer for the configured alerts topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	return &AlertWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaAlertsTopic), logger: logger}
}

// LoadBatch publishes alerts in a single WriteMessages call.
func (w *AlertWriter) LoadBatch(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeAlert(alerts[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

func serializeReport(r domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(r.Category)},
			{Key: "source", Value: []byte(r.Source)},
			{Key: "city", Value: []byte(r.City)},
		},
	}, nil
}

// serializeAlert keys alerts by user so one subscriber's alerts stay ordered.
func serializeAlert(a domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(a.UID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_id", Value: []byte(a.ID)},
			{Key: "report_id", Value: []byte(a.ReportID)},
			{Key: "category", Value: []byte(a.Category)},
			{Key: "created_at", Value: []byte(a.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
