package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
	"github.com/couchcryptid/outage-alert-service/internal/observability"
)

// BatchExtractor reads up to batchSize report messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.Message, error)
}

// Matcher finds the alerts a report raises.
type Matcher interface {
	AlertsFor(ctx context.Context, report domain.Report) ([]domain.Alert, error)
}

// BatchLoader writes alerts to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, alerts []domain.Alert) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline turns announced reports into per-subscriber alerts.
type Pipeline struct {
	extractor BatchExtractor
	matcher   Matcher
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, m Matcher, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		matcher:   m,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Run executes the consume-match-produce loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("alert pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("alert pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.ReportsConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	reports := p.decode(ctx, batch)

	// Matching and loading are retried until they succeed so that a store or
	// broker outage does not drop alerts. Offsets are committed only after.
	for {
		produced, err := p.fanOut(ctx, reports)
		if err == nil {
			p.metrics.AlertsProduced.Add(float64(produced))
			break
		}
		p.logger.Error("alert fan-out failed", "error", err, "reports", len(reports))
		if !p.backoffOrStop(ctx, backoff) {
			return false
		}
	}
	*backoff = initialBackoff

	for _, r := range reports {
		p.commitOffset(ctx, r.msg)
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	return true
}

type decodedReport struct {
	report domain.Report
	msg    domain.Message
}

// decode parses each message. Poison messages are logged, counted and
// committed so they are never redelivered.
func (p *Pipeline) decode(ctx context.Context, batch []domain.Message) []decodedReport {
	out := make([]decodedReport, 0, len(batch))
	for _, msg := range batch {
		r, err := domain.DecodeReportMessage(msg)
		if err != nil {
			p.logger.Warn("undecodable report message, skipping",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, msg)
			continue
		}
		out = append(out, decodedReport{report: r, msg: msg})
	}
	return out
}

func (p *Pipeline) fanOut(ctx context.Context, reports []decodedReport) (int, error) {
	var alerts []domain.Alert
	for _, r := range reports {
		matched, err := p.matcher.AlertsFor(ctx, r.report)
		if err != nil {
			return 0, err
		}
		p.logger.Debug("report matched", "report_id", r.report.ID, "city", r.report.City, "alerts", len(matched))
		alerts = append(alerts, matched...)
	}
	if len(alerts) == 0 {
		return 0, nil
	}
	if err := p.loader.LoadBatch(ctx, alerts); err != nil {
		return 0, err
	}
	return len(alerts), nil
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context was cancelled.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func (p *Pipeline) commitOffset(ctx context.Context, msg domain.Message) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
