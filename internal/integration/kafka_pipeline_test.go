//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outage-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/outage-alert-service/internal/config"
	"github.com/couchcryptid/outage-alert-service/internal/domain"
	"github.com/couchcryptid/outage-alert-service/internal/observability"
	"github.com/couchcryptid/outage-alert-service/internal/pipeline"
)

const (
	testReportsTopic = "test-reports"
	testAlertsTopic  = "test-alerts"
)

// alertMessage holds a deserialized message read from the alerts topic.
type alertMessage struct {
	Alert   domain.Alert
	Key     string
	Headers map[string]string
}

func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) alertMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alerts topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var alert domain.Alert
	require.NoError(t, json.Unmarshal(msg.Value, &alert), "unmarshal alert")
	return alertMessage{Alert: alert, Key: string(msg.Key), Headers: headers}
}

// staticProfiles serves a fixed set of subscribers.
type staticProfiles struct {
	domain.ProfileStore
	profiles []domain.Profile
}

func (s *staticProfiles) SubscribersForCity(_ context.Context, city string) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, p := range s.profiles {
		if p.WatchesCity(city) {
			out = append(out, p)
		}
	}
	return out, nil
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaReportsTopic:  testReportsTopic,
		KafkaAlertsTopic:   testAlertsTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

func alertsConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertsTopic,
		GroupID:     fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestReportPublisherReader verifies that what the ingester publishes is what
// the pipeline reader extracts.
func TestReportPublisherReader(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportsTopic)
	cfg := testConfig(broker, "test-reader")

	publisher := kafka.NewReportPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	report := domain.Report{ID: "r1", Category: domain.CategoryGas, City: "Pune", Source: domain.SourceOfficial}
	require.NoError(t, publisher.PublishReport(ctx, report))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	batch, err := reader.ExtractBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	msg := batch[0]
	assert.Equal(t, []byte("r1"), msg.Key)
	assert.Equal(t, "gas", msg.Headers["category"])
	assert.Equal(t, "Pune", msg.Headers["city"])
	require.NotNil(t, msg.Commit)
	require.NoError(t, msg.Commit(ctx))

	got, err := domain.DecodeReportMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, report, got)
}

// TestPipelineEndToEnd publishes reports and checks that only subscribers of
// the report's city and category receive alerts.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportsTopic)
	createTopic(t, broker, testAlertsTopic)
	cfg := testConfig(broker, "test-pipeline")

	profiles := &staticProfiles{profiles: []domain.Profile{
		{UID: "pune-all", Locations: []domain.SavedLocation{{Label: "home", City: "Pune"}}, Preferences: domain.DefaultPreferences()},
		{UID: "pune-gas", Locations: []domain.SavedLocation{{Label: "home", City: "Pune"}}, Preferences: domain.NotificationPreferences{Categories: []domain.Category{domain.CategoryGas}, Push: true}},
		{UID: "delhi-all", Locations: []domain.SavedLocation{{Label: "work", City: "Delhi"}}, Preferences: domain.DefaultPreferences()},
	}}

	publisher := kafka.NewReportPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })
	require.NoError(t, publisher.PublishReport(ctx, domain.Report{ID: "r-water", Category: domain.CategoryWater, City: "Pune"}))
	require.NoError(t, publisher.PublishReport(ctx, domain.Report{ID: "r-gas", Category: domain.CategoryGas, City: "Pune"}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewAlertWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, domain.NewProfileService(profiles), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := alertsConsumer(t, broker)
	got := map[string]alertMessage{}
	for range 3 {
		am := readAlert(ctx, t, consumer)
		got[am.Alert.ReportID+"/"+am.Key] = am
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Contains(t, got, "r-water/pune-all")
	assert.Contains(t, got, "r-gas/pune-all")
	assert.Contains(t, got, "r-gas/pune-gas")
	assert.Equal(t, []string{domain.ChannelPush}, got["r-gas/pune-gas"].Alert.Channels)
	for _, am := range got {
		assert.Equal(t, am.Alert.ID, am.Headers["alert_id"])
		_, err := time.Parse(time.RFC3339, am.Headers["created_at"])
		assert.NoError(t, err, "created_at should be RFC3339")
	}

	// Nothing for Delhi, and no duplicate for Pune.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no fourth alert")
}

// TestPipelinePoisonMessage verifies an undecodable report is skipped and the
// pipeline keeps processing.
func TestPipelinePoisonMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportsTopic)
	createTopic(t, broker, testAlertsTopic)
	cfg := testConfig(broker, "test-poison")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testReportsTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
	))

	publisher := kafka.NewReportPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })
	require.NoError(t, publisher.PublishReport(ctx, domain.Report{ID: "r1", Category: domain.CategoryElectricity, City: "Pune"}))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewAlertWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	profiles := &staticProfiles{profiles: []domain.Profile{
		{UID: "u1", Locations: []domain.SavedLocation{{Label: "home", City: "Pune"}}, Preferences: domain.DefaultPreferences()},
	}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, domain.NewProfileService(profiles), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	am := readAlert(ctx, t, alertsConsumer(t, broker))
	assert.Equal(t, "r1", am.Alert.ReportID)
	assert.Equal(t, "u1", am.Key)

	pipelineCancel()
	require.NoError(t, <-errCh)
}
