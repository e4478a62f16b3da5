// Package notify delivers new-report notifications to downstream
// consumers over Kafka.
package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"community-intake-service/internal/observability/metrics"
)

// ReportNotification is the payload published for every accepted
// incident report.
type ReportNotification struct {
	ReportID     int64     `json:"reportId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location,omitempty"`
	IncidentTime string    `json:"incidentTime,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notifier delivers report notifications. Delivery failures are
// reported to the caller but must never fail the report submission.
type Notifier interface {
	NotifyReport(ctx context.Context, n ReportNotification) error
	Close() error
}

// Config holds Kafka notifier configuration.
type Config struct {
	Brokers   []string
	Topic     string
	Principal string
	Enabled   bool
}

// KafkaNotifier publishes report notifications to a Kafka topic. When
// disabled it runs in log-only mode and every delivery succeeds.
type KafkaNotifier struct {
	writer    *kafka.Writer
	principal string
	topic     string
	enabled   bool
	metrics   *metrics.Metrics
}

// New creates a Kafka notifier from cfg. A nil or disabled config
// yields a log-only notifier.
func New(cfg *Config) *KafkaNotifier {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &KafkaNotifier{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &KafkaNotifier{
			principal: cfg.Principal,
			topic:     cfg.Topic,
			enabled:   false,
			metrics:   m,
		}
	}

	// Longer dial timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport: &kafka.Transport{
			Dial: dialer.DialFunc,
		},
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("principal", cfg.Principal).
		Msg("Kafka notifier initialized")

	return &KafkaNotifier{
		writer:    writer,
		principal: cfg.Principal,
		topic:     cfg.Topic,
		enabled:   true,
		metrics:   m,
	}
}

// NotifyReport publishes one report notification keyed by report ID.
func (n *KafkaNotifier) NotifyReport(ctx context.Context, event ReportNotification) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", n.topic).Msg("Failed to marshal notification")
		n.metrics.RecordNotify(err, time.Since(start).Seconds())
		return err
	}

	log.Debug().
		Str("principal", n.principal).
		Str("topic", n.topic).
		Int64("reportId", event.ReportID).
		RawJSON("payload", payload).
		Msg("Publishing report notification")

	if !n.enabled || n.writer == nil {
		n.metrics.RecordNotify(nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ReportID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("report.created")},
			{Key: "principal", Value: []byte(n.principal)},
		},
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", n.topic).
			Int64("reportId", event.ReportID).
			Msg("Failed to write to Kafka")
		n.metrics.RecordNotify(err, time.Since(start).Seconds())
		return err
	}

	n.metrics.RecordNotify(nil, time.Since(start).Seconds())
	return nil
}

// Close closes the Kafka writer.
func (n *KafkaNotifier) Close() error {
	if n.writer != nil {
		if err := n.writer.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Kafka writer")
			return err
		}
	}
	return nil
}
