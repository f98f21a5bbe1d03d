package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/location"
)

// Job types carried in RefreshMessage.
const (
	JobRefreshAll      = "report_refresh"
	JobRefreshLocation = "location_refresh"
	JobHealthCheck     = "health_check"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *MessageProcessor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// RefreshMessage represents a refresh job message.
type RefreshMessage struct {
	JobType   string   `json:"job_type"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        NewMessageProcessor(cfg.RefreshJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if ack := h.processor.Process(logger.WithContext(ctx), msg.Data); ack {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// MessageProcessor decodes refresh messages and runs the matching job.
type MessageProcessor struct {
	job    *RefreshJob
	logger zerolog.Logger
}

// NewMessageProcessor creates a MessageProcessor.
func NewMessageProcessor(job *RefreshJob, logger zerolog.Logger) *MessageProcessor {
	return &MessageProcessor{job: job, logger: logger}
}

// Process handles one message body and reports whether it should be acked.
// Malformed and unknown messages are acked so they are not redelivered.
func (p *MessageProcessor) Process(ctx context.Context, data []byte) bool {
	startTime := time.Now()
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &p.logger
	}

	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return true
	}

	var err error
	switch msg.JobType {
	case JobRefreshAll:
		err = p.refreshAll(ctx)
	case JobRefreshLocation:
		err = p.refreshLocation(ctx, msg)
	case JobHealthCheck:
		err = p.healthCheck(ctx)
	default:
		logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return true
	}

	if errors.Is(err, airquality.ErrInvalidCoordinates) {
		logger.Warn().Err(err).Msg("dropping message with invalid location")
		return true
	}
	if err != nil {
		logger.Error().Err(err).Str("job_type", msg.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return true
}

func (p *MessageProcessor) refreshAll(ctx context.Context) error {
	result := p.job.Run(ctx)

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.Total)
	}
	return nil
}

func (p *MessageProcessor) refreshLocation(ctx context.Context, msg RefreshMessage) error {
	if msg.Latitude == nil || msg.Longitude == nil {
		return fmt.Errorf("%w: latitude and longitude are required", airquality.ErrInvalidCoordinates)
	}
	loc := airquality.Location{Name: msg.Name, Latitude: *msg.Latitude, Longitude: *msg.Longitude}
	if err := loc.Validate(); err != nil {
		return err
	}

	result := p.job.RunFor(ctx, []airquality.Location{loc})
	if result.Failed > 0 {
		return fmt.Errorf("refresh %s failed: %s", loc.Key(), result.Errors[0].Error)
	}
	return nil
}

func (p *MessageProcessor) healthCheck(ctx context.Context) error {
	result := p.job.RunFor(ctx, []airquality.Location{location.Default})
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}
	return nil
}
