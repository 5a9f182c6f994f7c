package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ferrylink/service-fleet/internal/application"
	sailingDomain "github.com/ferrylink/service-fleet/internal/domain/sailing"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
	"github.com/ferrylink/service-fleet/internal/platform/kafka"
)

// ScheduleService is the part of SailingService driven by operations events.
type ScheduleService interface {
	ResolveCode(ctx context.Context, code string) (uuid.UUID, error)
	DelaySailing(ctx context.Context, id uuid.UUID, d time.Duration) (*application.SailingDTO, error)
	DepartSailing(ctx context.Context, id uuid.UUID, at *time.Time) (*application.SailingDTO, error)
	ArriveSailing(ctx context.Context, id uuid.UUID, at *time.Time) (*application.SailingDTO, error)
	CancelSailing(ctx context.Context, id uuid.UUID, reason string) (*application.SailingDTO, error)
}

// ScheduleEventConsumer applies port-operations updates to the timetable.
type ScheduleEventConsumer struct {
	consumer *kafka.Consumer
	service  ScheduleService
	logger   *zap.Logger
}

// NewScheduleEventConsumer creates a new ScheduleEventConsumer.
func NewScheduleEventConsumer(
	brokers []string,
	groupID string,
	service ScheduleService,
	logger *zap.Logger,
) *ScheduleEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, sailingDomain.TopicScheduleEvents, logger)
	return &ScheduleEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming schedule events. This blocks until the context is cancelled.
func (c *ScheduleEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *ScheduleEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *ScheduleEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from schedule topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case sailingDomain.EventScheduleDelayed,
		sailingDomain.EventScheduleDeparted,
		sailingDomain.EventScheduleArrived,
		sailingDomain.EventScheduleCancelled:
		return c.handleScheduleEvent(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled schedule event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *ScheduleEventConsumer) handleScheduleEvent(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt sailingDomain.ScheduleEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse schedule event data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	id, err := c.resolve(ctx, evt)
	if err != nil {
		return c.reject(cloudEvent, err)
	}

	logger := c.logger.With(
		zap.String("type", cloudEvent.Type),
		zap.String("sailing_id", id.String()),
	)
	logger.Info("processing schedule event")

	switch cloudEvent.Type {
	case sailingDomain.EventScheduleDelayed:
		if evt.DelayMinutes == 0 {
			logger.Warn("schedule delay without minutes, skipping")
			return nil
		}
		_, err = c.service.DelaySailing(ctx, id, time.Duration(evt.DelayMinutes)*time.Minute)
	case sailingDomain.EventScheduleDeparted:
		_, err = c.service.DepartSailing(ctx, id, evt.At)
	case sailingDomain.EventScheduleArrived:
		_, err = c.service.ArriveSailing(ctx, id, evt.At)
	case sailingDomain.EventScheduleCancelled:
		_, err = c.service.CancelSailing(ctx, id, evt.Reason)
	}
	if err != nil {
		return c.reject(cloudEvent, err)
	}

	logger.Info("schedule event applied")
	return nil
}

func (c *ScheduleEventConsumer) resolve(ctx context.Context, evt sailingDomain.ScheduleEvent) (uuid.UUID, error) {
	if evt.SailingID != nil && *evt.SailingID != uuid.Nil {
		return *evt.SailingID, nil
	}
	if evt.Code == "" {
		return uuid.Nil, apperror.NewValidationError("schedule event names no sailing")
	}
	return c.service.ResolveCode(ctx, evt.Code)
}

// reject drops events the timetable refuses and returns everything else so the
// consumer retries the message before committing it.
func (c *ScheduleEventConsumer) reject(cloudEvent kafka.CloudEvent, err error) error {
	if apperror.KindOf(err) != "" {
		c.logger.Warn("schedule event rejected",
			zap.String("type", cloudEvent.Type),
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil
	}
	c.logger.Error("failed to apply schedule event",
		zap.String("type", cloudEvent.Type),
		zap.String("event_id", cloudEvent.ID),
		zap.Error(err),
	)
	return err
}
