package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ferrylink/service-fleet/internal/domain/position"
	sailingDomain "github.com/ferrylink/service-fleet/internal/domain/sailing"
	vesselDomain "github.com/ferrylink/service-fleet/internal/domain/vessel"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
	"github.com/ferrylink/service-fleet/internal/platform/kafka"
	"github.com/ferrylink/service-fleet/internal/portcatalog"
)

const eventSource = "service-fleet"

// EventPublisher is the subset of kafka.Producer the services need.
type EventPublisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, ce kafka.CloudEvent) error
}

// PortLookup resolves a port code to a catalog entry.
type PortLookup interface {
	Lookup(code string) (portcatalog.Port, error)
}

// CreateSailingRequest holds the data needed to schedule a new sailing.
type CreateSailingRequest struct {
	Code               string    `json:"code" binding:"required"`
	VesselID           uuid.UUID `json:"vessel_id" binding:"required"`
	DeparturePort      string    `json:"departure_port" binding:"required"`
	ArrivalPort        string    `json:"arrival_port" binding:"required"`
	ScheduledDeparture time.Time `json:"scheduled_departure" binding:"required"`
	ScheduledArrival   time.Time `json:"scheduled_arrival" binding:"required"`
}

// RescheduleRequest moves the scheduled window of a sailing.
type RescheduleRequest struct {
	ScheduledDeparture time.Time `json:"scheduled_departure" binding:"required"`
	ScheduledArrival   time.Time `json:"scheduled_arrival" binding:"required"`
}

// SailingDTO is the response representation of a sailing.
type SailingDTO struct {
	ID                 uuid.UUID                        `json:"id"`
	Code               string                           `json:"code"`
	VesselID           uuid.UUID                        `json:"vessel_id"`
	Status             string                           `json:"status"`
	DeparturePort      sailingDomain.Port               `json:"departure_port"`
	ArrivalPort        sailingDomain.Port               `json:"arrival_port"`
	Route              sailingDomain.RouteSpecification `json:"route"`
	ScheduledDeparture time.Time                        `json:"scheduled_departure"`
	ScheduledArrival   time.Time                        `json:"scheduled_arrival"`
	DepartedAt         *time.Time                       `json:"departed_at,omitempty"`
	ArrivedAt          *time.Time                       `json:"arrived_at,omitempty"`
	CancelledAt        *time.Time                       `json:"cancelled_at,omitempty"`
	CancelNote         string                           `json:"cancel_note,omitempty"`
	Version            int64                            `json:"version"`
	CreatedAt          time.Time                        `json:"created_at"`
	UpdatedAt          time.Time                        `json:"updated_at"`
}

// SailingPositionDTO is the live position of a single sailing.
type SailingPositionDTO struct {
	SailingID uuid.UUID `json:"sailing_id"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Heading   float64   `json:"heading"`
	Progress  float64   `json:"progress"`
	At        time.Time `json:"at"`
}

// SailingStatsDTO holds sailing statistics for the admin dashboard.
type SailingStatsDTO struct {
	TotalSailings int64            `json:"total_sailings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// SailingService is the application service orchestrating sailing use cases.
type SailingService struct {
	repo      sailingDomain.SailingRepository
	vessels   vesselDomain.VesselRepository
	ports     PortLookup
	publisher EventPublisher
	clock     position.Clock
	logger    *zap.Logger

	onChange func(ctx context.Context)
}

// NewSailingService creates a new SailingService.
func NewSailingService(
	repo sailingDomain.SailingRepository,
	vessels vesselDomain.VesselRepository,
	ports PortLookup,
	publisher EventPublisher,
	clock position.Clock,
	logger *zap.Logger,
) *SailingService {
	return &SailingService{
		repo:      repo,
		vessels:   vessels,
		ports:     ports,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// OnChange registers fn to run after every successful write, typically a
// fleet refresh so the map picks the change up before the next scheduled one.
func (s *SailingService) OnChange(fn func(ctx context.Context)) {
	s.onChange = fn
}

// CreateSailing schedules a new sailing between two catalog ports.
func (s *SailingService) CreateSailing(ctx context.Context, req CreateSailingRequest) (*SailingDTO, error) {
	vessel, err := s.vessels.FindByID(ctx, req.VesselID)
	if err != nil {
		return nil, err
	}
	if !vessel.IsActive() {
		return nil, apperror.NewValidationError(fmt.Sprintf("vessel %s is retired", vessel.Name()))
	}

	dep, err := s.resolvePort(req.DeparturePort)
	if err != nil {
		return nil, err
	}
	arr, err := s.resolvePort(req.ArrivalPort)
	if err != nil {
		return nil, err
	}

	sl, err := sailingDomain.NewSailing(req.Code, vessel.ID(), dep, arr, req.ScheduledDeparture, req.ScheduledArrival)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, sl); err != nil {
		return nil, err
	}

	s.logger.Info("sailing scheduled",
		zap.String("sailing_id", sl.ID().String()),
		zap.String("code", sl.Code()),
		zap.String("route", dep.Code+"-"+arr.Code),
	)

	evt := sailingDomain.SailingCreatedEvent{
		SailingID:          sl.ID(),
		Code:               sl.Code(),
		VesselID:           sl.VesselID(),
		DeparturePort:      dep.Code,
		ArrivalPort:        arr.Code,
		ScheduledDeparture: sl.ScheduledDeparture(),
		ScheduledArrival:   sl.ScheduledArrival(),
		OccurredAt:         time.Now().UTC(),
	}
	s.publishEvent(ctx, sailingDomain.EventSailingCreated, sl.ID().String(), evt)
	s.changed(ctx)

	result := toSailingDTO(sl)
	return &result, nil
}

// GetSailing retrieves a single sailing by ID.
func (s *SailingService) GetSailing(ctx context.Context, id uuid.UUID) (*SailingDTO, error) {
	sl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toSailingDTO(sl)
	return &result, nil
}

// DepartSailing records that the ferry has left port. A nil at means now.
func (s *SailingService) DepartSailing(ctx context.Context, id uuid.UUID, at *time.Time) (*SailingDTO, error) {
	return s.transition(ctx, id, sailingDomain.EventSailingDeparted, "", func(sl *sailingDomain.Sailing) error {
		return sl.Depart(s.instant(at))
	})
}

// ArriveSailing records that the ferry has docked. A nil at means now.
func (s *SailingService) ArriveSailing(ctx context.Context, id uuid.UUID, at *time.Time) (*SailingDTO, error) {
	return s.transition(ctx, id, sailingDomain.EventSailingArrived, "", func(sl *sailingDomain.Sailing) error {
		return sl.Arrive(s.instant(at))
	})
}

// CancelSailing cancels a sailing that has not arrived.
func (s *SailingService) CancelSailing(ctx context.Context, id uuid.UUID, reason string) (*SailingDTO, error) {
	return s.transition(ctx, id, sailingDomain.EventSailingCancelled, reason, func(sl *sailingDomain.Sailing) error {
		return sl.Cancel(reason)
	})
}

// RescheduleSailing moves the scheduled window of a sailing.
func (s *SailingService) RescheduleSailing(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*SailingDTO, error) {
	return s.reschedule(ctx, id, func(sl *sailingDomain.Sailing) error {
		return sl.Reschedule(req.ScheduledDeparture, req.ScheduledArrival)
	})
}

// DelaySailing pushes a sailing back by d, keeping the departure of a ferry
// that is already at sea.
func (s *SailingService) DelaySailing(ctx context.Context, id uuid.UUID, d time.Duration) (*SailingDTO, error) {
	return s.reschedule(ctx, id, func(sl *sailingDomain.Sailing) error {
		return sl.Delay(d)
	})
}

// ResolveCode returns the ID of the sailing with the given timetable code.
func (s *SailingService) ResolveCode(ctx context.Context, code string) (uuid.UUID, error) {
	sl, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}
	return sl.ID(), nil
}

// GetPosition computes where the sailing's ferry is right now.
func (s *SailingService) GetPosition(ctx context.Context, id uuid.UUID) (*SailingPositionDTO, error) {
	sl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sl.Status().OnMap() {
		return nil, apperror.NewConflictError(fmt.Sprintf("sailing %s is %s", sl.Code(), sl.Status()))
	}

	now := s.clock.Now()
	sample, err := position.Compute(sl.Track(), now)
	if err != nil {
		s.logger.Error("stored sailing has a malformed schedule",
			zap.String("sailing_id", sl.ID().String()),
			zap.String("code", sl.Code()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("sailing %s has a malformed schedule: %w", sl.Code(), err)
	}

	return &SailingPositionDTO{
		SailingID: sl.ID(),
		Code:      sl.Code(),
		Status:    string(sl.Status()),
		Lat:       sample.Position.Lat,
		Lng:       sample.Position.Lng,
		Heading:   sample.Heading,
		Progress:  sample.Progress,
		At:        now,
	}, nil
}

// --- Admin methods ---

// ListAllSailings returns a paginated list of all sailings (admin).
func (s *SailingService) ListAllSailings(ctx context.Context, page, limit int) ([]SailingDTO, int64, error) {
	sailings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sailings: %w", err)
	}

	dtos := make([]SailingDTO, len(sailings))
	for i, sl := range sailings {
		dtos[i] = toSailingDTO(sl)
	}
	return dtos, total, nil
}

// GetSailingStats returns aggregate sailing statistics (admin).
func (s *SailingService) GetSailingStats(ctx context.Context) (*SailingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sailing stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &SailingStatsDTO{
		TotalSailings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

func (s *SailingService) transition(
	ctx context.Context,
	id uuid.UUID,
	eventType, reason string,
	apply func(*sailingDomain.Sailing) error,
) (*SailingDTO, error) {
	sl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(sl); err != nil {
		return nil, err
	}

	sl.IncrementVersion()
	if err := s.repo.Update(ctx, sl); err != nil {
		return nil, err
	}

	s.logger.Info("sailing status changed",
		zap.String("sailing_id", sl.ID().String()),
		zap.String("status", string(sl.Status())),
	)

	evt := sailingDomain.SailingStatusChangedEvent{
		SailingID:  sl.ID(),
		Code:       sl.Code(),
		Status:     string(sl.Status()),
		At:         statusTime(sl),
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
	s.publishEvent(ctx, eventType, sl.ID().String(), evt)
	s.changed(ctx)

	result := toSailingDTO(sl)
	return &result, nil
}

func (s *SailingService) reschedule(ctx context.Context, id uuid.UUID, apply func(*sailingDomain.Sailing) error) (*SailingDTO, error) {
	sl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(sl); err != nil {
		return nil, err
	}

	sl.IncrementVersion()
	if err := s.repo.Update(ctx, sl); err != nil {
		return nil, err
	}

	s.logger.Info("sailing rescheduled",
		zap.String("sailing_id", sl.ID().String()),
		zap.Time("departure", sl.ScheduledDeparture()),
		zap.Time("arrival", sl.ScheduledArrival()),
	)

	evt := sailingDomain.SailingRescheduledEvent{
		SailingID:          sl.ID(),
		Code:               sl.Code(),
		ScheduledDeparture: sl.ScheduledDeparture(),
		ScheduledArrival:   sl.ScheduledArrival(),
		OccurredAt:         time.Now().UTC(),
	}
	s.publishEvent(ctx, sailingDomain.EventSailingRescheduled, sl.ID().String(), evt)
	s.changed(ctx)

	result := toSailingDTO(sl)
	return &result, nil
}

func (s *SailingService) resolvePort(code string) (sailingDomain.Port, error) {
	p, err := s.ports.Lookup(code)
	if err != nil {
		return sailingDomain.Port{}, err
	}
	return sailingDomain.Port{Code: p.Code, Name: p.Name, Lat: p.Lat, Lng: p.Lng}, nil
}

func (s *SailingService) instant(at *time.Time) time.Time {
	if at != nil {
		return *at
	}
	return s.clock.Now()
}

func (s *SailingService) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

func statusTime(sl *sailingDomain.Sailing) time.Time {
	switch {
	case sl.ArrivedAt() != nil:
		return *sl.ArrivedAt()
	case sl.CancelledAt() != nil:
		return *sl.CancelledAt()
	case sl.DepartedAt() != nil:
		return *sl.DepartedAt()
	}
	return sl.UpdatedAt()
}

func toSailingDTO(sl *sailingDomain.Sailing) SailingDTO {
	return SailingDTO{
		ID:                 sl.ID(),
		Code:               sl.Code(),
		VesselID:           sl.VesselID(),
		Status:             string(sl.Status()),
		DeparturePort:      sl.DeparturePort(),
		ArrivalPort:        sl.ArrivalPort(),
		Route:              sl.Route(),
		ScheduledDeparture: sl.ScheduledDeparture(),
		ScheduledArrival:   sl.ScheduledArrival(),
		DepartedAt:         sl.DepartedAt(),
		ArrivedAt:          sl.ArrivedAt(),
		CancelledAt:        sl.CancelledAt(),
		CancelNote:         sl.CancelNote(),
		Version:            sl.Version(),
		CreatedAt:          sl.CreatedAt(),
		UpdatedAt:          sl.UpdatedAt(),
	}
}

func (s *SailingService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEventWithKey(ctx, sailingDomain.TopicSailingEvents, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", sailingDomain.TopicSailingEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
