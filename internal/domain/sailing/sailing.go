package sailing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ferrylink/service-fleet/internal/domain/position"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
)

const maxCodeLength = 32

// Sailing is the aggregate root for one scheduled crossing.
type Sailing struct {
	id            uuid.UUID
	code          string
	vesselID      uuid.UUID
	departurePort Port
	arrivalPort   Port
	route         RouteSpecification
	status        SailingStatus

	scheduledDeparture time.Time
	scheduledArrival   time.Time
	departedAt         *time.Time
	arrivedAt          *time.Time
	cancelledAt        *time.Time
	cancelNote         string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewSailing creates a new Sailing aggregate with status=scheduled. A sailing
// that does not arrive strictly after it departs is rejected here so it never
// reaches the position calculator.
func NewSailing(
	code string,
	vesselID uuid.UUID,
	departurePort Port,
	arrivalPort Port,
	scheduledDeparture time.Time,
	scheduledArrival time.Time,
) (*Sailing, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.NewValidationError("sailing code is required")
	}
	if len(code) > maxCodeLength {
		return nil, apperror.NewValidationError("sailing code is too long")
	}
	if vesselID == uuid.Nil {
		return nil, apperror.NewValidationError("vessel ID is required")
	}
	if departurePort.Code == "" || arrivalPort.Code == "" {
		return nil, apperror.NewValidationError("departure and arrival ports are required")
	}
	if departurePort.Code == arrivalPort.Code {
		return nil, apperror.NewValidationError("departure and arrival ports must differ")
	}
	if err := validateWindow(scheduledDeparture, scheduledArrival); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dep, arr := scheduledDeparture.UTC(), scheduledArrival.UTC()
	return &Sailing{
		id:                 uuid.New(),
		code:               code,
		vesselID:           vesselID,
		departurePort:      departurePort,
		arrivalPort:        arrivalPort,
		route:              NewRouteSpecification(departurePort, arrivalPort, arr.Sub(dep)),
		status:             StatusScheduled,
		scheduledDeparture: dep,
		scheduledArrival:   arr,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// ReconstructSailing rebuilds a Sailing from persistence data (no validation).
func ReconstructSailing(
	id uuid.UUID,
	code string,
	vesselID uuid.UUID,
	departurePort Port,
	arrivalPort Port,
	route RouteSpecification,
	status SailingStatus,
	scheduledDeparture time.Time,
	scheduledArrival time.Time,
	departedAt *time.Time,
	arrivedAt *time.Time,
	cancelledAt *time.Time,
	cancelNote string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Sailing {
	return &Sailing{
		id:                 id,
		code:               code,
		vesselID:           vesselID,
		departurePort:      departurePort,
		arrivalPort:        arrivalPort,
		route:              route,
		status:             status,
		scheduledDeparture: scheduledDeparture,
		scheduledArrival:   scheduledArrival,
		departedAt:         departedAt,
		arrivedAt:          arrivedAt,
		cancelledAt:        cancelledAt,
		cancelNote:         cancelNote,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

func validateWindow(departure, arrival time.Time) error {
	if departure.IsZero() || arrival.IsZero() {
		return apperror.NewValidationError("scheduled departure and arrival are required")
	}
	if !arrival.After(departure) {
		return apperror.NewValidationError("scheduled arrival must be after scheduled departure")
	}
	return nil
}

// --- Getters ---

// ID returns the sailing's unique identifier.
func (s *Sailing) ID() uuid.UUID { return s.id }

// Code returns the timetable code, e.g. "TUN-MRS-0800".
func (s *Sailing) Code() string { return s.code }

// VesselID returns the operating vessel.
func (s *Sailing) VesselID() uuid.UUID { return s.vesselID }

// DeparturePort returns the port of departure.
func (s *Sailing) DeparturePort() Port { return s.departurePort }

// ArrivalPort returns the port of arrival.
func (s *Sailing) ArrivalPort() Port { return s.arrivalPort }

// Route returns the route specification.
func (s *Sailing) Route() RouteSpecification { return s.route }

// Status returns the current sailing status.
func (s *Sailing) Status() SailingStatus { return s.status }

// ScheduledDeparture returns the scheduled departure time.
func (s *Sailing) ScheduledDeparture() time.Time { return s.scheduledDeparture }

// ScheduledArrival returns the scheduled arrival time.
func (s *Sailing) ScheduledArrival() time.Time { return s.scheduledArrival }

// DepartedAt returns when the ferry left port, or nil.
func (s *Sailing) DepartedAt() *time.Time { return s.departedAt }

// ArrivedAt returns when the ferry docked, or nil.
func (s *Sailing) ArrivedAt() *time.Time { return s.arrivedAt }

// CancelledAt returns when the sailing was cancelled, or nil.
func (s *Sailing) CancelledAt() *time.Time { return s.cancelledAt }

// CancelNote returns the cancellation reason.
func (s *Sailing) CancelNote() string { return s.cancelNote }

// Version returns the entity version for optimistic locking.
func (s *Sailing) Version() int64 { return s.version }

// CreatedAt returns the creation timestamp.
func (s *Sailing) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (s *Sailing) UpdatedAt() time.Time { return s.updatedAt }

// --- Behavior ---

// Depart transitions the sailing from scheduled to departed.
func (s *Sailing) Depart(at time.Time) error {
	if !s.status.CanTransitionTo(StatusDeparted) {
		return apperror.NewInvalidStateError(string(s.status), string(StatusDeparted))
	}
	at = at.UTC()
	s.status = StatusDeparted
	s.departedAt = &at
	s.updatedAt = time.Now().UTC()
	return nil
}

// Arrive transitions the sailing from departed to arrived.
func (s *Sailing) Arrive(at time.Time) error {
	if !s.status.CanTransitionTo(StatusArrived) {
		return apperror.NewInvalidStateError(string(s.status), string(StatusArrived))
	}
	at = at.UTC()
	s.status = StatusArrived
	s.arrivedAt = &at
	s.updatedAt = time.Now().UTC()
	return nil
}

// Cancel transitions the sailing to cancelled if it is not in a terminal state.
func (s *Sailing) Cancel(reason string) error {
	if !s.status.CanBeCancelled() {
		return apperror.NewInvalidStateError(string(s.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	s.status = StatusCancelled
	s.cancelNote = reason
	s.cancelledAt = &now
	s.updatedAt = now
	return nil
}

// Reschedule moves the scheduled window of a sailing that has not finished.
func (s *Sailing) Reschedule(departure, arrival time.Time) error {
	if s.status.IsTerminal() {
		return apperror.NewInvalidStateError(string(s.status), "rescheduled")
	}
	if s.status == StatusDeparted && !departure.UTC().Equal(s.scheduledDeparture) {
		return apperror.NewValidationError("departure of a sailing already at sea cannot move")
	}
	if err := validateWindow(departure, arrival); err != nil {
		return err
	}
	s.scheduledDeparture = departure.UTC()
	s.scheduledArrival = arrival.UTC()
	s.route = NewRouteSpecification(s.departurePort, s.arrivalPort, s.scheduledArrival.Sub(s.scheduledDeparture))
	s.updatedAt = time.Now().UTC()
	return nil
}

// Delay shifts the scheduled arrival, and the departure while still in port, by d.
func (s *Sailing) Delay(d time.Duration) error {
	departure := s.scheduledDeparture
	if s.status == StatusScheduled {
		departure = departure.Add(d)
	}
	return s.Reschedule(departure, s.scheduledArrival.Add(d))
}

// IncrementVersion bumps the version for optimistic locking.
func (s *Sailing) IncrementVersion() {
	s.version++
	s.updatedAt = time.Now().UTC()
}

// Track projects the sailing onto the position calculator's input.
func (s *Sailing) Track() position.Sailing {
	return position.Sailing{
		ID:            s.id.String(),
		DepartureTime: s.scheduledDeparture,
		ArrivalTime:   s.scheduledArrival,
		Departure:     s.departurePort.Coordinate(),
		Arrival:       s.arrivalPort.Coordinate(),
	}
}
