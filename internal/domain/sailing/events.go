package sailing

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicSailingEvents  = "sailing.events"
	TopicScheduleEvents = "schedule.events"
)

// Outbound event types, published by this service on TopicSailingEvents.
const (
	EventSailingCreated     = "sailing.created"
	EventSailingDeparted    = "sailing.departed"
	EventSailingArrived     = "sailing.arrived"
	EventSailingCancelled   = "sailing.cancelled"
	EventSailingRescheduled = "sailing.rescheduled"
)

// Inbound event types, published by port operations on TopicScheduleEvents.
const (
	EventScheduleDelayed   = "schedule.sailing_delayed"
	EventScheduleDeparted  = "schedule.sailing_departed"
	EventScheduleArrived   = "schedule.sailing_arrived"
	EventScheduleCancelled = "schedule.sailing_cancelled"
)

// SailingCreatedEvent is published when a sailing enters the timetable.
type SailingCreatedEvent struct {
	SailingID          uuid.UUID `json:"sailing_id"`
	Code               string    `json:"code"`
	VesselID           uuid.UUID `json:"vessel_id"`
	DeparturePort      string    `json:"departure_port"`
	ArrivalPort        string    `json:"arrival_port"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// SailingStatusChangedEvent is published on departure, arrival and cancellation.
type SailingStatusChangedEvent struct {
	SailingID  uuid.UUID `json:"sailing_id"`
	Code       string    `json:"code"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SailingRescheduledEvent is published when the scheduled window moves.
type SailingRescheduledEvent struct {
	SailingID          uuid.UUID `json:"sailing_id"`
	Code               string    `json:"code"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// ScheduleEvent is the payload of every inbound schedule.* event. Sailings
// may be referenced by ID or by timetable code.
type ScheduleEvent struct {
	SailingID    *uuid.UUID `json:"sailing_id,omitempty"`
	Code         string     `json:"code,omitempty"`
	DelayMinutes int        `json:"delay_minutes,omitempty"`
	At           *time.Time `json:"at,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}
