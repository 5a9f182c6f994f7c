package sailing

import "fmt"

// SailingStatus represents the current state of a sailing in its lifecycle.
type SailingStatus string

const (
	StatusScheduled SailingStatus = "scheduled"
	StatusDeparted  SailingStatus = "departed"
	StatusArrived   SailingStatus = "arrived"
	StatusCancelled SailingStatus = "cancelled"
)

// validTransitions defines the state machine for sailing status transitions.
var validTransitions = map[SailingStatus][]SailingStatus{
	StatusScheduled: {StatusDeparted, StatusCancelled},
	StatusDeparted:  {StatusArrived, StatusCancelled},
	StatusArrived:   {},
	StatusCancelled: {},
}

// IsValid returns true if the status is a recognized sailing status.
func (s SailingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s SailingStatus) CanTransitionTo(target SailingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s SailingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// CanBeCancelled returns true if the sailing can be cancelled from this status.
func (s SailingStatus) CanBeCancelled() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// OnMap returns true if sailings in this status are drawn on the live map.
// Arrived sailings stay pinned at their destination until they age out of the
// refresh window.
func (s SailingStatus) OnMap() bool {
	return s == StatusScheduled || s == StatusDeparted || s == StatusArrived
}

// String returns the string representation of the status.
func (s SailingStatus) String() string {
	return string(s)
}

// ParseSailingStatus converts a string to a SailingStatus, returning an error if invalid.
func ParseSailingStatus(s string) (SailingStatus, error) {
	status := SailingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid sailing status: %s", s)
	}
	return status, nil
}

// MapStatuses lists the statuses drawn on the live map.
func MapStatuses() []SailingStatus {
	return []SailingStatus{StatusScheduled, StatusDeparted, StatusArrived}
}
