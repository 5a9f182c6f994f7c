package vessel

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/ferrylink/service-fleet/internal/platform/apperror"
)

// VesselStatus represents the lifecycle state of a vessel in the fleet registry.
type VesselStatus string

const (
	VesselStatusActive  VesselStatus = "active"
	VesselStatusRetired VesselStatus = "retired"
)

// Vessel is the aggregate root for a ship operating sailings.
type Vessel struct {
	id                uuid.UUID
	name              string
	imoNumber         string
	operator          string
	passengerCapacity int
	vehicleCapacity   int
	status            VesselStatus
	version           int64
	createdAt         time.Time
	updatedAt         time.Time
}

// NewVessel creates a new active vessel with validated fields.
func NewVessel(name, imoNumber, operator string, passengerCapacity, vehicleCapacity int) (*Vessel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.NewValidationError("vessel name is required")
	}
	if err := ValidateIMO(imoNumber); err != nil {
		return nil, err
	}
	if passengerCapacity < 0 || vehicleCapacity < 0 {
		return nil, apperror.NewValidationError("capacities cannot be negative")
	}

	now := time.Now().UTC()
	return &Vessel{
		id:                uuid.New(),
		name:              name,
		imoNumber:         imoNumber,
		operator:          operator,
		passengerCapacity: passengerCapacity,
		vehicleCapacity:   vehicleCapacity,
		status:            VesselStatusActive,
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// Reconstruct rebuilds a Vessel from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	name, imoNumber, operator string,
	passengerCapacity, vehicleCapacity int,
	status VesselStatus,
	version int64,
	createdAt, updatedAt time.Time,
) *Vessel {
	return &Vessel{
		id:                id,
		name:              name,
		imoNumber:         imoNumber,
		operator:          operator,
		passengerCapacity: passengerCapacity,
		vehicleCapacity:   vehicleCapacity,
		status:            status,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ValidateIMO checks a seven-digit IMO ship number including its check digit:
// the first six digits weighted 7..2 sum to a number whose last digit is the seventh.
func ValidateIMO(imo string) error {
	if len(imo) != 7 {
		return apperror.NewValidationError("IMO number must have 7 digits")
	}
	sum := 0
	for i, r := range imo {
		if !unicode.IsDigit(r) {
			return apperror.NewValidationError("IMO number must be numeric")
		}
		if i < 6 {
			sum += int(r-'0') * (7 - i)
		}
	}
	if sum%10 != int(imo[6]-'0') {
		return apperror.NewValidationError(fmt.Sprintf("IMO number %s has an invalid check digit", imo))
	}
	return nil
}

// --- Getters ---

func (v *Vessel) ID() uuid.UUID          { return v.id }
func (v *Vessel) Name() string           { return v.name }
func (v *Vessel) IMONumber() string      { return v.imoNumber }
func (v *Vessel) Operator() string       { return v.operator }
func (v *Vessel) PassengerCapacity() int { return v.passengerCapacity }
func (v *Vessel) VehicleCapacity() int   { return v.vehicleCapacity }
func (v *Vessel) Status() VesselStatus   { return v.status }
func (v *Vessel) Version() int64         { return v.version }
func (v *Vessel) CreatedAt() time.Time   { return v.createdAt }
func (v *Vessel) UpdatedAt() time.Time   { return v.updatedAt }

// --- Behavior ---

// Update applies partial updates to the vessel. Zero values leave fields unchanged.
func (v *Vessel) Update(name, operator string, passengerCapacity, vehicleCapacity int) {
	if name != "" {
		v.name = name
	}
	if operator != "" {
		v.operator = operator
	}
	if passengerCapacity > 0 {
		v.passengerCapacity = passengerCapacity
	}
	if vehicleCapacity > 0 {
		v.vehicleCapacity = vehicleCapacity
	}
	v.version++
	v.updatedAt = time.Now().UTC()
}

// Retire takes the vessel out of service.
func (v *Vessel) Retire() {
	v.status = VesselStatusRetired
	v.version++
	v.updatedAt = time.Now().UTC()
}

// IsActive returns true if the vessel can be assigned to sailings.
func (v *Vessel) IsActive() bool {
	return v.status == VesselStatusActive
}
