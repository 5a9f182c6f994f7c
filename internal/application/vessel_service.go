package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	vesselDomain "github.com/ferrylink/service-fleet/internal/domain/vessel"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
)

// CreateVesselRequest is the request DTO for registering a vessel.
type CreateVesselRequest struct {
	Name              string `json:"name" binding:"required"`
	IMONumber         string `json:"imo_number" binding:"required,len=7,numeric"`
	Operator          string `json:"operator"`
	PassengerCapacity int    `json:"passenger_capacity" binding:"gte=0"`
	VehicleCapacity   int    `json:"vehicle_capacity" binding:"gte=0"`
}

// UpdateVesselRequest is the request DTO for updating a vessel. Zero values
// leave fields unchanged.
type UpdateVesselRequest struct {
	Name              string `json:"name"`
	Operator          string `json:"operator"`
	PassengerCapacity int    `json:"passenger_capacity" binding:"gte=0"`
	VehicleCapacity   int    `json:"vehicle_capacity" binding:"gte=0"`
}

// VesselDTO is the API response representation of a vessel.
type VesselDTO struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	IMONumber         string    `json:"imo_number"`
	Operator          string    `json:"operator,omitempty"`
	PassengerCapacity int       `json:"passenger_capacity"`
	VehicleCapacity   int       `json:"vehicle_capacity"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VesselService implements use cases for the fleet registry.
type VesselService struct {
	repo   vesselDomain.VesselRepository
	logger *zap.Logger
}

// NewVesselService creates a new VesselService.
func NewVesselService(repo vesselDomain.VesselRepository, logger *zap.Logger) *VesselService {
	return &VesselService{repo: repo, logger: logger}
}

// CreateVessel registers a new vessel. IMO numbers are unique.
func (s *VesselService) CreateVessel(ctx context.Context, req CreateVesselRequest) (*VesselDTO, error) {
	existing, err := s.repo.FindByIMO(ctx, req.IMONumber)
	if err == nil && existing != nil {
		return nil, apperror.NewConflictError(fmt.Sprintf("vessel with IMO %s already exists", req.IMONumber))
	}
	if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	v, err := vesselDomain.NewVessel(req.Name, req.IMONumber, req.Operator, req.PassengerCapacity, req.VehicleCapacity)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, v); err != nil {
		s.logger.Error("failed to create vessel", zap.Error(err))
		return nil, err
	}

	s.logger.Info("vessel registered",
		zap.String("vessel_id", v.ID().String()),
		zap.String("imo", v.IMONumber()),
	)
	result := toVesselDTO(v)
	return &result, nil
}

// ListVessels returns every vessel in the registry.
func (s *VesselService) ListVessels(ctx context.Context) ([]VesselDTO, error) {
	vessels, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vessels: %w", err)
	}
	dtos := make([]VesselDTO, len(vessels))
	for i, v := range vessels {
		dtos[i] = toVesselDTO(v)
	}
	return dtos, nil
}

// GetVessel returns a single vessel by ID.
func (s *VesselService) GetVessel(ctx context.Context, id uuid.UUID) (*VesselDTO, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toVesselDTO(v)
	return &result, nil
}

// UpdateVessel applies a partial update.
func (s *VesselService) UpdateVessel(ctx context.Context, id uuid.UUID, req UpdateVesselRequest) (*VesselDTO, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v.Update(req.Name, req.Operator, req.PassengerCapacity, req.VehicleCapacity)

	if err := s.repo.Update(ctx, v); err != nil {
		s.logger.Error("failed to update vessel", zap.Error(err))
		return nil, err
	}

	s.logger.Info("vessel updated", zap.String("vessel_id", id.String()))
	result := toVesselDTO(v)
	return &result, nil
}

// RetireVessel takes a vessel out of service. Retiring twice is a no-op.
func (s *VesselService) RetireVessel(ctx context.Context, id uuid.UUID) error {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !v.IsActive() {
		return nil
	}

	v.Retire()
	if err := s.repo.Update(ctx, v); err != nil {
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			s.logger.Error("failed to retire vessel", zap.Error(err))
		}
		return err
	}

	s.logger.Info("vessel retired", zap.String("vessel_id", id.String()))
	return nil
}

func toVesselDTO(v *vesselDomain.Vessel) VesselDTO {
	return VesselDTO{
		ID:                v.ID(),
		Name:              v.Name(),
		IMONumber:         v.IMONumber(),
		Operator:          v.Operator(),
		PassengerCapacity: v.PassengerCapacity(),
		VehicleCapacity:   v.VehicleCapacity(),
		Status:            string(v.Status()),
		CreatedAt:         v.CreatedAt(),
		UpdatedAt:         v.UpdatedAt(),
	}
}
