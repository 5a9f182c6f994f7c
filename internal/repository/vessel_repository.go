package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	vesselDomain "github.com/ferrylink/service-fleet/internal/domain/vessel"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
)

// VesselModel is the GORM model for the vessels table.
type VesselModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name              string    `gorm:"type:varchar(100);not null"`
	IMONumber         string    `gorm:"column:imo_number;type:char(7);uniqueIndex;not null"`
	Operator          string    `gorm:"type:varchar(100)"`
	PassengerCapacity int       `gorm:"type:int;not null;default:0"`
	VehicleCapacity   int       `gorm:"type:int;not null;default:0"`
	Status            string    `gorm:"type:varchar(20);not null;default:'active'"`
	Version           int64     `gorm:"not null;default:1"`
	CreatedAt         time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (VesselModel) TableName() string { return "vessels" }

// GormVesselRepository implements VesselRepository using GORM.
type GormVesselRepository struct {
	db *gorm.DB
}

func NewGormVesselRepository(db *gorm.DB) *GormVesselRepository {
	return &GormVesselRepository{db: db}
}

func (r *GormVesselRepository) FindByID(ctx context.Context, id uuid.UUID) (*vesselDomain.Vessel, error) {
	var model VesselModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Vessel", id.String())
		}
		return nil, fmt.Errorf("failed to find vessel: %w", err)
	}
	return toVesselDomain(&model), nil
}

func (r *GormVesselRepository) FindByIMO(ctx context.Context, imo string) (*vesselDomain.Vessel, error) {
	var model VesselModel
	if err := r.db.WithContext(ctx).Where("imo_number = ?", imo).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Vessel", imo)
		}
		return nil, fmt.Errorf("failed to find vessel by IMO: %w", err)
	}
	return toVesselDomain(&model), nil
}

func (r *GormVesselRepository) List(ctx context.Context) ([]*vesselDomain.Vessel, error) {
	var models []VesselModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list vessels: %w", err)
	}

	vessels := make([]*vesselDomain.Vessel, len(models))
	for i := range models {
		vessels[i] = toVesselDomain(&models[i])
	}
	return vessels, nil
}

func (r *GormVesselRepository) Save(ctx context.Context, v *vesselDomain.Vessel) error {
	model := toVesselModel(v)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewConflictError(fmt.Sprintf("vessel with IMO %s already exists", v.IMONumber()))
		}
		return fmt.Errorf("failed to save vessel: %w", err)
	}
	return nil
}

func (r *GormVesselRepository) Update(ctx context.Context, v *vesselDomain.Vessel) error {
	model := toVesselModel(v)
	result := r.db.WithContext(ctx).
		Model(&VesselModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"name":               model.Name,
			"operator":           model.Operator,
			"passenger_capacity": model.PassengerCapacity,
			"vehicle_capacity":   model.VehicleCapacity,
			"status":             model.Status,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update vessel: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NewConflictError("vessel was modified by another transaction")
	}
	return nil
}

func toVesselModel(v *vesselDomain.Vessel) VesselModel {
	return VesselModel{
		ID:                v.ID(),
		Name:              v.Name(),
		IMONumber:         v.IMONumber(),
		Operator:          v.Operator(),
		PassengerCapacity: v.PassengerCapacity(),
		VehicleCapacity:   v.VehicleCapacity(),
		Status:            string(v.Status()),
		Version:           v.Version(),
		CreatedAt:         v.CreatedAt(),
		UpdatedAt:         v.UpdatedAt(),
	}
}

func toVesselDomain(m *VesselModel) *vesselDomain.Vessel {
	return vesselDomain.Reconstruct(
		m.ID,
		m.Name,
		m.IMONumber,
		m.Operator,
		m.PassengerCapacity,
		m.VehicleCapacity,
		vesselDomain.VesselStatus(m.Status),
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
