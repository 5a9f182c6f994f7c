package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	sailingDomain "github.com/ferrylink/service-fleet/internal/domain/sailing"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
)

// SailingModel is the GORM model for the sailings table.
type SailingModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code               string          `gorm:"uniqueIndex;not null;size:32"`
	VesselID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	DeparturePortCode  string          `gorm:"not null;size:5;index"`
	ArrivalPortCode    string          `gorm:"not null;size:5;index"`
	DeparturePort      json.RawMessage `gorm:"type:jsonb;not null"`
	ArrivalPort        json.RawMessage `gorm:"type:jsonb;not null"`
	Route              json.RawMessage `gorm:"type:jsonb;not null"`
	Status             string          `gorm:"not null;size:20;index"`
	ScheduledDeparture time.Time       `gorm:"not null;index"`
	ScheduledArrival   time.Time       `gorm:"not null;index"`
	DepartedAt         *time.Time      `gorm:""`
	ArrivedAt          *time.Time      `gorm:""`
	CancelledAt        *time.Time      `gorm:""`
	CancelNote         string          `gorm:"size:500"`
	Version            int64           `gorm:"not null;default:1"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (SailingModel) TableName() string {
	return "sailings"
}

// GormSailingRepository is the GORM-based implementation of SailingRepository.
type GormSailingRepository struct {
	db *gorm.DB
}

// NewGormSailingRepository creates a new GormSailingRepository.
func NewGormSailingRepository(db *gorm.DB) *GormSailingRepository {
	return &GormSailingRepository{db: db}
}

// FindByID retrieves a sailing by its unique identifier.
func (r *GormSailingRepository) FindByID(ctx context.Context, id uuid.UUID) (*sailingDomain.Sailing, error) {
	var model SailingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Sailing", id.String())
		}
		return nil, fmt.Errorf("failed to find sailing by ID: %w", err)
	}
	return toDomainSailing(&model)
}

// FindByCode retrieves a sailing by its timetable code.
func (r *GormSailingRepository) FindByCode(ctx context.Context, code string) (*sailingDomain.Sailing, error) {
	var model SailingModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("Sailing", code)
		}
		return nil, fmt.Errorf("failed to find sailing by code: %w", err)
	}
	return toDomainSailing(&model)
}

// ListActive retrieves map-visible sailings whose crossing overlaps [from, to].
func (r *GormSailingRepository) ListActive(ctx context.Context, from, to time.Time) ([]*sailingDomain.Sailing, error) {
	statuses := make([]string, 0, 3)
	for _, s := range sailingDomain.MapStatuses() {
		statuses = append(statuses, string(s))
	}

	var models []SailingModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("scheduled_departure <= ? AND scheduled_arrival >= ?", to, from).
		Order("scheduled_departure ASC, id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list active sailings: %w", err)
	}

	return toDomainSailings(models)
}

// ListAll retrieves all sailings with pagination (admin).
func (r *GormSailingRepository) ListAll(ctx context.Context, page, limit int) ([]*sailingDomain.Sailing, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&SailingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sailings: %w", err)
	}

	var models []SailingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("scheduled_departure DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sailings: %w", err)
	}

	sailings, err := toDomainSailings(models)
	if err != nil {
		return nil, 0, err
	}
	return sailings, total, nil
}

// CountByStatus returns sailing counts grouped by status (admin).
func (r *GormSailingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&SailingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new sailing.
func (r *GormSailingRepository) Save(ctx context.Context, s *sailingDomain.Sailing) error {
	model, err := toSailingModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert sailing to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewConflictError(fmt.Sprintf("sailing code %s already exists", s.Code()))
		}
		return fmt.Errorf("failed to save sailing: %w", err)
	}
	return nil
}

// Update persists changes to an existing sailing with optimistic locking.
func (r *GormSailingRepository) Update(ctx context.Context, s *sailingDomain.Sailing) error {
	model, err := toSailingModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert sailing to model: %w", err)
	}

	// IncrementVersion has already been called, so the stored row holds version-1.
	expectedVersion := s.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&SailingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"vessel_id":           model.VesselID,
			"route":               model.Route,
			"status":              model.Status,
			"scheduled_departure": model.ScheduledDeparture,
			"scheduled_arrival":   model.ScheduledArrival,
			"departed_at":         model.DepartedAt,
			"arrived_at":          model.ArrivedAt,
			"cancelled_at":        model.CancelledAt,
			"cancel_note":         model.CancelNote,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update sailing: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperror.NewConflictError("sailing was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toSailingModel(s *sailingDomain.Sailing) (*SailingModel, error) {
	depJSON, err := json.Marshal(s.DeparturePort())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal departure port: %w", err)
	}

	arrJSON, err := json.Marshal(s.ArrivalPort())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal arrival port: %w", err)
	}

	routeJSON, err := json.Marshal(s.Route())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route: %w", err)
	}

	return &SailingModel{
		ID:                 s.ID(),
		Code:               s.Code(),
		VesselID:           s.VesselID(),
		DeparturePortCode:  s.DeparturePort().Code,
		ArrivalPortCode:    s.ArrivalPort().Code,
		DeparturePort:      depJSON,
		ArrivalPort:        arrJSON,
		Route:              routeJSON,
		Status:             string(s.Status()),
		ScheduledDeparture: s.ScheduledDeparture(),
		ScheduledArrival:   s.ScheduledArrival(),
		DepartedAt:         s.DepartedAt(),
		ArrivedAt:          s.ArrivedAt(),
		CancelledAt:        s.CancelledAt(),
		CancelNote:         s.CancelNote(),
		Version:            s.Version(),
		CreatedAt:          s.CreatedAt(),
		UpdatedAt:          s.UpdatedAt(),
	}, nil
}

func toDomainSailings(models []SailingModel) ([]*sailingDomain.Sailing, error) {
	sailings := make([]*sailingDomain.Sailing, len(models))
	for i := range models {
		s, err := toDomainSailing(&models[i])
		if err != nil {
			return nil, err
		}
		sailings[i] = s
	}
	return sailings, nil
}

func toDomainSailing(m *SailingModel) (*sailingDomain.Sailing, error) {
	var dep sailingDomain.Port
	if err := json.Unmarshal(m.DeparturePort, &dep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal departure port: %w", err)
	}

	var arr sailingDomain.Port
	if err := json.Unmarshal(m.ArrivalPort, &arr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arrival port: %w", err)
	}

	var route sailingDomain.RouteSpecification
	if len(m.Route) > 0 {
		if err := json.Unmarshal(m.Route, &route); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route: %w", err)
		}
	}

	status, err := sailingDomain.ParseSailingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return sailingDomain.ReconstructSailing(
		m.ID,
		m.Code,
		m.VesselID,
		dep,
		arr,
		route,
		status,
		m.ScheduledDeparture.UTC(),
		m.ScheduledArrival.UTC(),
		m.DepartedAt,
		m.ArrivedAt,
		m.CancelledAt,
		m.CancelNote,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
