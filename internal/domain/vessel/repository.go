package vessel

import (
	"context"

	"github.com/google/uuid"
)

// VesselRepository defines persistence operations for the fleet registry.
type VesselRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Vessel, error)
	FindByIMO(ctx context.Context, imo string) (*Vessel, error)
	List(ctx context.Context) ([]*Vessel, error)
	Save(ctx context.Context, vessel *Vessel) error
	Update(ctx context.Context, vessel *Vessel) error
}
