package sailing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SailingRepository defines the persistence contract for sailing aggregates.
type SailingRepository interface {
	// FindByID retrieves a sailing by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Sailing, error)

	// FindByCode retrieves a sailing by its timetable code.
	FindByCode(ctx context.Context, code string) (*Sailing, error)

	// ListActive retrieves sailings drawn on the map whose crossing window
	// overlaps [from, to], ordered by scheduled departure.
	ListActive(ctx context.Context, from, to time.Time) ([]*Sailing, error)

	// ListAll retrieves all sailings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Sailing, int64, error)

	// CountByStatus returns sailing counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new sailing.
	Save(ctx context.Context, sailing *Sailing) error

	// Update persists changes to an existing sailing with optimistic locking.
	Update(ctx context.Context, sailing *Sailing) error
}
