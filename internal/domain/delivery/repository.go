package delivery

import (
	"context"

	"github.com/google/uuid"
)

// ModeRepository reads delivery modes
type ModeRepository interface {
	// FindByID returns shared.ErrNotFound when the mode does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Mode, error)
	FindActive(ctx context.Context) ([]Mode, error)
}

// ZoneRepository reads delivery zones
type ZoneRepository interface {
	FindAll(ctx context.Context) ([]Zone, error)
}
