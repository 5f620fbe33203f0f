package slots

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence the engine drives. Reads made inside Tx see the
// transaction's own writes; an error returned from fn rolls them back.
// Nested Tx calls behave like savepoints.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	// LockPair serializes writers of one (location, service) pair until
	// the surrounding transaction ends.
	LockPair(ctx context.Context, locationID, serviceID uuid.UUID) error

	// FindClientSlot returns the occupied slot bound to clientID, or nil.
	FindClientSlot(ctx context.Context, locationID, serviceID, clientID uuid.UUID) (*LocationSlot, error)
	// FirstAvailable returns the free slot with the lowest number, or nil.
	FirstAvailable(ctx context.Context, locationID, serviceID uuid.UUID) (*LocationSlot, error)
	CountOccupied(ctx context.Context, locationID, serviceID uuid.UUID) (int, error)
	MaxSlotNumber(ctx context.Context, locationID, serviceID uuid.UUID) (int, error)

	Create(ctx context.Context, slot *LocationSlot) error
	Occupy(ctx context.Context, slotID, clientID uuid.UUID) error

	// ReleaseClient frees the client's slots, limited to one service when
	// serviceID is non-nil. It returns the number of slots freed.
	ReleaseClient(ctx context.Context, clientID uuid.UUID, serviceID *uuid.UUID) (int, error)
	// DeleteService removes every slot row of a service.
	DeleteService(ctx context.Context, serviceID uuid.UUID) (int, error)

	// Occupancy lists slot rows for the given locations, or all rows when
	// locationIDs is empty.
	Occupancy(ctx context.Context, locationIDs []uuid.UUID) ([]OccupancyRow, error)
}
