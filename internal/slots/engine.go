package slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/metrics"
)

// DefaultCapacity is the number of providers a location can hold per service.
const DefaultCapacity = 2

// Engine assigns clients to location slots. Occupied slots for a pair never
// exceed the capacity.
type Engine struct {
	store    Store
	capacity int
	locks    *keyedMutex
	log      *zap.Logger
	inTx     bool
}

type Option func(*Engine)

// WithCapacity overrides DefaultCapacity. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.capacity = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		capacity: DefaultCapacity,
		locks:    newKeyedMutex(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Capacity() int { return e.capacity }

func pairKey(locationID, serviceID uuid.UUID) string {
	return "slots:" + locationID.String() + ":" + serviceID.String()
}

// Transaction runs fn with an engine bound to a single store transaction.
// Any error from fn rolls back every slot change made through tx.
func (e *Engine) Transaction(ctx context.Context, fn func(tx *Engine) error) error {
	return e.store.Tx(ctx, func(s Store) error {
		return fn(&Engine{store: s, capacity: e.capacity, locks: e.locks, log: e.log, inTx: true})
	})
}

// AssignSlot binds clientID to a slot of (locationID, serviceID). A client
// that already holds a slot for the pair gets it back unchanged. Otherwise
// the lowest-numbered free slot is taken, or a new slot appended while the
// pair is below capacity.
func (e *Engine) AssignSlot(ctx context.Context, locationID, serviceID, clientID uuid.UUID) (LocationSlot, error) {
	if locationID == uuid.Nil || serviceID == uuid.Nil || clientID == uuid.Nil {
		return LocationSlot{}, ErrInvalidInput
	}

	// Inside a transaction the store's pair lock serializes writers; taking
	// the in-process lock there could deadlock against it.
	if !e.inTx {
		unlock := e.locks.Lock(pairKey(locationID, serviceID))
		defer unlock()
	}

	var (
		out    LocationSlot
		result = metrics.ResultAssigned
	)
	err := e.store.Tx(ctx, func(tx Store) error {
		if err := tx.LockPair(ctx, locationID, serviceID); err != nil {
			return fmt.Errorf("lock pair: %w", err)
		}

		held, err := tx.FindClientSlot(ctx, locationID, serviceID, clientID)
		if err != nil {
			return fmt.Errorf("find client slot: %w", err)
		}
		if held != nil {
			out, result = *held, metrics.ResultExisting
			return nil
		}

		used, err := tx.CountOccupied(ctx, locationID, serviceID)
		if err != nil {
			return fmt.Errorf("count occupied: %w", err)
		}
		if used >= e.capacity {
			return ErrNoCapacity
		}

		free, err := tx.FirstAvailable(ctx, locationID, serviceID)
		if err != nil {
			return fmt.Errorf("find available slot: %w", err)
		}
		if free != nil {
			if err := tx.Occupy(ctx, free.ID, clientID); err != nil {
				return fmt.Errorf("occupy slot: %w", err)
			}
			c := clientID
			free.Status = StatusOccupied
			free.ClientID = &c
			out = *free
			return nil
		}

		highest, err := tx.MaxSlotNumber(ctx, locationID, serviceID)
		if err != nil {
			return fmt.Errorf("max slot number: %w", err)
		}
		c := clientID
		slot := LocationSlot{
			ID:         uuid.New(),
			LocationID: locationID,
			ServiceID:  serviceID,
			SlotNumber: highest + 1,
			Status:     StatusOccupied,
			ClientID:   &c,
		}
		if err := tx.Create(ctx, &slot); err != nil {
			return fmt.Errorf("create slot: %w", err)
		}
		out = slot
		return nil
	})

	switch {
	case errors.Is(err, ErrNoCapacity):
		metrics.IncSlotAssignment(metrics.ResultFull)
		e.log.Info("slot pair full",
			zap.String("location_id", locationID.String()),
			zap.String("service_id", serviceID.String()),
			zap.Int("capacity", e.capacity))
		return LocationSlot{}, err
	case err != nil:
		metrics.IncSlotAssignment(metrics.ResultError)
		return LocationSlot{}, err
	}

	metrics.IncSlotAssignment(result)
	e.log.Debug("slot assigned",
		zap.String("location_id", locationID.String()),
		zap.String("service_id", serviceID.String()),
		zap.String("client_id", clientID.String()),
		zap.Int("slot_number", out.SlotNumber),
		zap.String("result", result))
	return out, nil
}

// ReleaseClientSlots frees every slot held by clientID.
func (e *Engine) ReleaseClientSlots(ctx context.Context, clientID uuid.UUID) (int, error) {
	return e.release(ctx, clientID, nil)
}

// ReleaseClientService frees clientID's slots for one service.
func (e *Engine) ReleaseClientService(ctx context.Context, clientID, serviceID uuid.UUID) (int, error) {
	if serviceID == uuid.Nil {
		return 0, ErrInvalidInput
	}
	return e.release(ctx, clientID, &serviceID)
}

func (e *Engine) release(ctx context.Context, clientID uuid.UUID, serviceID *uuid.UUID) (int, error) {
	if clientID == uuid.Nil {
		return 0, ErrInvalidInput
	}
	var n int
	err := e.store.Tx(ctx, func(tx Store) error {
		var err error
		n, err = tx.ReleaseClient(ctx, clientID, serviceID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("release slots: %w", err)
	}
	metrics.AddSlotReleases(n)
	return n, nil
}

// PurgeService deletes every slot of a removed service.
func (e *Engine) PurgeService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	if serviceID == uuid.Nil {
		return 0, ErrInvalidInput
	}
	var n int
	err := e.store.Tx(ctx, func(tx Store) error {
		var err error
		n, err = tx.DeleteService(ctx, serviceID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete service slots: %w", err)
	}
	return n, nil
}

// Snapshot reads occupancy for the given locations, or all of them.
func (e *Engine) Snapshot(ctx context.Context, locationIDs ...uuid.UUID) (Snapshot, error) {
	rows, err := e.store.Occupancy(ctx, locationIDs)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	return BuildSnapshot(rows), nil
}

// Availability reads the location's occupancy and projects it per service.
func (e *Engine) Availability(ctx context.Context, locationID uuid.UUID, services []ServiceRef) ([]Availability, error) {
	snap, err := e.Snapshot(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return ServiceAvailability(locationID, services, snap, e.capacity), nil
}
