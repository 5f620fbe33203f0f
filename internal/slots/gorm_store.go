package slots

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
)

// GormStore keeps slots in Postgres. Pair writers are serialized with a
// transaction-scoped advisory lock and candidate rows are read FOR UPDATE.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn}
}

func (s *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) LockPair(ctx context.Context, locationID, serviceID uuid.UUID) error {
	return db.LockXact(ctx, s.db, pairKey(locationID, serviceID))
}

func (s *GormStore) pair(ctx context.Context, locationID, serviceID uuid.UUID) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&LocationSlot{}).
		Where("location_id = ? AND service_id = ?", locationID, serviceID)
}

func (s *GormStore) first(q *gorm.DB) (*LocationSlot, error) {
	var rows []LocationSlot
	if err := q.Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("slot_number ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormStore) FindClientSlot(ctx context.Context, locationID, serviceID, clientID uuid.UUID) (*LocationSlot, error) {
	return s.first(s.pair(ctx, locationID, serviceID).
		Where("client_id = ? AND status = ?", clientID, StatusOccupied))
}

func (s *GormStore) FirstAvailable(ctx context.Context, locationID, serviceID uuid.UUID) (*LocationSlot, error) {
	return s.first(s.pair(ctx, locationID, serviceID).
		Where("status = ?", StatusAvailable))
}

func (s *GormStore) CountOccupied(ctx context.Context, locationID, serviceID uuid.UUID) (int, error) {
	var n int64
	err := s.pair(ctx, locationID, serviceID).
		Where("status = ? AND client_id IS NOT NULL", StatusOccupied).
		Count(&n).Error
	return int(n), err
}

func (s *GormStore) MaxSlotNumber(ctx context.Context, locationID, serviceID uuid.UUID) (int, error) {
	var n int
	err := s.pair(ctx, locationID, serviceID).
		Select("COALESCE(MAX(slot_number), 0)").
		Scan(&n).Error
	return n, err
}

func (s *GormStore) Create(ctx context.Context, slot *LocationSlot) error {
	return s.db.WithContext(ctx).Create(slot).Error
}

func (s *GormStore) Occupy(ctx context.Context, slotID, clientID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&LocationSlot{}).
		Where("id = ?", slotID).
		Updates(map[string]any{"status": StatusOccupied, "client_id": clientID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("occupy %s: %w", slotID, ErrNotFound)
	}
	return nil
}

func (s *GormStore) ReleaseClient(ctx context.Context, clientID uuid.UUID, serviceID *uuid.UUID) (int, error) {
	q := s.db.WithContext(ctx).Model(&LocationSlot{}).Where("client_id = ?", clientID)
	if serviceID != nil {
		q = q.Where("service_id = ?", *serviceID)
	}
	res := q.Updates(map[string]any{"status": StatusAvailable, "client_id": nil})
	return int(res.RowsAffected), res.Error
}

func (s *GormStore) DeleteService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	res := s.db.WithContext(ctx).Where("service_id = ?", serviceID).Delete(&LocationSlot{})
	return int(res.RowsAffected), res.Error
}

func (s *GormStore) Occupancy(ctx context.Context, locationIDs []uuid.UUID) ([]OccupancyRow, error) {
	q := s.db.WithContext(ctx).
		Table("clientmap.location_slots AS ls").
		Select("ls.location_id, ls.service_id, ls.slot_number, ls.status, ls.client_id, c.business_name").
		Joins("LEFT JOIN clientmap.clients c ON c.id = ls.client_id")
	if len(locationIDs) > 0 {
		ids := make([]string, len(locationIDs))
		for i, id := range locationIDs {
			ids[i] = id.String()
		}
		q = q.Where("ls.location_id = ANY(?::uuid[])", pq.Array(ids))
	}

	var rows []OccupancyRow
	if err := q.Order("ls.location_id, ls.service_id, ls.slot_number").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
