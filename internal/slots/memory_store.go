package slots

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. A top-level Tx holds the store lock
// for its whole duration and works on a private copy that replaces the
// committed state only when fn succeeds.
type MemoryStore struct {
	mu     sync.Mutex
	slots  []LocationSlot
	names  map[uuid.UUID]string
	faults map[string]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		names:  map[uuid.UUID]string{},
		faults: map[string]error{},
	}
}

// SetClientName records the business name Occupancy reports for a client.
func (m *MemoryStore) SetClientName(clientID uuid.UUID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[clientID] = name
}

// FailOn makes the named operation ("lock", "create", "occupy", "release",
// "delete", "occupancy") return err until cleared with a nil err.
func (m *MemoryStore) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Slots returns a copy of the committed rows ordered by pair and number.
func (m *MemoryStore) Slots() []LocationSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := cloneSlots(m.slots)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LocationID != b.LocationID {
			return a.LocationID.String() < b.LocationID.String()
		}
		if a.ServiceID != b.ServiceID {
			return a.ServiceID.String() < b.ServiceID.String()
		}
		return a.SlotNumber < b.SlotNumber
	})
	return out
}

func (m *MemoryStore) Tx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{root: m, slots: cloneSlots(m.slots)}
	if err := fn(tx); err != nil {
		return err
	}
	m.slots = tx.slots
	return nil
}

func (m *MemoryStore) LockPair(ctx context.Context, locationID, serviceID uuid.UUID) error {
	return m.Tx(ctx, func(s Store) error { return s.LockPair(ctx, locationID, serviceID) })
}

func (m *MemoryStore) FindClientSlot(ctx context.Context, locationID, serviceID, clientID uuid.UUID) (slot *LocationSlot, err error) {
	err = m.Tx(ctx, func(s Store) error {
		slot, err = s.FindClientSlot(ctx, locationID, serviceID, clientID)
		return err
	})
	return slot, err
}

func (m *MemoryStore) FirstAvailable(ctx context.Context, locationID, serviceID uuid.UUID) (slot *LocationSlot, err error) {
	err = m.Tx(ctx, func(s Store) error {
		slot, err = s.FirstAvailable(ctx, locationID, serviceID)
		return err
	})
	return slot, err
}

func (m *MemoryStore) CountOccupied(ctx context.Context, locationID, serviceID uuid.UUID) (n int, err error) {
	err = m.Tx(ctx, func(s Store) error {
		n, err = s.CountOccupied(ctx, locationID, serviceID)
		return err
	})
	return n, err
}

func (m *MemoryStore) MaxSlotNumber(ctx context.Context, locationID, serviceID uuid.UUID) (n int, err error) {
	err = m.Tx(ctx, func(s Store) error {
		n, err = s.MaxSlotNumber(ctx, locationID, serviceID)
		return err
	})
	return n, err
}

func (m *MemoryStore) Create(ctx context.Context, slot *LocationSlot) error {
	return m.Tx(ctx, func(s Store) error { return s.Create(ctx, slot) })
}

func (m *MemoryStore) Occupy(ctx context.Context, slotID, clientID uuid.UUID) error {
	return m.Tx(ctx, func(s Store) error { return s.Occupy(ctx, slotID, clientID) })
}

func (m *MemoryStore) ReleaseClient(ctx context.Context, clientID uuid.UUID, serviceID *uuid.UUID) (n int, err error) {
	err = m.Tx(ctx, func(s Store) error {
		n, err = s.ReleaseClient(ctx, clientID, serviceID)
		return err
	})
	return n, err
}

func (m *MemoryStore) DeleteService(ctx context.Context, serviceID uuid.UUID) (n int, err error) {
	err = m.Tx(ctx, func(s Store) error {
		n, err = s.DeleteService(ctx, serviceID)
		return err
	})
	return n, err
}

func (m *MemoryStore) Occupancy(ctx context.Context, locationIDs []uuid.UUID) (rows []OccupancyRow, err error) {
	err = m.Tx(ctx, func(s Store) error {
		rows, err = s.Occupancy(ctx, locationIDs)
		return err
	})
	return rows, err
}

// memTx is the transactional view handed to Tx callbacks. The root lock is
// already held.
type memTx struct {
	root  *MemoryStore
	slots []LocationSlot
}

func (t *memTx) fault(op string) error {
	if err, ok := t.root.faults[op]; ok {
		return fmt.Errorf("memory store %s: %w", op, err)
	}
	return nil
}

func (t *memTx) Tx(ctx context.Context, fn func(Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	saved := cloneSlots(t.slots)
	if err := fn(t); err != nil {
		t.slots = saved
		return err
	}
	return nil
}

func (t *memTx) LockPair(ctx context.Context, locationID, serviceID uuid.UUID) error {
	return t.fault("lock")
}

func (t *memTx) matching(locationID, serviceID uuid.UUID, keep func(LocationSlot) bool) *LocationSlot {
	var best *LocationSlot
	for i := range t.slots {
		s := t.slots[i]
		if s.LocationID != locationID || s.ServiceID != serviceID || !keep(s) {
			continue
		}
		if best == nil || s.SlotNumber < best.SlotNumber {
			cp := s
			best = &cp
		}
	}
	return best
}

func (t *memTx) FindClientSlot(ctx context.Context, locationID, serviceID, clientID uuid.UUID) (*LocationSlot, error) {
	return t.matching(locationID, serviceID, func(s LocationSlot) bool {
		return s.Occupied() && *s.ClientID == clientID
	}), nil
}

func (t *memTx) FirstAvailable(ctx context.Context, locationID, serviceID uuid.UUID) (*LocationSlot, error) {
	return t.matching(locationID, serviceID, func(s LocationSlot) bool {
		return s.Status == StatusAvailable
	}), nil
}

func (t *memTx) CountOccupied(ctx context.Context, locationID, serviceID uuid.UUID) (int, error) {
	n := 0
	for _, s := range t.slots {
		if s.LocationID == locationID && s.ServiceID == serviceID && s.Occupied() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) MaxSlotNumber(ctx context.Context, locationID, serviceID uuid.UUID) (int, error) {
	highest := 0
	for _, s := range t.slots {
		if s.LocationID == locationID && s.ServiceID == serviceID && s.SlotNumber > highest {
			highest = s.SlotNumber
		}
	}
	return highest, nil
}

func (t *memTx) Create(ctx context.Context, slot *LocationSlot) error {
	if err := t.fault("create"); err != nil {
		return err
	}
	for _, s := range t.slots {
		if s.LocationID == slot.LocationID && s.ServiceID == slot.ServiceID && s.SlotNumber == slot.SlotNumber {
			return fmt.Errorf("duplicate slot %d for pair", slot.SlotNumber)
		}
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	t.slots = append(t.slots, cloneSlot(*slot))
	return nil
}

func (t *memTx) Occupy(ctx context.Context, slotID, clientID uuid.UUID) error {
	if err := t.fault("occupy"); err != nil {
		return err
	}
	for i := range t.slots {
		if t.slots[i].ID == slotID {
			c := clientID
			t.slots[i].Status = StatusOccupied
			t.slots[i].ClientID = &c
			return nil
		}
	}
	return fmt.Errorf("occupy %s: %w", slotID, ErrNotFound)
}

func (t *memTx) ReleaseClient(ctx context.Context, clientID uuid.UUID, serviceID *uuid.UUID) (int, error) {
	if err := t.fault("release"); err != nil {
		return 0, err
	}
	n := 0
	for i := range t.slots {
		s := &t.slots[i]
		if s.ClientID == nil || *s.ClientID != clientID {
			continue
		}
		if serviceID != nil && s.ServiceID != *serviceID {
			continue
		}
		s.Status = StatusAvailable
		s.ClientID = nil
		n++
	}
	return n, nil
}

func (t *memTx) DeleteService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	if err := t.fault("delete"); err != nil {
		return 0, err
	}
	kept := t.slots[:0]
	n := 0
	for _, s := range t.slots {
		if s.ServiceID == serviceID {
			n++
			continue
		}
		kept = append(kept, s)
	}
	t.slots = kept
	return n, nil
}

func (t *memTx) Occupancy(ctx context.Context, locationIDs []uuid.UUID) ([]OccupancyRow, error) {
	if err := t.fault("occupancy"); err != nil {
		return nil, err
	}
	want := make(map[uuid.UUID]bool, len(locationIDs))
	for _, id := range locationIDs {
		want[id] = true
	}
	var rows []OccupancyRow
	for _, s := range t.slots {
		if len(want) > 0 && !want[s.LocationID] {
			continue
		}
		row := OccupancyRow{
			LocationID: s.LocationID,
			ServiceID:  s.ServiceID,
			SlotNumber: s.SlotNumber,
			Status:     s.Status,
			ClientID:   cloneID(s.ClientID),
		}
		if s.ClientID != nil {
			if name, ok := t.root.names[*s.ClientID]; ok {
				n := name
				row.BusinessName = &n
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneSlot(s LocationSlot) LocationSlot {
	s.ClientID = cloneID(s.ClientID)
	return s
}

func cloneSlots(in []LocationSlot) []LocationSlot {
	out := make([]LocationSlot, len(in))
	for i, s := range in {
		out[i] = cloneSlot(s)
	}
	return out
}
