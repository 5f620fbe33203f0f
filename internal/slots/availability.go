package slots

import (
	"sort"

	"github.com/google/uuid"
)

// UnknownBusiness is shown for occupied slots whose client has no name.
const UnknownBusiness = "Unknown Business"

// Occupancy is the occupied state of one (location, service) pair.
type Occupancy struct {
	Used       int
	Businesses []string
}

// Snapshot maps location -> service -> occupancy. Pairs with no occupied
// slots are absent.
type Snapshot map[uuid.UUID]map[uuid.UUID]Occupancy

// BuildSnapshot groups occupied rows by pair, with businesses in slot order.
func BuildSnapshot(rows []OccupancyRow) Snapshot {
	sorted := make([]OccupancyRow, 0, len(rows))
	for _, r := range rows {
		if r.Status == StatusOccupied && r.ClientID != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SlotNumber < sorted[j].SlotNumber })

	snap := Snapshot{}
	for _, r := range sorted {
		byService, ok := snap[r.LocationID]
		if !ok {
			byService = map[uuid.UUID]Occupancy{}
			snap[r.LocationID] = byService
		}
		name := UnknownBusiness
		if r.BusinessName != nil && *r.BusinessName != "" {
			name = *r.BusinessName
		}
		occ := byService[r.ServiceID]
		occ.Used++
		occ.Businesses = append(occ.Businesses, name)
		byService[r.ServiceID] = occ
	}
	return snap
}

// Get returns the occupancy of a pair; the zero value when nothing is held.
func (s Snapshot) Get(locationID, serviceID uuid.UUID) Occupancy {
	return s[locationID][serviceID]
}

type ServiceRef struct {
	ID    uuid.UUID
	Name  string
	Color string
}

type Business struct {
	Name string `json:"name"`
}

type Availability struct {
	ServiceID  uuid.UUID  `json:"service_id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	UsedSlots  int        `json:"usedSlots"`
	TotalSlots int        `json:"totalSlots"`
	Available  bool       `json:"available"`
	Businesses []Business `json:"businesses"`
}

// ServiceAvailability projects snap onto every service for one location,
// in the order services are given. A capacity below 1 means DefaultCapacity.
func ServiceAvailability(locationID uuid.UUID, services []ServiceRef, snap Snapshot, capacity int) []Availability {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	out := make([]Availability, 0, len(services))
	for _, svc := range services {
		occ := snap.Get(locationID, svc.ID)
		businesses := make([]Business, 0, len(occ.Businesses))
		for _, name := range occ.Businesses {
			businesses = append(businesses, Business{Name: name})
		}
		out = append(out, Availability{
			ServiceID:  svc.ID,
			Name:       svc.Name,
			Color:      svc.Color,
			UsedSlots:  occ.Used,
			TotalSlots: capacity,
			Available:  occ.Used < capacity,
			Businesses: businesses,
		})
	}
	return out
}
