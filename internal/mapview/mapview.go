// Package mapview serves the public, read-only map API.
package mapview

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/cache"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/clients"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/services"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

const (
	MinSearchLength  = 2
	MaxSearchResults = 5
)

// Directory is the client data the map reads.
type Directory interface {
	Mapped(ctx context.Context, serviceID *uuid.UUID) ([]clients.View, error)
	Search(ctx context.Context, term string, limit int) ([]clients.Client, error)
}

// Deps wires the map API to its data.
type Deps struct {
	Resolver *regions.Resolver
	Engine   *slots.Engine
	Clients  Directory
	Lookup   func(ctx context.Context) (regions.Lookup, error)
	Services func(ctx context.Context) ([]services.Service, error)
	Cache    *cache.Cache
	Log      *zap.Logger
}

type Handlers struct {
	Deps
}

func NewHandlers(d Deps) *Handlers {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Handlers{Deps: d}
}

type LegendEntry struct {
	Region string `json:"region"`
	Color  string `json:"color"`
}

// Legend lists the configured regions in table order, then the fallback.
func Legend(colors regions.ColorTable) []LegendEntry {
	out := make([]LegendEntry, 0, len(colors.Regions())+1)
	for _, rc := range colors.Regions() {
		out = append(out, LegendEntry{Region: rc.Name, Color: rc.Color})
	}
	return append(out, LegendEntry{Region: regions.DefaultRegion, Color: colors.Fallback()})
}

// lookupFingerprint changes whenever any location row feeding the regions
// layer changes.
func lookupFingerprint(lookup regions.Lookup) string {
	keys := make([]string, 0, len(lookup))
	for k := range lookup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)*4)
	for _, k := range keys {
		ref := lookup[k]
		parts = append(parts, k, ref.ID.String(), ref.Region, ref.CityName)
	}
	return cache.Fingerprint(parts...)
}

// regionsJSON renders the annotated FeatureCollection, reusing a cached
// rendering for an identical lookup.
func (h *Handlers) regionsJSON(ctx context.Context) (json.RawMessage, error) {
	lookup, err := h.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	key := "regions:" + lookupFingerprint(lookup)

	var cached json.RawMessage
	if h.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	raw, err := h.Resolver.FeatureCollection(lookup).MarshalJSON()
	if err != nil {
		return nil, err
	}
	h.Cache.SetJSON(ctx, key, json.RawMessage(raw))
	return raw, nil
}

func (h *Handlers) availability(ctx context.Context, locationID uuid.UUID, serviceID *uuid.UUID) ([]slots.Availability, error) {
	gen := h.Cache.Generation(ctx, clients.SlotsGeneration)
	svcKey := "all"
	if serviceID != nil {
		svcKey = serviceID.String()
	}
	key := "availability:" + strconv.FormatInt(gen, 10) + ":" + locationID.String() + ":" + svcKey

	var cached []slots.Availability
	if h.Cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	svcs, err := h.Services(ctx)
	if err != nil {
		return nil, err
	}
	if serviceID != nil {
		svcs = filterService(svcs, *serviceID)
	}
	out, err := h.Engine.Availability(ctx, locationID, services.Refs(svcs))
	if err != nil {
		return nil, err
	}
	h.Cache.SetJSON(ctx, key, out)
	return out, nil
}

func filterService(svcs []services.Service, id uuid.UUID) []services.Service {
	for _, s := range svcs {
		if s.ID == id {
			return []services.Service{s}
		}
	}
	return nil
}

type MarkerService struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

type Marker struct {
	ID           uuid.UUID       `json:"id"`
	BusinessName string          `json:"business_name"`
	Lat          float64         `json:"lat"`
	Lng          float64         `json:"lang"`
	LocationID   *uuid.UUID      `json:"location_id"`
	Color        string          `json:"color"`
	Services     []MarkerService `json:"services"`
}

// BuildMarkers turns mapped clients into markers coloured by their first
// service, or by the filtered service when there is one.
func BuildMarkers(list []clients.View, svcs []services.Service, filter *uuid.UUID) []Marker {
	byID := make(map[uuid.UUID]services.Service, len(svcs))
	for _, s := range svcs {
		byID[s.ID] = s
	}

	out := make([]Marker, 0, len(list))
	for _, c := range list {
		if !c.HasCoordinates() {
			continue
		}
		m := Marker{
			ID:           c.ID,
			BusinessName: c.BusinessName,
			Lat:          *c.Lat,
			Lng:          *c.Lng,
			LocationID:   c.LocationID,
			Color:        services.DefaultColor,
			Services:     []MarkerService{},
		}
		for _, id := range c.ServiceIDs {
			s, ok := byID[id]
			if !ok {
				continue
			}
			m.Services = append(m.Services, MarkerService{ID: s.ID, Name: s.Name, Color: s.Color})
		}
		sort.Slice(m.Services, func(i, j int) bool { return m.Services[i].Name < m.Services[j].Name })
		if filter != nil {
			if s, ok := byID[*filter]; ok {
				m.Color = s.Color
			}
		} else if len(m.Services) > 0 {
			m.Color = m.Services[0].Color
		}
		out = append(out, m)
	}
	return out
}

// Placement is the area drawn around a point.
type Placement struct {
	PostcodeInitials string     `json:"postcodeInitials"`
	Region           string     `json:"region"`
	Color            string     `json:"color"`
	LocationID       *uuid.UUID `json:"locationId"`
	CityName         string     `json:"cityName,omitempty"`
}

func (h *Handlers) locate(ctx context.Context, p regions.LatLng) (Placement, bool, error) {
	code, ok := h.Resolver.Locate(p)
	if !ok {
		return Placement{}, false, nil
	}
	lookup, err := h.Lookup(ctx)
	if err != nil {
		return Placement{}, false, err
	}
	colors := h.Resolver.Colors()
	out := Placement{PostcodeInitials: code, Region: regions.DefaultRegion, Color: colors.Fallback()}
	if ref, ok := lookup[code]; ok {
		id := ref.ID
		out.LocationID = &id
		out.CityName = ref.CityName
		if ref.Region != "" {
			out.Region = ref.Region
			out.Color = colors.Color(ref.Region)
		}
	}
	return out, true, nil
}

type SearchResult struct {
	ID           uuid.UUID  `json:"id"`
	BusinessName string     `json:"business_name"`
	Postcode     string     `json:"postcode"`
	LocationID   *uuid.UUID `json:"location_id"`
	Lat          *float64   `json:"lat"`
	Lng          *float64   `json:"lang"`
}

func (h *Handlers) search(ctx context.Context, q string) ([]SearchResult, error) {
	q = strings.TrimSpace(q)
	out := []SearchResult{}
	if len([]rune(q)) < MinSearchLength {
		return out, nil
	}
	found, err := h.Clients.Search(ctx, q, MaxSearchResults)
	if err != nil {
		return nil, err
	}
	for _, c := range found {
		if len(out) == MaxSearchResults {
			break
		}
		out = append(out, SearchResult{
			ID:           c.ID,
			BusinessName: c.BusinessName,
			Postcode:     c.Postcode,
			LocationID:   c.LocationID,
			Lat:          c.Lat,
			Lng:          c.Lng,
		})
	}
	return out, nil
}
