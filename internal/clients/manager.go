package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/cache"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/geocoding"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/locations"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/services"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

// SlotsGeneration names the cache generation bumped on every slot change.
const SlotsGeneration = cache.SlotsGeneration

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocoding.Result, error)
}

// Locator maps a coordinate to the postcode area drawn around it.
type Locator interface {
	Locate(p regions.LatLng) (string, bool)
}

// Manager runs the client workflows. Each write is one database
// transaction covering the client row, its service links and its slots.
type Manager struct {
	db       *gorm.DB
	capacity int
	geocoder Geocoder
	locator  Locator
	cache    *cache.Cache
	log      *zap.Logger
}

type Option func(*Manager)

func WithCapacity(n int) Option {
	return func(m *Manager) { m.capacity = n }
}

// WithGeocoder fills in coordinates for clients saved without them.
func WithGeocoder(g Geocoder) Option {
	return func(m *Manager) { m.geocoder = g }
}

// WithLocator places clients that have coordinates but no postcode.
func WithLocator(l Locator) Option {
	return func(m *Manager) { m.locator = l }
}

func WithCache(c *cache.Cache) Option {
	return func(m *Manager) { m.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func NewManager(conn *gorm.DB, opts ...Option) *Manager {
	m := &Manager{db: conn, capacity: slots.DefaultCapacity, log: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) engine(tx *gorm.DB) *slots.Engine {
	return slots.NewEngine(slots.NewGormStore(tx), slots.WithCapacity(m.capacity), slots.WithLogger(m.log))
}

// areaFor picks the postcode area for a client without an explicit
// location: its postcode first, then the map area containing it.
func (m *Manager) areaFor(in Input) string {
	if area := postcodeArea(in.Postcode); area != "" {
		return area
	}
	if m.locator != nil && in.Lat != nil && in.Lng != nil {
		if area, ok := m.locator.Locate(regions.LatLng{Lat: *in.Lat, Lng: *in.Lng}); ok {
			return area
		}
	}
	return ""
}

// resolveLocation returns the explicit location, or the one whose
// postcode_initials match the client's area.
func (m *Manager) resolveLocation(ctx context.Context, in Input) (uuid.UUID, error) {
	var loc locations.Location
	q := m.db.WithContext(ctx)
	var err error
	if in.LocationID != nil {
		err = q.First(&loc, "id = ?", *in.LocationID).Error
	} else if area := m.areaFor(in); area != "" {
		err = q.First(&loc, "postcode_initials = ?", area).Error
	} else {
		return uuid.Nil, fmt.Errorf("%w: location_id, a UK postcode or mapped coordinates are required", ErrInvalidInput)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrUnknownLocation
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load location: %w", err)
	}
	return loc.ID, nil
}

func (m *Manager) checkServices(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := services.ByIDs(ctx, m.db, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return ErrUnknownService
	}
	return nil
}

// fillCoordinates geocodes in when it carries no coordinates. Geocoding
// failures leave the client off the map rather than failing the save.
func (m *Manager) fillCoordinates(ctx context.Context, in *Input) {
	if in.Lat != nil || m.geocoder == nil {
		return
	}
	query := geocodeQuery(*in)
	if query == "" {
		return
	}
	res, err := m.geocoder.Geocode(ctx, query)
	if err != nil {
		m.log.Warn("geocoding client address failed", zap.String("business_name", in.BusinessName), zap.Error(err))
		return
	}
	lat, lng := res.Lat, res.Lng
	in.Lat, in.Lng = &lat, &lng
	if in.Postcode == "" {
		in.Postcode = res.Postcode
	}
	if in.Country == "" {
		in.Country = res.Country
	}
}

func (m *Manager) prepare(ctx context.Context, in Input) (Input, uuid.UUID, error) {
	in, err := in.normalize()
	if err != nil {
		return in, uuid.Nil, err
	}
	m.fillCoordinates(ctx, &in)
	locID, err := m.resolveLocation(ctx, in)
	if err != nil {
		return in, uuid.Nil, err
	}
	if err := m.checkServices(ctx, in.ServiceIDs); err != nil {
		return in, uuid.Nil, err
	}
	return in, locID, nil
}

// link stores the service links and takes a slot for each service.
func (m *Manager) link(ctx context.Context, tx *gorm.DB, clientID, locationID uuid.UUID, serviceIDs []uuid.UUID) error {
	if len(serviceIDs) == 0 {
		return nil
	}
	links := make([]ClientService, len(serviceIDs))
	for i, sid := range serviceIDs {
		links[i] = ClientService{ClientID: clientID, ServiceID: sid}
	}
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
		return fmt.Errorf("link services: %w", err)
	}

	return m.engine(tx).Transaction(ctx, func(eng *slots.Engine) error {
		for _, sid := range serviceIDs {
			if _, err := eng.AssignSlot(ctx, locationID, sid, clientID); err != nil {
				return fmt.Errorf("service %s: %w", sid, err)
			}
		}
		return nil
	})
}

func (m *Manager) unlink(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) error {
	if _, err := m.engine(tx).ReleaseClientSlots(ctx, clientID); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("client_id = ?", clientID).Delete(&ClientService{}).Error; err != nil {
		return fmt.Errorf("unlink services: %w", err)
	}
	return nil
}

func (m *Manager) changed(ctx context.Context) {
	m.cache.Bump(ctx, SlotsGeneration)
}

// Create stores a client, links its services and assigns a slot per
// service. A service without capacity fails the whole create.
func (m *Manager) Create(ctx context.Context, in Input) (View, error) {
	in, locID, err := m.prepare(ctx, in)
	if err != nil {
		return View{}, err
	}

	c := Client{
		ID:           uuid.New(),
		BusinessName: in.BusinessName,
		Address:      in.Address,
		Postcode:     in.Postcode,
		Country:      in.Country,
		Lat:          in.Lat,
		Lng:          in.Lng,
		LocationID:   &locID,
	}
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		return m.link(ctx, tx, c.ID, locID, in.ServiceIDs)
	})
	if err != nil {
		return View{}, err
	}

	m.changed(ctx)
	m.log.Info("client created", zap.String("client_id", c.ID.String()), zap.Int("services", len(in.ServiceIDs)))
	return View{Client: c, ServiceIDs: in.ServiceIDs}, nil
}

// Update replaces the client's fields and services. Slots are released and
// reassigned at the possibly new location.
func (m *Manager) Update(ctx context.Context, id uuid.UUID, in Input) (View, error) {
	var existing Client
	if err := m.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("load client: %w", err)
	}

	in, err := in.normalize()
	if err != nil {
		return View{}, err
	}
	// An unchanged address keeps its stored coordinates.
	if in.Lat == nil && in.Lng == nil && existing.Lat != nil &&
		in.Address == existing.Address && in.Postcode == existing.Postcode {
		in.Lat, in.Lng = existing.Lat, existing.Lng
	}

	in, locID, err := m.prepare(ctx, in)
	if err != nil {
		return View{}, err
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Client{}).Where("id = ?", id).Updates(map[string]any{
			"business_name": in.BusinessName,
			"address":       in.Address,
			"postcode":      in.Postcode,
			"country":       in.Country,
			"lat":           in.Lat,
			"lang":          in.Lng,
			"location_id":   locID,
		})
		if res.Error != nil {
			return fmt.Errorf("update client: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := m.unlink(ctx, tx, id); err != nil {
			return err
		}
		return m.link(ctx, tx, id, locID, in.ServiceIDs)
	})
	if err != nil {
		return View{}, err
	}

	m.changed(ctx)
	return m.Get(ctx, id)
}

// Delete releases the client's slots, removes its links and the client.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.unlink(ctx, tx, id); err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Client{})
		if res.Error != nil {
			return fmt.Errorf("delete client: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.changed(ctx)
	m.log.Info("client deleted", zap.String("client_id", id.String()))
	return nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (View, error) {
	var c Client
	if err := m.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return View{}, ErrNotFound
		}
		return View{}, fmt.Errorf("load client: %w", err)
	}
	views, err := m.withServices(ctx, []Client{c})
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}
