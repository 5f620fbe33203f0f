package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const PageSize = 10

var sortFields = map[string]string{
	"business_name": "business_name",
	"address":       "address",
	"postcode":      "postcode",
	"country":       "country",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
}

// ListParams selects one page of clients. Unknown sort fields fall back to
// business_name, unknown orders to ascending.
type ListParams struct {
	Page      int
	Search    string
	SortField string
	SortOrder string
	ServiceID *uuid.UUID
}

type ListResult struct {
	Clients    []View `json:"clients"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}

func (p ListParams) orderBy() string {
	field, ok := sortFields[strings.ToLower(strings.TrimSpace(p.SortField))]
	if !ok {
		field = "business_name"
	}
	dir := "ASC"
	if strings.EqualFold(strings.TrimSpace(p.SortOrder), "desc") {
		dir = "DESC"
	}
	return field + " " + dir + ", id ASC"
}

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (m *Manager) List(ctx context.Context, p ListParams) (ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}

	q := m.db.WithContext(ctx).Model(&Client{})
	if s := strings.TrimSpace(p.Search); s != "" {
		q = q.Where("business_name ILIKE ?", "%"+escapeLike(s)+"%")
	}
	if p.ServiceID != nil {
		q = q.Where("id IN (?)", m.db.Model(&ClientService{}).Select("client_id").Where("service_id = ?", *p.ServiceID))
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return ListResult{}, fmt.Errorf("count clients: %w", err)
	}

	var page []Client
	if err := q.Session(&gorm.Session{}).Order(p.orderBy()).Limit(PageSize).Offset((p.Page - 1) * PageSize).Find(&page).Error; err != nil {
		return ListResult{}, fmt.Errorf("list clients: %w", err)
	}
	views, err := m.withServices(ctx, page)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Clients:    views,
		Total:      total,
		Page:       p.Page,
		PageSize:   PageSize,
		TotalPages: int((total + PageSize - 1) / PageSize),
	}, nil
}

// Search matches business names anywhere and postcodes by prefix.
func (m *Manager) Search(ctx context.Context, term string, limit int) ([]Client, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	like := escapeLike(term)
	var out []Client
	err := m.db.WithContext(ctx).
		Where("business_name ILIKE ? OR postcode ILIKE ?", "%"+like+"%", like+"%").
		Order("business_name ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	return out, nil
}

// Mapped returns clients with coordinates, limited to those linked to
// serviceID when it is set.
func (m *Manager) Mapped(ctx context.Context, serviceID *uuid.UUID) ([]View, error) {
	q := m.db.WithContext(ctx).
		Where("lat IS NOT NULL AND lang IS NOT NULL").
		Where("lat BETWEEN -90 AND 90 AND lang BETWEEN -180 AND 180")
	if serviceID != nil {
		q = q.Where("id IN (?)", m.db.Model(&ClientService{}).Select("client_id").Where("service_id = ?", *serviceID))
	}
	var list []Client
	if err := q.Order("business_name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list mapped clients: %w", err)
	}
	return m.withServices(ctx, list)
}

// All returns every client ordered by name.
func (m *Manager) All(ctx context.Context) ([]View, error) {
	var list []Client
	if err := m.db.WithContext(ctx).Order("business_name ASC, id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return m.withServices(ctx, list)
}

func (m *Manager) withServices(ctx context.Context, list []Client) ([]View, error) {
	views := make([]View, len(list))
	if len(list) == 0 {
		return views, nil
	}
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ID.String()
	}

	var links []ClientService
	if err := m.db.WithContext(ctx).
		Where("client_id = ANY(?::uuid[])", pq.Array(ids)).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("load client services: %w", err)
	}
	byClient := make(map[uuid.UUID][]uuid.UUID, len(list))
	for _, l := range links {
		byClient[l.ClientID] = append(byClient[l.ClientID], l.ServiceID)
	}

	for i, c := range list {
		views[i] = View{Client: c, ServiceIDs: uniqueSorted(byClient[c.ID])}
	}
	return views, nil
}
