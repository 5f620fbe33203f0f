package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

var (
	ErrNameRequired = errors.New("service name is required")
	ErrInvalidColor = errors.New("color must be a #rrggbb hex value")
	ErrDuplicate    = errors.New("a service with this name already exists")
	ErrNotFound     = errors.New("service not found")
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Input is the editable part of a service.
type Input struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (in Input) normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.Name == "" {
		return in, ErrNameRequired
	}
	if in.Color == "" {
		in.Color = DefaultColor
	}
	if !hexColor.MatchString(in.Color) {
		return in, ErrInvalidColor
	}
	return in, nil
}

func List(ctx context.Context, conn *gorm.DB) ([]Service, error) {
	var list []Service
	if err := conn.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return list, nil
}

// ByIDs loads the given services, ordered by name. Unknown ids are ignored.
func ByIDs(ctx context.Context, conn *gorm.DB, ids []uuid.UUID) ([]Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var list []Service
	if err := conn.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}
	return list, nil
}

func nameTaken(ctx context.Context, conn *gorm.DB, name string, except uuid.UUID) (bool, error) {
	var n int64
	q := conn.WithContext(ctx).Model(&Service{}).Where("LOWER(name) = LOWER(?)", name)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check service name: %w", err)
	}
	return n > 0, nil
}

func Create(ctx context.Context, conn *gorm.DB, in Input) (Service, error) {
	in, err := in.normalize()
	if err != nil {
		return Service{}, err
	}
	taken, err := nameTaken(ctx, conn, in.Name, uuid.Nil)
	if err != nil {
		return Service{}, err
	}
	if taken {
		return Service{}, ErrDuplicate
	}

	svc := Service{ID: uuid.New(), Name: in.Name, Color: in.Color}
	if err := conn.WithContext(ctx).Create(&svc).Error; err != nil {
		return Service{}, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

func Update(ctx context.Context, conn *gorm.DB, id uuid.UUID, in Input) (Service, error) {
	in, err := in.normalize()
	if err != nil {
		return Service{}, err
	}

	var svc Service
	if err := conn.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Service{}, ErrNotFound
		}
		return Service{}, fmt.Errorf("load service: %w", err)
	}
	taken, err := nameTaken(ctx, conn, in.Name, id)
	if err != nil {
		return Service{}, err
	}
	if taken {
		return Service{}, ErrDuplicate
	}

	if err := conn.WithContext(ctx).Model(&svc).Updates(map[string]any{"name": in.Name, "color": in.Color}).Error; err != nil {
		return Service{}, fmt.Errorf("update service: %w", err)
	}
	svc.Name, svc.Color = in.Name, in.Color
	return svc, nil
}

// Delete removes a service with its client links and slots in one
// transaction.
func Delete(ctx context.Context, conn *gorm.DB, id uuid.UUID) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&Service{})
		if res.Error != nil {
			return fmt.Errorf("delete service: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Exec(`DELETE FROM clientmap.client_services WHERE service_id = ?`, id).Error; err != nil {
			return fmt.Errorf("delete service links: %w", err)
		}
		if _, err := slots.NewEngine(slots.NewGormStore(tx)).PurgeService(ctx, id); err != nil {
			return err
		}
		return nil
	})
}
