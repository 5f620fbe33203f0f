package slots_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

func gormEngine(t *testing.T) *slots.Engine {
	t.Helper()
	_ = godotenv.Load("../../.env.local")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	if db.DB == nil {
		if err := db.Connect(dsn, zap.NewNop()); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	if err := slots.Migrate(db.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return slots.NewEngine(slots.NewGormStore(db.DB))
}

func TestGormStoreAssignAndRelease(t *testing.T) {
	engine := gormEngine(t)
	ctx := context.Background()
	loc, svc := uuid.New(), uuid.New()
	t.Cleanup(func() {
		db.DB.Where("location_id = ?", loc).Delete(&slots.LocationSlot{})
	})

	c1, c2 := uuid.New(), uuid.New()
	s1, err := engine.AssignSlot(ctx, loc, svc, c1)
	if err != nil {
		t.Fatalf("assign c1: %v", err)
	}
	s2, err := engine.AssignSlot(ctx, loc, svc, c2)
	if err != nil {
		t.Fatalf("assign c2: %v", err)
	}
	if s1.SlotNumber != 1 || s2.SlotNumber != 2 {
		t.Fatalf("expected slots 1 and 2, got %d and %d", s1.SlotNumber, s2.SlotNumber)
	}

	if _, err := engine.AssignSlot(ctx, loc, svc, uuid.New()); !errors.Is(err, slots.ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}

	if n, err := engine.ReleaseClientSlots(ctx, c1); err != nil || n != 1 {
		t.Fatalf("release: n=%d err=%v", n, err)
	}
	s3, err := engine.AssignSlot(ctx, loc, svc, uuid.New())
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if s3.SlotNumber != 1 {
		t.Errorf("expected freed slot 1 to be reused, got %d", s3.SlotNumber)
	}
}
