package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/cache"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/clients"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/locations"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/services"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

func setupRouter(t *testing.T) (*cache.Cache, http.Handler) {
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
	for _, initFn := range []func() error{locations.Init, services.Init, clients.Init} {
		if err := initFn(); err != nil {
			t.Fatalf("init: %v", err)
		}
	}
	if err := slots.Migrate(db.DB); err != nil {
		t.Fatalf("migrate slots: %v", err)
	}

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	c := cache.NewWithClient(rc, time.Minute, zap.NewNop())

	h := services.NewHandlers(db.DB, c)
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return c, r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestServiceWritesBumpAvailabilityGeneration(t *testing.T) {
	c, r := setupRouter(t)
	ctx := context.Background()
	name := "Gen test " + uuid.New().String()[:8]

	rec := do(t, r, http.MethodPost, "/", `{"name":"`+name+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var svc services.Service
	if err := json.Unmarshal(rec.Body.Bytes(), &svc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	t.Cleanup(func() { db.DB.Delete(&services.Service{}, "id = ?", svc.ID) })
	if got := c.Generation(ctx, cache.SlotsGeneration); got != 1 {
		t.Fatalf("expected generation 1 after create, got %d", got)
	}

	rec = do(t, r, http.MethodPut, "/"+svc.ID.String(), `{"name":"`+name+` renamed","color":"#112233"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if got := c.Generation(ctx, cache.SlotsGeneration); got != 2 {
		t.Fatalf("expected generation 2 after update, got %d", got)
	}

	rec = do(t, r, http.MethodPut, "/"+svc.ID.String(), `{"name":"x","color":"blue"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad colour, got %d", rec.Code)
	}
	if got := c.Generation(ctx, cache.SlotsGeneration); got != 2 {
		t.Fatalf("failed update should not bump, got %d", got)
	}

	rec = do(t, r, http.MethodDelete, "/"+svc.ID.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if got := c.Generation(ctx, cache.SlotsGeneration); got != 3 {
		t.Fatalf("expected generation 3 after delete, got %d", got)
	}
}
