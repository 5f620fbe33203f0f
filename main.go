package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/auth"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/cache"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/clients"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/config"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/db"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/geocoding"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/locations"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/logging"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/mapview"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/metrics"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/middleware"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/services"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/slots"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg := config.LoadFromEnv()
	log := logging.Init(cfg.IsProduction())
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx := context.Background()

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	if err := db.Connect(cfg.DatabaseURL, log); err != nil {
		return err
	}
	for _, initFn := range []func() error{
		func() error { return auth.Init(cfg.IsProduction()) },
		locations.Init,
		services.Init,
		clients.Init,
		func() error { return slots.Migrate(db.DB) },
	} {
		if err := initFn(); err != nil {
			return err
		}
	}
	if err := auth.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword, log); err != nil {
		return err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	metrics.Init(sqlDB, log)

	colors := regions.DefaultColorTable()
	if cfg.RegionColorsPath != "" {
		if colors, err = regions.LoadColorTable(cfg.RegionColorsPath); err != nil {
			return err
		}
	}
	resolver, err := regions.LoadResolver(cfg.GeoJSONPath, colors, regions.WithLogger(logging.Named("regions")))
	if err != nil {
		return err
	}
	log.Info("regions loaded", zap.Int("features", resolver.Len()), zap.String("path", cfg.GeoJSONPath))

	redisCache, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	}, logging.Named("cache"))
	if err != nil {
		// The map still works uncached.
		log.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	defer redisCache.Close()

	managerOpts := []clients.Option{
		clients.WithCapacity(cfg.SlotCapacity),
		clients.WithCache(redisCache),
		clients.WithLocator(resolver),
		clients.WithLogger(logging.Named("clients")),
	}
	if geo := geocoding.NewClient(cfg.GoogleMapsAPIKey, cfg.GeocodeRPS, geocoding.WithLogger(logging.Named("geocoding"))); geo != nil {
		managerOpts = append(managerOpts, clients.WithGeocoder(geo))
	} else {
		log.Info("GOOGLE_MAPS_API_KEY not set, client addresses will not be geocoded")
	}
	manager := clients.NewManager(db.DB, managerOpts...)

	mapHandlers := mapview.NewHandlers(mapview.Deps{
		Resolver: resolver,
		Engine: slots.NewEngine(slots.NewGormStore(db.DB),
			slots.WithCapacity(cfg.SlotCapacity),
			slots.WithLogger(logging.Named("slots"))),
		Clients: manager,
		Lookup: func(ctx context.Context) (regions.Lookup, error) {
			return locations.LoadLookup(ctx, db.DB)
		},
		Services: func(ctx context.Context) ([]services.Service, error) {
			return services.List(ctx, db.DB)
		},
		Cache: redisCache,
		Log:   logging.Named("mapview"),
	})

	sessions := auth.SessionInfo{}
	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(cfg.RequestsPerMin, log, middleware.WithTrustedProxies(trusted)))
	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/auth", auth.SetupRoutes())
	r.Mount("/locations", locations.SetupRoutes(colors))
	r.Mount("/services", services.SetupRoutes(services.NewHandlers(db.DB, redisCache), sessions))
	r.Mount("/clients", clients.SetupRoutes(clients.NewHandlers(manager), sessions))
	r.Mount("/map", mapview.SetupRoutes(mapHandlers))

	addr := "0.0.0.0:" + cfg.Port
	log.Info("server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		return err
	}
	return nil
}
