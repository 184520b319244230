package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/tripsim/internal/api"
	"github.com/neexbeast/tripsim/internal/attraction"
	"github.com/neexbeast/tripsim/internal/cache"
	"github.com/neexbeast/tripsim/internal/catalog"
	"github.com/neexbeast/tripsim/internal/config"
	"github.com/neexbeast/tripsim/internal/geo"
	"github.com/neexbeast/tripsim/internal/simulation"
	"github.com/neexbeast/tripsim/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if cfg.MigrationsEnabled {
		if err := storage.RunMigrations(ctx, pool, storage.Migrations); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Geo: live OpenTripMap first when configured, the built-in table always.
	places := geo.Chain{}
	if cfg.OpenTripMapKey != "" {
		places = append(places, geo.NewOpenTripMap(cfg.OpenTripMapKey))
	}
	places = append(places, geo.DefaultTable())
	log.Info("geo resolvers configured", "count", len(places), "opentripmap", cfg.OpenTripMapKey != "")

	// Catalogs: Amadeus when credentials are set, the reference catalog otherwise.
	var (
		flights catalog.FlightCatalog
		lodging catalog.LodgingCatalog
	)
	if cfg.AmadeusEnabled() {
		am := catalog.NewAmadeus(cfg.AmadeusBaseURL, cfg.AmadeusClientID, cfg.AmadeusClientSecret, cfg.DefaultCurrency)
		flights, lodging = am.Flights(), am.Lodging()
		log.Info("catalog configured", "source", "amadeus")
	} else {
		ref := catalog.NewReference(places, cfg.DefaultCurrency, catalog.WithLogger(log))
		flights, lodging = ref.Flights(), ref.Lodging()
		log.Info("catalog configured", "source", "reference")
	}

	finder := attraction.NewFinder(places,
		attraction.WithRadius(cfg.AttractionRadiusMeters),
		attraction.WithLogger(log),
	)

	engine := simulation.NewEngine(places, flights, lodging, finder,
		simulation.WithDefaultCurrency(cfg.DefaultCurrency),
		simulation.WithProviderTimeout(cfg.ProviderTimeout),
		simulation.WithLogger(log),
	)

	// Wire dependencies.
	repo := storage.NewRepository(pool)
	cacheLayer := cache.NewCache(redisClient, cfg.CacheTTL)
	handlers := api.NewHandlers(repo, cacheLayer, engine, places, log)

	// Build router with pingers adapted for health check.
	dbPinger := &pgxPoolPinger{pool: pool}
	redisPinger := &redisPingerAdapter{client: redisClient}

	router := api.NewRouter(handlers, cfg.BearerToken, cfg.RateLimitPerMinute, dbPinger, redisPinger, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// pgxPoolPinger adapts pgxpool.Pool to the api.dbPinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.redisPinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
