package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/config"
	"github.com/yatra_sevak/backend/internal/crowd"
	"github.com/yatra_sevak/backend/internal/db"
	"github.com/yatra_sevak/backend/internal/events"
	"github.com/yatra_sevak/backend/internal/forecast"
	"github.com/yatra_sevak/backend/internal/geocode"
	httpapi "github.com/yatra_sevak/backend/internal/http"
	"github.com/yatra_sevak/backend/internal/models"
	"github.com/yatra_sevak/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "yatra-sevak").Logger()
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	clock, err := calendar.NewClock(cfg.DemoDate)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid demo date")
	}

	sites, err := service.NewSiteRegistry(models.DefaultSites())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid site table")
	}

	ctx := context.Background()
	forecaster := forecast.NewForecaster(cfg.Forecast(), logger)
	go warmModels(ctx, forecaster, sites.List(), logger)

	state := service.NewAppState(cfg.StreamCapacity)
	hub := events.NewHub(logger)

	if cfg.RedisURL != "" {
		rdb, err := events.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, live events stay local")
		} else {
			defer rdb.Close()
			hub.MirrorTo(rdb, cfg.RedisChannel)
			logger.Info().Str("channel", cfg.RedisChannel).Msg("mirroring live events to redis")
		}
	}

	var (
		store   *db.Store
		archive service.Archive = service.NopArchive{}
	)
	if cfg.DatabaseURL != "" {
		store, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
		archive = store
	} else {
		logger.Info().Msg("no DATABASE_URL, archive disabled")
	}

	queue := &service.QueueService{
		Sites:            sites,
		Forecaster:       forecaster,
		Policy:           service.DefaultPolicy(),
		State:            state,
		Clock:            clock,
		Events:           hub,
		Archive:          archive,
		Logger:           logger,
		SurgeMultiplier:  cfg.SurgeMult,
		SurgeHorizonDays: cfg.SurgeHorizonDays,
	}
	safety := &service.SafetyService{
		Sites:     sites,
		State:     state,
		Simulator: crowd.NewSimulator(cfg.SensorSeed),
		Clock:     clock,
		Events:    hub,
		Archive:   archive,
		Logger:    logger,
	}

	if cfg.MQTTURL != "" {
		sink := func(r models.DensityReading) error {
			_, err := safety.IngestReading(context.Background(), r)
			return err
		}
		sub, err := crowd.NewSubscriber(cfg.MQTTURL, cfg.MQTTTopic, sink, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("mqtt unavailable, sensor ingest disabled")
		} else {
			defer sub.Close()
		}
	}

	deps := httpapi.Deps{
		Queue:  queue,
		Safety: safety,
		Hub:    hub,
		Store:  store,
		Logger: logger,
	}
	if cfg.GeocoderURL != "" {
		deps.Geocoder = geocode.NewNominatim(cfg.GeocoderURL)
	}
	router := httpapi.Router(cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

// warmModels fits one model per distinct base footfall so the first queue
// join does not pay for training.
func warmModels(ctx context.Context, f *forecast.Forecaster, sites []models.Site, logger zerolog.Logger) {
	start := time.Now()
	var g errgroup.Group
	seen := map[int]bool{}
	for _, s := range sites {
		if seen[s.BaseFootfall] {
			continue
		}
		seen[s.BaseFootfall] = true
		base := s.BaseFootfall
		g.Go(func() error {
			_, err := f.Model(ctx, base)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("model warm-up failed, joins will fall back to base footfall")
		return
	}
	logger.Info().Int64("fits", f.FitCount()).Dur("took", time.Since(start)).Msg("forecast models ready")
}
