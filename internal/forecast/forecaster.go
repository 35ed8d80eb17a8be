package forecast

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/metrics"
	"github.com/yatra_sevak/backend/internal/models"
	"github.com/yatra_sevak/backend/internal/utils"
)

var ErrInvalidHorizon = errors.New("invalid forecast horizon")

type Config struct {
	HistoryStart   time.Time
	HistoryEnd     time.Time
	HistorySeed    int64
	PredictionSeed int64
	History        HistoryParams
	Forest         ForestParams
	Upcoming       calendar.FestivalSet
}

func DefaultConfig() Config {
	return Config{
		HistoryStart:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		HistoryEnd:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		HistorySeed:    42,
		PredictionSeed: 100,
		History:        DefaultHistoryParams(),
		Forest:         DefaultForestParams(),
		Upcoming:       calendar.UpcomingFestivals(),
	}
}

// Forecaster memoises one fitted model per distinct base footfall. Sites
// with equal base footfall share a model. Concurrent first requests for the
// same base collapse into a single fit.
type Forecaster struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.RWMutex
	models map[int]*Model
	group  singleflight.Group
	fits   atomic.Int64
}

func NewForecaster(cfg Config, logger zerolog.Logger) *Forecaster {
	return &Forecaster{
		cfg:    cfg,
		logger: logger,
		models: map[int]*Model{},
	}
}

func (f *Forecaster) FitCount() int64 {
	return f.fits.Load()
}

func (f *Forecaster) cached(base int) (*Model, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.models[base]
	return m, ok
}

// Model returns the cached model for base, fitting it on first use.
func (f *Forecaster) Model(ctx context.Context, base int) (*Model, error) {
	if m, ok := f.cached(base); ok {
		return m, nil
	}

	key := strconv.Itoa(base)
	ch := f.group.DoChan(key, func() (any, error) {
		if m, ok := f.cached(base); ok {
			return m, nil
		}
		m, err := f.fit(base)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.models[base] = m
		f.mu.Unlock()
		return m, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Model), nil
	}
}

func (f *Forecaster) fit(base int) (*Model, error) {
	start := time.Now()
	defer func() {
		metrics.ModelFitDuration.Observe(time.Since(start).Seconds())
	}()

	seed := utils.SeedForInt(f.cfg.HistorySeed, base)
	history, err := GenerateHistory(base, f.cfg.HistoryStart, f.cfg.HistoryEnd, seed, f.cfg.History)
	if err != nil {
		metrics.ModelFitFailures.Inc()
		return nil, fmt.Errorf("generate history for base %d: %w", base, err)
	}
	m, err := Fit(history, f.cfg.Forest)
	if err != nil {
		metrics.ModelFitFailures.Inc()
		return nil, fmt.Errorf("fit model for base %d: %w", base, err)
	}
	f.fits.Add(1)
	metrics.ModelFits.Inc()

	v := m.Validation()
	f.logger.Info().
		Int("base_footfall", base).
		Int("samples", len(history)).
		Int("holdout", v.HoldoutSamples).
		Float64("holdout_mae", v.MAE).
		Float64("holdout_r2", v.R2).
		Dur("took", time.Since(start)).
		Msg("forecast model fitted")
	return m, nil
}

// PredictionDeriver is the feature deriver used for forecasting base: the
// upcoming festival list and a prediction-specific weather seed.
func (f *Forecaster) PredictionDeriver(base int) calendar.Deriver {
	return calendar.Deriver{
		Festivals: f.cfg.Upcoming,
		Weather:   calendar.ForecastWeather(utils.SeedForInt(f.cfg.PredictionSeed, base)),
	}
}

func (f *Forecaster) Forecast(ctx context.Context, site models.Site, start time.Time, days int) ([]models.ForecastPoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: %d days for site %s", ErrInvalidHorizon, days, site.ID)
	}
	m, err := f.Model(ctx, site.BaseFootfall)
	if err != nil {
		return nil, err
	}
	return m.Predict(Horizon(start, days), f.PredictionDeriver(site.BaseFootfall))
}
