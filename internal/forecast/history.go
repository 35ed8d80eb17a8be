package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/models"
)

var (
	ErrInvalidRange = errors.New("invalid date range")
	ErrInvalidBase  = errors.New("invalid base footfall")
)

// HistoryParams holds the multipliers that shape synthetic history. None of
// them come from measured occupancy data; they are configuration defaults.
type HistoryParams struct {
	FestivalMult float64
	HolidayMult  float64
	WeatherMult  float64
	NoiseFrac    float64
	MaxMult      float64
	Festivals    calendar.FestivalSet
}

func DefaultHistoryParams() HistoryParams {
	return HistoryParams{
		FestivalMult: 1.5,
		HolidayMult:  0.25,
		WeatherMult:  0.12,
		NoiseFrac:    0.12,
		MaxMult:      4,
		Festivals:    calendar.HistoricalFestivals(),
	}
}

func SeasonalFactor(month int) float64 {
	return 1 + 0.15*math.Sin(2*math.Pi*float64(month-1)/12)
}

func WeatherAdjustment(temp float64) float64 {
	return clamp((30-temp)/15, -0.5, 1.0)
}

// GenerateHistory builds one sample per day in [start, end]. For fixed
// arguments the output is identical across calls.
func GenerateHistory(base int, start, end time.Time, seed int64, p HistoryParams) ([]models.HistoricalSample, error) {
	start, end = calendar.Date(start), calendar.Date(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, calendar.FormatDate(start), calendar.FormatDate(end))
	}
	if base <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBase, base)
	}

	deriver := calendar.Deriver{Festivals: p.Festivals, Weather: calendar.HistoryWeather(seed)}
	noise := rand.New(rand.NewSource(seed))
	b := float64(base)
	ceiling := b * p.MaxMult

	days := int(end.Sub(start).Hours()/24) + 1
	out := make([]models.HistoricalSample, 0, days)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		fv := deriver.Derive(day)
		v := b * SeasonalFactor(fv.Month)
		if fv.IsFestival {
			v += b * p.FestivalMult
		}
		if fv.IsHoliday {
			v += b * p.HolidayMult
		}
		v += WeatherAdjustment(fv.Temperature) * b * p.WeatherMult
		v += noise.NormFloat64() * b * p.NoiseFrac
		out = append(out, models.HistoricalSample{
			Date:     day,
			Footfall: int(clamp(v, 0, ceiling)),
			Features: fv,
		})
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
