// Package calendar turns dates into the feature vectors the footfall model
// is trained and queried on.
package calendar

import (
	"math"
	"math/rand"
	"time"

	"github.com/yatra_sevak/backend/internal/models"
)

const isoDate = "2006-01-02"

// FestivalSet is a closed list of festival dates keyed by ISO date.
type FestivalSet map[string]struct{}

func NewFestivalSet(dates ...string) FestivalSet {
	set := make(FestivalSet, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}

func (f FestivalSet) Contains(d time.Time) bool {
	_, ok := f[d.Format(isoDate)]
	return ok
}

// HistoricalFestivals is the festival list used when generating training
// history.
func HistoricalFestivals() FestivalSet {
	return NewFestivalSet(
		"2023-11-12",
		"2024-10-15", "2024-11-04",
		"2025-01-14", "2025-02-26", "2025-09-29", "2025-10-20", "2025-11-15",
	)
}

// UpcomingFestivals only lists festivals inside the forecasting horizon.
func UpcomingFestivals() FestivalSet {
	return NewFestivalSet("2025-10-20", "2025-11-01", "2025-11-15", "2025-12-25")
}

// Weather simulates a daily temperature. It is a synthetic input with no
// causal relation to footfall; the regression only needs a continuous
// feature to split on.
type Weather struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Seed   int64
}

func HistoryWeather(seed int64) Weather {
	return Weather{Mean: 28, StdDev: 6, Min: 10, Max: 42, Seed: seed}
}

func ForecastWeather(seed int64) Weather {
	return Weather{Mean: 28, StdDev: 5, Min: 10, Max: 42, Seed: seed}
}

// Temperature is a pure function of (date, seed).
func (w Weather) Temperature(d time.Time) float64 {
	day := Date(d).Unix() / 86400
	rng := rand.New(rand.NewSource(w.Seed*1_000_003 + day))
	t := w.Mean + rng.NormFloat64()*w.StdDev
	return math.Max(w.Min, math.Min(w.Max, t))
}

type Deriver struct {
	Festivals FestivalSet
	Weather   Weather
}

func (d Deriver) IsFestival(t time.Time) bool {
	return d.Festivals.Contains(Date(t))
}

func (d Deriver) IsHoliday(t time.Time) bool {
	return d.IsFestival(t) || IsWeekend(t)
}

func (d Deriver) Derive(t time.Time) models.FeatureVector {
	day := Date(t)
	festival := d.Festivals.Contains(day)
	return models.FeatureVector{
		Temperature: d.Weather.Temperature(day),
		IsFestival:  festival,
		IsHoliday:   festival || IsWeekend(day),
		Month:       int(day.Month()),
		DayOfWeek:   DayOfWeek(day),
	}
}

// DayOfWeek numbers days Monday=0 through Sunday=6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func IsWeekend(t time.Time) bool {
	return DayOfWeek(t) >= 5
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(isoDate, s)
}

func FormatDate(t time.Time) string {
	return t.Format(isoDate)
}
