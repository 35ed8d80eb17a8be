package forecast

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/models"
)

var (
	ErrEmptyHistory      = errors.New("empty history")
	ErrDegenerateHistory = errors.New("degenerate history")
	ErrModelNotFitted    = errors.New("model not fitted")
)

// FeatureNames lists the regression inputs in matrix column order.
var FeatureNames = []string{"temperature", "is_festival", "is_holiday", "month", "day_of_week"}

type Validation struct {
	TrainSamples   int     `json:"train_samples"`
	HoldoutSamples int     `json:"holdout_samples"`
	MAE            float64 `json:"mae"`
	R2             float64 `json:"r2"`
}

type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

type Model struct {
	forest     *forest
	validation Validation
	fittedAt   time.Time
}

func featureRow(fv models.FeatureVector) []float64 {
	return []float64{
		fv.Temperature,
		boolFloat(fv.IsFestival),
		boolFloat(fv.IsHoliday),
		float64(fv.Month),
		float64(fv.DayOfWeek),
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Fit trains on history after holding out a deterministic fraction for
// validation. The validation score is recorded, never enforced.
func Fit(history []models.HistoricalSample, p ForestParams) (*Model, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}
	y := make([]float64, len(history))
	for i, s := range history {
		y[i] = float64(s.Footfall)
	}
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: %d samples", ErrDegenerateHistory, len(history))
	}
	if v := stat.Variance(y, nil); v == 0 || math.IsNaN(v) {
		return nil, fmt.Errorf("%w: zero footfall variance over %d samples", ErrDegenerateHistory, len(history))
	}
	if p.Trees <= 0 {
		p.Trees = 1
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 1
	}

	perm := rand.New(rand.NewSource(p.Seed)).Perm(len(history))
	holdout := int(float64(len(history)) * p.HoldoutFrac)
	if len(history)-holdout < 2 {
		holdout = 0
	}

	trainX := make([][]float64, 0, len(history)-holdout)
	trainY := make([]float64, 0, len(history)-holdout)
	for _, i := range perm[holdout:] {
		trainX = append(trainX, featureRow(history[i].Features))
		trainY = append(trainY, y[i])
	}

	m := &Model{forest: fitForest(trainX, trainY, p), fittedAt: time.Now().UTC()}
	m.validation = Validation{TrainSamples: len(trainY), HoldoutSamples: holdout}
	if holdout > 0 {
		est := make([]float64, holdout)
		obs := make([]float64, holdout)
		var absErr float64
		for k, i := range perm[:holdout] {
			est[k] = m.forest.predict(featureRow(history[i].Features))
			obs[k] = y[i]
			absErr += math.Abs(est[k] - obs[k])
		}
		m.validation.MAE = absErr / float64(holdout)
		m.validation.R2 = stat.RSquaredFrom(est, obs, nil)
	}
	return m, nil
}

func (m *Model) Predict(dates []time.Time, d calendar.Deriver) ([]models.ForecastPoint, error) {
	if m == nil || m.forest == nil {
		return nil, ErrModelNotFitted
	}
	out := make([]models.ForecastPoint, 0, len(dates))
	for _, day := range dates {
		v := m.forest.predict(featureRow(d.Derive(day)))
		out = append(out, models.ForecastPoint{
			Date:              calendar.Date(day),
			PredictedFootfall: int(math.Max(0, v)),
		})
	}
	return out, nil
}

func (m *Model) Validation() Validation {
	if m == nil {
		return Validation{}
	}
	return m.validation
}

// FeatureImportances reports each feature's share of the total squared-error
// reduction, largest first.
func (m *Model) FeatureImportances() ([]FeatureImportance, error) {
	if m == nil || m.forest == nil {
		return nil, ErrModelNotFitted
	}
	out := make([]FeatureImportance, len(FeatureNames))
	for i, name := range FeatureNames {
		out[i] = FeatureImportance{Feature: name, Importance: m.forest.importances[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out, nil
}

// Horizon lists days consecutive dates starting at start.
func Horizon(start time.Time, days int) []time.Time {
	start = calendar.Date(start)
	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}

// EvaluateSurge reports whether any forecast day exceeds base*multiplier.
// It only reports; whoever calls it decides whether to raise the surge flag.
func EvaluateSurge(points []models.ForecastPoint, base int, multiplier float64) bool {
	threshold := float64(base) * multiplier
	for _, p := range points {
		if float64(p.PredictedFootfall) > threshold {
			return true
		}
	}
	return false
}
