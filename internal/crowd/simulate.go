package crowd

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yatra_sevak/backend/internal/models"
)

const (
	SurgeDensityBoost = 0.5
	AlertDensityBoost = 0.2
	SourceSimulated   = "simulated"
	SourceMQTT        = "mqtt"
)

// Simulator stands in for sensors when none are connected. It owns its
// random source so runs are reproducible from a seed.
type Simulator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	density distuv.Beta
}

func NewSimulator(seed int64) *Simulator {
	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	return &Simulator{
		rng:     rand.New(src),
		density: distuv.Beta{Alpha: 2, Beta: 5, Src: src},
	}
}

// Density draws from Beta(2,5), shifted up while a surge or an unresolved
// alert is in effect, and clipped to [0,1].
func (s *Simulator) Density(surge, alertActive bool) float64 {
	s.mu.Lock()
	d := s.density.Rand()
	s.mu.Unlock()

	if surge {
		d += SurgeDensityBoost
	}
	if alertActive {
		d += AlertDensityBoost
	}
	return math.Min(1, math.Max(0, d))
}

// Readings produces ticks readings for site spaced one second apart and
// ending at now.
func (s *Simulator) Readings(siteID string, ticks int, surge, alertActive bool, now time.Time) []models.DensityReading {
	out := make([]models.DensityReading, 0, ticks)
	for i := 0; i < ticks; i++ {
		out = append(out, models.DensityReading{
			SiteID:    siteID,
			Timestamp: now.Add(time.Duration(i-ticks+1) * time.Second),
			Density:   s.Density(surge, alertActive),
			Source:    SourceSimulated,
		})
	}
	return out
}

// ETA returns a responder arrival estimate in [3, 12) minutes.
func (s *Simulator) ETA() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 3 + s.rng.IntN(9)
}

// ParkingFree returns a simulated count of free spaces in [0, capacity].
func (s *Simulator) ParkingFree(capacity int) int {
	if capacity <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(capacity + 1)
}

// ParkingCapacity is one parking zone per 5000 expected visitors, at least two.
func ParkingCapacity(baseFootfall int) int {
	return max(2, baseFootfall/5000)
}
