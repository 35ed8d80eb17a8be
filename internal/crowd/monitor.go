// Package crowd tracks crowd density per site and raises safety alerts.
package crowd

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/yatra_sevak/backend/internal/models"
)

var ErrInvalidReading = errors.New("invalid density reading")

const DefaultStreamCapacity = 200

// Monitor keeps the most recent readings across all sites. Once full the
// oldest reading is evicted.
type Monitor struct {
	mu       sync.RWMutex
	capacity int
	stream   []models.DensityReading
}

func NewMonitor(capacity int) *Monitor {
	if capacity <= 0 {
		capacity = DefaultStreamCapacity
	}
	return &Monitor{capacity: capacity}
}

func ValidateReading(r models.DensityReading) error {
	if strings.TrimSpace(r.SiteID) == "" {
		return fmt.Errorf("%w: missing site", ErrInvalidReading)
	}
	if math.IsNaN(r.Density) || r.Density < 0 || r.Density > 1 {
		return fmt.Errorf("%w: density %v outside [0,1]", ErrInvalidReading, r.Density)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidReading)
	}
	return nil
}

func (m *Monitor) Ingest(r models.DensityReading) error {
	if err := ValidateReading(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stream) == m.capacity {
		copy(m.stream, m.stream[1:])
		m.stream = m.stream[:len(m.stream)-1]
	}
	m.stream = append(m.stream, r)
	return nil
}

// Recent returns up to n of the newest readings for site, oldest first.
// n <= 0 returns all of them.
func (m *Monitor) Recent(siteID string, n int) []models.DensityReading {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.DensityReading
	for i := len(m.stream) - 1; i >= 0; i-- {
		if m.stream[i].SiteID != siteID {
			continue
		}
		out = append(out, m.stream[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (m *Monitor) Latest(siteID string) (models.DensityReading, bool) {
	r := m.Recent(siteID, 1)
	if len(r) == 0 {
		return models.DensityReading{}, false
	}
	return r[0], true
}

func (m *Monitor) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stream)
}
