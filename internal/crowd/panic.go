package crowd

import (
	"sort"
	"time"

	"github.com/yatra_sevak/backend/internal/models"
	"github.com/yatra_sevak/backend/internal/utils"
)

const (
	PanicWindow    = 6
	PanicJump      = 0.35
	PanicThreshold = 0.6
)

var Locations = []string{"Main Gate", "Darshan Hall", "Parking"}

// DetectPanic reports whether the newest reading jumped sharply above the
// median of the five before it while already crowded. readings must be
// ordered oldest first.
func DetectPanic(readings []models.DensityReading) bool {
	if len(readings) < PanicWindow {
		return false
	}
	window := readings[len(readings)-PanicWindow:]
	last := window[len(window)-1].Density

	prev := make([]float64, 0, PanicWindow-1)
	for _, r := range window[:len(window)-1] {
		prev = append(prev, r.Density)
	}
	return last-median(prev) > PanicJump && last > PanicThreshold
}

// PanicLocation picks a stable location label for an alert at site and t.
func PanicLocation(siteID string, t time.Time) string {
	return utils.Pick(siteID+"|"+t.UTC().Format(time.RFC3339Nano), Locations)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
