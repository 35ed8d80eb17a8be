package crowd

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yatra_sevak/backend/internal/models"
)

// AlertBook is the append-only record of alerts. The only mutation after
// Raise is marking a site's alerts dispatched.
type AlertBook struct {
	mu     sync.RWMutex
	alerts []models.Alert
}

func NewAlertBook() *AlertBook {
	return &AlertBook{}
}

// Raise stores a and returns it with an id and timestamp filled in.
func (b *AlertBook) Raise(a models.Alert) models.Alert {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	b.mu.Lock()
	b.alerts = append(b.alerts, a)
	b.mu.Unlock()
	return a
}

// RaiseSOS records a critical SOS and the responder dispatch it triggers.
func (b *AlertBook) RaiseSOS(siteID, location string, etaMinutes int, now time.Time) (sos, dispatch models.Alert) {
	sos = b.Raise(models.Alert{
		Kind:      models.AlertSOS,
		SiteID:    siteID,
		Location:  location,
		CreatedAt: now,
		Severity:  models.SeverityCritical,
	})
	dispatch = b.Raise(models.Alert{
		Kind:       models.AlertDispatch,
		SiteID:     siteID,
		Location:   location,
		CreatedAt:  now,
		Severity:   models.SeverityInfo,
		ETAMinutes: etaMinutes,
	})
	return sos, dispatch
}

func (b *AlertBook) ListBySite(siteID string) []models.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []models.Alert{}
	for _, a := range b.alerts {
		if a.SiteID == siteID {
			out = append(out, a)
		}
	}
	return out
}

// DispatchSite marks every open alert at site dispatched and returns how
// many changed.
func (b *AlertBook) DispatchSite(siteID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for i := range b.alerts {
		if b.alerts[i].SiteID == siteID && !b.alerts[i].Dispatched {
			b.alerts[i].Dispatched = true
			n++
		}
	}
	return n
}

// PanicOpen reports whether site has a panic alert nobody has dispatched.
func (b *AlertBook) PanicOpen(siteID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.alerts {
		if a.SiteID == siteID && a.Kind == models.AlertPanic && !a.Dispatched {
			return true
		}
	}
	return false
}
