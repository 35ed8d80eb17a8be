package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yatra_sevak/backend/internal/models"
)

var (
	ErrUnknownPassID     = errors.New("unknown pass id")
	ErrInvalidTransition = errors.New("invalid pass status transition")
)

// Ledger is the in-memory queue of issued passes, kept in join order.
type Ledger struct {
	mu      sync.Mutex
	entries []models.QueueEntry
	newID   func() string
}

func NewLedger() *Ledger {
	return &Ledger{newID: shortPassID}
}

func shortPassID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Append stores entry with a fresh pass id and Waiting status. An empty
// user id is replaced by the next sequential one.
func (l *Ledger) Append(entry models.QueueEntry) models.QueueEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		id := l.newID()
		if l.indexLocked(id) < 0 {
			entry.PassID = id
			break
		}
	}
	if strings.TrimSpace(entry.UserID) == "" {
		entry.UserID = "U" + strconv.Itoa(len(l.entries)+1)
	}
	entry.Status = models.StatusWaiting
	l.entries = append(l.entries, entry)
	return entry
}

// GrantPriority flags matching entries and returns the ids it found.
func (l *Ledger) GrantPriority(ids []string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []string
	for _, id := range dedupe(ids) {
		if i := l.indexLocked(id); i >= 0 {
			l.entries[i].Priority = true
			matched = append(matched, id)
		}
	}
	return matched
}

// Cancel removes matching entries and returns them marked Cancelled.
// Unknown ids are ignored.
func (l *Ledger) Cancel(ids []string) []models.QueueEntry {
	want := map[string]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var removed []models.QueueEntry
	kept := l.entries[:0]
	for _, e := range l.entries {
		if _, ok := want[e.PassID]; ok {
			e.Status = models.StatusCancelled
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	clear(l.entries[len(kept):])
	l.entries = kept
	return removed
}

// Call moves a waiting pass to Called.
func (l *Ledger) Call(passID string) (models.QueueEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(passID)
	if i < 0 {
		return models.QueueEntry{}, fmt.Errorf("%w: %s", ErrUnknownPassID, passID)
	}
	if l.entries[i].Status != models.StatusWaiting {
		return models.QueueEntry{}, fmt.Errorf("%w: pass %s is %s", ErrInvalidTransition, passID, l.entries[i].Status)
	}
	l.entries[i].Status = models.StatusCalled
	return l.entries[i], nil
}

func (l *Ledger) Get(passID string) (models.QueueEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(passID)
	if i < 0 {
		return models.QueueEntry{}, false
	}
	return l.entries[i], true
}

func (l *Ledger) ListBySite(siteID string) []models.QueueEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.QueueEntry{}
	for _, e := range l.entries {
		if e.SiteID == siteID {
			out = append(out, e)
		}
	}
	return out
}

func (l *Ledger) All() []models.QueueEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.QueueEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) indexLocked(passID string) int {
	for i := range l.entries {
		if l.entries[i].PassID == passID {
			return i
		}
	}
	return -1
}

// ComputeProgress reports how far a pass is through its estimated wait.
// A clock that reads earlier than the join time counts as zero elapsed.
func ComputeProgress(entry models.QueueEntry, now time.Time) models.Progress {
	elapsed := math.Max(0, now.Sub(entry.JoinTime).Minutes())
	wait := float64(entry.EstimatedWaitMinutes)
	return models.Progress{
		ElapsedMinutes:   elapsed,
		RemainingMinutes: math.Max(0, wait-elapsed),
		PercentComplete:  math.Min(100, elapsed/math.Max(1, wait)*100),
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
