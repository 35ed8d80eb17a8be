package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yatra_sevak/backend/internal/models"
)

func seededLedger(t *testing.T) (*Ledger, []models.QueueEntry) {
	t.Helper()
	l := NewLedger()
	var out []models.QueueEntry
	for i, site := range []string{"somnath", "dwarka", "somnath"} {
		out = append(out, l.Append(models.QueueEntry{
			SiteID:               site,
			UserID:               fmt.Sprintf("u%d", i),
			EstimatedWaitMinutes: 30,
		}))
	}
	return l, out
}

func TestLedgerAppendAssignsIDs(t *testing.T) {
	l := NewLedger()
	a := l.Append(models.QueueEntry{SiteID: "somnath"})
	b := l.Append(models.QueueEntry{SiteID: "somnath", UserID: "pilgrim-7"})

	if len(a.PassID) != 8 || a.PassID == b.PassID {
		t.Fatalf("expected distinct 8-char pass ids, got %q and %q", a.PassID, b.PassID)
	}
	if a.UserID != "U1" {
		t.Fatalf("expected default user id U1, got %q", a.UserID)
	}
	if b.UserID != "pilgrim-7" {
		t.Fatalf("expected caller user id kept, got %q", b.UserID)
	}
	if a.Status != models.StatusWaiting {
		t.Fatalf("expected Waiting, got %s", a.Status)
	}
}

func TestLedgerRetriesPassIDCollision(t *testing.T) {
	l := NewLedger()
	ids := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	l.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	l.Append(models.QueueEntry{})
	second := l.Append(models.QueueEntry{})
	if second.PassID != "bbbbbbbb" {
		t.Fatalf("expected collision retry, got %q", second.PassID)
	}
}

func TestLedgerGrantPriority(t *testing.T) {
	l, entries := seededLedger(t)
	matched := l.GrantPriority([]string{entries[0].PassID, "missing", entries[0].PassID})
	if len(matched) != 1 || matched[0] != entries[0].PassID {
		t.Fatalf("unexpected matched ids %v", matched)
	}

	for _, e := range l.All() {
		want := e.PassID == entries[0].PassID
		if e.Priority != want {
			t.Fatalf("pass %s priority = %v, want %v", e.PassID, e.Priority, want)
		}
	}
}

func TestLedgerCancel(t *testing.T) {
	l, entries := seededLedger(t)

	if removed := l.Cancel([]string{"missing"}); len(removed) != 0 {
		t.Fatalf("expected unknown id to be a no-op, removed %v", removed)
	}
	if l.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", l.Len())
	}

	removed := l.Cancel([]string{entries[1].PassID})
	if len(removed) != 1 || removed[0].Status != models.StatusCancelled {
		t.Fatalf("unexpected removal %+v", removed)
	}
	all := l.All()
	if len(all) != 2 || all[0].PassID != entries[0].PassID || all[1].PassID != entries[2].PassID {
		t.Fatalf("expected order preserved after cancel, got %+v", all)
	}
	if _, ok := l.Get(entries[1].PassID); ok {
		t.Fatalf("cancelled pass still present")
	}
}

func TestLedgerListBySiteKeepsOrder(t *testing.T) {
	l, entries := seededLedger(t)
	got := l.ListBySite("somnath")
	if len(got) != 2 || got[0].PassID != entries[0].PassID || got[1].PassID != entries[2].PassID {
		t.Fatalf("unexpected site listing %+v", got)
	}
	if got := l.ListBySite("ambaji"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil listing, got %#v", got)
	}
}

func TestLedgerCall(t *testing.T) {
	l, entries := seededLedger(t)
	called, err := l.Call(entries[0].PassID)
	if err != nil || called.Status != models.StatusCalled {
		t.Fatalf("expected Called, got %+v, %v", called, err)
	}
	if _, err := l.Call(entries[0].PassID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := l.Call("missing"); !errors.Is(err, ErrUnknownPassID) {
		t.Fatalf("expected unknown pass, got %v", err)
	}
}

func TestLedgerConcurrentAppend(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(models.QueueEntry{SiteID: "dwarka"})
		}()
	}
	wg.Wait()

	if l.Len() != 50 {
		t.Fatalf("expected 50 entries, got %d", l.Len())
	}
	seen := map[string]bool{}
	for _, e := range l.All() {
		if seen[e.PassID] {
			t.Fatalf("duplicate pass id %s", e.PassID)
		}
		seen[e.PassID] = true
	}
}

func TestComputeProgress(t *testing.T) {
	join := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	entry := models.QueueEntry{JoinTime: join, EstimatedWaitMinutes: 40}

	tests := []struct {
		name          string
		now           time.Time
		wantElapsed   float64
		wantRemaining float64
		wantPercent   float64
	}{
		{"at join", join, 0, 40, 0},
		{"halfway", join.Add(20 * time.Minute), 20, 20, 50},
		{"overdue", join.Add(90 * time.Minute), 90, 0, 100},
		{"clock behind join", join.Add(-5 * time.Minute), 0, 40, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeProgress(entry, tt.now)
			if got.ElapsedMinutes != tt.wantElapsed || got.RemainingMinutes != tt.wantRemaining || got.PercentComplete != tt.wantPercent {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestComputeProgressBounds(t *testing.T) {
	join := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for wait := 0; wait <= 120; wait += 7 {
		entry := models.QueueEntry{JoinTime: join, EstimatedWaitMinutes: wait}
		for offset := 0; offset <= 240; offset += 13 {
			p := ComputeProgress(entry, join.Add(time.Duration(offset)*time.Minute))
			if p.PercentComplete < 0 || p.PercentComplete > 100 || p.RemainingMinutes < 0 {
				t.Fatalf("wait %d offset %d out of bounds: %+v", wait, offset, p)
			}
		}
	}
}
