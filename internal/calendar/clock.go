package calendar

import "time"

// Clock supplies "now". Demo deployments pin it to a fixed date.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock reports a pinned date combined with the current wall-clock
// time of day, so slot times still move while the demo date stays put.
type FixedClock struct {
	Day time.Time
	// Frozen stops the time of day as well. Used by tests.
	Frozen bool
}

func (c FixedClock) Now() time.Time {
	if c.Frozen {
		return c.Day
	}
	now := time.Now()
	y, m, d := c.Day.Date()
	return time.Date(y, m, d, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location())
}

// NewClock returns a FixedClock when demoDate is set, SystemClock otherwise.
func NewClock(demoDate string) (Clock, error) {
	if demoDate == "" {
		return SystemClock{}, nil
	}
	day, err := ParseDate(demoDate)
	if err != nil {
		return nil, err
	}
	return FixedClock{Day: day}, nil
}
