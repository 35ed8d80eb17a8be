package service

import (
	"math"
	"time"

	"github.com/yatra_sevak/backend/internal/models"
)

// Policy holds the admission constants. Admit is a pure function of its
// inputs; nothing here draws random numbers.
type Policy struct {
	BaseWait       float64
	Slope          float64
	MinWait        float64
	PriorityFactor float64
	PriorityMin    float64
	SurgePenalty   float64
	PaidThreshold  int
}

func DefaultPolicy() Policy {
	return Policy{
		BaseWait:       30,
		Slope:          60,
		MinWait:        5,
		PriorityFactor: 0.6,
		PriorityMin:    3,
		SurgePenalty:   30,
		PaidThreshold:  45,
	}
}

type Admission struct {
	EstimatedWaitMinutes int              `json:"estimated_wait_minutes"`
	SlotTime             time.Time        `json:"slot_time"`
	SlotClass            models.SlotClass `json:"slot_class"`
}

// Admit computes the wait for one visitor. The wait is truncated to whole
// minutes after the floor and again after the priority discount; the surge
// penalty is added last.
func (p Policy) Admit(site models.Site, predictedToday int, priority, surge bool, now time.Time) Admission {
	ratio := float64(predictedToday) / float64(max(1, site.BaseFootfall))
	minutes := int(math.Max(p.MinWait, p.BaseWait+(ratio-1)*p.Slope))
	if priority {
		minutes = int(math.Max(p.PriorityMin, float64(minutes)*p.PriorityFactor))
	}
	if surge {
		minutes += int(p.SurgePenalty)
	}

	class := models.SlotFree
	if minutes >= p.PaidThreshold {
		class = models.SlotPaid
	}
	return Admission{
		EstimatedWaitMinutes: minutes,
		SlotTime:             now.Add(time.Duration(minutes) * time.Minute),
		SlotClass:            class,
	}
}
