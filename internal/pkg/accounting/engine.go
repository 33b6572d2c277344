package accounting

import (
	"fmt"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
)

const msPerHour = 3_600_000.0

// Options selects how overlapping non-working time is subtracted.
type Options struct {
	// LegacyDoubleSubtract subtracts breaks and pauses independently, counting
	// any overlap twice. Only for reconciling against historical reports.
	LegacyDoubleSubtract bool
}

// Result holds the derived durations of one segment, in hours.
type Result struct {
	OnSiteHours        float64 `json:"on_site_hours"`
	WorkedHours        float64 `json:"worked_hours"`
	BreakHours         float64 `json:"break_hours"`
	GeofencePauseHours float64 `json:"geofence_pause_hours"`
	NonWorkingHours    float64 `json:"non_working_hours"`
	TotalShiftHours    float64 `json:"total_shift_hours"`
	IsFrozen           bool    `json:"is_frozen"`
	IsLive             bool    `json:"is_live"`
}

type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

var defaultEngine = NewEngine(Options{})

// Compute derives the accounting of seg with union subtraction.
func Compute(seg *shift.Segment, now time.Time) (Result, error) {
	return defaultEngine.Compute(seg, now)
}

// Compute derives durations from scratch. now is ignored for closed segments;
// a live segment queried before its check-in has an empty span.
func (e *Engine) Compute(seg *shift.Segment, now time.Time) (Result, error) {
	if err := seg.Validate(now); err != nil {
		return Result{}, err
	}

	end := now
	if seg.CheckOutAt != nil {
		end = *seg.CheckOutAt
	}
	if end.Before(seg.CheckInAt) {
		end = seg.CheckInAt
	}

	onSite := end.Sub(seg.CheckInAt)
	breaks := clip(seg.Breaks, end)
	pauses := clip(seg.GeofencePauses, end)
	breakDur := total(breaks)
	pauseDur := total(pauses)

	nonWorking := union(breaks, pauses)
	if e.opts.LegacyDoubleSubtract {
		nonWorking = breakDur + pauseDur
	}

	worked := onSite - nonWorking
	if worked < 0 {
		worked = 0
	}

	live := seg.IsLive()
	return Result{
		OnSiteHours:        hours(onSite),
		WorkedHours:        hours(worked),
		BreakHours:         hours(breakDur),
		GeofencePauseHours: hours(pauseDur),
		NonWorkingHours:    hours(nonWorking),
		TotalShiftHours:    hours(onSite),
		IsFrozen:           live && (seg.OpenBreak() != nil || seg.OpenPause() != nil),
		IsLive:             live,
	}, nil
}

// ComputeWith is Compute against the clock's current instant.
func (e *Engine) ComputeWith(seg *shift.Segment, clock Clock) (Result, error) {
	return e.Compute(seg, clock.Now())
}

func hours(d time.Duration) float64 {
	return float64(d.Milliseconds()) / msPerHour
}

// Overtime is time worked past the site's scheduled end.
type Overtime struct {
	Minutes    int  `json:"minutes"`
	MaxMinutes int  `json:"max_minutes"`
	Warning    bool `json:"warning"`
}

// DefaultMaxOvertimeMinutes applies to sites without their own limit.
const DefaultMaxOvertimeMinutes = 120

// ComputeOvertime measures how far the segment's check-out is past the site's
// WorkEnd on the check-in day. Sites without a schedule never accrue overtime.
func ComputeOvertime(seg *shift.Segment, site shift.Site, loc *time.Location) (Overtime, error) {
	ot := Overtime{MaxMinutes: maxOvertime(site)}
	if seg.CheckOutAt == nil || site.WorkEnd == nil {
		return ot, nil
	}
	end, err := ScheduleTime(seg.CheckInAt, *site.WorkEnd, loc)
	if err != nil {
		return ot, err
	}
	if seg.CheckOutAt.After(end) {
		ot.Minutes = int(seg.CheckOutAt.Sub(end) / time.Minute)
	}
	ot.Warning = ot.Minutes > ot.MaxMinutes
	return ot, nil
}

// HardDeadline is WorkEnd plus the overtime allowance on day. ok is false when
// the site has no scheduled end.
func HardDeadline(site shift.Site, day time.Time, loc *time.Location) (deadline time.Time, ok bool, err error) {
	if site.WorkEnd == nil {
		return time.Time{}, false, nil
	}
	end, err := ScheduleTime(day, *site.WorkEnd, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return end.Add(time.Duration(maxOvertime(site)) * time.Minute), true, nil
}

// ScheduleTime places an HH:MM wall-clock time on the local calendar day of t.
func ScheduleTime(t time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule time %q: %w", hhmm, err)
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

func maxOvertime(site shift.Site) int {
	if site.MaxOvertimeMinutes > 0 {
		return site.MaxOvertimeMinutes
	}
	return DefaultMaxOvertimeMinutes
}
