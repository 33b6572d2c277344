package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
)

// Entry is one accounted segment.
type Entry struct {
	WorkerID   string
	WorkerName string
	SiteID     string
	SiteName   string
	Day        string // YYYY-MM-DD, local
	CheckInAt  time.Time
	Status     string
	Result     accounting.Result
	Activities []shift.ActivityLine
}

type WorkerRollup struct {
	WorkerID           string               `json:"worker_id"`
	WorkerName         string               `json:"worker_name"`
	WorkedHours        float64              `json:"worked_hours"`
	BreakHours         float64              `json:"break_hours"`
	GeofencePauseHours float64              `json:"geofence_pause_hours"`
	DaysCount          int                  `json:"days_count"`
	Sites              []string             `json:"sites"`
	Status             string               `json:"status"`
	FirstCheckIn       time.Time            `json:"first_check_in"`
	LateDays           int                  `json:"late_days"`
	Activities         []shift.ActivityLine `json:"activities"`

	days map[string]time.Time
}

type SiteRollup struct {
	SiteName    string  `json:"site_name"`
	Day         string  `json:"day"`
	WorkedHours float64 `json:"worked_hours"`
	WorkerDays  int     `json:"worker_days"`
	Active      int     `json:"active"`
	OnBreak     int     `json:"on_break"`
	Done        int     `json:"done"`

	workers map[string]string
}

type DayRollup struct {
	Day         string  `json:"day"`
	WorkedHours float64 `json:"worked_hours"`
	Workers     int     `json:"workers"`

	seen map[string]struct{}
}

type Summary struct {
	TotalWorkedHours        float64 `json:"total_worked_hours"`
	TotalBreakHours         float64 `json:"total_break_hours"`
	TotalGeofencePauseHours float64 `json:"total_geofence_pause_hours"`
	Workers                 int     `json:"workers"`
	Sites                   int     `json:"sites"`
	Active                  int     `json:"active"`
	OnBreak                 int     `json:"on_break"`
	Finished                int     `json:"finished"`
	LateArrivals            int     `json:"late_arrivals"`
}

type Report struct {
	ByWorker []WorkerRollup `json:"by_worker"`
	BySite   []SiteRollup   `json:"by_site"`
	ByDay    []DayRollup    `json:"by_day"`
	Summary  Summary        `json:"summary"`
}

// Options controls late-arrival detection.
type Options struct {
	// LateAfter is an HH:MM local time; a worker's first check-in of a day after
	// it counts as a late arrival. Empty disables detection.
	LateAfter string
	Location  *time.Location
}

// Aggregate rolls entries up per worker, per site and day, and per day. All
// lists keep first-seen order.
func Aggregate(entries []Entry, opts Options) (Report, error) {
	cutoff, err := parseCutoff(opts.LateAfter)
	if err != nil {
		return Report{}, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var (
		workers  []*WorkerRollup
		byWorker = map[string]*WorkerRollup{}
		sites    []*SiteRollup
		bySite   = map[string]*SiteRollup{}
		days     []*DayRollup
		byDay    = map[string]*DayRollup{}
		siteSet  = map[string]struct{}{}
	)

	for _, e := range entries {
		w, ok := byWorker[e.WorkerID]
		if !ok {
			w = &WorkerRollup{
				WorkerID:     e.WorkerID,
				WorkerName:   e.WorkerName,
				Status:       e.Status,
				FirstCheckIn: e.CheckInAt,
				days:         map[string]time.Time{},
			}
			byWorker[e.WorkerID] = w
			workers = append(workers, w)
		}
		w.WorkedHours += e.Result.WorkedHours
		w.BreakHours += e.Result.BreakHours
		w.GeofencePauseHours += e.Result.GeofencePauseHours
		w.Sites = appendUnique(w.Sites, e.SiteName)
		w.Activities = mergeActivities(w.Activities, e.Activities)
		if rank(e.Status) > rank(w.Status) {
			w.Status = e.Status
		}
		if e.CheckInAt.Before(w.FirstCheckIn) {
			w.FirstCheckIn = e.CheckInAt
		}
		if first, seen := w.days[e.Day]; !seen || e.CheckInAt.Before(first) {
			w.days[e.Day] = e.CheckInAt
		}

		key := e.SiteName + "|" + e.Day
		s, ok := bySite[key]
		if !ok {
			s = &SiteRollup{SiteName: e.SiteName, Day: e.Day, workers: map[string]string{}}
			bySite[key] = s
			sites = append(sites, s)
		}
		s.WorkedHours += e.Result.WorkedHours
		if prev, seen := s.workers[e.WorkerID]; !seen || rank(e.Status) > rank(prev) {
			s.workers[e.WorkerID] = e.Status
		}
		siteSet[e.SiteName] = struct{}{}

		d, ok := byDay[e.Day]
		if !ok {
			d = &DayRollup{Day: e.Day, seen: map[string]struct{}{}}
			byDay[e.Day] = d
			days = append(days, d)
		}
		d.WorkedHours += e.Result.WorkedHours
		d.seen[e.WorkerID] = struct{}{}
	}

	var r Report
	for _, w := range workers {
		w.DaysCount = len(w.days)
		if cutoff >= 0 {
			for _, first := range w.days {
				if minuteOfDay(first.In(loc)) > cutoff {
					w.LateDays++
				}
			}
		}
		r.Summary.TotalWorkedHours += w.WorkedHours
		r.Summary.TotalBreakHours += w.BreakHours
		r.Summary.TotalGeofencePauseHours += w.GeofencePauseHours
		r.Summary.LateArrivals += w.LateDays
		switch rank(w.Status) {
		case rankActive:
			r.Summary.Active++
		case rankOnBreak:
			r.Summary.OnBreak++
		default:
			r.Summary.Finished++
		}
		r.ByWorker = append(r.ByWorker, *w)
	}
	for _, s := range sites {
		s.WorkerDays = len(s.workers)
		for _, status := range s.workers {
			switch rank(status) {
			case rankActive:
				s.Active++
			case rankOnBreak:
				s.OnBreak++
			default:
				s.Done++
			}
		}
		r.BySite = append(r.BySite, *s)
	}
	for _, d := range days {
		d.Workers = len(d.seen)
		r.ByDay = append(r.ByDay, *d)
	}
	r.Summary.Workers = len(workers)
	r.Summary.Sites = len(siteSet)
	return r, nil
}

// Top returns the n workers with the most worked hours. Ties keep first-seen
// order. n <= 0 returns everyone.
func (r Report) Top(n int) []WorkerRollup {
	ranked := make([]WorkerRollup, len(r.ByWorker))
	copy(ranked, r.ByWorker)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WorkedHours > ranked[j].WorkedHours
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// WeekComparison compares worked hours of two consecutive weeks.
type WeekComparison struct {
	ThisWeekHours float64 `json:"this_week_hours"`
	LastWeekHours float64 `json:"last_week_hours"`
	ChangePercent float64 `json:"change_percent"`
}

func CompareWeeks(thisWeek, lastWeek []Entry) WeekComparison {
	c := WeekComparison{
		ThisWeekHours: sumWorked(thisWeek),
		LastWeekHours: sumWorked(lastWeek),
	}
	c.ChangePercent = WeekChange(c.ThisWeekHours, c.LastWeekHours)
	return c
}

// WeekChange is the percent change from last to this; 0 when last is 0.
func WeekChange(this, last float64) float64 {
	if last == 0 {
		return 0
	}
	return (this - last) / last * 100
}

func sumWorked(entries []Entry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Result.WorkedHours
	}
	return total
}

const (
	rankFinished = iota
	rankOnBreak
	rankActive
)

// rank orders statuses for the multi-segment rollup. GPS loss and leaving the
// zone still mean the worker is on shift.
func rank(status string) int {
	switch status {
	case shift.StatusActive, shift.StatusGPSLost, shift.StatusOutsideGeofence:
		return rankActive
	case shift.StatusOnBreak:
		return rankOnBreak
	default:
		return rankFinished
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func mergeActivities(into, add []shift.ActivityLine) []shift.ActivityLine {
	for _, a := range add {
		merged := false
		for i := range into {
			if into[i].Name == a.Name && into[i].UnitType == a.UnitType {
				into[i].Quantity += a.Quantity
				merged = true
				break
			}
		}
		if !merged {
			into = append(into, a)
		}
	}
	return into
}

func parseCutoff(hhmm string) (int, error) {
	if hhmm == "" {
		return -1, nil
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid late arrival cutoff %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
