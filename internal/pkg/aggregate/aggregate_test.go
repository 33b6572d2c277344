package aggregate

import (
	"testing"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(worker, site, day string, checkIn time.Time, status string, worked float64) Entry {
	return Entry{
		WorkerID:   worker,
		WorkerName: "Name " + worker,
		SiteName:   site,
		Day:        day,
		CheckInAt:  checkIn,
		Status:     status,
		Result:     accounting.Result{WorkedHours: worked, BreakHours: 0.5},
	}
}

func clock(day string, h, m int) time.Time {
	d, _ := time.Parse("2006-01-02", day)
	return d.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestAggregate_ByWorker(t *testing.T) {
	entries := []Entry{
		entry("w1", "Bloc A", "2025-03-10", clock("2025-03-10", 8, 0), shift.StatusFinished, 4),
		entry("w1", "Bloc B", "2025-03-10", clock("2025-03-10", 13, 0), shift.StatusOnBreak, 2),
		entry("w1", "Bloc A", "2025-03-11", clock("2025-03-11", 7, 55), shift.StatusFinished, 8),
		entry("w2", "Bloc A", "2025-03-10", clock("2025-03-10", 9, 10), shift.StatusGPSLost, 3),
	}

	r, err := Aggregate(entries, Options{LateAfter: "08:30"})
	require.NoError(t, err)

	require.Len(t, r.ByWorker, 2)
	w1 := r.ByWorker[0]
	assert.Equal(t, "w1", w1.WorkerID)
	assert.InDelta(t, 14.0, w1.WorkedHours, 1e-9)
	assert.InDelta(t, 1.5, w1.BreakHours, 1e-9)
	assert.Equal(t, 2, w1.DaysCount)
	assert.Equal(t, []string{"Bloc A", "Bloc B"}, w1.Sites)
	assert.Equal(t, shift.StatusOnBreak, w1.Status)
	assert.Equal(t, 0, w1.LateDays)

	w2 := r.ByWorker[1]
	assert.Equal(t, shift.StatusGPSLost, w2.Status)
	assert.Equal(t, 1, w2.LateDays)

	assert.Equal(t, 2, r.Summary.Workers)
	assert.Equal(t, 2, r.Summary.Sites)
	assert.Equal(t, 1, r.Summary.Active)
	assert.Equal(t, 1, r.Summary.OnBreak)
	assert.Equal(t, 0, r.Summary.Finished)
	assert.Equal(t, 1, r.Summary.LateArrivals)
	assert.InDelta(t, 17.0, r.Summary.TotalWorkedHours, 1e-9)
}

func TestAggregate_StatusPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"active beats break", []string{shift.StatusOnBreak, shift.StatusActive}, shift.StatusActive},
		{"break beats finished", []string{shift.StatusFinished, shift.StatusOnBreak, shift.StatusFinished}, shift.StatusOnBreak},
		{"all finished", []string{shift.StatusFinished, shift.StatusFinished}, shift.StatusFinished},
		{"outside zone ranks with active", []string{shift.StatusOutsideGeofence, shift.StatusOnBreak}, shift.StatusOutsideGeofence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []Entry
			for i, s := range tt.statuses {
				entries = append(entries, entry("w1", "Bloc A", "2025-03-10", clock("2025-03-10", 8+i, 0), s, 1))
			}

			r, err := Aggregate(entries, Options{})

			require.NoError(t, err)
			assert.Equal(t, tt.want, r.ByWorker[0].Status)
		})
	}
}

func TestAggregate_BySiteAndDay(t *testing.T) {
	entries := []Entry{
		entry("w1", "Bloc A", "2025-03-10", clock("2025-03-10", 8, 0), shift.StatusFinished, 4),
		entry("w1", "Bloc A", "2025-03-10", clock("2025-03-10", 13, 0), shift.StatusActive, 2),
		entry("w2", "Bloc A", "2025-03-10", clock("2025-03-10", 8, 0), shift.StatusOnBreak, 3),
		entry("w3", "Bloc B", "2025-03-10", clock("2025-03-10", 8, 0), shift.StatusFinished, 5),
		entry("w1", "Bloc A", "2025-03-11", clock("2025-03-11", 8, 0), shift.StatusFinished, 7),
	}

	r, err := Aggregate(entries, Options{})
	require.NoError(t, err)

	require.Len(t, r.BySite, 3)
	a := r.BySite[0]
	assert.Equal(t, "Bloc A", a.SiteName)
	assert.Equal(t, "2025-03-10", a.Day)
	assert.InDelta(t, 9.0, a.WorkedHours, 1e-9)
	assert.Equal(t, 2, a.WorkerDays)
	assert.Equal(t, 1, a.Active)
	assert.Equal(t, 1, a.OnBreak)
	assert.Equal(t, 0, a.Done)
	assert.Equal(t, 1, r.BySite[1].Done)

	require.Len(t, r.ByDay, 2)
	assert.Equal(t, "2025-03-10", r.ByDay[0].Day)
	assert.InDelta(t, 14.0, r.ByDay[0].WorkedHours, 1e-9)
	assert.Equal(t, 3, r.ByDay[0].Workers)
	assert.Equal(t, 1, r.ByDay[1].Workers)
}

func TestAggregate_MergesActivities(t *testing.T) {
	e1 := entry("w1", "Bloc A", "2025-03-10", clock("2025-03-10", 8, 0), shift.StatusFinished, 4)
	e1.Activities = []shift.ActivityLine{{Name: "Zidarie", Quantity: 10, UnitType: "mp"}, {Name: "Tencuiala", Quantity: 5, UnitType: "mp"}}
	e2 := entry("w1", "Bloc B", "2025-03-10", clock("2025-03-10", 13, 0), shift.StatusFinished, 3)
	e2.Activities = []shift.ActivityLine{{Name: "Zidarie", Quantity: 2.5, UnitType: "mp"}, {Name: "Zidarie", Quantity: 1, UnitType: "ml"}}

	r, err := Aggregate([]Entry{e1, e2}, Options{})

	require.NoError(t, err)
	assert.Equal(t, []shift.ActivityLine{
		{Name: "Zidarie", Quantity: 12.5, UnitType: "mp"},
		{Name: "Tencuiala", Quantity: 5, UnitType: "mp"},
		{Name: "Zidarie", Quantity: 1, UnitType: "ml"},
	}, r.ByWorker[0].Activities)
	// inputs stay untouched
	assert.Equal(t, 10.0, e1.Activities[0].Quantity)
}

func TestReport_Top(t *testing.T) {
	entries := []Entry{
		entry("w1", "A", "d", clock("2025-03-10", 8, 0), shift.StatusFinished, 3),
		entry("w2", "A", "d", clock("2025-03-10", 8, 0), shift.StatusFinished, 8),
		entry("w3", "A", "d", clock("2025-03-10", 8, 0), shift.StatusFinished, 3),
		entry("w4", "A", "d", clock("2025-03-10", 8, 0), shift.StatusFinished, 5),
	}
	r, err := Aggregate(entries, Options{})
	require.NoError(t, err)

	top := r.Top(3)

	require.Len(t, top, 3)
	assert.Equal(t, "w2", top[0].WorkerID)
	assert.Equal(t, "w4", top[1].WorkerID)
	assert.Equal(t, "w1", top[2].WorkerID)
	assert.Len(t, r.Top(0), 4)
	assert.Equal(t, "w1", r.ByWorker[0].WorkerID)
}

func TestWeekChange(t *testing.T) {
	assert.Equal(t, 0.0, WeekChange(12, 0))
	assert.InDelta(t, 50.0, WeekChange(15, 10), 1e-9)
	assert.InDelta(t, -25.0, WeekChange(30, 40), 1e-9)

	c := CompareWeeks(
		[]Entry{{Result: accounting.Result{WorkedHours: 12}}},
		nil,
	)
	assert.Equal(t, 12.0, c.ThisWeekHours)
	assert.Equal(t, 0.0, c.ChangePercent)
}

func TestAggregate_InvalidCutoff(t *testing.T) {
	_, err := Aggregate(nil, Options{LateAfter: "late"})

	assert.Error(t, err)
}
