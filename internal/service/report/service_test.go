package report

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/report"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSegmentRepo struct {
	shift.SegmentRepository
	segments []shift.Segment
	err      error
}

func (f *fakeSegmentRepo) ListByRange(ctx context.Context, from, to time.Time, workerID *string) ([]shift.Segment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []shift.Segment
	for _, seg := range f.segments {
		if seg.CheckInAt.Before(from) || !seg.CheckInAt.Before(to) {
			continue
		}
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInAt.Before(out[j].CheckInAt) })
	return out, nil
}

type fakeActivityRepo struct {
	shift.ActivityRepository
	lines map[string][]shift.ActivityLine
}

func (f *fakeActivityRepo) ListBySegments(ctx context.Context, ids []string) (map[string][]shift.ActivityLine, error) {
	out := map[string][]shift.ActivityLine{}
	for _, id := range ids {
		if l, ok := f.lines[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

var bucharest = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Bucharest")
	if err != nil {
		panic(err)
	}
	return loc
}()

func at(day, h, m int) time.Time {
	return time.Date(2025, 3, day, h, m, 0, 0, bucharest)
}

func ptr[T any](v T) *T { return &v }

func newTestService(segs []shift.Segment) report.ReportService {
	acts := &fakeActivityRepo{lines: map[string][]shift.ActivityLine{
		"s1": {{Name: "Zidarie", Quantity: 10, UnitType: "mp"}},
		"s3": {{Name: "Zidarie", Quantity: 5, UnitType: "mp"}},
	}}
	return NewReportService(
		&fakeSegmentRepo{segments: segs},
		acts,
		accounting.NewEngine(accounting.Options{}),
		accounting.NewFixedClock(at(12, 15, 0)), // Wednesday
		Config{LateAfter: "08:30", TopN: 1, Location: bucharest},
	)
}

func fixtureSegments() []shift.Segment {
	return []shift.Segment{
		{
			ID: "s1", WorkerID: "w1", WorkerName: ptr("Ion Popescu"), SiteID: "a", SiteName: "Bloc A",
			CheckInAt: at(10, 7, 45), CheckOutAt: ptr(at(10, 16, 0)),
			Breaks: []shift.Interval{{Start: at(10, 12, 0), End: ptr(at(10, 12, 30))}},
		},
		{
			ID: "s2", WorkerID: "w2", WorkerName: ptr("Maria Ionescu"), SiteID: "a", SiteName: "Bloc A",
			CheckInAt: at(10, 8, 45), CheckOutAt: ptr(at(10, 12, 45)),
		},
		{
			ID: "s3", WorkerID: "w1", WorkerName: ptr("Ion Popescu"), SiteID: "b", SiteName: "Hala B",
			CheckInAt: at(12, 8, 0),
		},
		{
			ID: "s4", WorkerID: "w1", WorkerName: ptr("Ion Popescu"), SiteID: "a", SiteName: "Bloc A",
			CheckInAt: at(4, 8, 0), CheckOutAt: ptr(at(4, 12, 0)),
		},
	}
}

// ===== ACTIVE WORKERS =====

func TestReportService_ActiveWorkers_Day(t *testing.T) {
	svc := newTestService(fixtureSegments())

	got, err := svc.ActiveWorkers(context.Background(), report.ActiveWorkersRequest{Date: "2025-03-10"})

	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", got.Date)
	require.Len(t, got.Workers, 2)
	assert.Equal(t, "Ion Popescu", got.Workers[0].WorkerName)
	assert.InDelta(t, 7.75, got.Workers[0].WorkedHours, 1e-9)
	assert.InDelta(t, 4.0, got.Workers[1].WorkedHours, 1e-9)
	assert.Equal(t, shift.StatusFinished, got.Workers[0].Status)

	require.Len(t, got.Sites, 1)
	assert.Equal(t, 2, got.Sites[0].WorkerDays)
	assert.Equal(t, 2, got.Sites[0].Done)

	assert.Equal(t, 2, got.Summary.Finished)
	assert.Equal(t, 1, got.Summary.LateArrivals)
}

func TestReportService_ActiveWorkers_TodayDefault(t *testing.T) {
	svc := newTestService(fixtureSegments())

	got, err := svc.ActiveWorkers(context.Background(), report.ActiveWorkersRequest{})

	require.NoError(t, err)
	assert.Equal(t, "2025-03-12", got.Date)
	require.Len(t, got.Workers, 1)
	assert.Equal(t, shift.StatusActive, got.Workers[0].Status)
	assert.InDelta(t, 7.0, got.Workers[0].WorkedHours, 1e-9)
	assert.Equal(t, 1, got.Summary.Active)
}

func TestReportService_ActiveWorkers_SiteFilter(t *testing.T) {
	svc := newTestService(fixtureSegments())

	got, err := svc.ActiveWorkers(context.Background(), report.ActiveWorkersRequest{Date: "2025-03-12", SiteID: ptr("a")})

	require.NoError(t, err)
	assert.Empty(t, got.Workers)
}

func TestReportService_ActiveWorkers_InvalidDate(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.ActiveWorkers(context.Background(), report.ActiveWorkersRequest{Date: "10.03.2025"})

	var verrs validator.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

// ===== SUMMARY =====

func TestReportService_Summary(t *testing.T) {
	svc := newTestService(fixtureSegments())

	got, err := svc.Summary(context.Background(), report.SummaryRequest{From: "2025-03-10", To: "2025-03-12"})

	require.NoError(t, err)
	require.Len(t, got.ByWorker, 2)
	w1 := got.ByWorker[0]
	assert.Equal(t, "w1", w1.WorkerID)
	assert.InDelta(t, 14.75, w1.WorkedHours, 1e-9)
	assert.Equal(t, 2, w1.DaysCount)
	assert.Equal(t, []string{"Bloc A", "Hala B"}, w1.Sites)
	assert.Equal(t, shift.StatusActive, w1.Status)
	require.Len(t, w1.Activities, 1)
	assert.Equal(t, 15.0, w1.Activities[0].Quantity)

	assert.Len(t, got.ByDay, 2)
	require.Len(t, got.TopPerformers, 1)
	assert.Equal(t, "w1", got.TopPerformers[0].WorkerID)

	assert.InDelta(t, 18.75, got.WeekComparison.ThisWeekHours, 1e-9)
	assert.InDelta(t, 4.0, got.WeekComparison.LastWeekHours, 1e-9)
	assert.InDelta(t, 368.75, got.WeekComparison.ChangePercent, 1e-9)
}

func TestReportService_Summary_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  report.SummaryRequest
	}{
		{name: "missing", req: report.SummaryRequest{}},
		{name: "reversed", req: report.SummaryRequest{From: "2025-03-12", To: "2025-03-10"}},
		{name: "bad format", req: report.SummaryRequest{From: "2025/03/10", To: "2025-03-12"}},
		{name: "too long", req: report.SummaryRequest{From: "2025-01-01", To: "2025-12-31"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(nil)

			_, err := svc.Summary(context.Background(), tt.req)

			var verrs validator.ValidationErrors
			assert.True(t, errors.As(err, &verrs))
		})
	}
}

func TestReportService_Summary_RepositoryError(t *testing.T) {
	svc := NewReportService(
		&fakeSegmentRepo{err: errors.New("connection reset")},
		&fakeActivityRepo{},
		accounting.NewEngine(accounting.Options{}),
		accounting.NewFixedClock(at(12, 15, 0)),
		Config{Location: bucharest},
	)

	_, err := svc.Summary(context.Background(), report.SummaryRequest{From: "2025-03-10", To: "2025-03-12"})

	assert.ErrorContains(t, err, "connection reset")
}

func TestReportService_Summary_InvalidSegment(t *testing.T) {
	segs := []shift.Segment{{
		ID: "bad", WorkerID: "w1", SiteName: "Bloc A",
		CheckInAt: at(10, 10, 0), CheckOutAt: ptr(at(10, 9, 0)),
	}}
	svc := newTestService(segs)

	_, err := svc.Summary(context.Background(), report.SummaryRequest{From: "2025-03-10", To: "2025-03-10"})

	assert.ErrorIs(t, err, shift.ErrInvalidSegment)
}
