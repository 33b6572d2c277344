package report

import (
	"context"
	"fmt"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/report"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/aggregate"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	LateAfter string
	TopN      int
	Location  *time.Location
}

type ReportServiceImpl struct {
	shift.SegmentRepository
	shift.ActivityRepository
	engine *accounting.Engine
	clock  accounting.Clock
	cfg    Config
}

func NewReportService(segments shift.SegmentRepository, activities shift.ActivityRepository, engine *accounting.Engine, clock accounting.Clock, cfg Config) report.ReportService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReportServiceImpl{
		SegmentRepository:  segments,
		ActivityRepository: activities,
		engine:             engine,
		clock:              clock,
		cfg:                cfg,
	}
}

// ActiveWorkers implements report.ReportService.
func (s *ReportServiceImpl) ActiveWorkers(ctx context.Context, req report.ActiveWorkersRequest) (report.ActiveWorkersReport, error) {
	if err := req.Validate(); err != nil {
		return report.ActiveWorkersReport{}, err
	}
	now := s.clock.Now()

	day := s.startOfDay(now)
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, s.cfg.Location)
		if err != nil {
			return report.ActiveWorkersReport{}, err
		}
		day = parsed
	}

	entries, err := s.entries(ctx, day, day.AddDate(0, 0, 1), now)
	if err != nil {
		return report.ActiveWorkersReport{}, err
	}
	if req.SiteID != nil {
		filtered := entries[:0]
		for _, e := range entries {
			if e.SiteID == *req.SiteID {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	agg, err := aggregate.Aggregate(entries, s.aggregateOptions())
	if err != nil {
		return report.ActiveWorkersReport{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
	}

	return report.ActiveWorkersReport{
		Date:        day.Format("2006-01-02"),
		GeneratedAt: now.Format(time.RFC3339),
		Workers:     agg.ByWorker,
		Sites:       agg.BySite,
		Summary:     agg.Summary,
	}, nil
}

// Summary implements report.ReportService.
// Range, this week and last week are loaded in parallel
func (s *ReportServiceImpl) Summary(ctx context.Context, req report.SummaryRequest) (report.SummaryReport, error) {
	if err := req.Validate(); err != nil {
		return report.SummaryReport{}, err
	}
	now := s.clock.Now()

	from, err := time.ParseInLocation("2006-01-02", req.From, s.cfg.Location)
	if err != nil {
		return report.SummaryReport{}, err
	}
	to, err := time.ParseInLocation("2006-01-02", req.To, s.cfg.Location)
	if err != nil {
		return report.SummaryReport{}, err
	}
	thisWeek := s.startOfWeek(now)
	lastWeek := thisWeek.AddDate(0, 0, -7)

	var rangeEntries, thisWeekEntries, lastWeekEntries []aggregate.Entry

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Requested range, inclusive of the last day
	g.Go(func() error {
		entries, err := s.entries(gCtx, from, to.AddDate(0, 0, 1), now)
		if err != nil {
			return err
		}
		rangeEntries = entries
		return nil
	})

	// 2. Current week, Monday to now
	g.Go(func() error {
		entries, err := s.entries(gCtx, thisWeek, thisWeek.AddDate(0, 0, 7), now)
		if err != nil {
			return err
		}
		thisWeekEntries = entries
		return nil
	})

	// 3. Previous week
	g.Go(func() error {
		entries, err := s.entries(gCtx, lastWeek, thisWeek, now)
		if err != nil {
			return err
		}
		lastWeekEntries = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return report.SummaryReport{}, err
	}

	agg, err := aggregate.Aggregate(rangeEntries, s.aggregateOptions())
	if err != nil {
		return report.SummaryReport{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
	}

	return report.SummaryReport{
		From:           req.From,
		To:             req.To,
		GeneratedAt:    now.Format(time.RFC3339),
		ByWorker:       agg.ByWorker,
		BySite:         agg.BySite,
		ByDay:          agg.ByDay,
		Summary:        agg.Summary,
		TopPerformers:  agg.Top(s.cfg.TopN),
		WeekComparison: aggregate.CompareWeeks(thisWeekEntries, lastWeekEntries),
	}, nil
}

// entries loads and accounts every segment checked in within [from, to).
func (s *ReportServiceImpl) entries(ctx context.Context, from, to, now time.Time) ([]aggregate.Entry, error) {
	segments, err := s.SegmentRepository.ListByRange(ctx, from, to, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	if len(segments) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(segments))
	for _, seg := range segments {
		ids = append(ids, seg.ID)
	}
	activities, err := s.ActivityRepository.ListBySegments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	entries := make([]aggregate.Entry, 0, len(segments))
	for i := range segments {
		seg := &segments[i]
		res, err := s.engine.Compute(seg, now)
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.ID, err)
		}

		name := seg.WorkerID
		if seg.WorkerName != nil {
			name = *seg.WorkerName
		}
		entries = append(entries, aggregate.Entry{
			WorkerID:   seg.WorkerID,
			WorkerName: name,
			SiteID:     seg.SiteID,
			SiteName:   seg.SiteName,
			Day:        seg.CheckInAt.In(s.cfg.Location).Format("2006-01-02"),
			CheckInAt:  seg.CheckInAt,
			Status:     seg.Status(),
			Result:     res,
			Activities: activities[seg.ID],
		})
	}
	return entries, nil
}

func (s *ReportServiceImpl) aggregateOptions() aggregate.Options {
	return aggregate.Options{LateAfter: s.cfg.LateAfter, Location: s.cfg.Location}
}

func (s *ReportServiceImpl) startOfDay(t time.Time) time.Time {
	local := t.In(s.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// startOfWeek returns Monday 00:00 of t's local week.
func (s *ReportServiceImpl) startOfWeek(t time.Time) time.Time {
	day := s.startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
