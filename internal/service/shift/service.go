package shift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/geofence"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/sse"
)

// EventPublisher fans segment events out to stream subscribers.
type EventPublisher interface {
	PublishToMany(topics []string, event sse.Event)
}

type Config struct {
	DefaultRadiusMeters float64
	// EarlyClockIn is how long before WorkStart the first clock-in of the day
	// is accepted.
	EarlyClockIn time.Duration
	Location     *time.Location
}

type ShiftServiceImpl struct {
	shift.SegmentRepository
	shift.ActivityRepository
	sites     shift.SiteRepository
	pings     shift.PingStore
	tx        shift.Transactor
	evaluator *geofence.Evaluator
	engine    *accounting.Engine
	clock     accounting.Clock
	publisher EventPublisher
	cfg       Config
}

func NewShiftService(
	tx shift.Transactor,
	segments shift.SegmentRepository,
	sites shift.SiteRepository,
	activities shift.ActivityRepository,
	pings shift.PingStore,
	evaluator *geofence.Evaluator,
	engine *accounting.Engine,
	clock accounting.Clock,
	publisher EventPublisher,
	cfg Config,
) shift.ShiftService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.EarlyClockIn == 0 {
		cfg.EarlyClockIn = 30 * time.Minute
	}
	return &ShiftServiceImpl{
		SegmentRepository:  segments,
		ActivityRepository: activities,
		sites:              sites,
		pings:              pings,
		tx:                 tx,
		evaluator:          evaluator,
		engine:             engine,
		clock:              clock,
		publisher:          publisher,
		cfg:                cfg,
	}
}

// ClockIn implements shift.ShiftService.
func (s *ShiftServiceImpl) ClockIn(ctx context.Context, req shift.ClockInRequest) (shift.SegmentResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.SegmentResponse{}, err
	}
	now := s.clock.Now()
	workerID := req.Actor.UserID

	var seg, autoClosed *shift.Segment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		autoClosed = nil
		open, err := s.SegmentRepository.GetOpenByWorker(ctx, workerID, true)
		if err != nil {
			return fmt.Errorf("failed to get open segment: %w", err)
		}
		if open != nil {
			closed, err := s.closeIfOverdue(ctx, open, now)
			if err != nil {
				return err
			}
			if !closed {
				return shift.ErrAlreadyClockedIn
			}
			autoClosed = open
		}

		site, err := s.sites.GetByID(ctx, req.SiteID)
		if err != nil {
			return err
		}
		if !site.IsActive {
			return shift.ErrSiteNotFound
		}

		first, err := s.isFirstSegmentOfDay(ctx, workerID, now)
		if err != nil {
			return err
		}
		if first {
			if err := s.checkSchedule(site, now); err != nil {
				return err
			}
		}

		var sample *geofence.Sample
		if req.Latitude != nil && req.Longitude != nil {
			sample = &geofence.Sample{Latitude: *req.Latitude, Longitude: *req.Longitude, CapturedAt: now}
		}
		zone := site.Geofence(s.cfg.DefaultRadiusMeters)

		check := geofence.ClockInCheck{GPSAvailable: sample != nil, Inside: true}
		if s.evaluator.Applicable(req.Actor.Role) {
			check, err = s.evaluator.CheckClockIn(sample, zone, site.HasCoordinates(), req.SelfDeclaration)
			if err != nil {
				return err
			}
		}

		seg = shift.NewSegment(uuid.NewString(), workerID, site, zone, now)
		seg.SelfDeclared = check.SelfDeclared
		seg.AuditNote = req.AuditNote
		seg.CheckInLatitude = req.Latitude
		seg.CheckInLongitude = req.Longitude

		if check.OpenPause {
			if _, err := seg.OpenGeofencePause(now); err != nil {
				return err
			}
			p := seg.OpenPause()
			p.DistanceMeters = check.DistanceMeters
			p.Latitude = req.Latitude
			p.Longitude = req.Longitude
		}

		if err := s.SegmentRepository.Create(ctx, *seg); err != nil {
			return fmt.Errorf("failed to create segment: %w", err)
		}
		return nil
	})
	if err != nil {
		return shift.SegmentResponse{}, err
	}

	slog.InfoContext(ctx, "segment clocked in",
		"segment_id", seg.ID,
		"worker_id", workerID,
		"site_id", seg.SiteID,
		"self_declared", seg.SelfDeclared,
		"status", seg.Status(),
	)

	if autoClosed != nil {
		if _, err := s.respondAndPublish(ctx, autoClosed, now); err != nil {
			return shift.SegmentResponse{}, err
		}
	}
	return s.respondAndPublish(ctx, seg, now)
}

// ClockOut implements shift.ShiftService.
func (s *ShiftServiceImpl) ClockOut(ctx context.Context, req shift.ClockOutRequest) (shift.ClockOutResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.ClockOutResponse{}, err
	}
	now := s.clock.Now()

	var (
		seg *shift.Segment
		ot  accounting.Overtime
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		seg, err = s.lockOpen(ctx, req.Actor.UserID)
		if err != nil {
			return err
		}

		if err := seg.Close(now); err != nil {
			return err
		}
		seg.CheckOutLatitude = req.Latitude
		seg.CheckOutLongitude = req.Longitude

		ot, err = s.overtime(ctx, seg)
		if err != nil {
			return err
		}
		seg.OvertimeMinutes = ot.Minutes

		if err := s.SegmentRepository.Update(ctx, *seg); err != nil {
			return fmt.Errorf("failed to update segment: %w", err)
		}

		if len(req.Activities) > 0 {
			lines := make([]shift.ActivityLine, 0, len(req.Activities))
			for _, a := range req.Activities {
				lines = append(lines, shift.ActivityLine{Name: a.Name, Quantity: a.Quantity, UnitType: a.UnitType})
			}
			if err := s.ActivityRepository.Add(ctx, seg.ID, lines); err != nil {
				return fmt.Errorf("failed to add activities: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return shift.ClockOutResponse{}, err
	}

	slog.InfoContext(ctx, "segment clocked out",
		"segment_id", seg.ID,
		"worker_id", seg.WorkerID,
		"overtime_minutes", ot.Minutes,
		"overtime_warning", ot.Warning,
	)

	resp, err := s.respondAndPublish(ctx, seg, now)
	if err != nil {
		return shift.ClockOutResponse{}, err
	}
	return shift.ClockOutResponse{
		Segment: resp,
		Overtime: shift.OvertimeResponse{
			Minutes:    ot.Minutes,
			MaxMinutes: ot.MaxMinutes,
			Warning:    ot.Warning,
		},
	}, nil
}

// StartBreak implements shift.ShiftService.
func (s *ShiftServiceImpl) StartBreak(ctx context.Context, actor shift.Actor) (shift.SegmentResponse, error) {
	return s.mutateOpen(ctx, actor.UserID, "break started", func(seg *shift.Segment, now time.Time) error {
		if seg.OpenBreak() == nil && seg.HasCompletedBreak() {
			return shift.ErrBreakAlreadyTaken
		}
		return seg.StartBreak(now)
	})
}

// EndBreak implements shift.ShiftService.
func (s *ShiftServiceImpl) EndBreak(ctx context.Context, actor shift.Actor) (shift.SegmentResponse, error) {
	return s.mutateOpen(ctx, actor.UserID, "break ended", func(seg *shift.Segment, now time.Time) error {
		return seg.EndBreak(now)
	})
}

// LocationPing implements shift.ShiftService.
func (s *ShiftServiceImpl) LocationPing(ctx context.Context, req shift.LocationPingRequest) (shift.PingResult, error) {
	if err := req.Validate(); err != nil {
		return shift.PingResult{}, err
	}
	now := s.clock.Now()
	workerID := req.Actor.UserID

	if !s.evaluator.Applicable(req.Actor.Role) {
		seg, err := s.SegmentRepository.GetOpenByWorker(ctx, workerID, false)
		if err != nil {
			return shift.PingResult{}, fmt.Errorf("failed to get open segment: %w", err)
		}
		if seg == nil {
			return shift.PingResult{}, shift.ErrNoActiveShift
		}
		s.rememberPing(ctx, workerID, now)
		return shift.PingResult{
			GeofenceApplicable: false,
			RadiusMeters:       seg.Geofence.RadiusMeters,
			IsWithinGeofence:   true,
			Status:             string(geofence.TransitionUnchanged),
		}, nil
	}

	var (
		seg     *shift.Segment
		outcome geofence.Outcome
		changed bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		seg, err = s.lockOpen(ctx, workerID)
		if err != nil {
			return err
		}

		at := sampleTime(seg, req.CapturedAt, now)
		wasLost := seg.GPSLost
		outcome, err = s.evaluator.Apply(seg, geofence.Sample{
			Latitude:   req.Latitude,
			Longitude:  req.Longitude,
			CapturedAt: at,
		})
		if err != nil {
			return err
		}

		changed = outcome.Transition != geofence.TransitionUnchanged
		if !changed && !wasLost {
			// the last-ping instant lives in the ping store
			return nil
		}
		if err := s.SegmentRepository.Update(ctx, *seg); err != nil {
			return fmt.Errorf("failed to update segment: %w", err)
		}
		return nil
	})
	if err != nil {
		return shift.PingResult{}, err
	}
	s.rememberPing(ctx, workerID, *seg.LastPingAt)

	res, err := s.engine.Compute(seg, now)
	if err != nil {
		return shift.PingResult{}, err
	}

	if changed {
		slog.InfoContext(ctx, "geofence transition",
			"segment_id", seg.ID,
			"worker_id", workerID,
			"transition", string(outcome.Transition),
			"distance_meters", outcome.DistanceMeters,
		)
		if _, err := s.respondAndPublish(ctx, seg, now); err != nil {
			return shift.PingResult{}, err
		}
	}

	dist := outcome.DistanceMeters
	return shift.PingResult{
		GeofenceApplicable:        true,
		DistanceMeters:            &dist,
		RadiusMeters:              seg.Geofence.RadiusMeters,
		IsWithinGeofence:          outcome.Inside,
		StatusChanged:             changed,
		Status:                    string(outcome.Transition),
		PauseDurationSeconds:      outcome.PauseDurationSeconds,
		TotalGeofencePauseSeconds: res.GeofencePauseHours * 3600,
	}, nil
}

// GetActive implements shift.ShiftService.
func (s *ShiftServiceImpl) GetActive(ctx context.Context, actor shift.Actor) (*shift.SegmentResponse, error) {
	now := s.clock.Now()

	seg, err := s.SegmentRepository.GetOpenByWorker(ctx, actor.UserID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get open segment: %w", err)
	}
	if seg == nil {
		return nil, nil
	}

	overdue, err := s.isOverdue(ctx, seg, now)
	if err != nil {
		return nil, err
	}
	if overdue {
		if _, err := s.autoCloseWorker(ctx, seg.WorkerID, now); err != nil {
			return nil, err
		}
		return nil, nil
	}

	s.mergeLastPing(ctx, seg)
	resp, err := s.toResponse(seg, now)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetToday implements shift.ShiftService.
func (s *ShiftServiceImpl) GetToday(ctx context.Context, actor shift.Actor) (shift.TodayResponse, error) {
	now := s.clock.Now()
	from, to := s.dayBounds(now)

	workerID := actor.UserID
	segments, err := s.SegmentRepository.ListByRange(ctx, from, to, &workerID)
	if err != nil {
		return shift.TodayResponse{}, fmt.Errorf("failed to list today's segments: %w", err)
	}

	today := shift.TodayResponse{
		Date:     from.Format("2006-01-02"),
		Segments: make([]shift.SegmentResponse, 0, len(segments)),
	}
	for i := range segments {
		seg := &segments[i]
		resp, err := s.toResponse(seg, now)
		if err != nil {
			return shift.TodayResponse{}, err
		}
		if seg.IsLive() {
			today.HasActiveShift = true
		} else {
			today.HasCompletedShift = true
		}
		today.TotalWorkedHours += resp.Accounting.WorkedHours
		today.Segments = append(today.Segments, resp)
	}
	return today, nil
}

// GetByID implements shift.ShiftService.
func (s *ShiftServiceImpl) GetByID(ctx context.Context, id string) (shift.SegmentResponse, error) {
	seg, err := s.SegmentRepository.GetByID(ctx, id)
	if err != nil {
		return shift.SegmentResponse{}, err
	}
	return s.toResponse(&seg, s.clock.Now())
}

// ApproveOvertime implements shift.ShiftService.
func (s *ShiftServiceImpl) ApproveOvertime(ctx context.Context, req shift.ApproveOvertimeRequest) (shift.SegmentResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.SegmentResponse{}, err
	}
	now := s.clock.Now()

	var seg shift.Segment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		seg, err = s.SegmentRepository.GetByID(ctx, req.SegmentID)
		if err != nil {
			return err
		}
		if seg.IsLive() {
			return fmt.Errorf("%w: segment is still live", shift.ErrInvalidState)
		}
		if seg.OvertimeMinutes == 0 {
			return fmt.Errorf("%w: segment has no overtime", shift.ErrInvalidState)
		}

		approvedBy := req.ApprovedBy
		seg.OvertimeApproved = true
		seg.OvertimeApprovedBy = &approvedBy
		seg.OvertimeApprovedAt = &now
		seg.UpdatedAt = now

		if err := s.SegmentRepository.Update(ctx, seg); err != nil {
			return fmt.Errorf("failed to update segment: %w", err)
		}
		return nil
	})
	if err != nil {
		return shift.SegmentResponse{}, err
	}

	slog.InfoContext(ctx, "overtime approved",
		"segment_id", seg.ID,
		"worker_id", seg.WorkerID,
		"approved_by", req.ApprovedBy,
		"overtime_minutes", seg.OvertimeMinutes,
	)
	return s.respondAndPublish(ctx, &seg, now)
}

// SweepGPSLost implements shift.ShiftService.
func (s *ShiftServiceImpl) SweepGPSLost(ctx context.Context, now time.Time) (int, error) {
	live, err := s.SegmentRepository.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list live segments: %w", err)
	}

	var (
		flagged int
		errs    []error
	)
	for i := range live {
		candidate := live[i]
		s.mergeLastPing(ctx, &candidate)
		if !s.evaluator.DetectGPSLost(&candidate, now) {
			continue
		}

		var seg *shift.Segment
		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			seg, err = s.SegmentRepository.GetOpenByWorker(ctx, candidate.WorkerID, true)
			if err != nil {
				return fmt.Errorf("failed to lock segment: %w", err)
			}
			if seg == nil || seg.ID != candidate.ID {
				seg = nil
				return nil
			}
			s.mergeLastPing(ctx, seg)
			if !s.evaluator.DetectGPSLost(seg, now) {
				seg = nil
				return nil
			}
			return s.SegmentRepository.Update(ctx, *seg)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("segment %s: %w", candidate.ID, err))
			continue
		}
		if seg == nil {
			continue
		}

		flagged++
		slog.InfoContext(ctx, "gps status changed",
			"segment_id", seg.ID,
			"worker_id", seg.WorkerID,
			"gps_lost", seg.GPSLost,
		)
		if _, err := s.respondAndPublish(ctx, seg, now); err != nil {
			errs = append(errs, fmt.Errorf("segment %s: %w", seg.ID, err))
		}
	}
	return flagged, errors.Join(errs...)
}

// AutoClose implements shift.ShiftService.
func (s *ShiftServiceImpl) AutoClose(ctx context.Context, now time.Time) (int, error) {
	live, err := s.SegmentRepository.ListLive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list live segments: %w", err)
	}

	var (
		closed int
		errs   []error
	)
	for i := range live {
		overdue, err := s.isOverdue(ctx, &live[i], now)
		if err != nil {
			errs = append(errs, fmt.Errorf("segment %s: %w", live[i].ID, err))
			continue
		}
		if !overdue {
			continue
		}
		ok, err := s.autoCloseWorker(ctx, live[i].WorkerID, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("segment %s: %w", live[i].ID, err))
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, errors.Join(errs...)
}

// mutateOpen applies fn to the worker's live segment under a row lock and
// persists the result.
func (s *ShiftServiceImpl) mutateOpen(ctx context.Context, workerID, logMsg string, fn func(seg *shift.Segment, now time.Time) error) (shift.SegmentResponse, error) {
	now := s.clock.Now()

	var seg *shift.Segment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		seg, err = s.lockOpen(ctx, workerID)
		if err != nil {
			return err
		}
		if err := fn(seg, now); err != nil {
			return err
		}
		if err := s.SegmentRepository.Update(ctx, *seg); err != nil {
			return fmt.Errorf("failed to update segment: %w", err)
		}
		return nil
	})
	if err != nil {
		return shift.SegmentResponse{}, err
	}

	slog.InfoContext(ctx, logMsg,
		"segment_id", seg.ID,
		"worker_id", workerID,
		"status", seg.Status(),
	)
	return s.respondAndPublish(ctx, seg, now)
}

func (s *ShiftServiceImpl) lockOpen(ctx context.Context, workerID string) (*shift.Segment, error) {
	seg, err := s.SegmentRepository.GetOpenByWorker(ctx, workerID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get open segment: %w", err)
	}
	if seg == nil {
		return nil, shift.ErrNoActiveShift
	}
	return seg, nil
}

// autoCloseWorker closes the worker's live segment if it is still overdue once
// locked.
func (s *ShiftServiceImpl) autoCloseWorker(ctx context.Context, workerID string, now time.Time) (bool, error) {
	var (
		seg    *shift.Segment
		closed bool
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		seg, err = s.SegmentRepository.GetOpenByWorker(ctx, workerID, true)
		if err != nil {
			return fmt.Errorf("failed to lock segment: %w", err)
		}
		if seg == nil {
			return nil
		}
		closed, err = s.closeIfOverdue(ctx, seg, now)
		return err
	})
	if err != nil || !closed {
		return false, err
	}
	if _, err := s.respondAndPublish(ctx, seg, now); err != nil {
		return true, err
	}
	return true, nil
}

// closeIfOverdue closes seg at its hard deadline when now is past it. It runs
// inside the caller's transaction.
func (s *ShiftServiceImpl) closeIfOverdue(ctx context.Context, seg *shift.Segment, now time.Time) (bool, error) {
	site, err := s.sites.GetByID(ctx, seg.SiteID)
	if err != nil {
		return false, err
	}
	deadline, ok, err := accounting.HardDeadline(site, seg.CheckInAt, s.cfg.Location)
	if err != nil || !ok || !now.After(deadline) || !deadline.After(seg.CheckInAt) {
		return false, err
	}

	at := latestRecorded(seg, deadline)
	if err := seg.Close(at); err != nil {
		return false, err
	}
	ot, err := accounting.ComputeOvertime(seg, site, s.cfg.Location)
	if err != nil {
		return false, err
	}
	seg.OvertimeMinutes = ot.Minutes

	if err := s.SegmentRepository.Update(ctx, *seg); err != nil {
		return false, fmt.Errorf("failed to update segment: %w", err)
	}

	slog.WarnContext(ctx, "segment auto-closed at hard deadline",
		"segment_id", seg.ID,
		"worker_id", seg.WorkerID,
		"check_out_at", at,
		"overtime_minutes", ot.Minutes,
	)
	return true, nil
}

func (s *ShiftServiceImpl) isOverdue(ctx context.Context, seg *shift.Segment, now time.Time) (bool, error) {
	site, err := s.sites.GetByID(ctx, seg.SiteID)
	if err != nil {
		return false, err
	}
	deadline, ok, err := accounting.HardDeadline(site, seg.CheckInAt, s.cfg.Location)
	if err != nil || !ok {
		return false, err
	}
	return now.After(deadline) && deadline.After(seg.CheckInAt), nil
}

func (s *ShiftServiceImpl) overtime(ctx context.Context, seg *shift.Segment) (accounting.Overtime, error) {
	site, err := s.sites.GetByID(ctx, seg.SiteID)
	if err != nil {
		return accounting.Overtime{}, err
	}
	return accounting.ComputeOvertime(seg, site, s.cfg.Location)
}

func (s *ShiftServiceImpl) isFirstSegmentOfDay(ctx context.Context, workerID string, now time.Time) (bool, error) {
	from, to := s.dayBounds(now)
	segments, err := s.SegmentRepository.ListByRange(ctx, from, to, &workerID)
	if err != nil {
		return false, fmt.Errorf("failed to list today's segments: %w", err)
	}
	return len(segments) == 0, nil
}

// checkSchedule bounds the first clock-in of the day to
// [WorkStart - EarlyClockIn, WorkEnd].
func (s *ShiftServiceImpl) checkSchedule(site shift.Site, now time.Time) error {
	if site.WorkStart != nil {
		start, err := accounting.ScheduleTime(now, *site.WorkStart, s.cfg.Location)
		if err != nil {
			return err
		}
		if now.Before(start.Add(-s.cfg.EarlyClockIn)) {
			return shift.ErrBeforeSchedule
		}
	}
	if site.WorkEnd != nil {
		end, err := accounting.ScheduleTime(now, *site.WorkEnd, s.cfg.Location)
		if err != nil {
			return err
		}
		if now.After(end) {
			return shift.ErrAfterSchedule
		}
	}
	return nil
}

func (s *ShiftServiceImpl) dayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(s.cfg.Location)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
	return from, from.AddDate(0, 0, 1)
}

// mergeLastPing advances seg.LastPingAt to the ping store's value when newer.
// The store is keyed by worker, so instants before the segment's check-in
// belong to an earlier segment and are ignored.
func (s *ShiftServiceImpl) mergeLastPing(ctx context.Context, seg *shift.Segment) {
	if s.pings == nil {
		return
	}
	at, ok, err := s.pings.GetLastPing(ctx, seg.WorkerID)
	if err != nil {
		slog.WarnContext(ctx, "failed to read last ping", "worker_id", seg.WorkerID, "error", err)
		return
	}
	if !ok || at.Before(seg.CheckInAt) {
		return
	}
	if seg.LastPingAt == nil || at.After(*seg.LastPingAt) {
		seg.LastPingAt = &at
	}
}

func (s *ShiftServiceImpl) rememberPing(ctx context.Context, workerID string, at time.Time) {
	if s.pings == nil {
		return
	}
	if err := s.pings.SetLastPing(ctx, workerID, at); err != nil {
		slog.WarnContext(ctx, "failed to store last ping", "worker_id", workerID, "error", err)
	}
}

func (s *ShiftServiceImpl) respondAndPublish(ctx context.Context, seg *shift.Segment, now time.Time) (shift.SegmentResponse, error) {
	resp, err := s.toResponse(seg, now)
	if err != nil {
		return shift.SegmentResponse{}, err
	}
	if s.publisher != nil {
		s.publisher.PublishToMany([]string{seg.WorkerID, sse.TopicSupervisors}, sse.Event{
			Event: shift.EventSegmentUpdated,
			Data:  shift.SegmentEvent{Type: shift.EventSegmentUpdated, Segment: resp},
		})
	}
	return resp, nil
}

func (s *ShiftServiceImpl) toResponse(seg *shift.Segment, now time.Time) (shift.SegmentResponse, error) {
	res, err := s.engine.Compute(seg, now)
	if err != nil {
		return shift.SegmentResponse{}, err
	}
	return shift.SegmentResponse{
		ID:                 seg.ID,
		WorkerID:           seg.WorkerID,
		WorkerName:         seg.WorkerName,
		SiteID:             seg.SiteID,
		SiteName:           seg.SiteName,
		CheckInAt:          seg.CheckInAt,
		CheckOutAt:         seg.CheckOutAt,
		Breaks:             toIntervals(seg.Breaks),
		GeofencePauses:     toIntervals(seg.GeofencePauses),
		Geofence:           seg.Geofence,
		GPSLost:            seg.GPSLost,
		LastPingAt:         seg.LastPingAt,
		SelfDeclared:       seg.SelfDeclared,
		Status:             seg.Status(),
		OvertimeMinutes:    seg.OvertimeMinutes,
		OvertimeApproved:   seg.OvertimeApproved,
		OvertimeApprovedBy: seg.OvertimeApprovedBy,
		Accounting: shift.AccountingResponse{
			WorkedHours:        res.WorkedHours,
			BreakHours:         res.BreakHours,
			GeofencePauseHours: res.GeofencePauseHours,
			TotalShiftHours:    res.TotalShiftHours,
			IsFrozen:           res.IsFrozen,
		},
	}, nil
}

func toIntervals(list []shift.Interval) []shift.IntervalResponse {
	out := make([]shift.IntervalResponse, 0, len(list))
	for _, iv := range list {
		out = append(out, shift.IntervalResponse{
			Start:          iv.Start,
			End:            iv.End,
			DistanceMeters: iv.DistanceMeters,
		})
	}
	return out
}

// sampleTime places a ping on the segment timeline. Device timestamps in the
// future are replaced by now; late or out-of-order ones are moved up to the
// last known instant so the pause list stays ordered.
func sampleTime(seg *shift.Segment, capturedAt *time.Time, now time.Time) time.Time {
	at := now
	if capturedAt != nil && !capturedAt.After(now) {
		at = *capturedAt
	}
	if at.Before(seg.CheckInAt) {
		at = seg.CheckInAt
	}
	if seg.LastPingAt != nil && at.Before(*seg.LastPingAt) {
		at = *seg.LastPingAt
	}
	for _, p := range seg.GeofencePauses {
		if at.Before(p.Start) {
			at = p.Start
		}
		if p.End != nil && at.Before(*p.End) {
			at = *p.End
		}
	}
	return at
}

// latestRecorded returns the later of at and every interval boundary on seg.
func latestRecorded(seg *shift.Segment, at time.Time) time.Time {
	for _, list := range [][]shift.Interval{seg.Breaks, seg.GeofencePauses} {
		for _, iv := range list {
			if iv.Start.After(at) {
				at = iv.Start
			}
			if iv.End != nil && iv.End.After(at) {
				at = *iv.End
			}
		}
	}
	return at
}
