// Package tracker drives a live shift from the worker's device: a fast display
// tick recomputed locally from the last snapshot, and a slower location ping
// that refreshes the snapshot whenever the server reports a status change.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
)

const (
	DefaultTickInterval = time.Second
	DefaultPingInterval = 30 * time.Second
)

type Config struct {
	BaseURL      string
	Token        string
	TickInterval time.Duration
	PingInterval time.Duration
	Timeout      time.Duration
	RetryCount   int
}

// Position is one device location fix.
type Position struct {
	Latitude  float64
	Longitude float64
}

// PositionSource returns the current fix, or false when the device has none.
type PositionSource interface {
	Current(ctx context.Context) (Position, bool)
}

// PositionFunc adapts a function to PositionSource.
type PositionFunc func(ctx context.Context) (Position, bool)

func (f PositionFunc) Current(ctx context.Context) (Position, bool) {
	return f(ctx)
}

// Update is what the observer sees on every tick.
type Update struct {
	Segment    shift.SegmentResponse
	Accounting accounting.Result
	At         time.Time

	// Stale is set while the latest refresh attempt failed.
	Stale bool
}

type Observer func(Update)

// APIError is a non-2xx reply of the shift service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shift api error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data"`
	Error   *errorBody `json:"error"`
}

type Tracker struct {
	client   *resty.Client
	engine   *accounting.Engine
	clock    accounting.Clock
	position PositionSource
	observer Observer
	cfg      Config

	mu       sync.RWMutex
	snapshot *shift.SegmentResponse
	segment  *shift.Segment
	stale    bool
}

func New(cfg Config, engine *accounting.Engine, clock accounting.Clock, position PositionSource, observer Observer) *Tracker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if engine == nil {
		engine = accounting.NewEngine(accounting.Options{})
	}
	if observer == nil {
		observer = func(Update) {}
	}

	return &Tracker{
		client:   client,
		engine:   engine,
		clock:    clock,
		position: position,
		observer: observer,
		cfg:      cfg,
	}
}

// Run loads the live segment and keeps the observer fed until ctx is done or
// the segment is seen closed. It returns shift.ErrNoActiveShift when there is
// nothing to track.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.Refresh(ctx); err != nil {
		return err
	}
	if t.Current() == nil {
		return shift.ErrNoActiveShift
	}

	tick := time.NewTicker(t.cfg.TickInterval)
	defer tick.Stop()
	ping := time.NewTicker(t.cfg.PingInterval)
	defer ping.Stop()

	t.emit(ctx)
	for {
		if t.closed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tick.C:
			t.emit(ctx)

		case <-ping.C:
			t.pingAndRefresh(ctx)
			t.emit(ctx)
		}
	}
}

// Current returns the last good snapshot, nil before the first refresh.
func (t *Tracker) Current() *shift.SegmentResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Refresh replaces the snapshot wholesale with the server's view. When the
// worker has no live segment anymore the last known segment is fetched by id
// so its closed state is seen.
func (t *Tracker) Refresh(ctx context.Context) error {
	active, err := t.getActive(ctx)
	if err != nil {
		t.markStale()
		return err
	}

	if active == nil {
		prev := t.Current()
		if prev == nil {
			return nil
		}
		closed, err := t.getSegment(ctx, prev.ID)
		if err != nil {
			t.markStale()
			return err
		}
		active = closed
	}

	t.store(*active)
	return nil
}

// Ping posts one location sample.
func (t *Tracker) Ping(ctx context.Context, pos Position) (shift.PingResult, error) {
	var result envelope[shift.PingResult]
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"latitude":    pos.Latitude,
			"longitude":   pos.Longitude,
			"captured_at": t.clock.Now().UTC(),
		}).
		SetResult(&result).
		SetError(&result).
		Post("/api/v1/shifts/location-ping")
	if err != nil {
		return shift.PingResult{}, fmt.Errorf("failed to send location ping: %w", err)
	}
	if err := apiError(resp, result.Error); err != nil {
		return shift.PingResult{}, err
	}
	return result.Data, nil
}

func (t *Tracker) pingAndRefresh(ctx context.Context) {
	if t.position == nil {
		return
	}
	pos, ok := t.position.Current(ctx)
	if !ok {
		slog.DebugContext(ctx, "No position fix, skipping ping")
		return
	}

	result, err := t.Ping(ctx, pos)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			slog.WarnContext(ctx, "Location ping failed", "error", err)
			return
		}
		// closed server side
	} else if !result.StatusChanged {
		return
	}

	if err := t.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Snapshot refresh failed, keeping last snapshot", "error", err)
	}
}

func (t *Tracker) emit(ctx context.Context) {
	t.mu.RLock()
	snapshot, seg, stale := t.snapshot, t.segment, t.stale
	t.mu.RUnlock()
	if snapshot == nil {
		return
	}

	now := latestBoundary(seg, t.clock.Now())
	result, err := t.engine.Compute(seg, now)
	if err != nil {
		slog.WarnContext(ctx, "Failed to compute live accounting", "segment_id", seg.ID, "error", err)
		return
	}

	t.observer(Update{
		Segment:    *snapshot,
		Accounting: result,
		At:         now,
		Stale:      stale,
	})
}

func (t *Tracker) closed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.segment != nil && !t.segment.IsLive()
}

func (t *Tracker) store(resp shift.SegmentResponse) {
	seg := segmentFromResponse(resp)
	t.mu.Lock()
	t.snapshot = &resp
	t.segment = seg
	t.stale = false
	t.mu.Unlock()
}

func (t *Tracker) markStale() {
	t.mu.Lock()
	t.stale = true
	t.mu.Unlock()
}

func (t *Tracker) getActive(ctx context.Context) (*shift.SegmentResponse, error) {
	var result envelope[*shift.SegmentResponse]
	resp, err := t.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&result).
		Get("/api/v1/shifts/active")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active shift: %w", err)
	}
	if err := apiError(resp, result.Error); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func (t *Tracker) getSegment(ctx context.Context, id string) (*shift.SegmentResponse, error) {
	var result envelope[*shift.SegmentResponse]
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&result).
		SetError(&result).
		Get("/api/v1/shifts/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shift %s: %w", id, err)
	}
	if err := apiError(resp, result.Error); err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, shift.ErrSegmentNotFound
	}
	return result.Data, nil
}

func apiError(resp *resty.Response, detail *errorBody) error {
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if detail != nil {
		apiErr.Code = detail.Code
		apiErr.Message = detail.Message
	}
	return apiErr
}

func segmentFromResponse(resp shift.SegmentResponse) *shift.Segment {
	return &shift.Segment{
		ID:             resp.ID,
		WorkerID:       resp.WorkerID,
		SiteID:         resp.SiteID,
		SiteName:       resp.SiteName,
		CheckInAt:      resp.CheckInAt,
		CheckOutAt:     resp.CheckOutAt,
		Breaks:         toIntervals(resp.Breaks),
		GeofencePauses: toIntervals(resp.GeofencePauses),
		Geofence:       resp.Geofence,
		GPSLost:        resp.GPSLost,
		LastPingAt:     resp.LastPingAt,
		SelfDeclared:   resp.SelfDeclared,
		WorkerName:     resp.WorkerName,
	}
}

func toIntervals(list []shift.IntervalResponse) []shift.Interval {
	out := make([]shift.Interval, 0, len(list))
	for _, iv := range list {
		out = append(out, shift.Interval{
			Start:          iv.Start,
			End:            iv.End,
			DistanceMeters: iv.DistanceMeters,
		})
	}
	return out
}

// latestBoundary keeps a device clock running behind the server from putting
// now before an interval the server already recorded.
func latestBoundary(seg *shift.Segment, now time.Time) time.Time {
	if !seg.IsLive() {
		return now
	}
	for _, list := range [][]shift.Interval{seg.Breaks, seg.GeofencePauses} {
		for _, iv := range list {
			if iv.Start.After(now) {
				now = iv.Start
			}
			if iv.End != nil && iv.End.After(now) {
				now = *iv.End
			}
		}
	}
	return now
}
