package shift

import (
	"context"
	"time"
)

// ShiftService defines the clock-in/out workflow of a worker
type ShiftService interface {
	// ClockIn opens a live segment after schedule and geofence checks
	ClockIn(ctx context.Context, req ClockInRequest) (SegmentResponse, error)

	// ClockOut closes the live segment and reports overtime
	ClockOut(ctx context.Context, req ClockOutRequest) (ClockOutResponse, error)

	StartBreak(ctx context.Context, actor Actor) (SegmentResponse, error)
	EndBreak(ctx context.Context, actor Actor) (SegmentResponse, error)

	// LocationPing evaluates a GPS sample against the live segment's zone
	LocationPing(ctx context.Context, req LocationPingRequest) (PingResult, error)

	// GetActive returns the live segment or nil. Segments past their hard
	// deadline are closed on read.
	GetActive(ctx context.Context, actor Actor) (*SegmentResponse, error)

	GetToday(ctx context.Context, actor Actor) (TodayResponse, error)
	GetByID(ctx context.Context, id string) (SegmentResponse, error)

	ApproveOvertime(ctx context.Context, req ApproveOvertimeRequest) (SegmentResponse, error)

	// SweepGPSLost flags live segments whose pings stopped. Returns the number
	// of segments whose flag changed.
	SweepGPSLost(ctx context.Context, now time.Time) (int, error)

	// AutoClose closes live segments past their hard deadline.
	AutoClose(ctx context.Context, now time.Time) (int, error)
}
