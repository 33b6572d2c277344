package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/accounting"
)

// ShiftSweeper is the part of the shift service the background jobs drive.
type ShiftSweeper interface {
	SweepGPSLost(ctx context.Context, now time.Time) (int, error)
	AutoClose(ctx context.Context, now time.Time) (int, error)
}

type ShiftJobs struct {
	sweeper ShiftSweeper
	clock   accounting.Clock

	gpsInterval   time.Duration
	closeInterval time.Duration
}

func NewShiftJobs(sweeper ShiftSweeper, clock accounting.Clock, gpsInterval, closeInterval time.Duration) *ShiftJobs {
	return &ShiftJobs{
		sweeper:       sweeper,
		clock:         clock,
		gpsInterval:   gpsInterval,
		closeInterval: closeInterval,
	}
}

func (j *ShiftJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("flag_gps_lost_segments", j.gpsInterval, j.FlagGPSLost)
	scheduler.AddJob("auto_close_overdue_segments", j.closeInterval, j.AutoCloseOverdue)
}

func (j *ShiftJobs) FlagGPSLost(ctx context.Context) error {
	changed, err := j.sweeper.SweepGPSLost(ctx, j.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to sweep gps lost segments: %w", err)
	}
	if changed > 0 {
		slog.Info("Cron: GPS lost flags updated", "segments", changed)
	}
	return nil
}

func (j *ShiftJobs) AutoCloseOverdue(ctx context.Context) error {
	closed, err := j.sweeper.AutoClose(ctx, j.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to auto-close segments: %w", err)
	}
	if closed > 0 {
		slog.Info("Cron: Segments auto-closed at hard deadline", "segments", closed)
	}
	return nil
}
