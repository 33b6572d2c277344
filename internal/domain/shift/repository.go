package shift

import (
	"context"
	"time"
)

// SegmentRepository persists segments together with their break and pause
// intervals.
type SegmentRepository interface {
	// Create inserts a new segment and any intervals it already carries
	Create(ctx context.Context, seg Segment) error

	// GetByID loads a segment with its intervals
	GetByID(ctx context.Context, id string) (Segment, error)

	// GetOpenByWorker returns the worker's live segment, or nil if none.
	// forUpdate locks the row for the surrounding transaction.
	GetOpenByWorker(ctx context.Context, workerID string, forUpdate bool) (*Segment, error)

	// Update writes back the segment row and upserts its intervals
	Update(ctx context.Context, seg Segment) error

	// ListLive returns every segment that has not been clocked out
	ListLive(ctx context.Context) ([]Segment, error)

	// ListByRange returns segments checked in within [from, to). workerID
	// narrows the result to one worker when set.
	ListByRange(ctx context.Context, from, to time.Time, workerID *string) ([]Segment, error)
}

// SiteRepository reads construction sites.
type SiteRepository interface {
	GetByID(ctx context.Context, id string) (Site, error)
}

// ActivityRepository stores the work quantities logged at clock-out.
type ActivityRepository interface {
	Add(ctx context.Context, segmentID string, lines []ActivityLine) error
	ListBySegments(ctx context.Context, segmentIDs []string) (map[string][]ActivityLine, error)
}

// PingStore keeps the latest ping instant per worker outside the database.
type PingStore interface {
	SetLastPing(ctx context.Context, workerID string, at time.Time) error
	GetLastPing(ctx context.Context, workerID string) (time.Time, bool, error)
}

// Transactor runs fn in a transaction carried by the returned context.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
