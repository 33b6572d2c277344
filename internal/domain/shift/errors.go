package shift

import (
	"errors"
	"fmt"
)

// Accounting errors. Both are non-retryable: they signal bad data or a caller
// acting on the wrong state, never a transient condition.
var (
	ErrInvalidSegment = errors.New("invalid segment")
	ErrInvalidState   = errors.New("invalid state")
)

// State errors, all matching ErrInvalidState via errors.Is.
var (
	ErrSegmentClosed     = fmt.Errorf("%w: segment is already closed", ErrInvalidState)
	ErrBreakAlreadyOpen  = fmt.Errorf("%w: a break is already in progress", ErrInvalidState)
	ErrNoOpenBreak       = fmt.Errorf("%w: no break in progress", ErrInvalidState)
	ErrBreakAlreadyTaken = fmt.Errorf("%w: break already taken for this shift", ErrInvalidState)
	ErrAlreadyClockedIn  = fmt.Errorf("%w: an active shift already exists", ErrInvalidState)
)

// Lookup and policy errors
var (
	ErrNoActiveShift    = errors.New("no active shift")
	ErrSegmentNotFound  = errors.New("segment not found")
	ErrSiteNotFound     = errors.New("site not found")
	ErrGPSRequired      = errors.New("gps location or self declaration is required")
	ErrOutsideTolerance = errors.New("you are too far from the site to clock in")
	ErrBeforeSchedule   = errors.New("too early to clock in for this site")
	ErrAfterSchedule    = errors.New("site schedule has already ended")
)
