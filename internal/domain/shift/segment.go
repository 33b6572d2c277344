package shift

import (
	"fmt"
	"sort"
	"time"
)

// NewSegment starts a live segment at checkInAt.
func NewSegment(id, workerID string, site Site, geofence Geofence, checkInAt time.Time) *Segment {
	return &Segment{
		ID:        id,
		WorkerID:  workerID,
		SiteID:    site.ID,
		SiteName:  site.Name,
		CheckInAt: checkInAt,
		Geofence:  geofence,
		CreatedAt: checkInAt,
		UpdatedAt: checkInAt,
	}
}

// IsLive reports whether the segment has not been clocked out.
func (s *Segment) IsLive() bool {
	return s.CheckOutAt == nil
}

// OpenBreak returns the running break, if any.
func (s *Segment) OpenBreak() *Interval {
	return lastOpen(s.Breaks)
}

// OpenPause returns the running geofence pause, if any.
func (s *Segment) OpenPause() *Interval {
	return lastOpen(s.GeofencePauses)
}

// HasCompletedBreak reports whether a break has already been taken and ended.
func (s *Segment) HasCompletedBreak() bool {
	for _, b := range s.Breaks {
		if !b.IsOpen() {
			return true
		}
	}
	return false
}

// Status derives the panel status. An open geofence pause outranks GPS loss,
// which outranks a break.
func (s *Segment) Status() string {
	switch {
	case !s.IsLive():
		return StatusFinished
	case s.OpenPause() != nil:
		return StatusOutsideGeofence
	case s.GPSLost:
		return StatusGPSLost
	case s.OpenBreak() != nil:
		return StatusOnBreak
	default:
		return StatusActive
	}
}

// StartBreak opens a new break at.
func (s *Segment) StartBreak(at time.Time) error {
	if !s.IsLive() {
		return ErrSegmentClosed
	}
	if s.OpenBreak() != nil {
		return ErrBreakAlreadyOpen
	}
	if err := s.checkAppend(s.Breaks, at, "break"); err != nil {
		return err
	}
	s.Breaks = append(s.Breaks, Interval{Start: at})
	s.UpdatedAt = at
	return nil
}

// EndBreak closes the running break at.
func (s *Segment) EndBreak(at time.Time) error {
	open := s.OpenBreak()
	if open == nil {
		return ErrNoOpenBreak
	}
	if at.Before(open.Start) {
		return fmt.Errorf("%w: break end %s before its start %s", ErrInvalidSegment, at.Format(time.RFC3339), open.Start.Format(time.RFC3339))
	}
	open.End = &at
	s.UpdatedAt = at
	return nil
}

// OpenGeofencePause opens a pause at. Calling it while a pause is already open
// is a no-op; the returned bool reports whether a pause was opened.
func (s *Segment) OpenGeofencePause(at time.Time) (bool, error) {
	if !s.IsLive() {
		return false, ErrSegmentClosed
	}
	if s.OpenPause() != nil {
		return false, nil
	}
	if err := s.checkAppend(s.GeofencePauses, at, "geofence pause"); err != nil {
		return false, err
	}
	s.GeofencePauses = append(s.GeofencePauses, Interval{Start: at})
	s.UpdatedAt = at
	return true, nil
}

// CloseGeofencePause closes the open pause at. Without an open pause it is a
// no-op; the returned bool reports whether a pause was closed.
func (s *Segment) CloseGeofencePause(at time.Time) (bool, error) {
	open := s.OpenPause()
	if open == nil {
		return false, nil
	}
	if at.Before(open.Start) {
		return false, fmt.Errorf("%w: pause end %s before its start %s", ErrInvalidSegment, at.Format(time.RFC3339), open.Start.Format(time.RFC3339))
	}
	open.End = &at
	s.UpdatedAt = at
	return true, nil
}

// Close seals the segment at. Any running break or pause ends at the same
// instant so that nothing extends past the shift end.
func (s *Segment) Close(at time.Time) error {
	if !s.IsLive() {
		return ErrSegmentClosed
	}
	if at.Before(s.CheckInAt) {
		return fmt.Errorf("%w: check-out %s before check-in %s", ErrInvalidSegment, at.Format(time.RFC3339), s.CheckInAt.Format(time.RFC3339))
	}
	if b := s.OpenBreak(); b != nil {
		if err := s.EndBreak(at); err != nil {
			return err
		}
	}
	if _, err := s.CloseGeofencePause(at); err != nil {
		return err
	}
	s.CheckOutAt = &at
	s.UpdatedAt = at
	return nil
}

// Validate checks ordering and bounds of all timestamps against the effective
// end of the segment (check-out, or now while live).
func (s *Segment) Validate(now time.Time) error {
	end := now
	if s.CheckOutAt != nil {
		if s.CheckOutAt.Before(s.CheckInAt) {
			return fmt.Errorf("%w: check-out before check-in", ErrInvalidSegment)
		}
		end = *s.CheckOutAt
	}
	if end.Before(s.CheckInAt) {
		end = s.CheckInAt
	}

	if err := validateIntervals(s.Breaks, s.CheckInAt, end, "break"); err != nil {
		return err
	}
	return validateIntervals(s.GeofencePauses, s.CheckInAt, end, "geofence pause")
}

func (s *Segment) checkAppend(list []Interval, at time.Time, kind string) error {
	if at.Before(s.CheckInAt) {
		return fmt.Errorf("%w: %s start before check-in", ErrInvalidSegment, kind)
	}
	if n := len(list); n > 0 && list[n-1].End != nil && at.Before(*list[n-1].End) {
		return fmt.Errorf("%w: %s start overlaps the previous one", ErrInvalidSegment, kind)
	}
	return nil
}

func validateIntervals(list []Interval, from, to time.Time, kind string) error {
	sorted := make([]Interval, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	for i, iv := range sorted {
		if iv.Start.Before(from) || iv.Start.After(to) {
			return fmt.Errorf("%w: %s starting %s outside segment bounds", ErrInvalidSegment, kind, iv.Start.Format(time.RFC3339))
		}
		if iv.End != nil {
			if iv.End.Before(iv.Start) {
				return fmt.Errorf("%w: %s ends before it starts", ErrInvalidSegment, kind)
			}
			if iv.End.After(to) {
				return fmt.Errorf("%w: %s ending %s outside segment bounds", ErrInvalidSegment, kind, iv.End.Format(time.RFC3339))
			}
		}
		if i+1 < len(sorted) {
			next := sorted[i+1]
			if iv.End == nil || iv.End.After(next.Start) {
				return fmt.Errorf("%w: overlapping %s intervals", ErrInvalidSegment, kind)
			}
		}
	}
	return nil
}

func lastOpen(list []Interval) *Interval {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].IsOpen() {
			return &list[i]
		}
	}
	return nil
}
