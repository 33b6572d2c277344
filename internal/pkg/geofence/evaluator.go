package geofence

import (
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
)

// Transition is the outcome of applying one sample to a live segment.
type Transition string

const (
	TransitionPaused    Transition = "PAUSED"
	TransitionResumed   Transition = "RESUMED"
	TransitionUnchanged Transition = "UNCHANGED"
)

// Sample is a single location ping. It is classified and then discarded.
type Sample struct {
	Latitude   float64
	Longitude  float64
	CapturedAt time.Time
}

// Config tunes the evaluator.
type Config struct {
	// SelfDeclarationMaxMeters is the outer edge of the band in which a worker
	// outside the radius may still declare presence at clock-in.
	SelfDeclarationMaxMeters float64
	// GPSLostAfter is how long without a ping before a live segment is flagged.
	GPSLostAfter time.Duration
	// ApplicableRoles lists the roles whose clocks pause outside the zone.
	ApplicableRoles []string
}

// Classification is a sample measured against a zone.
type Classification struct {
	DistanceMeters float64
	Inside         bool
}

// Outcome describes what a ping did to the segment.
type Outcome struct {
	Classification
	Transition           Transition
	PauseDurationSeconds *float64
}

// ClockInCheck is the geofence verdict at clock-in.
type ClockInCheck struct {
	GPSAvailable   bool
	DistanceMeters *float64
	Inside         bool
	SelfDeclared   bool
	// OpenPause asks the caller to start the segment with a pause already open.
	OpenPause bool
}

type Evaluator struct {
	cfg Config
}

func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Applicable reports whether geofence pauses apply to role.
func (e *Evaluator) Applicable(role string) bool {
	return validator.IsInSlice(role, e.cfg.ApplicableRoles)
}

// Classify measures a sample against a zone. The boundary counts as inside.
func (e *Evaluator) Classify(sample Sample, zone shift.Geofence) Classification {
	d := Distance(sample.Latitude, sample.Longitude, zone.Latitude, zone.Longitude)
	return Classification{
		DistanceMeters: d,
		Inside:         d <= zone.RadiusMeters,
	}
}

// Apply feeds one sample into the INSIDE/OUTSIDE state machine of seg. The
// segment's own pause list is the state: an open pause means OUTSIDE.
func (e *Evaluator) Apply(seg *shift.Segment, sample Sample) (Outcome, error) {
	if !seg.IsLive() {
		return Outcome{}, shift.ErrSegmentClosed
	}

	at := sample.CapturedAt
	seg.LastPingAt = &at
	seg.GPSLost = false

	c := e.Classify(sample, seg.Geofence)
	out := Outcome{Classification: c, Transition: TransitionUnchanged}

	if !c.Inside {
		opened, err := seg.OpenGeofencePause(at)
		if err != nil {
			return Outcome{}, err
		}
		if opened {
			p := seg.OpenPause()
			dist, lat, lon := c.DistanceMeters, sample.Latitude, sample.Longitude
			p.DistanceMeters = &dist
			p.Latitude = &lat
			p.Longitude = &lon
			out.Transition = TransitionPaused
		}
		return out, nil
	}

	open := seg.OpenPause()
	if open == nil {
		return out, nil
	}
	start := open.Start
	if _, err := seg.CloseGeofencePause(at); err != nil {
		return Outcome{}, err
	}
	secs := at.Sub(start).Seconds()
	out.Transition = TransitionResumed
	out.PauseDurationSeconds = &secs
	return out, nil
}

// CheckClockIn decides how a clock-in relates to the zone. sample is nil when
// the device has no GPS fix. hasZone is false for sites without coordinates.
func (e *Evaluator) CheckClockIn(sample *Sample, zone shift.Geofence, hasZone bool, selfDeclaration bool) (ClockInCheck, error) {
	if sample == nil {
		if !selfDeclaration {
			return ClockInCheck{}, shift.ErrGPSRequired
		}
		return ClockInCheck{SelfDeclared: true}, nil
	}

	check := ClockInCheck{GPSAvailable: true, Inside: true}
	if !hasZone {
		return check, nil
	}

	c := e.Classify(*sample, zone)
	check.DistanceMeters = &c.DistanceMeters
	check.Inside = c.Inside
	if c.Inside {
		return check, nil
	}

	if c.DistanceMeters > e.cfg.SelfDeclarationMaxMeters {
		return ClockInCheck{}, shift.ErrOutsideTolerance
	}
	if selfDeclaration {
		check.SelfDeclared = true
		return check, nil
	}
	check.OpenPause = true
	return check, nil
}

// DetectGPSLost flags a live segment whose last ping (or check-in, if none
// arrived) is older than the configured timeout. It never touches pauses.
// The returned bool reports whether the flag changed.
func (e *Evaluator) DetectGPSLost(seg *shift.Segment, now time.Time) bool {
	if !seg.IsLive() {
		return false
	}
	ref := seg.CheckInAt
	if seg.LastPingAt != nil {
		ref = *seg.LastPingAt
	}
	lost := now.Sub(ref) > e.cfg.GPSLostAfter
	if lost == seg.GPSLost {
		return false
	}
	seg.GPSLost = lost
	return true
}
