package shift

import (
	"time"
)

// Worker statuses as shown on the team leader, site manager and admin panels.
const (
	StatusActive          = "active"
	StatusOnBreak         = "on_break"
	StatusOutsideGeofence = "outside_geofence"
	StatusGPSLost         = "gps_lost"
	StatusFinished        = "finished"
)

// Roles that are subject to automatic geofence pauses.
const (
	RoleWorker      = "WORKER"
	RoleTeamLead    = "TEAM_LEAD"
	RoleSiteManager = "SITE_MANAGER"
	RoleAdmin       = "ADMIN"
)

// Interval is a half-open period of non-working time. End is nil while the
// interval is still running.
type Interval struct {
	ID    string
	Start time.Time
	End   *time.Time

	// Only set on geofence pauses: where the worker was when the pause opened.
	DistanceMeters *float64
	Latitude       *float64
	Longitude      *float64
}

// IsOpen reports whether the interval has not been closed yet.
func (i Interval) IsOpen() bool {
	return i.End == nil
}

// EndOr returns the interval end, or fallback when the interval is open.
func (i Interval) EndOr(fallback time.Time) time.Time {
	if i.End == nil {
		return fallback
	}
	return *i.End
}

// Geofence is the circular allowed-presence zone of a site.
type Geofence struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Segment is one continuous check-in to check-out work period at one site.
type Segment struct {
	ID       string
	WorkerID string
	SiteID   string
	SiteName string

	CheckInAt  time.Time
	CheckOutAt *time.Time

	Breaks         []Interval
	GeofencePauses []Interval

	// Geofence is the site's zone as it was at check-in.
	Geofence Geofence

	GPSLost      bool
	LastPingAt   *time.Time
	SelfDeclared bool
	AuditNote    *string

	CheckInLatitude   *float64
	CheckInLongitude  *float64
	CheckOutLatitude  *float64
	CheckOutLongitude *float64

	OvertimeMinutes    int
	OvertimeApproved   bool
	OvertimeApprovedBy *string
	OvertimeApprovedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// DTO
	WorkerName *string
}

// Site is a construction site with its geofence and daily schedule.
type Site struct {
	ID                 string
	Name               string
	Latitude           *float64
	Longitude          *float64
	RadiusMeters       int
	WorkStart          *string // HH:MM
	WorkEnd            *string // HH:MM
	MaxOvertimeMinutes int
	IsActive           bool
}

// HasCoordinates reports whether the site can be used for geofencing.
func (s Site) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Geofence snapshots the site zone, falling back to defaultRadius when the site
// has none configured.
func (s Site) Geofence(defaultRadius float64) Geofence {
	g := Geofence{RadiusMeters: defaultRadius}
	if s.Latitude != nil {
		g.Latitude = *s.Latitude
	}
	if s.Longitude != nil {
		g.Longitude = *s.Longitude
	}
	if s.RadiusMeters > 0 {
		g.RadiusMeters = float64(s.RadiusMeters)
	}
	return g
}

// ActivityLine is a quantity of work logged against a segment's timesheet.
type ActivityLine struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	UnitType string  `json:"unit_type"`
}
