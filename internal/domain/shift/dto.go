package shift

import (
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
)

// ========================================
// SHIFT DTOs
// ========================================

// Actor is the authenticated caller, filled from the access token claims.
type Actor struct {
	UserID string
	Role   string
}

type ClockInRequest struct {
	Actor           Actor    `json:"-"`
	SiteID          string   `json:"site_id"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	SelfDeclaration bool     `json:"self_declaration"`
	AuditNote       *string  `json:"audit_note"`
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SiteID) {
		errs = append(errs, validator.ValidationError{
			Field:   "site_id",
			Message: "site_id is required",
		})
	}
	errs = append(errs, validator.ValidateCoordinates(r.Latitude, r.Longitude)...)

	if r.AuditNote != nil && len(*r.AuditNote) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "audit_note",
			Message: "audit_note must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ActivityRequest struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	UnitType string  `json:"unit_type"`
}

type ClockOutRequest struct {
	Actor      Actor             `json:"-"`
	Latitude   *float64          `json:"latitude"`
	Longitude  *float64          `json:"longitude"`
	Activities []ActivityRequest `json:"activities"`
}

func (r *ClockOutRequest) Validate() error {
	errs := validator.ValidateCoordinates(r.Latitude, r.Longitude)

	for i, a := range r.Activities {
		if validator.IsEmpty(a.Name) {
			errs = append(errs, validator.ValidationError{
				Field:   "activities[" + validator.Itoa(i) + "].name",
				Message: "name is required",
			})
		}
		if a.Quantity <= 0 {
			errs = append(errs, validator.ValidationError{
				Field:   "activities[" + validator.Itoa(i) + "].quantity",
				Message: "quantity must be greater than 0",
			})
		}
		if validator.IsEmpty(a.UnitType) {
			errs = append(errs, validator.ValidationError{
				Field:   "activities[" + validator.Itoa(i) + "].unit_type",
				Message: "unit_type is required",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type LocationPingRequest struct {
	Actor      Actor      `json:"-"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	CapturedAt *time.Time `json:"captured_at"`
}

func (r *LocationPingRequest) Validate() error {
	errs := validator.ValidateCoordinates(&r.Latitude, &r.Longitude)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ApproveOvertimeRequest struct {
	SegmentID  string `json:"-"`
	ApprovedBy string `json:"-"`
}

func (r *ApproveOvertimeRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.SegmentID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "segment id is required",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type IntervalResponse struct {
	Start          time.Time  `json:"start"`
	End            *time.Time `json:"end,omitempty"`
	DistanceMeters *float64   `json:"distance_meters,omitempty"`
}

type AccountingResponse struct {
	WorkedHours        float64 `json:"worked_hours"`
	BreakHours         float64 `json:"break_hours"`
	GeofencePauseHours float64 `json:"geofence_pause_hours"`
	TotalShiftHours    float64 `json:"total_shift_hours"`
	IsFrozen           bool    `json:"is_frozen"`
}

type SegmentResponse struct {
	ID                 string             `json:"id"`
	WorkerID           string             `json:"worker_id"`
	WorkerName         *string            `json:"worker_name,omitempty"`
	SiteID             string             `json:"site_id"`
	SiteName           string             `json:"site_name"`
	CheckInAt          time.Time          `json:"check_in_at"`
	CheckOutAt         *time.Time         `json:"check_out_at,omitempty"`
	Breaks             []IntervalResponse `json:"breaks"`
	GeofencePauses     []IntervalResponse `json:"geofence_pauses"`
	Geofence           Geofence           `json:"site_geofence"`
	GPSLost            bool               `json:"gps_lost"`
	LastPingAt         *time.Time         `json:"last_ping_at,omitempty"`
	SelfDeclared       bool               `json:"self_declared"`
	Status             string             `json:"status"`
	OvertimeMinutes    int                `json:"overtime_minutes"`
	OvertimeApproved   bool               `json:"overtime_approved"`
	OvertimeApprovedBy *string            `json:"overtime_approved_by,omitempty"`
	Accounting         AccountingResponse `json:"accounting"`
}

type OvertimeResponse struct {
	Minutes    int  `json:"minutes"`
	MaxMinutes int  `json:"max_minutes"`
	Warning    bool `json:"warning"`
}

type ClockOutResponse struct {
	Segment  SegmentResponse  `json:"segment"`
	Overtime OvertimeResponse `json:"overtime"`
}

// PingResult is what the client needs to decide whether to refresh.
type PingResult struct {
	GeofenceApplicable        bool     `json:"geofence_applicable"`
	DistanceMeters            *float64 `json:"distance_meters,omitempty"`
	RadiusMeters              float64  `json:"radius_meters"`
	IsWithinGeofence          bool     `json:"is_within_geofence"`
	StatusChanged             bool     `json:"status_changed"`
	Status                    string   `json:"status"`
	PauseDurationSeconds      *float64 `json:"pause_duration_seconds,omitempty"`
	TotalGeofencePauseSeconds float64  `json:"total_geofence_pause_seconds"`
}

type TodayResponse struct {
	Date              string            `json:"date"`
	HasCompletedShift bool              `json:"has_completed_shift"`
	HasActiveShift    bool              `json:"has_active_shift"`
	Segments          []SegmentResponse `json:"segments"`
	TotalWorkedHours  float64           `json:"total_worked_hours"`
}

// SegmentEvent is published to stream subscribers after each transition.
type SegmentEvent struct {
	Type    string          `json:"type"`
	Segment SegmentResponse `json:"segment"`
}

const EventSegmentUpdated = "segment_updated"
