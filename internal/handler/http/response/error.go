package response

import (
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/i18n"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
)

var translator atomic.Pointer[i18n.Translator]

// UseTranslator makes error messages follow the request locale. Without it
// messages fall back to the error text.
func UseTranslator(t *i18n.Translator) {
	translator.Store(t)
}

// Localize translates messageID for the request, or returns fallback.
func Localize(r *http.Request, messageID, fallback string, data ...map[string]any) string {
	t := translator.Load()
	if t == nil || r == nil {
		return fallback
	}
	msg := t.T(r.Context(), messageID, data...)
	if msg == messageID {
		return fallback
	}
	return msg
}

type errorMapping struct {
	target    error
	status    int
	code      string
	messageID string
}

// Specific state errors come before ErrInvalidState, which they all wrap.
var domainErrors = []errorMapping{
	{shift.ErrInvalidSegment, http.StatusUnprocessableEntity, "INVALID_SEGMENT", "error.invalid_segment"},

	{shift.ErrSegmentClosed, http.StatusConflict, "SEGMENT_CLOSED", "error.segment_closed"},
	{shift.ErrBreakAlreadyOpen, http.StatusConflict, "BREAK_ALREADY_OPEN", "error.break_already_open"},
	{shift.ErrNoOpenBreak, http.StatusConflict, "NO_OPEN_BREAK", "error.no_open_break"},
	{shift.ErrBreakAlreadyTaken, http.StatusConflict, "BREAK_ALREADY_TAKEN", "error.break_already_taken"},
	{shift.ErrAlreadyClockedIn, http.StatusConflict, "ALREADY_CLOCKED_IN", "error.already_clocked_in"},
	{shift.ErrInvalidState, http.StatusConflict, "INVALID_STATE", "error.invalid_state"},

	{shift.ErrNoActiveShift, http.StatusNotFound, "NO_ACTIVE_SHIFT", "error.no_active_shift"},
	{shift.ErrSegmentNotFound, http.StatusNotFound, "NOT_FOUND", "error.segment_not_found"},
	{shift.ErrSiteNotFound, http.StatusNotFound, "NOT_FOUND", "error.site_not_found"},

	{shift.ErrGPSRequired, http.StatusBadRequest, "GPS_REQUIRED", "error.gps_required"},
	{shift.ErrOutsideTolerance, http.StatusBadRequest, "OUTSIDE_TOLERANCE", "error.outside_tolerance"},
	{shift.ErrBeforeSchedule, http.StatusBadRequest, "BEFORE_SCHEDULE", "error.before_schedule"},
	{shift.ErrAfterSchedule, http.StatusBadRequest, "AFTER_SCHEDULE", "error.after_schedule"},
}

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		writeJSON(w, http.StatusUnprocessableEntity, Response{
			Success: false,
			Error: &ErrorDetail{
				Code:    "VALIDATION_ERROR",
				Message: Localize(r, "error.validation", "Validation failed"),
				Details: validationErrs.ToMap(),
			},
		})
		return
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			if m.status == http.StatusUnprocessableEntity {
				// corrupt data, never a user mistake
				slog.ErrorContext(contextOf(r), "invalid segment data", "error", err)
			}
			writeJSON(w, m.status, Response{
				Success: false,
				Error: &ErrorDetail{
					Code:    m.code,
					Message: Localize(r, m.messageID, m.target.Error()),
				},
			})
			return
		}
	}

	// Default
	slog.ErrorContext(contextOf(r), "unhandled error", "error", err)
	InternalServerError(w, Localize(r, "error.internal", "An unexpected error occurred"))
}
