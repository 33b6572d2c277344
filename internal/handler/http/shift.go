package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/middleware"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/response"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
)

type ShiftHandler interface {
	ClockIn(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	LocationPing(w http.ResponseWriter, r *http.Request)
	GetActive(w http.ResponseWriter, r *http.Request)
	GetToday(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ApproveOvertime(w http.ResponseWriter, r *http.Request)
}

type shiftHandlerImpl struct {
	shiftService shift.ShiftService
}

func NewShiftHandler(shiftService shift.ShiftService) ShiftHandler {
	return &shiftHandlerImpl{
		shiftService: shiftService,
	}
}

// actorFromRequest writes 401 and returns false when the caller is unknown.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (shift.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.UserID == "" {
		response.Unauthorized(w, response.Localize(r, "error.unauthorized", "Unauthorized"))
		return shift.Actor{}, false
	}
	return actor, true
}

// decodeJSON reads the request body into v. An empty body is accepted when
// allowEmpty is set.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ClockIn implements ShiftHandler.
func (h *shiftHandlerImpl) ClockIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req shift.ClockInRequest
	if err := decodeJSON(r, &req, false); err != nil {
		slog.Debug("Failed to decode clock-in body", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.Actor = actor

	if err := req.Validate(); err != nil {
		response.HandleError(w, r, err)
		return
	}

	result, err := h.shiftService.ClockIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Created(w, response.Localize(r, "shift.clocked_in", "Shift started"), result)
}

// ClockOut implements ShiftHandler.
func (h *shiftHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req shift.ClockOutRequest
	if err := decodeJSON(r, &req, true); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.Actor = actor

	if err := req.Validate(); err != nil {
		response.HandleError(w, r, err)
		return
	}

	result, err := h.shiftService.ClockOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	message := response.Localize(r, "shift.clocked_out", "Shift ended")
	if result.Overtime.Warning {
		message = response.Localize(r, "shift.overtime_warning", "Overtime limit exceeded",
			map[string]any{"Max": result.Overtime.MaxMinutes})
	}
	response.SuccessWithMessage(w, message, result)
}

// StartBreak implements ShiftHandler.
func (h *shiftHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.shiftService.StartBreak(r.Context(), actor)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.SuccessWithMessage(w, response.Localize(r, "shift.break_started", "Break started"), result)
}

// EndBreak implements ShiftHandler.
func (h *shiftHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.shiftService.EndBreak(r.Context(), actor)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.SuccessWithMessage(w, response.Localize(r, "shift.break_ended", "Break ended"), result)
}

// LocationPing implements ShiftHandler.
func (h *shiftHandlerImpl) LocationPing(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req shift.LocationPingRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.Actor = actor

	if err := req.Validate(); err != nil {
		response.HandleError(w, r, err)
		return
	}

	result, err := h.shiftService.LocationPing(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

// GetActive implements ShiftHandler. data is null when the worker has no live
// segment.
func (h *shiftHandlerImpl) GetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.shiftService.GetActive(r.Context(), actor)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}
	if result == nil {
		response.Success(w, nil)
		return
	}

	response.Success(w, result)
}

// GetToday implements ShiftHandler.
func (h *shiftHandlerImpl) GetToday(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	result, err := h.shiftService.GetToday(r.Context(), actor)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

// Get implements ShiftHandler. Workers may only read their own segments.
func (h *shiftHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid shift id", nil)
		return
	}

	result, err := h.shiftService.GetByID(r.Context(), id)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	if actor.Role == shift.RoleWorker && result.WorkerID != actor.UserID {
		response.Forbidden(w, response.Localize(r, "error.forbidden", "Insufficient permissions"))
		return
	}

	response.Success(w, result)
}

// ApproveOvertime implements ShiftHandler.
func (h *shiftHandlerImpl) ApproveOvertime(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid shift id", nil)
		return
	}

	result, err := h.shiftService.ApproveOvertime(r.Context(), shift.ApproveOvertimeRequest{
		SegmentID:  id,
		ApprovedBy: actor.UserID,
	})
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.SuccessWithMessage(w, response.Localize(r, "shift.overtime_approved", "Overtime approved"), result)
}
