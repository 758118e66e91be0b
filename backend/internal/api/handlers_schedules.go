package api

import (
	"database/sql"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"smartfarm-backend/backend/internal/models"
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type ScheduleRequest struct {
	Name       string              `json:"name"`
	DeviceName string              `json:"deviceName"`
	Action     models.DeviceAction `json:"action"`
	StartTime  string              `json:"startTime"`
	EndTime    string              `json:"endTime"`
	DaysOfWeek []int               `json:"daysOfWeek"`
	Enabled    *bool               `json:"enabled,omitempty"`
}

func (r ScheduleRequest) validate() map[string]string {
	fieldErrors := make(map[string]string)

	if r.Name == "" {
		fieldErrors["name"] = "name is required"
	}

	if !models.ValidDeviceName(r.DeviceName) {
		fieldErrors["deviceName"] = "unknown device"
	}

	if !r.Action.Valid() {
		fieldErrors["action"] = "action must be one of ON, OFF, RUN, AUTO"
	} else if r.Action == models.ActionRun && !models.IsServoDevice(r.DeviceName) {
		fieldErrors["action"] = "RUN is only valid for servo devices"
	}

	if !timeOfDayRe.MatchString(r.StartTime) {
		fieldErrors["startTime"] = "startTime must be HH:mm"
	}

	if !timeOfDayRe.MatchString(r.EndTime) {
		fieldErrors["endTime"] = "endTime must be HH:mm"
	}

	if timeOfDayRe.MatchString(r.StartTime) && timeOfDayRe.MatchString(r.EndTime) && r.EndTime <= r.StartTime {
		fieldErrors["endTime"] = "endTime must be after startTime"
	}

	for _, day := range r.DaysOfWeek {
		if day < 0 || day > 6 {
			fieldErrors["daysOfWeek"] = "days must be 0 (Sunday) through 6 (Saturday)"
			break
		}
	}

	return fieldErrors
}

func (r ScheduleRequest) toModel() models.Schedule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return models.Schedule{
		Name:       r.Name,
		DeviceName: r.DeviceName,
		Action:     r.Action,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		DaysOfWeek: r.DaysOfWeek,
		Enabled:    enabled,
	}
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) error {
	schedules, err := h.svc.Store.Schedules.All(r.Context())
	if err != nil {
		return err
	}

	if schedules == nil {
		schedules = []models.Schedule{}
	}

	RespondJSON(w, r, http.StatusOK, schedules)

	return nil
}

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[ScheduleRequest](r)
	if err != nil {
		return err
	}

	if fieldErrors := req.validate(); len(fieldErrors) > 0 {
		return NewValidationError(fieldErrors)
	}

	schedule, err := h.svc.Store.Schedules.Create(r.Context(), req.toModel())
	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusCreated, schedule)

	return nil
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) error {
	schedule, err := h.svc.Store.Schedules.Get(r.Context(), chi.URLParam(r, "scheduleID"))
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "Schedule not found")
	}

	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, schedule)

	return nil
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[ScheduleRequest](r)
	if err != nil {
		return err
	}

	if fieldErrors := req.validate(); len(fieldErrors) > 0 {
		return NewValidationError(fieldErrors)
	}

	schedule := req.toModel()
	schedule.ID = chi.URLParam(r, "scheduleID")

	updated, err := h.svc.Store.Schedules.Update(r.Context(), schedule)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "Schedule not found")
	}

	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, updated)

	return nil
}

type SetScheduleEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[SetScheduleEnabledRequest](r)
	if err != nil {
		return err
	}

	schedule, err := h.svc.Store.Schedules.SetEnabled(r.Context(), chi.URLParam(r, "scheduleID"), req.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "Schedule not found")
	}

	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, schedule)

	return nil
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) error {
	err := h.svc.Store.Schedules.Delete(r.Context(), chi.URLParam(r, "scheduleID"))
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "Schedule not found")
	}

	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}
