package api

import (
	"testing"

	"smartfarm-backend/backend/internal/models"
)

func validScheduleRequest() ScheduleRequest {
	return ScheduleRequest{
		Name:       "morning fan",
		DeviceName: models.DeviceFan,
		Action:     models.ActionOn,
		StartTime:  "06:00",
		EndTime:    "06:30",
		DaysOfWeek: []int{1, 2, 3, 4, 5},
	}
}

func TestScheduleRequestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*ScheduleRequest)
		wantField string
	}{
		{name: "valid", mutate: func(r *ScheduleRequest) {}},
		{name: "missing name", mutate: func(r *ScheduleRequest) { r.Name = "" }, wantField: "name"},
		{name: "unknown device", mutate: func(r *ScheduleRequest) { r.DeviceName = "toaster" }, wantField: "deviceName"},
		{name: "bad action", mutate: func(r *ScheduleRequest) { r.Action = "TOGGLE" }, wantField: "action"},
		{name: "run on plain device", mutate: func(r *ScheduleRequest) { r.Action = models.ActionRun }, wantField: "action"},
		{name: "run on servo is fine", mutate: func(r *ScheduleRequest) {
			r.DeviceName = models.DeviceServoFeed
			r.Action = models.ActionRun
		}},
		{name: "bad start time", mutate: func(r *ScheduleRequest) { r.StartTime = "6:00" }, wantField: "startTime"},
		{name: "bad end time", mutate: func(r *ScheduleRequest) { r.EndTime = "25:00" }, wantField: "endTime"},
		{name: "end before start", mutate: func(r *ScheduleRequest) { r.EndTime = "05:00" }, wantField: "endTime"},
		{name: "end equals start", mutate: func(r *ScheduleRequest) { r.EndTime = "06:00" }, wantField: "endTime"},
		{name: "day out of range", mutate: func(r *ScheduleRequest) { r.DaysOfWeek = []int{7} }, wantField: "daysOfWeek"},
		{name: "negative day", mutate: func(r *ScheduleRequest) { r.DaysOfWeek = []int{-1} }, wantField: "daysOfWeek"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := validScheduleRequest()
			tt.mutate(&req)

			fieldErrors := req.validate()

			if tt.wantField == "" {
				if len(fieldErrors) != 0 {
					t.Errorf("expected no errors, got %v", fieldErrors)
				}

				return
			}

			if _, ok := fieldErrors[tt.wantField]; !ok {
				t.Errorf("expected an error on %q, got %v", tt.wantField, fieldErrors)
			}
		})
	}
}

func TestScheduleRequestToModelDefaults(t *testing.T) {
	t.Parallel()

	req := validScheduleRequest()

	schedule := req.toModel()
	if !schedule.Enabled {
		t.Error("schedules should default to enabled")
	}

	disabled := false
	req.Enabled = &disabled

	if req.toModel().Enabled {
		t.Error("explicit enabled=false should be honored")
	}
}
