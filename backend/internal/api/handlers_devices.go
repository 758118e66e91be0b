package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartfarm-backend/backend/internal/devices"
	"smartfarm-backend/backend/internal/models"
)

type ControlDeviceRequest struct {
	Action models.DeviceAction `json:"action"`
	Value  float64             `json:"value,omitempty"`
}

func (h *Handler) ControlDevice(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[ControlDeviceRequest](r)
	if err != nil {
		return err
	}

	if !req.Action.Valid() {
		return NewValidationError(map[string]string{"action": "action must be one of ON, OFF, RUN, AUTO"})
	}

	deviceName := chi.URLParam(r, "deviceName")

	control, err := h.svc.Devices.ControlDevice(r.Context(), deviceName, req.Action, models.ControlledByManual, req.Value)
	if errors.Is(err, devices.ErrUnknownDevice) {
		return NewError(http.StatusNotFound, "Unknown device "+deviceName)
	}

	if errors.Is(err, devices.ErrDeviceOffline) {
		return NewError(http.StatusServiceUnavailable, "Device is offline, command not sent")
	}

	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, control)

	return nil
}

// DeviceStatus reports the latest logical state of every known device.
// Devices with no command history yet are reported as OFF.
func (h *Handler) DeviceStatus(w http.ResponseWriter, r *http.Request) error {
	latest, err := h.svc.Store.DeviceControls.LatestAll(r.Context())
	if err != nil {
		return err
	}

	byDevice := make(map[string]models.DeviceControl, len(latest))
	for _, control := range latest {
		byDevice[control.DeviceName] = control
	}

	controls := make([]models.DeviceControl, 0, len(models.DeviceNames()))

	for _, name := range models.DeviceNames() {
		if control, ok := byDevice[name]; ok {
			controls = append(controls, control)
			continue
		}

		controls = append(controls, models.DeviceControl{
			DeviceName: name,
			Status:     models.ActionOff,
		})
	}

	RespondJSON(w, r, http.StatusOK, controls)

	return nil
}

func (h *Handler) DeviceHistory(w http.ResponseWriter, r *http.Request) error {
	deviceName := r.URL.Query().Get("device")
	if deviceName != "" && !models.ValidDeviceName(deviceName) {
		return NewError(http.StatusBadRequest, "Unknown device "+deviceName)
	}

	limit, err := limitParam(r)
	if err != nil {
		return err
	}

	controls, err := h.svc.Store.DeviceControls.History(r.Context(), deviceName, limit)
	if err != nil {
		return err
	}

	if controls == nil {
		controls = []models.DeviceControl{}
	}

	RespondJSON(w, r, http.StatusOK, controls)

	return nil
}
