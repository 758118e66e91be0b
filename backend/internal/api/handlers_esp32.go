package api

import (
	"net/http"

	"smartfarm-backend/backend/internal/liveness"
)

func (h *Handler) ESP32Status(w http.ResponseWriter, r *http.Request) error {
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		deviceID = liveness.DefaultDeviceID
	}

	snapshot, err := h.svc.Liveness.Describe(r.Context(), deviceID)
	if err != nil {
		return err
	}

	RespondJSON(w, r, http.StatusOK, snapshot)

	return nil
}
