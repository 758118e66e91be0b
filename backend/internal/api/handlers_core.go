package api

import (
	"net/http"
)

// PingResponse is the response to a ping request.
type PingResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) error {
	RespondJSON(w, r, http.StatusOK, PingResponse{Message: "Pong", Status: "OK"})

	return nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	status := h.svc.Health(r.Context())

	code := http.StatusOK
	if !status.Database || !status.MQTT {
		code = http.StatusServiceUnavailable
	}

	RespondJSON(w, r, code, status)

	return nil
}
