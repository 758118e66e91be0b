package api

import (
	"net/http"

	"smartfarm-backend/backend/internal/models"
)

func (h *Handler) ListActivityLogs(w http.ResponseWriter, r *http.Request) error {
	limit, err := limitParam(r)
	if err != nil {
		return err
	}

	entries, err := h.svc.Store.ActivityLogs.List(r.Context(), r.URL.Query().Get("userId"), r.URL.Query().Get("action"), limit)
	if err != nil {
		return err
	}

	if entries == nil {
		entries = []models.ActivityLog{}
	}

	RespondJSON(w, r, http.StatusOK, entries)

	return nil
}
