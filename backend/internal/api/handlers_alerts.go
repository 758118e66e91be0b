package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) error {
	status := models.AlertStatus(r.URL.Query().Get("status"))
	if status != "" && status != models.AlertActive && status != models.AlertResolved {
		return NewError(http.StatusBadRequest, "status must be active or resolved")
	}

	limit, err := limitParam(r)
	if err != nil {
		return err
	}

	alerts, err := h.svc.Store.Alerts.List(r.Context(), status, limit)
	if err != nil {
		return err
	}

	if alerts == nil {
		alerts = []models.Alert{}
	}

	RespondJSON(w, r, http.StatusOK, alerts)

	return nil
}

// ResolveAlert lets an operator close an alert manually; autoResolved stays
// false to distinguish it from pipeline resolutions.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) error {
	alert, err := h.svc.Store.Alerts.Resolve(r.Context(), chi.URLParam(r, "alertID"), false)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "Alert not found")
	}

	if err != nil {
		return err
	}

	if err := h.svc.Automation.PublishAlert(alert); err != nil {
		GetLogger(r.Context()).Error("failed to publish resolved alert", utils.ErrAttr(err))
	}

	RespondJSON(w, r, http.StatusOK, alert)

	return nil
}
