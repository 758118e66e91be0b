package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartfarm-backend/backend/internal/automation"
	"smartfarm-backend/backend/internal/models"
	"smartfarm-backend/backend/pkg/utils"
)

func (h *Handler) ListThresholds(w http.ResponseWriter, r *http.Request) error {
	thresholds, err := h.svc.Store.Thresholds.All(r.Context())
	if err != nil {
		return err
	}

	if thresholds == nil {
		thresholds = []models.Threshold{}
	}

	RespondJSON(w, r, http.StatusOK, thresholds)

	return nil
}

type UpsertThresholdRequest struct {
	SensorType     models.SensorType `json:"sensorType"`
	ThresholdValue float64           `json:"thresholdValue"`
	Severity       models.Severity   `json:"severity"`
	IsActive       *bool             `json:"isActive,omitempty"`
}

func (r UpsertThresholdRequest) validate() map[string]string {
	fieldErrors := make(map[string]string)

	if automation.AlertTypeFor(r.SensorType) == "" {
		fieldErrors["sensorType"] = "sensor type does not support thresholds"
	}

	if !r.Severity.Valid() {
		fieldErrors["severity"] = "severity must be one of info, warning, critical"
	}

	return fieldErrors
}

func (h *Handler) UpsertThreshold(w http.ResponseWriter, r *http.Request) error {
	req, err := DecodeJSON[UpsertThresholdRequest](r)
	if err != nil {
		return err
	}

	if fieldErrors := req.validate(); len(fieldErrors) > 0 {
		return NewValidationError(fieldErrors)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	claims := GetClaims(r.Context())

	threshold, err := h.svc.Store.Thresholds.Upsert(r.Context(),
		req.SensorType, req.ThresholdValue, req.Severity, isActive, claims.Username)
	if err != nil {
		return err
	}

	h.rebroadcastThresholds(r)

	RespondJSON(w, r, http.StatusOK, threshold)

	return nil
}

func (h *Handler) DeactivateThreshold(w http.ResponseWriter, r *http.Request) error {
	sensorType := models.SensorType(chi.URLParam(r, "sensorType"))

	claims := GetClaims(r.Context())

	err := h.svc.Store.Thresholds.Deactivate(r.Context(), sensorType, claims.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(http.StatusNotFound, "No threshold for "+string(sensorType))
	}

	if err != nil {
		return err
	}

	h.rebroadcastThresholds(r)

	RespondJSON(w, r, http.StatusNoContent, nil)

	return nil
}

// rebroadcastThresholds pushes the new config to devices after a mutation.
// A publish failure does not fail the HTTP request; the device can always
// request a resync.
func (h *Handler) rebroadcastThresholds(r *http.Request) {
	if err := h.svc.Automation.BroadcastThresholds(r.Context()); err != nil {
		GetLogger(r.Context()).Error("failed to rebroadcast thresholds", utils.ErrAttr(err))
	}
}
