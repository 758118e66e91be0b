package api

import (
	"net/http"
	"strconv"

	"smartfarm-backend/backend/internal/models"
)

func sensorTypeParam(r *http.Request) (models.SensorType, error) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return "", nil
	}

	sensorType := models.SensorType(raw)
	if !sensorType.Valid() {
		return "", NewError(http.StatusBadRequest, "Unknown sensor type "+raw)
	}

	return sensorType, nil
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 1000 {
		return 0, NewError(http.StatusBadRequest, "limit must be an integer between 1 and 1000")
	}

	return limit, nil
}

// LatestSensors returns the newest reading per sensor type, or for a single
// type when ?type= is given.
func (h *Handler) LatestSensors(w http.ResponseWriter, r *http.Request) error {
	sensorType, err := sensorTypeParam(r)
	if err != nil {
		return err
	}

	ctx := r.Context()

	if sensorType != "" {
		reading, err := h.svc.Store.Sensors.Latest(ctx, sensorType)
		if err != nil {
			return err
		}

		if reading == nil {
			return NewError(http.StatusNotFound, "No readings for "+string(sensorType))
		}

		RespondJSON(w, r, http.StatusOK, reading)

		return nil
	}

	all := []models.SensorType{
		models.SensorTemperature, models.SensorHumidity, models.SensorSoilMoisture,
		models.SensorWaterLevel, models.SensorLight,
	}

	latest := make([]models.SensorReading, 0, len(all))

	for _, t := range all {
		reading, err := h.svc.Store.Sensors.Latest(ctx, t)
		if err != nil {
			return err
		}

		if reading != nil {
			latest = append(latest, *reading)
		}
	}

	RespondJSON(w, r, http.StatusOK, latest)

	return nil
}

func (h *Handler) SensorHistory(w http.ResponseWriter, r *http.Request) error {
	sensorType, err := sensorTypeParam(r)
	if err != nil {
		return err
	}

	limit, err := limitParam(r)
	if err != nil {
		return err
	}

	readings, err := h.svc.Store.Sensors.History(r.Context(), sensorType, limit)
	if err != nil {
		return err
	}

	if readings == nil {
		readings = []models.SensorReading{}
	}

	RespondJSON(w, r, http.StatusOK, readings)

	return nil
}
