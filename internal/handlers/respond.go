package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-tracker/internal/db"
	"github.com/ukydev/car-tracker/internal/ingest"
	"github.com/ukydev/car-tracker/internal/models"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps domain errors to HTTP status codes and writes a JSON error
// body. Validation errors carry the per-field detail list.
func writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"details": verr.Fields,
		})
	case errors.Is(err, ingest.ErrMissingField):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, db.ErrDuplicateKey):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.WithError(err).Error("Request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
