package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ukydev/car-tracker/internal/db"
	"github.com/ukydev/car-tracker/internal/geo"
	"github.com/ukydev/car-tracker/internal/ingest"
	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationHandler handles sample ingestion and history queries
type LocationHandler struct {
	pipeline  *ingest.Pipeline
	locations db.LocationCollection
	vehicles  db.VehicleCollection
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(pipeline *ingest.Pipeline, locations db.LocationCollection, vehicles db.VehicleCollection) *LocationHandler {
	return &LocationHandler{
		pipeline:  pipeline,
		locations: locations,
		vehicles:  vehicles,
	}
}

// resolveVehicle parses the vehicleId path variable and confirms the vehicle
// exists, so query endpoints 404 instead of answering empty for unknown ids.
func (h *LocationHandler) resolveVehicle(r *http.Request) (primitive.ObjectID, error) {
	vehicleID, err := parseVehicleID(r)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if _, err := h.vehicles.FindByID(r.Context(), vehicleID.Hex()); err != nil {
		return primitive.NilObjectID, err
	}
	return vehicleID, nil
}

// Ingest accepts a raw location sample and runs the full pipeline
func (h *LocationHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var raw ingest.RawSample
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	update, err := h.pipeline.Ingest(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Location recorded successfully",
		"location": update.Location,
		"alerts":   update.Alerts,
	})
}

// Current returns the most recent sample for a vehicle
func (h *LocationHandler) Current(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := parseVehicleID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	latest, err := h.locations.FindLatest(r.Context(), vehicleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// History returns recent samples for a vehicle, newest first
func (h *LocationHandler) History(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := h.resolveVehicle(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start, end, err := parseTimeRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := queryInt64(r, "limit", 100)

	samples, err := h.locations.FindByVehicle(r.Context(), vehicleID, start, end, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicleId": vehicleID,
		"locations": samples,
		"count":     len(samples),
	})
}

// routePoint is one vertex of a reconstructed route.
type routePoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Speed     float64   `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
	Heading   float64   `json:"heading"`
}

// Route returns the ordered points travelled within a time window
func (h *LocationHandler) Route(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := h.resolveVehicle(r)
	if err != nil {
		writeError(w, err)
		return
	}

	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start and end are required"})
		return
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be an RFC 3339 timestamp"})
		return
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be an RFC 3339 timestamp"})
		return
	}

	samples, err := h.locations.FindByVehicleAndRange(r.Context(), vehicleID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	route := make([]routePoint, 0, len(samples))
	for _, s := range samples {
		route = append(route, routePoint{
			Lat:       s.Latitude,
			Lng:       s.Longitude,
			Speed:     s.Speed,
			Timestamp: s.Timestamp,
			Heading:   s.Heading,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicleId":   vehicleID,
		"route":       route,
		"totalPoints": len(route),
		"startDate":   start,
		"endDate":     end,
	})
}

// Alerts returns a vehicle's alert events flattened out of their samples,
// each with the position where it fired
func (h *LocationHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := h.resolveVehicle(r)
	if err != nil {
		writeError(w, err)
		return
	}

	alertType := models.AlertType(r.URL.Query().Get("type"))
	limit := queryInt64(r, "limit", 50)

	samples, err := h.locations.FindWithAlerts(r.Context(), vehicleID, alertType, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	type flatAlert struct {
		models.AlertEvent
		Location struct {
			Latitude  float64   `json:"latitude"`
			Longitude float64   `json:"longitude"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"location"`
	}

	alerts := make([]flatAlert, 0)
	for _, s := range samples {
		for _, a := range s.Alerts {
			if alertType != "" && a.Type != alertType {
				continue
			}
			fa := flatAlert{AlertEvent: a}
			fa.Location.Latitude = s.Latitude
			fa.Location.Longitude = s.Longitude
			fa.Location.Timestamp = s.Timestamp
			alerts = append(alerts, fa)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicleId": vehicleID,
		"alerts":    alerts,
		"count":     len(alerts),
	})
}

// Stats aggregates a vehicle's movement over a time window
func (h *LocationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := h.resolveVehicle(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// Default window is the last 24 hours.
	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be an RFC 3339 timestamp"})
			return
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be an RFC 3339 timestamp"})
			return
		}
		end = parsed
	}

	samples, err := h.locations.FindByVehicleAndRange(r.Context(), vehicleID, start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	stats := computeStats(samples)
	stats["vehicleId"] = vehicleID
	// Dates reflect the samples actually found, not the query window, and
	// are omitted when there are none.
	if len(samples) > 0 {
		stats["startDate"] = samples[0].Timestamp
		stats["endDate"] = samples[len(samples)-1].Timestamp
	}
	writeJSON(w, http.StatusOK, stats)
}

// computeStats aggregates samples ordered oldest first. Stopped samples count
// toward distance and time but are excluded from the speed figures.
func computeStats(samples []models.Location) map[string]interface{} {
	stats := map[string]interface{}{
		"totalPoints":   len(samples),
		"averageSpeed":  0.0,
		"maxSpeed":      0.0,
		"totalDistance": 0.0,
		"totalTime":     0.0,
	}
	if len(samples) == 0 {
		return stats
	}

	var speedSum, maxSpeed, distance float64
	var movingCount int
	for i, s := range samples {
		if s.Speed > 0 {
			speedSum += s.Speed
			movingCount++
		}
		if s.Speed > maxSpeed {
			maxSpeed = s.Speed
		}
		if i > 0 {
			prev := samples[i-1]
			distance += geo.Haversine(prev.Latitude, prev.Longitude, s.Latitude, s.Longitude)
		}
	}

	if movingCount > 0 {
		stats["averageSpeed"] = round2(speedSum / float64(movingCount))
	}
	stats["maxSpeed"] = round2(maxSpeed)
	stats["totalDistance"] = round2(distance)
	stats["totalTime"] = round2(samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Minutes())
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// parseVehicleID reads the vehicleId path variable. An unparseable id can
// never match a document, so it maps to not found.
func parseVehicleID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["vehicleId"])
	if err != nil {
		return primitive.NilObjectID, db.ErrNotFound
	}
	return id, nil
}

// parseTimeRange reads optional start/end query parameters.
func parseTimeRange(r *http.Request) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, err
		}
		start = &parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, err
		}
		end = &parsed
	}
	return start, end, nil
}
