package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ukydev/car-tracker/internal/db"
	"github.com/ukydev/car-tracker/internal/models"
)

// VehicleHandler handles vehicle registry requests
type VehicleHandler struct {
	vehicles db.VehicleCollection
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles db.VehicleCollection) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

// Create registers a new vehicle
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var vehicle models.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&vehicle); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	vehicle.Normalize()
	if err := vehicle.Validate(); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.vehicles.Insert(r.Context(), &vehicle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List returns vehicles filtered by status, paginated
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := db.VehicleFilter{
		Status: models.VehicleStatus(r.URL.Query().Get("status")),
		Page:   queryInt64(r, "page", 1),
		Limit:  queryInt64(r, "limit", 20),
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	vehicles, total, err := h.vehicles.Find(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"pagination": map[string]interface{}{
			"page":  filter.Page,
			"limit": filter.Limit,
			"total": total,
			"pages": db.TotalPages(total, filter.Limit),
		},
	})
}

// Get returns a single vehicle by id
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.vehicles.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Update merges a partial payload into the stored vehicle and re-validates
// the result. Fields absent from the body keep their current values.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	vehicle, err := h.vehicles.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Identity and pipeline-owned fields are not client-writable.
	origID := vehicle.ID
	origCreatedAt := vehicle.CreatedAt
	origSnapshot := vehicle.LastLocation

	if err := json.NewDecoder(r.Body).Decode(vehicle); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	vehicle.ID = origID
	vehicle.CreatedAt = origCreatedAt
	vehicle.LastLocation = origSnapshot

	vehicle.Normalize()
	if err := vehicle.Validate(); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.vehicles.Update(r.Context(), id, vehicle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a vehicle
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.vehicles.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Vehicle deleted successfully"})
}

// CurrentLocation returns the vehicle's last-location snapshot
func (h *VehicleHandler) CurrentLocation(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.vehicles.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	if vehicle.LastLocation == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no location recorded for this vehicle"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vehicleId": vehicle.ID,
		"location":  vehicle.LastLocation,
	})
}

// ActiveCount returns the number of active vehicles
func (h *VehicleHandler) ActiveCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.vehicles.CountByStatus(r.Context(), models.StatusActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// Search matches vehicles by name, plate, brand, model or owner name
func (h *VehicleHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit := queryInt64(r, "limit", 10)
	if limit < 1 {
		limit = 10
	}

	vehicles, err := h.vehicles.Search(r.Context(), mux.Vars(r)["query"], limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vehicles": vehicles})
}

// queryInt64 parses an integer query parameter, falling back on a default.
func queryInt64(r *http.Request, key string, def int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
