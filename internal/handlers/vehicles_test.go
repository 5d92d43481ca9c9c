package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/car-tracker/internal/db"
	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validVehiclePayload() map[string]interface{} {
	return map[string]interface{}{
		"name":         "Delivery Van 1",
		"licensePlate": "abc1d23",
		"brand":        "Fiat",
		"model":        "Ducato",
		"year":         2022,
		"color":        "white",
		"owner": map[string]string{
			"name":  "Maria Silva",
			"email": "maria@example.com",
			"phone": "+55 11 91234-5678",
		},
	}
}

func TestVehicleHandler_Create(t *testing.T) {
	t.Run("valid vehicle", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		vehicles.On("Insert", mock.Anything, mock.Anything).Return(&models.Vehicle{
			ID:           primitive.NewObjectID(),
			Name:         "Delivery Van 1",
			LicensePlate: "ABC1D23",
		}, nil)

		body, _ := json.Marshal(validVehiclePayload())
		req := httptest.NewRequest("POST", "/api/vehicles", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Create(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)

		// Plate was normalized before the insert.
		inserted := vehicles.Calls[0].Arguments.Get(1).(*models.Vehicle)
		assert.Equal(t, "ABC1D23", inserted.LicensePlate)
		assert.Equal(t, models.StatusActive, inserted.Status)
		assert.Equal(t, float64(models.DefaultSpeedLimit), inserted.Alerts.SpeedLimit)
	})

	t.Run("validation failure lists every field", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		payload := validVehiclePayload()
		payload["licensePlate"] = "not-a-plate"
		payload["year"] = 1800
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest("POST", "/api/vehicles", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Create(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error   string   `json:"error"`
			Details []string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Details, 2)
		vehicles.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("duplicate plate", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		vehicles.On("Insert", mock.Anything, mock.Anything).Return(nil, db.ErrDuplicateKey)

		body, _ := json.Marshal(validVehiclePayload())
		req := httptest.NewRequest("POST", "/api/vehicles", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.Create(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewVehicleHandler(new(MockVehicleCollection))
		req := httptest.NewRequest("POST", "/api/vehicles", bytes.NewReader([]byte("{")))
		w := httptest.NewRecorder()

		handler.Create(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVehicleHandler_List(t *testing.T) {
	vehicles := new(MockVehicleCollection)
	handler := NewVehicleHandler(vehicles)

	vehicles.On("Find", mock.Anything, db.VehicleFilter{Status: "active", Page: 3, Limit: 50}).
		Return([]models.Vehicle{{Name: "Last One"}}, int64(101), nil)

	req := httptest.NewRequest("GET", "/api/vehicles?status=active&page=3&limit=50", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Vehicles   []models.Vehicle `json:"vehicles"`
		Pagination struct {
			Page  int64 `json:"page"`
			Limit int64 `json:"limit"`
			Total int64 `json:"total"`
			Pages int64 `json:"pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Vehicles, 1)
	assert.Equal(t, int64(3), resp.Pagination.Page)
	assert.Equal(t, int64(101), resp.Pagination.Total)
	assert.Equal(t, int64(3), resp.Pagination.Pages)
}

func TestVehicleHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		id := primitive.NewObjectID()
		vehicles.On("FindByID", mock.Anything, id.Hex()).Return(&models.Vehicle{ID: id}, nil)

		req := mux.SetURLVars(httptest.NewRequest("GET", "/api/vehicles/"+id.Hex(), nil),
			map[string]string{"id": id.Hex()})
		w := httptest.NewRecorder()

		handler.Get(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		vehicles.On("FindByID", mock.Anything, "missing").Return(nil, db.ErrNotFound)

		req := mux.SetURLVars(httptest.NewRequest("GET", "/api/vehicles/missing", nil),
			map[string]string{"id": "missing"})
		w := httptest.NewRecorder()

		handler.Get(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestVehicleHandler_Update(t *testing.T) {
	t.Run("partial payload keeps stored fields", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		id := primitive.NewObjectID()
		created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
		stored := &models.Vehicle{
			ID:           id,
			Name:         "Delivery Van 1",
			LicensePlate: "ABC1D23",
			Brand:        "Fiat",
			Model:        "Ducato",
			Year:         2022,
			Color:        "white",
			Status:       models.StatusActive,
			Owner:        models.Owner{Name: "Maria Silva", Email: "maria@example.com", Phone: "+55 11 91234-5678"},
			Alerts:       models.AlertConfig{SpeedLimit: 80},
			LastLocation: &models.LastLocation{Latitude: -23.55, Longitude: -46.63},
			CreatedAt:    created,
		}
		vehicles.On("FindByID", mock.Anything, id.Hex()).Return(stored, nil)
		vehicles.On("Update", mock.Anything, id.Hex(), mock.Anything).
			Return(stored, nil)

		body := []byte(`{"status":"maintenance"}`)
		req := mux.SetURLVars(httptest.NewRequest("PUT", "/api/vehicles/"+id.Hex(), bytes.NewReader(body)),
			map[string]string{"id": id.Hex()})
		w := httptest.NewRecorder()

		handler.Update(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		merged := vehicles.Calls[1].Arguments.Get(2).(*models.Vehicle)
		assert.Equal(t, models.StatusMaintenance, merged.Status)
		assert.Equal(t, "Delivery Van 1", merged.Name)
		assert.Equal(t, "ABC1D23", merged.LicensePlate)
		assert.Equal(t, "Maria Silva", merged.Owner.Name)
		require.NotNil(t, merged.LastLocation)
		assert.Equal(t, -23.55, merged.LastLocation.Latitude)
		assert.Equal(t, created, merged.CreatedAt)
	})

	t.Run("merged result is re-validated", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		id := primitive.NewObjectID()
		vehicles.On("FindByID", mock.Anything, id.Hex()).Return(&models.Vehicle{
			ID:           id,
			Name:         "Delivery Van 1",
			LicensePlate: "ABC1D23",
			Brand:        "Fiat",
			Model:        "Ducato",
			Year:         2022,
			Color:        "white",
			Status:       models.StatusActive,
			Owner:        models.Owner{Name: "Maria Silva", Email: "maria@example.com", Phone: "+55 11 91234-5678"},
		}, nil)

		body := []byte(`{"licensePlate":"not-a-plate"}`)
		req := mux.SetURLVars(httptest.NewRequest("PUT", "/api/vehicles/"+id.Hex(), bytes.NewReader(body)),
			map[string]string{"id": id.Hex()})
		w := httptest.NewRecorder()

		handler.Update(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		vehicles.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		id := primitive.NewObjectID()
		vehicles.On("FindByID", mock.Anything, id.Hex()).Return(nil, db.ErrNotFound)

		body := []byte(`{"status":"maintenance"}`)
		req := mux.SetURLVars(httptest.NewRequest("PUT", "/api/vehicles/"+id.Hex(), bytes.NewReader(body)),
			map[string]string{"id": id.Hex()})
		w := httptest.NewRecorder()

		handler.Update(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		vehicles.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestVehicleHandler_CurrentLocation(t *testing.T) {
	t.Run("no location recorded", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		id := primitive.NewObjectID()
		vehicles.On("FindByID", mock.Anything, id.Hex()).Return(&models.Vehicle{ID: id}, nil)

		req := mux.SetURLVars(httptest.NewRequest("GET", "/api/vehicles/"+id.Hex()+"/location", nil),
			map[string]string{"id": id.Hex()})
		w := httptest.NewRecorder()

		handler.CurrentLocation(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("snapshot present", func(t *testing.T) {
		vehicles := new(MockVehicleCollection)
		handler := NewVehicleHandler(vehicles)

		id := primitive.NewObjectID()
		vehicles.On("FindByID", mock.Anything, id.Hex()).Return(&models.Vehicle{
			ID:           id,
			LastLocation: &models.LastLocation{Latitude: -23.55, Longitude: -46.63},
		}, nil)

		req := mux.SetURLVars(httptest.NewRequest("GET", "/api/vehicles/"+id.Hex()+"/location", nil),
			map[string]string{"id": id.Hex()})
		w := httptest.NewRecorder()

		handler.CurrentLocation(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "-23.55")
	})
}

func TestVehicleHandler_ActiveCount(t *testing.T) {
	vehicles := new(MockVehicleCollection)
	handler := NewVehicleHandler(vehicles)

	vehicles.On("CountByStatus", mock.Anything, models.StatusActive).Return(int64(7), nil)

	req := httptest.NewRequest("GET", "/api/vehicles/active/count", nil)
	w := httptest.NewRecorder()

	handler.ActiveCount(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 7}`, w.Body.String())
}

func TestVehicleHandler_Search(t *testing.T) {
	vehicles := new(MockVehicleCollection)
	handler := NewVehicleHandler(vehicles)

	vehicles.On("Search", mock.Anything, "fiat", int64(10)).
		Return([]models.Vehicle{{Brand: "Fiat"}}, nil)

	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/vehicles/search/fiat", nil),
		map[string]string{"query": "fiat"})
	w := httptest.NewRecorder()

	handler.Search(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fiat")
}

func TestVehicleHandler_Delete(t *testing.T) {
	vehicles := new(MockVehicleCollection)
	handler := NewVehicleHandler(vehicles)

	id := primitive.NewObjectID()
	vehicles.On("Delete", mock.Anything, id.Hex()).Return(nil)

	req := mux.SetURLVars(httptest.NewRequest("DELETE", "/api/vehicles/"+id.Hex(), nil),
		map[string]string{"id": id.Hex()})
	w := httptest.NewRecorder()

	handler.Delete(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
