package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/car-tracker/internal/db"
	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockVehicleCollection is a mock implementation of db.VehicleCollection
type MockVehicleCollection struct {
	mock.Mock
}

func (m *MockVehicleCollection) Insert(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error) {
	args := m.Called(ctx, vehicle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) Update(ctx context.Context, id string, vehicle *models.Vehicle) (*models.Vehicle, error) {
	args := m.Called(ctx, id, vehicle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVehicleCollection) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) Find(ctx context.Context, filter db.VehicleFilter) ([]models.Vehicle, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Vehicle), args.Get(1).(int64), args.Error(2)
}

func (m *MockVehicleCollection) Search(ctx context.Context, term string, limit int64) ([]models.Vehicle, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *MockVehicleCollection) CountByStatus(ctx context.Context, status models.VehicleStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVehicleCollection) UpdateLastLocation(ctx context.Context, id string, snapshot models.LastLocation) error {
	args := m.Called(ctx, id, snapshot)
	return args.Error(0)
}

// MockLocationCollection is a mock implementation of db.LocationCollection
type MockLocationCollection struct {
	mock.Mock
}

func (m *MockLocationCollection) Insert(ctx context.Context, loc *models.Location) (*models.Location, error) {
	args := m.Called(ctx, loc)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if args.Get(0) == nil {
		return loc, nil
	}
	return args.Get(0).(*models.Location), nil
}

func (m *MockLocationCollection) AttachAlerts(ctx context.Context, id primitive.ObjectID, alerts []models.AlertEvent) error {
	args := m.Called(ctx, id, alerts)
	return args.Error(0)
}

func (m *MockLocationCollection) FindByVehicleAndRange(ctx context.Context, vehicleID primitive.ObjectID, start, end time.Time) ([]models.Location, error) {
	args := m.Called(ctx, vehicleID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockLocationCollection) FindByVehicle(ctx context.Context, vehicleID primitive.ObjectID, start, end *time.Time, limit int64) ([]models.Location, error) {
	args := m.Called(ctx, vehicleID, start, end, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockLocationCollection) FindLatest(ctx context.Context, vehicleID primitive.ObjectID) (*models.Location, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationCollection) FindWithAlerts(ctx context.Context, vehicleID primitive.ObjectID, alertType models.AlertType, limit int64) ([]models.Location, error) {
	args := m.Called(ctx, vehicleID, alertType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}
