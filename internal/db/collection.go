package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when an id does not resolve to a document.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned on a unique-constraint violation
	// (license plate, VIN or device id).
	ErrDuplicateKey = errors.New("duplicate key")
)

// VehicleFilter narrows and paginates vehicle listings.
type VehicleFilter struct {
	Status models.VehicleStatus
	Page   int64
	Limit  int64
}

// VehicleCollection defines the interface for vehicle registry operations.
type VehicleCollection interface {
	Insert(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error)
	Update(ctx context.Context, id string, vehicle *models.Vehicle) (*models.Vehicle, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Vehicle, error)
	Find(ctx context.Context, filter VehicleFilter) ([]models.Vehicle, int64, error)
	Search(ctx context.Context, term string, limit int64) ([]models.Vehicle, error)
	CountByStatus(ctx context.Context, status models.VehicleStatus) (int64, error)
	UpdateLastLocation(ctx context.Context, id string, snapshot models.LastLocation) error
}

// LocationCollection defines the interface for the append-only sample store.
// AttachAlerts is the one permitted post-creation mutation.
type LocationCollection interface {
	Insert(ctx context.Context, loc *models.Location) (*models.Location, error)
	AttachAlerts(ctx context.Context, id primitive.ObjectID, alerts []models.AlertEvent) error
	FindByVehicleAndRange(ctx context.Context, vehicleID primitive.ObjectID, start, end time.Time) ([]models.Location, error)
	FindByVehicle(ctx context.Context, vehicleID primitive.ObjectID, start, end *time.Time, limit int64) ([]models.Location, error)
	FindLatest(ctx context.Context, vehicleID primitive.ObjectID) (*models.Location, error)
	FindWithAlerts(ctx context.Context, vehicleID primitive.ObjectID, alertType models.AlertType, limit int64) ([]models.Location, error)
}
