package db

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB.
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// Insert stores a new vehicle. The caller must have normalized and validated
// it first. A vehicle with the same license plate is rejected with
// ErrDuplicateKey.
func (c *MongoVehicleCollection) Insert(ctx context.Context, vehicle *models.Vehicle) (*models.Vehicle, error) {
	err := c.Collection.FindOne(ctx, bson.M{"licensePlate": vehicle.LicensePlate}).Err()
	if err == nil {
		return nil, fmt.Errorf("%w: license plate %s", ErrDuplicateKey, vehicle.LicensePlate)
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	vehicle.ID = primitive.NewObjectID()
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt

	if _, err := c.Collection.InsertOne(ctx, vehicle); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return nil, err
	}
	return vehicle, nil
}

// Update replaces a vehicle document. If the plate changed, uniqueness is
// re-checked excluding the vehicle's own id.
func (c *MongoVehicleCollection) Update(ctx context.Context, id string, vehicle *models.Vehicle) (*models.Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}

	err = c.Collection.FindOne(ctx, bson.M{
		"licensePlate": vehicle.LicensePlate,
		"_id":          bson.M{"$ne": objectID},
	}).Err()
	if err == nil {
		return nil, fmt.Errorf("%w: license plate %s", ErrDuplicateKey, vehicle.LicensePlate)
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	vehicle.ID = objectID
	vehicle.UpdatedAt = time.Now()

	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, vehicle)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	return vehicle, nil
}

// Delete removes a vehicle by its id.
func (c *MongoVehicleCollection) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	return nil
}

// FindByID finds a vehicle by its id. Malformed ids report ErrNotFound so
// callers can treat them uniformly as an unresolved vehicle.
func (c *MongoVehicleCollection) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	var vehicle models.Vehicle
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &vehicle, nil
}

// Find lists vehicles ordered by creation time descending, with the total
// count for pagination.
func (c *MongoVehicleCollection) Find(ctx context.Context, filter VehicleFilter) ([]models.Vehicle, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := c.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	vehicles := []models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

// TotalPages computes the page count for a listing (ceiling division).
func TotalPages(total, limit int64) int64 {
	if limit < 1 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(limit)))
}

// Search matches the term case-insensitively against name, plate, brand,
// model and owner name, most recent first.
func (c *MongoVehicleCollection) Search(ctx context.Context, term string, limit int64) ([]models.Vehicle, error) {
	if limit < 1 {
		limit = 10
	}
	regex := primitive.Regex{Pattern: term, Options: "i"}
	query := bson.M{"$or": []bson.M{
		{"name": regex},
		{"licensePlate": regex},
		{"brand": regex},
		{"model": regex},
		{"owner.name": regex},
	}}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	vehicles := []models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// CountByStatus counts vehicles in the given lifecycle status.
func (c *MongoVehicleCollection) CountByStatus(ctx context.Context, status models.VehicleStatus) (int64, error) {
	return c.Collection.CountDocuments(ctx, bson.M{"status": status})
}

// UpdateLastLocation unconditionally overwrites the denormalized snapshot.
// Concurrent ingestions race here; the last database write wins.
func (c *MongoVehicleCollection) UpdateLastLocation(ctx context.Context, id string, snapshot models.LastLocation) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{
		"$set": bson.M{
			"lastLocation": snapshot,
			"updatedAt":    time.Now(),
		},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}
	return nil
}
