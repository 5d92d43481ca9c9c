package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLocationCollection implements LocationCollection for MongoDB.
type MongoLocationCollection struct {
	Collection *mongo.Collection
}

// Insert appends a new sample. The caller must have validated ranges and
// applied defaults first.
func (c *MongoLocationCollection) Insert(ctx context.Context, loc *models.Location) (*models.Location, error) {
	loc.ID = primitive.NewObjectID()
	loc.CreatedAt = time.Now()
	if _, err := c.Collection.InsertOne(ctx, loc); err != nil {
		return nil, err
	}
	return loc, nil
}

// AttachAlerts replaces the alert list of an already-persisted sample. This
// is the only mutation a sample sees after creation.
func (c *MongoLocationCollection) AttachAlerts(ctx context.Context, id primitive.ObjectID, alerts []models.AlertEvent) error {
	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"alerts": alerts},
	})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: location %s", ErrNotFound, id.Hex())
	}
	return nil
}

// FindByVehicleAndRange returns samples within [start, end], ascending by
// timestamp. Bounds are inclusive.
func (c *MongoLocationCollection) FindByVehicleAndRange(ctx context.Context, vehicleID primitive.ObjectID, start, end time.Time) ([]models.Location, error) {
	query := bson.M{
		"vehicleId": vehicleID,
		"timestamp": bson.M{"$gte": start, "$lte": end},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	locations := []models.Location{}
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// FindByVehicle returns samples newest first, optionally bounded by start
// and end. Serves the history endpoint.
func (c *MongoLocationCollection) FindByVehicle(ctx context.Context, vehicleID primitive.ObjectID, start, end *time.Time, limit int64) ([]models.Location, error) {
	query := bson.M{"vehicleId": vehicleID}
	if start != nil || end != nil {
		ts := bson.M{}
		if start != nil {
			ts["$gte"] = *start
		}
		if end != nil {
			ts["$lte"] = *end
		}
		query["timestamp"] = ts
	}
	if limit < 1 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	locations := []models.Location{}
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// FindLatest returns the single most recent sample for a vehicle.
func (c *MongoLocationCollection) FindLatest(ctx context.Context, vehicleID primitive.ObjectID) (*models.Location, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	var loc models.Location
	err := c.Collection.FindOne(ctx, bson.M{"vehicleId": vehicleID}, opts).Decode(&loc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: no samples for vehicle %s", ErrNotFound, vehicleID.Hex())
		}
		return nil, err
	}
	return &loc, nil
}

// FindWithAlerts returns samples carrying at least one alert, newest first,
// optionally restricted to a single alert type.
func (c *MongoLocationCollection) FindWithAlerts(ctx context.Context, vehicleID primitive.ObjectID, alertType models.AlertType, limit int64) ([]models.Location, error) {
	query := bson.M{
		"vehicleId": vehicleID,
		"alerts.0":  bson.M{"$exists": true},
	}
	if alertType != "" {
		query["alerts.type"] = alertType
	}
	if limit < 1 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := c.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	locations := []models.Location{}
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}
