package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/car-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupLocationCollection(t *testing.T) (*MongoLocationCollection, func()) {
	t.Helper()
	client, err := ConnectMongo(os.Getenv("MONGO_URI"))
	if err != nil {
		t.Skipf("failed to create client: %v, skipping integration test", err)
	}
	collection := client.Database("test_cartracker").Collection("locations")
	collection.Drop(context.Background())
	cleanup := func() {
		collection.Drop(context.Background())
		client.Disconnect(context.Background())
	}
	return &MongoLocationCollection{Collection: collection}, cleanup
}

func insertSample(t *testing.T, coll *MongoLocationCollection, vehicleID primitive.ObjectID, ts time.Time, speed float64) *models.Location {
	t.Helper()
	loc := &models.Location{
		VehicleID: vehicleID,
		Latitude:  -23.55,
		Longitude: -46.63,
		Speed:     speed,
		Timestamp: ts,
		Source:    models.SourceGPS,
	}
	stored, err := coll.Insert(context.Background(), loc)
	require.NoError(t, err)
	return stored
}

func TestMongoLocationCollection_RangeQueryAscendingInclusive(t *testing.T) {
	coll, cleanup := setupLocationCollection(t)
	defer cleanup()

	vid := primitive.NewObjectID()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	t1 := base
	t2 := base.Add(time.Minute)
	t3 := base.Add(2 * time.Minute)

	insertSample(t, coll, vid, t3, 30)
	insertSample(t, coll, vid, t1, 10)
	insertSample(t, coll, vid, t2, 20)
	// A sample outside the range must not appear.
	insertSample(t, coll, vid, base.Add(time.Hour), 99)

	locations, err := coll.FindByVehicleAndRange(context.Background(), vid, t1, t3)
	require.NoError(t, err)
	require.Len(t, locations, 3)
	assert.True(t, locations[0].Timestamp.Equal(t1), "inclusive lower bound, ascending order")
	assert.True(t, locations[1].Timestamp.Equal(t2))
	assert.True(t, locations[2].Timestamp.Equal(t3), "inclusive upper bound")
}

func TestMongoLocationCollection_FindLatest(t *testing.T) {
	coll, cleanup := setupLocationCollection(t)
	defer cleanup()

	vid := primitive.NewObjectID()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	insertSample(t, coll, vid, base, 10)
	newest := insertSample(t, coll, vid, base.Add(time.Hour), 20)

	latest, err := coll.FindLatest(context.Background(), vid)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, latest.ID)

	_, err = coll.FindLatest(context.Background(), primitive.NewObjectID())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMongoLocationCollection_AttachAlerts(t *testing.T) {
	coll, cleanup := setupLocationCollection(t)
	defer cleanup()

	vid := primitive.NewObjectID()
	stored := insertSample(t, coll, vid, time.Now(), 95)

	alerts := []models.AlertEvent{{
		Type:      models.AlertSpeedLimit,
		Message:   "speed above limit: 95.0 km/h",
		Severity:  models.SeverityHigh,
		Timestamp: time.Now(),
	}}
	require.NoError(t, coll.AttachAlerts(context.Background(), stored.ID, alerts))

	latest, err := coll.FindLatest(context.Background(), vid)
	require.NoError(t, err)
	require.Len(t, latest.Alerts, 1)
	assert.Equal(t, models.AlertSpeedLimit, latest.Alerts[0].Type)

	err = coll.AttachAlerts(context.Background(), primitive.NewObjectID(), alerts)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMongoLocationCollection_FindWithAlerts(t *testing.T) {
	coll, cleanup := setupLocationCollection(t)
	defer cleanup()

	vid := primitive.NewObjectID()
	plain := insertSample(t, coll, vid, time.Now().Add(-time.Minute), 10)
	_ = plain
	alerted := insertSample(t, coll, vid, time.Now(), 95)
	require.NoError(t, coll.AttachAlerts(context.Background(), alerted.ID, []models.AlertEvent{{
		Type:     models.AlertLowBattery,
		Severity: models.SeverityMedium,
	}}))

	locations, err := coll.FindWithAlerts(context.Background(), vid, "", 50)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, alerted.ID, locations[0].ID)

	locations, err = coll.FindWithAlerts(context.Background(), vid, models.AlertSpeedLimit, 50)
	require.NoError(t, err)
	assert.Empty(t, locations)

	locations, err = coll.FindWithAlerts(context.Background(), vid, models.AlertLowBattery, 50)
	require.NoError(t, err)
	assert.Len(t, locations, 1)
}

func TestMongoLocationCollection_FindByVehicleDescending(t *testing.T) {
	coll, cleanup := setupLocationCollection(t)
	defer cleanup()

	vid := primitive.NewObjectID()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	insertSample(t, coll, vid, base, 10)
	insertSample(t, coll, vid, base.Add(time.Minute), 20)
	insertSample(t, coll, vid, base.Add(2*time.Minute), 30)

	locations, err := coll.FindByVehicle(context.Background(), vid, nil, nil, 2)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.True(t, locations[0].Timestamp.After(locations[1].Timestamp), "newest first")
}
