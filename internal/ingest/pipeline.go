// Package ingest implements the location-ingestion pipeline: validate a raw
// sample, persist it, refresh the vehicle's snapshot, evaluate alerts and
// fan the result out to realtime subscribers.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-tracker/internal/alerts"
	"github.com/ukydev/car-tracker/internal/db"
	"github.com/ukydev/car-tracker/internal/metrics"
	"github.com/ukydev/car-tracker/internal/models"
)

// ErrMissingField is returned when a raw sample omits a required field.
var ErrMissingField = errors.New("missing required field")

// RawSample is a location report as submitted by a device, before any
// coercion. Pointer fields distinguish "absent" from zero.
type RawSample struct {
	VehicleID string     `json:"vehicleId"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Speed     *float64   `json:"speed"`
	Heading   *float64   `json:"heading"`
	Altitude  *float64   `json:"altitude"`
	Accuracy  *float64   `json:"accuracy"`
	Battery   *float64   `json:"battery"`
	Signal    *float64   `json:"signal"`
	Address   string     `json:"address"`
	Source    string     `json:"source"`
	Timestamp *time.Time `json:"timestamp"`
}

// Update is the payload published to realtime subscribers and returned to
// the submitting device.
type Update struct {
	VehicleID string              `json:"vehicleId"`
	Location  *models.Location    `json:"location"`
	Alerts    []models.AlertEvent `json:"alerts"`
}

// Publisher pushes an ingestion result to the subscribers of one vehicle.
type Publisher interface {
	Publish(vehicleID string, payload interface{})
}

// Pipeline orchestrates one ingestion. It is safe for concurrent use; each
// call runs independently with no cross-request ordering guarantees beyond
// the store's single-document writes.
type Pipeline struct {
	vehicles  db.VehicleCollection
	locations db.LocationCollection
	publisher Publisher
}

// New creates an ingestion pipeline.
func New(vehicles db.VehicleCollection, locations db.LocationCollection, publisher Publisher) *Pipeline {
	return &Pipeline{
		vehicles:  vehicles,
		locations: locations,
		publisher: publisher,
	}
}

// Ingest runs the full pipeline for one raw sample. Failures before the
// sample is persisted abort with no stored state; later failures (snapshot
// update, alert attach) are logged and counted but do not roll anything
// back — the snapshot is advisory and may be transiently stale.
func (p *Pipeline) Ingest(ctx context.Context, raw RawSample) (*Update, error) {
	metrics.SamplesReceived.Inc()

	if err := checkRequired(raw); err != nil {
		metrics.SamplesRejected.Inc()
		return nil, err
	}

	vehicle, err := p.vehicles.FindByID(ctx, raw.VehicleID)
	if err != nil {
		metrics.SamplesRejected.Inc()
		return nil, err
	}

	sample := coerce(raw, vehicle)
	if err := sample.Validate(); err != nil {
		metrics.SamplesRejected.Inc()
		return nil, err
	}

	stored, err := p.locations.Insert(ctx, sample)
	if err != nil {
		metrics.SamplesRejected.Inc()
		return nil, fmt.Errorf("persist sample: %w", err)
	}
	metrics.SamplesPersisted.Inc()

	// From here on the sample exists; the remaining steps are best effort
	// and not atomic with the insert.
	snapshot := models.LastLocation{
		Latitude:  stored.Latitude,
		Longitude: stored.Longitude,
		Speed:     stored.Speed,
		Timestamp: stored.Timestamp,
		Address:   stored.Address,
	}
	if err := p.vehicles.UpdateLastLocation(ctx, raw.VehicleID, snapshot); err != nil {
		metrics.SnapshotFailures.Inc()
		log.WithError(err).WithField("vehicle_id", raw.VehicleID).
			Error("failed to update last-location snapshot")
	}

	events := alerts.Evaluate(vehicle, stored)
	for _, e := range events {
		metrics.AlertsEmitted.WithLabelValues(string(e.Type)).Inc()
	}
	if len(events) > 0 {
		if err := p.locations.AttachAlerts(ctx, stored.ID, events); err != nil {
			metrics.AlertAttachFailures.Inc()
			log.WithError(err).WithField("location_id", stored.ID.Hex()).
				Error("failed to attach alerts to sample")
		}
		stored.Alerts = events
	}

	update := &Update{
		VehicleID: raw.VehicleID,
		Location:  stored,
		Alerts:    events,
	}
	if update.Alerts == nil {
		update.Alerts = []models.AlertEvent{}
	}

	if p.publisher != nil {
		p.publisher.Publish(raw.VehicleID, update)
	}
	return update, nil
}

func checkRequired(raw RawSample) error {
	var missing []string
	if raw.VehicleID == "" {
		missing = append(missing, "vehicleId")
	}
	if raw.Latitude == nil {
		missing = append(missing, "latitude")
	}
	if raw.Longitude == nil {
		missing = append(missing, "longitude")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// coerce builds a sample from the raw report, applying the documented
// defaults for absent optional fields.
func coerce(raw RawSample, vehicle *models.Vehicle) *models.Location {
	sample := &models.Location{
		VehicleID: vehicle.ID,
		Latitude:  *raw.Latitude,
		Longitude: *raw.Longitude,
		Altitude:  raw.Altitude,
		Accuracy:  raw.Accuracy,
		Battery:   raw.Battery,
		Signal:    raw.Signal,
		Address:   raw.Address,
		Source:    models.LocationSource(raw.Source),
	}
	if raw.Speed != nil {
		sample.Speed = *raw.Speed
	}
	if raw.Heading != nil {
		sample.Heading = *raw.Heading
	}
	if raw.Timestamp != nil {
		sample.Timestamp = *raw.Timestamp
	}
	sample.ApplyDefaults(time.Now())
	return sample
}
