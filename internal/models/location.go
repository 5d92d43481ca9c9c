package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationSource identifies how a sample was produced.
type LocationSource string

const (
	SourceGPS       LocationSource = "gps"
	SourceManual    LocationSource = "manual"
	SourceEstimated LocationSource = "estimated"
)

// AlertType identifies the condition that produced an alert event.
type AlertType string

const (
	AlertSpeedLimit    AlertType = "speed_limit"
	AlertGeofenceExit  AlertType = "geofence_exit"
	AlertGeofenceEntry AlertType = "geofence_entry"
	AlertLowBattery    AlertType = "low_battery"
	AlertNoSignal      AlertType = "no_signal"
)

// AlertSeverity grades an alert event.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertEvent is embedded in a location sample at ingestion time. It has no
// lifecycle of its own and is never mutated after creation.
type AlertEvent struct {
	Type      AlertType     `bson:"type" json:"type"`
	Message   string        `bson:"message" json:"message"`
	Severity  AlertSeverity `bson:"severity" json:"severity"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
}

// Location is one GPS reading for a vehicle at a point in time. Samples are
// append-only; the single permitted follow-up write attaches evaluated alerts.
type Location struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID primitive.ObjectID `bson:"vehicleId" json:"vehicleId"`
	Latitude  float64            `bson:"latitude" json:"latitude"`
	Longitude float64            `bson:"longitude" json:"longitude"`
	Speed     float64            `bson:"speed" json:"speed"`
	Heading   float64            `bson:"heading" json:"heading"`
	Altitude  *float64           `bson:"altitude,omitempty" json:"altitude,omitempty"`
	Accuracy  *float64           `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Source    LocationSource     `bson:"source" json:"source"`
	Battery   *float64           `bson:"battery,omitempty" json:"battery,omitempty"`
	Signal    *float64           `bson:"signal,omitempty" json:"signal,omitempty"`
	Alerts    []AlertEvent       `bson:"alerts,omitempty" json:"alerts,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// ApplyDefaults fills the documented defaults for absent optional fields.
func (l *Location) ApplyDefaults(now time.Time) {
	if l.Timestamp.IsZero() {
		l.Timestamp = now
	}
	if l.Source == "" {
		l.Source = SourceGPS
	}
}

// Validate checks field ranges and returns a ValidationError listing every
// violated field, or nil when the sample is valid.
func (l *Location) Validate() error {
	var violations []string

	if l.VehicleID.IsZero() {
		violations = append(violations, "vehicleId is required")
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		violations = append(violations, "latitude must be between -90 and 90")
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		violations = append(violations, "longitude must be between -180 and 180")
	}
	if l.Speed < 0 {
		violations = append(violations, "speed must not be negative")
	}
	if l.Heading < 0 || l.Heading >= 360 {
		violations = append(violations, "heading must be between 0 and 360")
	}
	if l.Accuracy != nil && *l.Accuracy < 0 {
		violations = append(violations, "accuracy must not be negative")
	}
	if l.Battery != nil && (*l.Battery < 0 || *l.Battery > 100) {
		violations = append(violations, "battery must be between 0 and 100")
	}
	if l.Signal != nil && (*l.Signal < 0 || *l.Signal > 100) {
		violations = append(violations, "signal must be between 0 and 100")
	}
	switch l.Source {
	case SourceGPS, SourceManual, SourceEstimated:
	default:
		violations = append(violations, fmt.Sprintf("source %q is not one of gps, manual, estimated", l.Source))
	}

	if len(violations) > 0 {
		return &ValidationError{Fields: violations}
	}
	return nil
}
