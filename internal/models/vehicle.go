package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleStatus represents the lifecycle status of a vehicle.
type VehicleStatus string

const (
	StatusActive      VehicleStatus = "active"
	StatusInactive    VehicleStatus = "inactive"
	StatusMaintenance VehicleStatus = "maintenance"
	StatusStolen      VehicleStatus = "stolen"
)

// IsValidStatus checks if a vehicle status is one of the known values.
func IsValidStatus(status VehicleStatus) bool {
	switch status {
	case StatusActive, StatusInactive, StatusMaintenance, StatusStolen:
		return true
	default:
		return false
	}
}

var (
	// Mercosul plate format, which also accepts the older LLLNNNN plates.
	plateRegexp = regexp.MustCompile(`^[A-Z]{3}[0-9][0-9A-Z][0-9]{2}$`)
	vinRegexp   = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
	emailRegexp = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,})+$`)
)

// Owner holds the contact details of a vehicle's owner.
type Owner struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone" json:"phone"`
}

// GeoPoint is a single vertex of a geofence polygon.
type GeoPoint struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Geofence is a configured boundary polygon. Entry/exit detection is not
// evaluated yet; the configuration is stored for the dashboard.
type Geofence struct {
	Enabled     bool       `bson:"enabled" json:"enabled"`
	Coordinates []GeoPoint `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

// AlertConfig holds the per-vehicle alert thresholds.
type AlertConfig struct {
	SpeedLimit float64  `bson:"speedLimit" json:"speedLimit"`
	Geofence   Geofence `bson:"geofence" json:"geofence"`
}

// LastLocation is the denormalized current-position snapshot stored on the
// vehicle document. It is overwritten on every ingested sample and is never
// the source of truth for history queries.
type LastLocation struct {
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Speed     float64   `bson:"speed" json:"speed"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Address   string    `bson:"address,omitempty" json:"address,omitempty"`
}

// Vehicle represents a tracked vehicle.
type Vehicle struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	LicensePlate string             `bson:"licensePlate" json:"licensePlate"`
	Brand        string             `bson:"brand" json:"brand"`
	Model        string             `bson:"model" json:"model"`
	Year         int                `bson:"year" json:"year"`
	Color        string             `bson:"color" json:"color"`
	VIN          string             `bson:"vin,omitempty" json:"vin,omitempty"`
	DeviceID     string             `bson:"deviceId,omitempty" json:"deviceId,omitempty"`
	Status       VehicleStatus      `bson:"status" json:"status"`
	Owner        Owner              `bson:"owner" json:"owner"`
	Alerts       AlertConfig        `bson:"alerts" json:"alerts"`
	LastLocation *LastLocation      `bson:"lastLocation,omitempty" json:"lastLocation,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DefaultSpeedLimit is applied when a vehicle is created without a threshold.
const DefaultSpeedLimit = 80

// Normalize uppercases the plate and VIN and applies defaults. Call before
// Validate and before any duplicate check so comparisons are case-insensitive.
func (v *Vehicle) Normalize() {
	v.Name = strings.TrimSpace(v.Name)
	v.LicensePlate = strings.ToUpper(strings.TrimSpace(v.LicensePlate))
	v.Brand = strings.TrimSpace(v.Brand)
	v.Model = strings.TrimSpace(v.Model)
	v.Color = strings.TrimSpace(v.Color)
	v.VIN = strings.ToUpper(strings.TrimSpace(v.VIN))
	v.DeviceID = strings.TrimSpace(v.DeviceID)
	if v.Status == "" {
		v.Status = StatusActive
	}
	if v.Alerts.SpeedLimit == 0 {
		v.Alerts.SpeedLimit = DefaultSpeedLimit
	}
}

// Validate checks all schema rules and returns a ValidationError listing
// every violated field, or nil when the vehicle is valid.
func (v *Vehicle) Validate() error {
	var violations []string

	if v.Name == "" {
		violations = append(violations, "name is required")
	} else if len(v.Name) > 100 {
		violations = append(violations, "name must not exceed 100 characters")
	}
	if v.LicensePlate == "" {
		violations = append(violations, "licensePlate is required")
	} else if !plateRegexp.MatchString(v.LicensePlate) {
		violations = append(violations, "licensePlate has an invalid format")
	}
	if v.Brand == "" {
		violations = append(violations, "brand is required")
	}
	if v.Model == "" {
		violations = append(violations, "model is required")
	}
	if v.Color == "" {
		violations = append(violations, "color is required")
	}
	maxYear := time.Now().Year() + 1
	if v.Year < 1900 || v.Year > maxYear {
		violations = append(violations, fmt.Sprintf("year must be between 1900 and %d", maxYear))
	}
	if v.VIN != "" && !vinRegexp.MatchString(v.VIN) {
		violations = append(violations, "vin must be 17 alphanumeric characters")
	}
	if !IsValidStatus(v.Status) {
		violations = append(violations, "status must be one of active, inactive, maintenance, stolen")
	}
	if v.Owner.Name == "" {
		violations = append(violations, "owner.name is required")
	}
	if v.Owner.Email == "" {
		violations = append(violations, "owner.email is required")
	} else if !emailRegexp.MatchString(v.Owner.Email) {
		violations = append(violations, "owner.email is invalid")
	}
	if v.Owner.Phone == "" {
		violations = append(violations, "owner.phone is required")
	}
	if v.Alerts.SpeedLimit < 0 {
		violations = append(violations, "alerts.speedLimit must not be negative")
	}

	if len(violations) > 0 {
		return &ValidationError{Fields: violations}
	}
	return nil
}
