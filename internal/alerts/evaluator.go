package alerts

import (
	"fmt"
	"time"

	"github.com/ukydev/car-tracker/internal/models"
)

const (
	// LowBatteryThreshold is the device battery percentage below which a
	// low_battery alert fires.
	LowBatteryThreshold = 20
	// WeakSignalThreshold is the signal percentage below which a no_signal
	// alert fires.
	WeakSignalThreshold = 30
)

// Rule maps a sample and a vehicle's configured thresholds to a possible
// alert event. Rules are independent; a sample may trigger several.
type Rule struct {
	Type     models.AlertType
	Severity models.AlertSeverity
	Match    func(vehicle *models.Vehicle, sample *models.Location) bool
	Message  func(vehicle *models.Vehicle, sample *models.Location) string
}

// DefaultRules is the rule table applied at ingestion time. Geofence
// entry/exit kinds are declared in the data model but containment is not
// evaluated yet, so no rule produces them.
var DefaultRules = []Rule{
	{
		Type:     models.AlertSpeedLimit,
		Severity: models.SeverityHigh,
		Match: func(v *models.Vehicle, s *models.Location) bool {
			return v.Alerts.SpeedLimit > 0 && s.Speed > v.Alerts.SpeedLimit
		},
		Message: func(v *models.Vehicle, s *models.Location) string {
			return fmt.Sprintf("speed above limit: %.1f km/h", s.Speed)
		},
	},
	{
		Type:     models.AlertLowBattery,
		Severity: models.SeverityMedium,
		Match: func(v *models.Vehicle, s *models.Location) bool {
			return s.Battery != nil && *s.Battery < LowBatteryThreshold
		},
		Message: func(v *models.Vehicle, s *models.Location) string {
			return fmt.Sprintf("low battery: %.0f%%", *s.Battery)
		},
	},
	{
		Type:     models.AlertNoSignal,
		Severity: models.SeverityLow,
		Match: func(v *models.Vehicle, s *models.Location) bool {
			return s.Signal != nil && *s.Signal < WeakSignalThreshold
		},
		Message: func(v *models.Vehicle, s *models.Location) string {
			return fmt.Sprintf("weak signal: %.0f%%", *s.Signal)
		},
	},
}

// Evaluate runs every rule against the vehicle's configuration and the new
// sample and returns one event per matching rule, timestamped at evaluation
// time. It is a pure function of its inputs.
func Evaluate(vehicle *models.Vehicle, sample *models.Location) []models.AlertEvent {
	var events []models.AlertEvent
	now := time.Now()
	for _, rule := range DefaultRules {
		if !rule.Match(vehicle, sample) {
			continue
		}
		events = append(events, models.AlertEvent{
			Type:      rule.Type,
			Message:   rule.Message(vehicle, sample),
			Severity:  rule.Severity,
			Timestamp: now,
		})
	}
	return events
}
