package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", -23.55, -46.63, -23.55, -46.63, 0, 0.001},
		{"one degree of longitude at the equator", 0, 0, 0, 1, 111.19, 0.01},
		{"sao paulo to rio", -23.5505, -46.6333, -22.9068, -43.1729, 360.75, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Haversine() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestHaversineIsSymmetric(t *testing.T) {
	a := Haversine(10, 20, 30, 40)
	b := Haversine(30, 40, 10, 20)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", a, b)
	}
}
