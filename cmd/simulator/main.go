package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Sample is the location payload accepted by the tracker, over HTTP or MQTT.
type Sample struct {
	VehicleID string    `json:"vehicleId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Battery   float64   `json:"battery"`
	Signal    float64   `json:"signal"`
	Timestamp time.Time `json:"timestamp"`
}

// Cities for realistic routes
var cities = []Location{
	{Lat: -23.5505, Lon: -46.6333}, // São Paulo
	{Lat: -22.9068, Lon: -43.1729}, // Rio de Janeiro
	{Lat: -19.9167, Lon: -43.9345}, // Belo Horizonte
	{Lat: -25.4284, Lon: -49.2733}, // Curitiba
	{Lat: -30.0346, Lon: -51.2177}, // Porto Alegre
	{Lat: -15.8267, Lon: -47.9218}, // Brasília
	{Lat: -12.9714, Lon: -38.5014}, // Salvador
	{Lat: -8.0476, Lon: -34.8770},  // Recife
	{Lat: -3.7319, Lon: -38.5267},  // Fortaleza
	{Lat: -16.6869, Lon: -49.2648}, // Goiânia
}

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func randomLocation() Location {
	base := cities[rand.Intn(len(cities))]
	return jitterLocation(base, 500) // start close to roads
}

var authToken string

func authorizedPost(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

// login obtains a token for the seeded operator account.
func login(apiURL string) (string, error) {
	creds := map[string]string{
		"username": envOr("SIM_USERNAME", "admin"),
		"password": envOr("SIM_PASSWORD", "admin123"),
	}
	data, _ := json.Marshal(creds)

	resp, err := http.Post(apiURL+"/auth/login", "application/json", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	return result.Token, nil
}

const plateLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomPlate generates a Mercosul-format plate.
func randomPlate() string {
	b := make([]byte, 7)
	for _, i := range []int{0, 1, 2, 4} {
		b[i] = plateLetters[rand.Intn(len(plateLetters))]
	}
	for _, i := range []int{3, 5, 6} {
		b[i] = byte('0' + rand.Intn(10))
	}
	return string(b)
}

func createVehicle(apiURL string, index int) (string, error) {
	brands := map[string][]string{
		"Fiat":       {"Ducato", "Fiorino", "Toro"},
		"Volkswagen": {"Delivery", "Saveiro", "Amarok"},
		"Mercedes":   {"Sprinter", "Accelo", "Atego"},
		"Ford":       {"Ranger", "Transit", "Cargo"},
	}
	var brandNames []string
	for name := range brands {
		brandNames = append(brandNames, name)
	}
	brand := brandNames[rand.Intn(len(brandNames))]
	model := brands[brand][rand.Intn(len(brands[brand]))]

	vehicle := map[string]interface{}{
		"name":         fmt.Sprintf("Sim Vehicle %d", index),
		"licensePlate": randomPlate(),
		"brand":        brand,
		"model":        model,
		"year":         2020 + rand.Intn(5),
		"color":        []string{"white", "silver", "black", "red"}[rand.Intn(4)],
		"owner": map[string]string{
			"name":  fmt.Sprintf("Operator %d", index),
			"email": fmt.Sprintf("operator%d@example.com", index),
			"phone": fmt.Sprintf("+55 11 9%04d-%04d", rand.Intn(10000), rand.Intn(10000)),
		},
	}

	data, err := json.Marshal(vehicle)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vehicle: %w", err)
	}

	resp, err := authorizedPost(apiURL+"/vehicles", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to create vehicle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("vehicle creation failed with status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	createdVehicleID, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("invalid vehicle ID in response")
	}

	log.WithFields(log.Fields{
		"vehicle_id": createdVehicleID,
		"brand":      brand,
		"model":      model,
	}).Info("Created vehicle")

	return createdVehicleID, nil
}

// --- Routing & movement ---

type VehicleRoute struct {
	Points    []Location
	SegIndex  int
	SegOffset float64 // km along current segment
}

type VehicleState struct {
	VehicleID  string
	Position   Location
	Heading    float64
	SpeedKmh   float64
	BatteryPct float64
	SignalPct  float64
	Route      *VehicleRoute
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

// bearing returns the initial course from a to b in degrees [0, 360).
func bearing(a, b Location) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func lerp(a, b Location, t float64) Location {
	return Location{Lat: a.Lat + (b.Lat-a.Lat)*t, Lon: a.Lon + (b.Lon-a.Lon)*t}
}

func fetchOSRMRoute(start, end Location) ([]Location, error) {
	url := fmt.Sprintf("https://router.project-osrm.org/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson", start.Lon, start.Lat, end.Lon, end.Lat)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("osrm status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var obj struct {
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	if len(obj.Routes) == 0 || len(obj.Routes[0].Geometry.Coordinates) < 2 {
		return nil, fmt.Errorf("no route")
	}
	coords := obj.Routes[0].Geometry.Coordinates
	pts := make([]Location, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, Location{Lat: c[1], Lon: c[0]})
	}
	return pts, nil
}

func planNewRoute(s *VehicleState) {
	start := s.Position
	// pick far city
	var end Location
	for i := 0; i < 10; i++ {
		cand := cities[rand.Intn(len(cities))]
		if haversineKm(start, cand) > 50 {
			end = jitterLocation(cand, 500)
			break
		}
	}
	pts, err := fetchOSRMRoute(start, end)
	if err != nil {
		// fallback small jitter loop
		s.Route = &VehicleRoute{Points: []Location{start, jitterLocation(start, 2000)}, SegIndex: 0, SegOffset: 0}
		return
	}
	s.Route = &VehicleRoute{Points: pts, SegIndex: 0, SegOffset: 0}
}

func stepAlongRoute(s *VehicleState, tickSec float64) {
	if s.Route == nil || len(s.Route.Points) < 2 {
		planNewRoute(s)
	}
	remKm := s.SpeedKmh * (tickSec / 3600.0)
	for remKm > 0 && s.Route.SegIndex < len(s.Route.Points)-1 {
		a := s.Route.Points[s.Route.SegIndex]
		b := s.Route.Points[s.Route.SegIndex+1]
		s.Heading = bearing(a, b)
		segLen := haversineKm(a, b)
		leftOnSeg := segLen - s.Route.SegOffset
		if remKm >= leftOnSeg {
			// advance to next segment
			s.Position = b
			s.Route.SegIndex++
			s.Route.SegOffset = 0
			remKm -= leftOnSeg
			continue
		}
		// stay on current segment
		t := (s.Route.SegOffset + remKm) / segLen
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		s.Position = lerp(a, b, t)
		s.Route.SegOffset += remKm
		remKm = 0
	}
	// if reached end, plan new
	if s.Route.SegIndex >= len(s.Route.Points)-1 {
		planNewRoute(s)
	}
}

func sampleFromState(s *VehicleState) Sample {
	return Sample{
		VehicleID: s.VehicleID,
		Latitude:  s.Position.Lat,
		Longitude: s.Position.Lon,
		Speed:     s.SpeedKmh,
		Heading:   s.Heading,
		Battery:   s.BatteryPct,
		Signal:    s.SignalPct,
		Timestamp: time.Now(),
	}
}

// sender delivers one sample, over HTTP or MQTT.
type sender func(sample Sample)

func httpSender(apiURL string) sender {
	return func(sample Sample) {
		data, err := json.Marshal(sample)
		if err != nil {
			log.WithError(err).Error("Failed to marshal sample")
			return
		}
		resp, err := authorizedPost(apiURL+"/location", bytes.NewBuffer(data))
		if err != nil {
			log.WithError(err).Error("Failed to send sample")
			return
		}
		defer resp.Body.Close()
		log.WithFields(log.Fields{"vehicle_id": sample.VehicleID, "status": resp.Status}).Info("Sent sample")
	}
}

func mqttSender(client mqtt.Client) sender {
	return func(sample Sample) {
		data, err := json.Marshal(sample)
		if err != nil {
			log.WithError(err).Error("Failed to marshal sample")
			return
		}
		topic := "cartracker/location/" + sample.VehicleID
		if token := client.Publish(topic, 1, false, data); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Error("Failed to publish sample")
			return
		}
		log.WithFields(log.Fields{"vehicle_id": sample.VehicleID, "topic": topic}).Info("Published sample")
	}
}

func simulateVehicle(send sender, s *VehicleState, interval time.Duration) {
	if s.Route == nil {
		planNewRoute(s)
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		// small speed noise
		s.SpeedKmh += (rand.Float64()*2 - 1) * 1.5
		if s.SpeedKmh < 15 {
			s.SpeedKmh = 15
		}
		if s.SpeedKmh > 110 {
			s.SpeedKmh = 110
		}

		stepAlongRoute(s, interval.Seconds())

		// drain battery, wobble signal
		km := s.SpeedKmh * (interval.Seconds() / 3600.0)
		s.BatteryPct -= km * 0.2
		if s.BatteryPct < 5 {
			s.BatteryPct = 100
		}
		s.SignalPct += (rand.Float64()*2 - 1) * 10
		if s.SignalPct < 10 {
			s.SignalPct = 10
		}
		if s.SignalPct > 100 {
			s.SignalPct = 100
		}

		send(sampleFromState(s))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	useMQTT := flag.Bool("mqtt", false, "publish samples over MQTT instead of HTTP")
	flag.Parse()

	fleetSize := 10
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := envOr("API_BASE_URL", "http://localhost:8080/api")

	interval := 2 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	authToken = os.Getenv("SIM_AUTH_TOKEN")
	if authToken == "" {
		token, err := login(apiURL)
		if err != nil {
			log.WithError(err).Fatal("Login failed. Set SIM_AUTH_TOKEN or SIM_USERNAME/SIM_PASSWORD")
		}
		authToken = token
	}

	send := httpSender(apiURL)
	if *useMQTT {
		broker := envOr("MQTT_BROKER", "tcp://localhost:1883")
		opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("cartracker-simulator")
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).Fatal("Failed to connect to MQTT broker")
		}
		defer client.Disconnect(250)
		send = mqttSender(client)
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
		"mqtt":       *useMQTT,
	}).Info("Starting tracking simulation")

	// Create vehicles and states
	states := make([]*VehicleState, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		vehicleID, err := createVehicle(apiURL, i+1)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		start := randomLocation()
		state := &VehicleState{
			VehicleID:  vehicleID,
			Position:   start,
			SpeedKmh:   30 + rand.Float64()*30,
			BatteryPct: 50 + rand.Float64()*50,
			SignalPct:  60 + rand.Float64()*40,
		}
		states = append(states, state)
	}

	log.WithField("created_vehicles", len(states)).Info("Vehicle creation completed")
	if len(states) == 0 {
		log.Error("No vehicles created. Ensure the API is reachable and credentials are valid. Exiting.")
		time.Sleep(2 * time.Second)
		return
	}

	for _, s := range states {
		go simulateVehicle(send, s, interval)
	}

	log.Info("Location simulation started")
	select {} // Block forever
}
