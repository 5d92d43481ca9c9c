// Package realtime pushes ingestion results to subscribed dashboard clients
// over WebSocket. Delivery is best effort: no queuing, no confirmation, no
// replay for late joiners.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-tracker/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// clientMessage is what dashboard clients send to manage their subscription.
type clientMessage struct {
	Type      string `json:"type"` // "join_vehicle" or "leave_vehicle"
	VehicleID string `json:"vehicleId"`
}

// event is the envelope for everything the server pushes.
type event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one connected subscriber.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains per-vehicle subscriber rooms and fans ingestion results out
// to them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The REST layer owns cross-origin policy; the dashboard may be
			// served from a different origin than the API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the client's read loop.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}
	metrics.RealtimeClients.Inc()
	log.WithField("remote", conn.RemoteAddr().String()).Debug("realtime client connected")

	go client.writePump()
	h.readLoop(client)
}

func (h *Hub) readLoop(client *Client) {
	defer func() {
		h.remove(client)
		close(client.send)
		client.conn.Close()
		metrics.RealtimeClients.Dec()
		log.WithField("remote", client.conn.RemoteAddr().String()).Debug("realtime client disconnected")
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.WithError(err).Debug("ignoring malformed realtime message")
			continue
		}
		switch msg.Type {
		case "join_vehicle":
			h.Subscribe(client, msg.VehicleID)
		case "leave_vehicle":
			h.Unsubscribe(client, msg.VehicleID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Subscribe adds the client to a vehicle's room.
func (h *Hub) Subscribe(client *Client, vehicleID string) {
	if vehicleID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[vehicleID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[vehicleID] = room
	}
	room[client] = struct{}{}
}

// Unsubscribe removes the client from a vehicle's room.
func (h *Hub) Unsubscribe(client *Client, vehicleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client, vehicleID)
}

// remove drops the client from every room it belonged to.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for vehicleID := range h.rooms {
		h.dropLocked(client, vehicleID)
	}
}

func (h *Hub) dropLocked(client *Client, vehicleID string) {
	room, ok := h.rooms[vehicleID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, vehicleID)
	}
}

// Publish delivers a location_update event to every subscriber currently in
// the vehicle's room. Slow subscribers are skipped rather than blocking the
// ingestion path.
func (h *Hub) Publish(vehicleID string, payload interface{}) {
	raw, err := json.Marshal(event{Type: "location_update", Data: payload})
	if err != nil {
		log.WithError(err).Error("failed to marshal realtime event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[vehicleID] {
		select {
		case client.send <- raw:
		default:
			metrics.RealtimeDropped.Inc()
		}
	}
}

// RoomSize reports how many clients are subscribed to a vehicle.
func (h *Hub) RoomSize(vehicleID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[vehicleID])
}
