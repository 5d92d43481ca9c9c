// Package mqttbridge feeds location samples published over MQTT into the
// ingestion pipeline. Devices publish the same JSON payload as the HTTP
// endpoint to cartracker/location/<deviceId>.
package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-tracker/internal/ingest"
)

const ingestTimeout = 10 * time.Second

// Bridge subscribes to an MQTT topic and forwards samples to the pipeline.
type Bridge struct {
	client   mqtt.Client
	topic    string
	pipeline *ingest.Pipeline
}

// New connects to the broker and returns a bridge ready to Start.
func New(broker, clientID, topic string, pipeline *ingest.Pipeline) (*Bridge, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}

	return &Bridge{
		client:   client,
		topic:    topic,
		pipeline: pipeline,
	}, nil
}

// Start subscribes to the configured topic. Malformed payloads and pipeline
// rejections are logged, never fatal.
func (b *Bridge) Start() error {
	token := b.client.Subscribe(b.topic, 1, b.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", b.topic, token.Error())
	}
	log.WithField("topic", b.topic).Info("MQTT ingestion bridge subscribed")
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (b *Bridge) Stop() {
	b.client.Unsubscribe(b.topic)
	b.client.Disconnect(250)
}

func (b *Bridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw ingest.RawSample
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.WithError(err).WithField("topic", msg.Topic()).Error("Malformed MQTT location payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	if _, err := b.pipeline.Ingest(ctx, raw); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"topic":      msg.Topic(),
			"vehicle_id": raw.VehicleID,
		}).Warn("MQTT sample rejected")
	}
}
