// Package telemetrymqtt subscribes to gateway sensor feeds over MQTT.
package telemetrymqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"maintenance-cloud/internal/observability/metrics"
)

// SensorSink consumes sensor batches for a monitored unit.
type SensorSink interface {
	ProcessSensorData(ctx context.Context, equipmentID int, sensors map[string]float64) error
}

// Config configures the MQTT consumer.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the subscription filter. The second level carries the
	// equipment id, e.g. telemetry/42/readings.
	Topic string
	QoS   byte
}

// Consumer subscribes to sensor readings published by field gateways.
type Consumer struct {
	client mqtt.Client
	cfg    Config
	sink   SensorSink
	logger *zap.Logger
}

// NewConsumer connects to the broker and prepares a consumer.
func NewConsumer(cfg Config, sink SensorSink, logger *zap.Logger) (*Consumer, error) {
	if sink == nil {
		return nil, errors.New("telemetry mqtt: nil sink")
	}
	if cfg.Broker == "" {
		return nil, errors.New("telemetry mqtt: empty broker")
	}
	if cfg.Topic == "" {
		cfg.Topic = "telemetry/+/readings"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "maintenance-cloud"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry mqtt: connect: %w", token.Error())
	}

	return &Consumer{client: client, cfg: cfg, sink: sink, logger: logger}, nil
}

// Start subscribes and dispatches messages until Close is called.
func (c *Consumer) Start(ctx context.Context) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := c.handleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			metrics.IncIngestError("mqtt")
			c.logger.Warn("mqtt telemetry dropped",
				zap.String("topic", msg.Topic()), zap.Error(err))
		}
	}
	if token := c.client.Subscribe(c.cfg.Topic, c.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry mqtt: subscribe %s: %w", c.cfg.Topic, token.Error())
	}
	c.logger.Info("mqtt telemetry consumer started",
		zap.String("broker", c.cfg.Broker), zap.String("topic", c.cfg.Topic))
	return nil
}

// Close unsubscribes and disconnects.
func (c *Consumer) Close() {
	if token := c.client.Unsubscribe(c.cfg.Topic); token.Wait() && token.Error() != nil {
		c.logger.Warn("mqtt unsubscribe failed", zap.Error(token.Error()))
	}
	c.client.Disconnect(250)
}

type readingMessage struct {
	EquipmentID int                `json:"equipment_id"`
	Values      map[string]float64 `json:"values"`
}

func (c *Consumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	var msg readingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if len(msg.Values) == 0 {
		return errors.New("empty values")
	}

	equipmentID := msg.EquipmentID
	if equipmentID <= 0 {
		id, err := equipmentIDFromTopic(topic)
		if err != nil {
			return err
		}
		equipmentID = id
	}
	return c.sink.ProcessSensorData(ctx, equipmentID, msg.Values)
}

func equipmentIDFromTopic(topic string) (int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return 0, fmt.Errorf("topic %q carries no equipment id", topic)
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("topic %q carries no equipment id", topic)
	}
	return id, nil
}
