package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"metrics-dashboard/internal/util"
)

var ErrInvalidPayload = errors.New("payload is not a finite number")

// Reading is one decoded sensor message.
type Reading struct {
	Value     float64
	Timestamp time.Time
}

type sensorPayload struct {
	Value     *float64 `json:"value"`
	Timestamp string   `json:"timestamp"`
}

// ParsePayload accepts a bare number ("21.5") or {"value": 21.5, "timestamp": "<RFC3339>"}.
func ParsePayload(payload []byte) (Reading, error) {
	payload = bytes.TrimSpace(payload)

	if len(payload) > 0 && payload[0] == '{' {
		var p sensorPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return Reading{}, fmt.Errorf("failed to parse json: %w", err)
		}
		if p.Value == nil {
			return Reading{}, ErrInvalidPayload
		}
		r := Reading{Value: *p.Value}
		if p.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
			if err != nil {
				return Reading{}, fmt.Errorf("invalid timestamp %q: %w", p.Timestamp, err)
			}
			r.Timestamp = ts.UTC()
		}
		return r, nil
	}

	value, err := strconv.ParseFloat(string(payload), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Reading{}, ErrInvalidPayload
	}
	return Reading{Value: value}, nil
}

const defaultMQTTConnectTimeout = 30 * time.Second

type MQTTOptions struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	// ConnectTimeout bounds the initial connect. Zero means 30s.
	ConnectTimeout time.Duration
}

// MQTTClient is a thin wrapper over the paho client.
type MQTTClient struct {
	raw mqtt.Client
}

// NewMQTTClient connects to the broker, retrying until it answers, ctx is done or
// opts.ConnectTimeout elapses.
func NewMQTTClient(ctx context.Context, opts MQTTOptions) (*MQTTClient, error) {
	o := mqtt.NewClientOptions()
	o.AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	if opts.Username != "" {
		o.SetUsername(opts.Username)
		o.SetPassword(opts.Password)
	}
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)
	o.SetAutoReconnect(true)
	c := mqtt.NewClient(o)

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultMQTTConnectTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	token := c.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, err
		}
	case <-ctx.Done():
		c.Disconnect(0)
		return nil, ctx.Err()
	case <-timer.C:
		c.Disconnect(0)
		return nil, fmt.Errorf("timed out after %s connecting to %s", timeout, opts.BrokerURL)
	}
	return &MQTTClient{raw: c}, nil
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	token := c.raw.Subscribe(topic, qos, handler)
	token.Wait()
	return token.Error()
}

func (c *MQTTClient) Close() {
	c.raw.Disconnect(250)
}

// Bridge forwards MQTT sensor messages to the metrics API.
type Bridge struct {
	poster  Poster
	logger  *util.MetricsLogger
	timeout time.Duration
}

func NewBridge(p Poster, logger *util.MetricsLogger, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bridge{poster: p, logger: logger, timeout: timeout}
}

// HandleMessage is an mqtt.MessageHandler. Invalid payloads are logged and dropped.
func (b *Bridge) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	reading, err := ParsePayload(msg.Payload())
	if err != nil {
		b.logger.LogEvent(util.LOG_LEVEL_WARN, "Dropping message on", msg.Topic(), ":", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	id, err := b.poster.Post(ctx, reading.Value, reading.Timestamp)
	if err != nil {
		b.logger.LogEvent(util.LOG_LEVEL_ERROR, "Failed to forward reading from", msg.Topic(), ":", err)
		return
	}
	b.logger.LogEvent(util.LOG_LEVEL_DEBUG, "Forwarded reading", reading.Value, "from", msg.Topic(), "as id", id)
}

// Start subscribes the bridge on topic.
func (b *Bridge) Start(c *MQTTClient, topic string, qos byte) error {
	if err := c.Subscribe(topic, qos, b.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	b.logger.LogEvent(util.LOG_LEVEL_INFO, "Bridge subscribed to", topic)
	return nil
}
