package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"fieldcore/config"
)

// Client publishes envelopes over the configured backend. The "none" backend
// discards messages so single-site installs run without a broker.
type Client struct {
	mu      sync.Mutex
	cfg     *config.MessagingConfig
	backend string

	kafkaWriter *kafka.Writer
	mqttClient  mqtt.Client
}

func NewClient(cfg *config.MessagingConfig) *Client {
	return &Client{cfg: cfg, backend: cfg.Backend}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	switch c.backend {
	case "kafka":
		c.kafkaWriter = &kafka.Writer{
			Addr:         kafka.TCP(c.cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		}
		return nil
	case "mqtt":
		opts := mqtt.NewClientOptions().
			AddBroker(c.cfg.MQTT.BrokerURL).
			SetClientID(c.cfg.MQTT.ClientID).
			SetUsername(c.cfg.MQTT.Username).
			SetPassword(c.cfg.MQTT.Password).
			SetAutoReconnect(true).
			SetConnectTimeout(5 * time.Second)
		client := mqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(5 * time.Second) {
			return fmt.Errorf("mqtt connect timeout (%s)", c.cfg.MQTT.BrokerURL)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		c.mqttClient = client
		return nil
	case "none":
		return nil
	default:
		return fmt.Errorf("unknown messaging backend: %s", c.backend)
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kafkaWriter != nil {
		c.kafkaWriter.Close()
		c.kafkaWriter = nil
	}
	if c.mqttClient != nil {
		c.mqttClient.Disconnect(250)
		c.mqttClient = nil
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.backend {
	case "kafka":
		return c.kafkaWriter != nil
	case "mqtt":
		return c.mqttClient != nil && c.mqttClient.IsConnected()
	default:
		return false
	}
}

func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.backend {
	case "kafka":
		if c.kafkaWriter == nil {
			return fmt.Errorf("kafka writer not connected")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return c.kafkaWriter.WriteMessages(ctx, kafka.Message{Topic: topic, Value: payload})
	case "mqtt":
		if c.mqttClient == nil || !c.mqttClient.IsConnected() {
			return fmt.Errorf("mqtt client not connected")
		}
		token := c.mqttClient.Publish(topic, 1, false, payload)
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("mqtt publish timeout")
		}
		return token.Error()
	case "none":
		return nil
	default:
		return fmt.Errorf("unknown messaging backend: %s", c.backend)
	}
}

// Reconfigure reconnects with new settings.
func (c *Client) Reconfigure(cfg *config.MessagingConfig) error {
	c.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.backend = cfg.Backend
	return c.connectLocked()
}
