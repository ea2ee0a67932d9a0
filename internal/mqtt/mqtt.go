// Package mqtt mirrors gallery states to an MQTT broker as retained messages,
// so a late subscriber receives the latest overview and detail view at once.
package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/pixalb/internal/conf"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic using the configured QoS and retain flag.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // prefix for the per-channel state topics
	QoS      byte
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		Topic:             "pixalb",
		Retain:            true,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a Config from the mqtt configuration section.
// A missing client id gets a random suffix so parallel instances do not
// kick each other off the broker.
func ConfigFromSettings(s conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.Username = s.Username
	cfg.Password = s.Password
	cfg.QoS = s.QoS
	cfg.Retain = s.Retain
	if topic := strings.Trim(s.Topic, "/"); topic != "" {
		cfg.Topic = topic
	}
	cfg.ClientID = s.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = "pixalb-" + uuid.NewString()[:8]
	}
	return cfg
}

// StateTopic returns the topic a channel's states are published on.
func (c Config) StateTopic(channel string) string {
	return c.Topic + "/" + channel
}
