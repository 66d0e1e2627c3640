package executor

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds settings for running the executor as a service.
type Config struct {
	MQTT   MQTTConfig `yaml:"mqtt"`
	Buffer int        `yaml:"buffer,omitempty"` // executor channel capacity
}

// MQTTConfig holds MQTT connection settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	QoS         byte   `yaml:"qos,omitempty"`
}

const (
	defaultClientID    = "pitplan"
	defaultTopicPrefix = "pitplan"
)

// DefaultConfig returns the settings used for fields a config file leaves empty.
func DefaultConfig() Config {
	return Config{
		MQTT: MQTTConfig{
			ClientID:    defaultClientID,
			TopicPrefix: defaultTopicPrefix,
			QoS:         1,
		},
		Buffer: DefaultBuffer,
	}
}

// CallerConfig returns a copy whose client id is unique to this connection.
// Brokers disconnect an existing session when another connects with the same
// id, so a caller must never reuse the id the executor service connects with.
func (c MQTTConfig) CallerConfig() MQTTConfig {
	base := c.ClientID
	if base == "" {
		base = defaultClientID
	}
	c.ClientID = base + "-" + uuid.New().String()[:8]
	return c
}

// InTopic carries start and stop messages.
func (c MQTTConfig) InTopic() string {
	return strings.TrimSuffix(c.TopicPrefix, "/") + "/optimizer/in"
}

// OutTopic carries progress and done messages.
func (c MQTTConfig) OutTopic() string {
	return strings.TrimSuffix(c.TopicPrefix, "/") + "/optimizer/out"
}

// LoadConfig loads the configuration from a YAML file. Environment variables
// MQTT_BROKER, MQTT_CLIENT_ID, MQTT_USERNAME and MQTT_PASSWORD take precedence
// over the file. An empty path loads defaults plus the environment.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		c.MQTT.ClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = defaultClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = defaultTopicPrefix
	}
	if c.Buffer <= 0 {
		c.Buffer = DefaultBuffer
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if strings.ContainsAny(c.MQTT.TopicPrefix, "#+") {
		return fmt.Errorf("mqtt.topic_prefix must not contain wildcards: %s", c.MQTT.TopicPrefix)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
