package executor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearMQTTEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD"} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	clearMQTTEnv(t)
	path := writeConfig(t, `
mqtt:
  broker: tcp://broker.local:1883
  username: planner
  password: secret
  topic_prefix: site/north/
  qos: 2
buffer: 4
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, "pitplan", cfg.MQTT.ClientID)
	assert.Equal(t, "planner", cfg.MQTT.Username)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, 4, cfg.Buffer)
	assert.Equal(t, "site/north/optimizer/in", cfg.MQTT.InTopic())
	assert.Equal(t, "site/north/optimizer/out", cfg.MQTT.OutTopic())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearMQTTEnv(t)
	t.Setenv("MQTT_BROKER", "tcp://env:1883")
	t.Setenv("MQTT_CLIENT_ID", "planner-2")

	path := writeConfig(t, "mqtt:\n  broker: tcp://file:1883\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://env:1883", cfg.MQTT.Broker)
	assert.Equal(t, "planner-2", cfg.MQTT.ClientID)
	assert.Equal(t, DefaultBuffer, cfg.Buffer)
}

func TestLoadConfig_EmptyPathUsesEnvironment(t *testing.T) {
	clearMQTTEnv(t)
	_, err := LoadConfig("")
	assert.Error(t, err, "broker is required")

	t.Setenv("MQTT_BROKER", "tcp://env:1883")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "pitplan/optimizer/in", cfg.MQTT.InTopic())
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
}

func TestLoadConfig_Errors(t *testing.T) {
	clearMQTTEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")

	_, err = LoadConfig(writeConfig(t, "mqtt: [broken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config YAML")

	_, err = LoadConfig(writeConfig(t, "mqtt:\n  broker: tcp://b:1883\n  qos: 3\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "mqtt:\n  broker: tcp://b:1883\n  topic_prefix: site/#\n"))
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	clearMQTTEnv(t)
	cfg := DefaultConfig()
	cfg.MQTT.Broker = "tcp://saved:1883"
	cfg.MQTT.TopicPrefix = "mine"

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, SaveConfig(path, &cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

func TestMQTTConfig_CallerConfig(t *testing.T) {
	cfg := MQTTConfig{Broker: "tcp://broker:1883", ClientID: "plant-a", TopicPrefix: "site"}

	first := cfg.CallerConfig()
	second := cfg.CallerConfig()

	assert.NotEqual(t, cfg.ClientID, first.ClientID, "caller never shares the service id")
	assert.NotEqual(t, first.ClientID, second.ClientID)
	assert.True(t, strings.HasPrefix(first.ClientID, "plant-a-"))
	assert.Equal(t, cfg.InTopic(), first.InTopic())
	assert.Equal(t, cfg.Broker, first.Broker)
	assert.Equal(t, "plant-a", cfg.ClientID)

	empty := MQTTConfig{}.CallerConfig()
	assert.True(t, strings.HasPrefix(empty.ClientID, defaultClientID+"-"))
}
