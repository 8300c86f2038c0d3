// Package config loads server settings from defaults, an optional YAML file
// and the environment, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/geosync/config.yaml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Relay     RelayConfig     `koanf:"relay"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins" validate:"min=1"`
	// StaticDir, when set, is served under /app/ (a built web client).
	StaticDir string `koanf:"static_dir"`
}

type WebSocketConfig struct {
	ReadBufferSize  int   `koanf:"read_buffer_size" validate:"min=0"`
	WriteBufferSize int   `koanf:"write_buffer_size" validate:"min=0"`
	MaxMessageSize  int64 `koanf:"max_message_size" validate:"gt=0"`
	SendBuffer      int   `koanf:"send_buffer" validate:"gt=0"`
	// UpgradeRate caps new connections per client IP per UpgradeWindow.
	// Zero disables the limit.
	UpgradeRate   int           `koanf:"upgrade_rate" validate:"min=0"`
	UpgradeWindow time.Duration `koanf:"upgrade_window" validate:"gt=0"`
}

type RelayConfig struct {
	AnnounceReconnect bool `koanf:"announce_reconnect"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Addr is the listen address for http.Server.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            5000,
			ShutdownTimeout: 5 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  4 * 1024,
			SendBuffer:      64,
			UpgradeRate:     30,
			UpgradeWindow:   time.Minute,
		},
		Relay: RelayConfig{
			AnnounceReconnect: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envKeys maps the environment variables we honor to config paths.
var envKeys = map[string]string{
	"HTTP_HOST":                "server.host",
	"PORT":                     "server.port",
	"SHUTDOWN_TIMEOUT":         "server.shutdown_timeout",
	"CORS_ORIGINS":             "server.cors_origins",
	"STATIC_DIR":               "server.static_dir",
	"WS_READ_BUFFER_SIZE":      "websocket.read_buffer_size",
	"WS_WRITE_BUFFER_SIZE":     "websocket.write_buffer_size",
	"WS_MAX_MESSAGE_SIZE":      "websocket.max_message_size",
	"WS_SEND_BUFFER":           "websocket.send_buffer",
	"WS_UPGRADE_RATE":          "websocket.upgrade_rate",
	"WS_UPGRADE_WINDOW":        "websocket.upgrade_window",
	"RELAY_ANNOUNCE_RECONNECT": "relay.announce_reconnect",
	"LOG_LEVEL":                "logging.level",
	"LOG_FORMAT":               "logging.format",
	"LOG_CALLER":               "logging.caller",
}

func envKey(key string) string {
	return envKeys[key]
}

// sliceKeys arrive from the environment as comma-separated strings.
var sliceKeys = []string{"server.cors_origins"}

// Load builds the configuration: defaults, then the first config file found,
// then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitSlices(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
