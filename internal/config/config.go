// ABOUTME: Configuration loading and management for Atlas control tools
// ABOUTME: Supports YAML files with defaults and validation

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/harper/atlas-control/internal/registry"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Devices []DeviceConfig `mapstructure:"devices" yaml:"devices"`
	Client  ClientConfig   `mapstructure:"client" yaml:"client"`
	Meter   MeterConfig    `mapstructure:"meter" yaml:"meter"`
	Logging LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type DeviceConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Host    string `mapstructure:"host" yaml:"host"`
	TCPPort int    `mapstructure:"tcp_port" yaml:"tcp_port"`
	UDPPort int    `mapstructure:"udp_port" yaml:"udp_port,omitempty"`
	Model   string `mapstructure:"model" yaml:"model,omitempty"`
}

type ClientConfig struct {
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout_seconds" yaml:"connect_timeout_seconds"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

type MeterConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

type LoggingConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			ConnectTimeoutSeconds: 5,
			RequestTimeoutSeconds: 5,
		},
		Meter: MeterConfig{
			ListenAddr: ":8090",
		},
	}
}

// Load reads a YAML config. An empty path returns defaults (no devices,
// useful with explicit -host/-port flags).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate applies defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Client.ConnectTimeoutSeconds <= 0 {
		c.Client.ConnectTimeoutSeconds = 5
	}
	if c.Client.RequestTimeoutSeconds <= 0 {
		c.Client.RequestTimeoutSeconds = 5
	}
	if c.Meter.ListenAddr == "" {
		c.Meter.ListenAddr = ":8090"
	}
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if d.Host == "" {
			return fmt.Errorf("devices[%d] (%s): host is required", i, d.Name)
		}
	}
	return nil
}

// ConnectTimeout returns the configured connect timeout as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Client.ConnectTimeoutSeconds) * time.Second
}

// RequestTimeout returns the configured request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Client.RequestTimeoutSeconds) * time.Second
}

// RegistryDevices converts the device entries for registry.New.
func (c *Config) RegistryDevices() []registry.Device {
	out := make([]registry.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		out = append(out, registry.Device{
			Name:    d.Name,
			Host:    d.Host,
			TCPPort: d.TCPPort,
			UDPPort: d.UDPPort,
			Model:   d.Model,
		})
	}
	return out
}

// Save writes the config as YAML, used to scaffold a starter file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
