// Package config loads the controller's broker settings from a file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"gopkg.in/yaml.v3"
)

// DefaultTopicPrefix is the MQTT topic root when the file does not set one.
const DefaultTopicPrefix = "churchclock"

// PasswordEnv overrides MQTTPassword when set, so the secret can stay out of
// the file.
const PasswordEnv = "MQTT_PASSWORD"

// Config is the content of config.json (or config.yaml).
type Config struct {
	MQTTHost     string `json:"mqtt_host" yaml:"mqtt_host"`
	MQTTPort     uint16 `json:"mqtt_port" yaml:"mqtt_port"`
	MQTTUser     string `json:"mqtt_user" yaml:"mqtt_user"`
	MQTTPassword string `json:"mqtt_password" yaml:"mqtt_password"`
	TopicPrefix  string `json:"topic_prefix,omitempty" yaml:"topic_prefix,omitempty"`
}

// Load reads and validates the configuration at path. The format is chosen by
// extension: .yaml and .yml are YAML, anything else is JSON.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	password, err := env.GetAsString(PasswordEnv, false, cfg.MQTTPassword)
	if err != nil {
		return Config{}, err
	}
	cfg.MQTTPassword = password

	return cfg, nil
}

// Parse decodes and validates configuration data. ext selects the format as in Load.
func Parse(data []byte, ext string) (Config, error) {
	var cfg Config

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	cfg.TopicPrefix = strings.TrimSuffix(cfg.TopicPrefix, "/")

	return cfg, cfg.Validate()
}

// Validate checks that the broker can be addressed.
func (c Config) Validate() error {
	var errs []error
	if c.MQTTHost == "" {
		errs = append(errs, errors.New("mqtt_host is required"))
	}
	if c.MQTTPort == 0 {
		errs = append(errs, errors.New("mqtt_port is required"))
	}
	if strings.ContainsAny(c.TopicPrefix, "+#") {
		errs = append(errs, fmt.Errorf("topic_prefix %q must not contain wildcards", c.TopicPrefix))
	}
	return errors.Join(errs...)
}

// BrokerURL returns the broker address in the form paho expects.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTHost, c.MQTTPort)
}

// String formats the config for logs with the password masked.
func (c Config) String() string {
	password := ""
	if c.MQTTPassword != "" {
		password = "***"
	}
	return fmt.Sprintf("{host=%s port=%d user=%s password=%s prefix=%s}",
		c.MQTTHost, c.MQTTPort, c.MQTTUser, password, c.TopicPrefix)
}
