// Package config loads the daemon configuration. The primary format is TOML
// with a [server] table and repeated [[oper]] tables; YAML and JSON files are
// accepted by extension. Environment variables override file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the core listener identity.
type ServerConfig struct {
	Name     string `yaml:"name" toml:"name" json:"name" env:"AYAME_SERVER_NAME" validate:"required"`
	Host     string `yaml:"host" toml:"host" json:"host" env:"AYAME_HOST" validate:"required"`
	Port     int    `yaml:"port" toml:"port" json:"port" env:"AYAME_PORT" validate:"gte=0,lte=65535"`
	MOTDPath string `yaml:"motd_path" toml:"motd_path" json:"motd_path" env:"AYAME_MOTD_PATH"`
}

// OperConfig is one operator credential entry.
type OperConfig struct {
	Name     string `yaml:"name" toml:"name" json:"name" validate:"required"`
	Password string `yaml:"password" toml:"password" json:"password" validate:"required"`
}

// MetricsConfig controls the optional Prometheus HTTP listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"AYAME_METRICS_ENABLED"`
	Host    string `yaml:"host" toml:"host" json:"host" env:"AYAME_METRICS_HOST"`
	Port    int    `yaml:"port" toml:"port" json:"port" env:"AYAME_METRICS_PORT" validate:"gte=0,lte=65535"`
}

// Config represents the daemon configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server" json:"server" validate:"required"`
	Opers   []OperConfig  `yaml:"oper" toml:"oper" json:"oper" validate:"dive"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics" json:"metrics"`

	// Configuration source for rehashing
	Source string `yaml:"-" toml:"-" json:"-"`
}

var validate = validator.New()

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Name = "ayame"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 6667
	cfg.Server.MOTDPath = "motd.txt"
	cfg.Metrics.Host = "127.0.0.1"
	cfg.Metrics.Port = 9667
	return cfg
}

// Load loads configuration from a file. A missing file is not an error; the
// defaults (plus any environment overrides) are returned instead.
func Load(source string) (*Config, error) {
	cfg := defaults()
	cfg.Source = source

	if err := cfg.loadFromFile(source); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Reload re-reads the configuration from its original source.
func (c *Config) Reload() error {
	newCfg, err := Load(c.Source)
	if err != nil {
		return err
	}

	*c = *newCfg
	return nil
}

// loadFromFile reads and parses a configuration file by extension.
func (c *Config) loadFromFile(source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(source, ".yaml") || strings.HasSuffix(source, ".yml"):
		err = yaml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".json"):
		err = json.Unmarshal(data, c)
	default:
		// TOML is the primary format
		err = toml.Unmarshal(data, c)
	}

	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	applyEnvOverridesRecursive(reflect.ValueOf(cfg).Elem())
}

func applyEnvOverridesRecursive(v reflect.Value) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		// Skip unexported fields
		if field.PkgPath != "" {
			continue
		}

		envTag := field.Tag.Get("env")

		if envTag != "" {
			if envValue, exists := os.LookupEnv(envTag); exists {
				setFieldFromEnv(fieldValue, envValue)
			}
		} else if field.Type.Kind() == reflect.Struct {
			applyEnvOverridesRecursive(fieldValue)
		}
	}
}

// setFieldFromEnv sets a field's value from an environment variable
func setFieldFromEnv(field reflect.Value, envValue string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var v int64
		if _, err := fmt.Sscanf(envValue, "%d", &v); err == nil {
			field.SetInt(v)
		}
	case reflect.Bool:
		s := strings.ToLower(envValue)
		field.SetBool(s == "true" || s == "1" || s == "yes" || s == "y")
	}
}

// OperPasswords returns the operator credential map.
func (c *Config) OperPasswords() map[string]string {
	creds := make(map[string]string, len(c.Opers))
	for _, oper := range c.Opers {
		creds[oper.Name] = oper.Password
	}
	return creds
}

// GetListenAddress returns the formatted listen address for the server
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetMetricsAddress returns the formatted listen address for the metrics listener
func (c *Config) GetMetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Metrics.Host, c.Metrics.Port)
}
