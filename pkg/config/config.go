package config

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/tzprobe/pkg/config/definition"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config represents the complete configuration of a probe run.
type Config struct {
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Probe    ProbeConfig    `koanf:"probe"    validate:"required"`
	Runtime  RuntimeConfig  `koanf:"runtime"  validate:"required"`
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	ConnString     string          `koanf:"conn_string"     env:"TZPROBE_DB_CONN_STRING"`
	Host           string          `koanf:"host"            env:"TZPROBE_DB_HOST"`
	Port           int             `koanf:"port"            env:"TZPROBE_DB_PORT"            validate:"min=0,max=65535"`
	Name           string          `koanf:"name"            env:"TZPROBE_DB_NAME"`
	User           string          `koanf:"user"            env:"TZPROBE_DB_USER"`
	Password       SensitiveString `koanf:"password"        env:"TZPROBE_DB_PASSWORD"        sensitive:"true"`
	SSLMode        string          `koanf:"ssl_mode"        env:"TZPROBE_DB_SSL_MODE"        validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout time.Duration   `koanf:"connect_timeout" env:"TZPROBE_DB_CONNECT_TIMEOUT" validate:"min=0"`
}

// ProbeConfig describes the demo table and the zone assumptions under test.
type ProbeConfig struct {
	Schema               string `koanf:"schema"                  env:"TZPROBE_SCHEMA"                  validate:"required,sql_identifier"`
	Table                string `koanf:"table"                   env:"TZPROBE_TABLE"                   validate:"required,sql_identifier"`
	DropTableAfterFinish bool   `koanf:"drop_table_after_finish" env:"TZPROBE_DROP_TABLE_AFTER_FINISH"`
	ProcessZone          string `koanf:"process_zone"            env:"TZPROBE_PROCESS_ZONE"            validate:"required,iana_zone"`
	AppZone              string `koanf:"app_zone"                env:"TZPROBE_APP_ZONE"                validate:"required,iana_zone"`
	Reference            string `koanf:"reference"               env:"TZPROBE_REFERENCE"               validate:"required,civil_datetime"`
}

// RuntimeConfig contains process level settings.
type RuntimeConfig struct {
	LogLevel string `koanf:"log_level" env:"TZPROBE_LOG_LEVEL" validate:"oneof=debug info warn error disabled"`
	LogJSON  bool   `koanf:"log_json"  env:"TZPROBE_LOG_JSON"`
}

// Service defines the interface for configuration management.
type Service interface {
	// Load reads configuration from the given sources, highest precedence last.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks struct tag and cross-field constraints.
	Validate(config *Config) error
	// GetSource returns the source that provided a key.
	GetSource(key string) SourceType
}

// Source is a provider of raw configuration values.
type Source interface {
	Load() (map[string]any, error)
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration from defaults and the environment only.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config populated from the field registry.
func Default() *Config {
	registry := definition.CreateRegistry()
	return &Config{
		Database: buildDatabaseConfig(registry),
		Probe:    buildProbeConfig(registry),
		Runtime:  buildRuntimeConfig(registry),
	}
}

// Flatten returns cfg as dot-notation keys. Secrets keep their
// SensitiveString type and print redacted.
func Flatten(cfg *Config) (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to flatten configuration: %w", err)
	}
	return k.All(), nil
}

func getString(registry *definition.Registry, path string) string {
	if val := registry.GetDefault(path); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(registry *definition.Registry, path string) int {
	if val := registry.GetDefault(path); val != nil {
		if i, ok := val.(int); ok {
			return i
		}
	}
	return 0
}

func getBool(registry *definition.Registry, path string) bool {
	if val := registry.GetDefault(path); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func getDuration(registry *definition.Registry, path string) time.Duration {
	if val := registry.GetDefault(path); val != nil {
		if d, ok := val.(time.Duration); ok {
			return d
		}
	}
	return 0
}

func buildDatabaseConfig(registry *definition.Registry) DatabaseConfig {
	return DatabaseConfig{
		ConnString:     getString(registry, "database.conn_string"),
		Host:           getString(registry, "database.host"),
		Port:           getInt(registry, "database.port"),
		Name:           getString(registry, "database.name"),
		User:           getString(registry, "database.user"),
		Password:       SensitiveString(getString(registry, "database.password")),
		SSLMode:        getString(registry, "database.ssl_mode"),
		ConnectTimeout: getDuration(registry, "database.connect_timeout"),
	}
}

func buildProbeConfig(registry *definition.Registry) ProbeConfig {
	return ProbeConfig{
		Schema:               getString(registry, "probe.schema"),
		Table:                getString(registry, "probe.table"),
		DropTableAfterFinish: getBool(registry, "probe.drop_table_after_finish"),
		ProcessZone:          getString(registry, "probe.process_zone"),
		AppZone:              getString(registry, "probe.app_zone"),
		Reference:            getString(registry, "probe.reference"),
	}
}

func buildRuntimeConfig(registry *definition.Registry) RuntimeConfig {
	return RuntimeConfig{
		LogLevel: getString(registry, "runtime.log_level"),
		LogJSON:  getBool(registry, "runtime.log_json"),
	}
}
