package config

import (
	"context"
	"sync"

	"github.com/compozy/tzprobe/pkg/logger"
)

// ContextKey is an alias used for storing values in context
type ContextKey string

const (
	// ConfigCtxKey is the context key used to store the *Config instance
	ConfigCtxKey ContextKey = "config"
)

var (
	defaultConfig     *Config
	defaultConfigOnce sync.Once
)

// ContextWithConfig stores the configuration in the context
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ConfigCtxKey, cfg)
}

// FromContext returns the configuration attached to ctx. Without one it
// falls back to a lazily loaded configuration built from defaults and the
// environment, mirroring logger.FromContext.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(ConfigCtxKey).(*Config); ok && cfg != nil {
			return cfg
		}
	}
	return getDefaultConfig(ctx)
}

func getDefaultConfig(ctx context.Context) *Config {
	defaultConfigOnce.Do(func() {
		cfg, err := NewService().Load(ctx, NewDefaultProvider(), NewEnvProvider())
		if err != nil {
			logger.FromContext(ctx).Warn("failed to load default configuration, using built-in defaults", "error", err)
			cfg = Default()
		}
		defaultConfig = cfg
	})
	return defaultConfig
}
