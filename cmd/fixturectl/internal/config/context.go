package config

import (
	"context"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/internal/client"
)

type contextKey string

const configKey contextKey = "fixturectl-config"

// GlobalConfig holds shared state for all fixturectl commands.
// The root command's PersistentPreRunE injects it into the command context.
type GlobalConfig struct {
	Settings       *Config
	ClientProvider *client.Provider
}

// InjectConfig adds cfg to ctx.
func InjectConfig(ctx context.Context, cfg *GlobalConfig) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from ctx.
// Returns (nil, false) if config is not present.
func FromContext(ctx context.Context) (*GlobalConfig, bool) {
	cfg, ok := ctx.Value(configKey).(*GlobalConfig)
	return cfg, ok
}

// MustFromContext retrieves config from ctx or panics.
// Only use it in RunE functions, after the root command has run.
func MustFromContext(ctx context.Context) *GlobalConfig {
	cfg, ok := FromContext(ctx)
	if !ok {
		panic("fixturectl: config not found in context - this is a bug in fixturectl")
	}
	return cfg
}
