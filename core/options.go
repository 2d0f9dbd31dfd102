package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvRawConfigLoader maps CONNECTOR_* environment variables onto the raw
// configuration tree consumed by cfgx.
type EnvRawConfigLoader struct {
	Prefix string
	Getenv func(string) string
}

func NewEnvRawConfigLoader() *EnvRawConfigLoader {
	return &EnvRawConfigLoader{Prefix: "CONNECTOR", Getenv: os.Getenv}
}

func (l *EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l == nil {
		return map[string]any{}, nil
	}
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	prefix := strings.TrimSpace(l.Prefix)
	if prefix == "" {
		prefix = "CONNECTOR"
	}
	lookup := func(key string) string {
		return strings.TrimSpace(getenv(prefix + "_" + key))
	}

	raw := map[string]any{}
	if value := lookup("SERVICE_NAME"); value != "" {
		raw["service_name"] = value
	}
	if value := lookup("INBOUND_AUTH_TOKEN"); value != "" {
		raw["inbound"] = map[string]any{"auth_token": value}
	}

	downstream := map[string]any{}
	if value := lookup("DOWNSTREAM_BASE_URL"); value != "" {
		downstream["base_url"] = value
	}
	if value := lookup("DOWNSTREAM_AUTH_TOKEN"); value != "" {
		downstream["auth_token"] = value
	}
	if value := lookup("DOWNSTREAM_CALL_TIMEOUT_SECONDS"); value != "" {
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("core: invalid downstream call timeout %q: %w", value, err)
		}
		downstream["call_timeout_seconds"] = seconds
	}
	if len(downstream) > 0 {
		raw["downstream"] = downstream
	}

	profiles := map[string]any{}
	if value := lookup("DEFAULT_CS_PROFILE"); value != "" {
		profiles["default_cs"] = value
	}
	if value := lookup("DEFAULT_EPS_PROFILE"); value != "" {
		profiles["default_eps"] = value
	}
	if len(profiles) > 0 {
		raw["profiles"] = profiles
	}

	if value := lookup("IDENTIFIER_VALIDATION_PATTERN"); value != "" {
		raw["identifier"] = map[string]any{"validation_pattern": value}
	}
	return raw, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults, loaded configuration, and runtime
// overrides through a go-options stack before a final validated build.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.Inbound.AuthToken) != "" {
		layer["inbound"] = map[string]any{
			"auth_token": cfg.Inbound.AuthToken,
		}
	}

	downstream := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Downstream.BaseURL) != "" {
		downstream["base_url"] = cfg.Downstream.BaseURL
	}
	if includeZero || strings.TrimSpace(cfg.Downstream.AuthToken) != "" {
		downstream["auth_token"] = cfg.Downstream.AuthToken
	}
	if includeZero || cfg.Downstream.CallTimeoutSeconds > 0 {
		downstream["call_timeout_seconds"] = cfg.Downstream.CallTimeoutSeconds
	}
	if len(downstream) > 0 {
		layer["downstream"] = downstream
	}

	profiles := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Profiles.DefaultCS) != "" {
		profiles["default_cs"] = cfg.Profiles.DefaultCS
	}
	if includeZero || strings.TrimSpace(cfg.Profiles.DefaultEPS) != "" {
		profiles["default_eps"] = cfg.Profiles.DefaultEPS
	}
	if len(profiles) > 0 {
		layer["profiles"] = profiles
	}

	if includeZero || strings.TrimSpace(cfg.Identifier.ValidationPattern) != "" {
		layer["identifier"] = map[string]any{
			"validation_pattern": cfg.Identifier.ValidationPattern,
		}
	}
	return layer
}
