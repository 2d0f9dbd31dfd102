package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type InboundConfig struct {
	AuthToken string `koanf:"auth_token" mapstructure:"auth_token"`
}

type DownstreamConfig struct {
	BaseURL            string `koanf:"base_url" mapstructure:"base_url"`
	AuthToken          string `koanf:"auth_token" mapstructure:"auth_token"`
	CallTimeoutSeconds int    `koanf:"call_timeout_seconds" mapstructure:"call_timeout_seconds"`
}

func (c DownstreamConfig) CallTimeout() time.Duration {
	if c.CallTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

type ProfileConfig struct {
	DefaultCS  string `koanf:"default_cs" mapstructure:"default_cs"`
	DefaultEPS string `koanf:"default_eps" mapstructure:"default_eps"`
}

type IdentifierConfig struct {
	ValidationPattern string `koanf:"validation_pattern" mapstructure:"validation_pattern"`
}

// Compile returns the configured identifier gate, or nil when no pattern is
// set. Loaded once at startup; the compiled expression is immutable.
func (c IdentifierConfig) Compile() (*regexp.Regexp, error) {
	pattern := strings.TrimSpace(c.ValidationPattern)
	if pattern == "" {
		return nil, nil
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("core: invalid identifier validation pattern %q: %w", pattern, err)
	}
	return compiled, nil
}

type Config struct {
	ServiceName string           `koanf:"service_name" mapstructure:"service_name"`
	Inbound     InboundConfig    `koanf:"inbound" mapstructure:"inbound"`
	Downstream  DownstreamConfig `koanf:"downstream" mapstructure:"downstream"`
	Profiles    ProfileConfig    `koanf:"profiles" mapstructure:"profiles"`
	Identifier  IdentifierConfig `koanf:"identifier" mapstructure:"identifier"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "connector",
		Downstream: DownstreamConfig{
			CallTimeoutSeconds: 30,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Inbound.AuthToken) == "" {
		return fmt.Errorf("core: inbound.auth_token is required")
	}
	if strings.TrimSpace(c.Downstream.BaseURL) == "" {
		return fmt.Errorf("core: downstream.base_url is required")
	}
	if strings.TrimSpace(c.Downstream.AuthToken) == "" {
		return fmt.Errorf("core: downstream.auth_token is required")
	}
	if c.Downstream.CallTimeoutSeconds < 0 {
		return fmt.Errorf("core: downstream.call_timeout_seconds must not be negative")
	}
	if _, err := c.Identifier.Compile(); err != nil {
		return err
	}
	return nil
}
