// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// BindAddr is the address:port the DNS-over-TLS listener binds to.
	BindAddr string `koanf:"bind_addr" validate:"required,hostname_port"`

	// UDPAddr is the address:port the plain UDP listener binds to.
	UDPAddr string `koanf:"udp_addr" validate:"required,hostname_port"`

	// DefaultTTL is the TTL in seconds written into synthesized answers.
	DefaultTTL uint32 `koanf:"default_ttl" validate:"required,gte=1"`

	// CacheSize bounds the number of entries in the response cache.
	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// RateLimit is the per-second admission quota for new TLS connections.
	RateLimit uint `koanf:"rate_limit" validate:"required,gte=1"`

	// Servers are the upstream resolvers recursive lookups are sent to.
	Servers []string `koanf:"servers" validate:"required,min=1,dive,hostname_port"`

	// CertFile and KeyFile locate the PEM certificate chain and PKCS#8
	// private key for the TLS listener.
	CertFile string `koanf:"cert_file" validate:"required"`
	KeyFile  string `koanf:"key_file" validate:"required"`

	// FallbackIP is the IPv4 address answered when resolution fails.
	FallbackIP string `koanf:"fallback_ip" validate:"required,ip4_addr"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// envLoader loads environment variables with the prefix "DNS_", lowercasing
// keys and stripping the prefix. It can be swapped out in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DNS_"))
			// Comma-separated lists (e.g. DNS_SERVERS) become slices.
			if key == "servers" {
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	}), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Load default values using structs provider.
	k.Load(structs.Provider(AppConfig{
		BindAddr:   "0.0.0.0:853",
		UDPAddr:    "0.0.0.0:53",
		DefaultTTL: 60,
		CacheSize:  100,
		RateLimit:  100,
		Servers:    []string{"1.1.1.1:53", "8.8.8.8:53"},
		CertFile:   "certs/cert.pem",
		KeyFile:    "certs/key.pem",
		FallbackIP: "192.168.1.1",
		Env:        "prod",
		LogLevel:   "info",
	}, "koanf"), nil)

	err := envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	// Unmarshal the loaded configuration into AppConfig struct.
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Validate the configuration.
	validate := validator.New(validator.WithRequiredStructEnabled())

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
