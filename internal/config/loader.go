package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/consul"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/etcd"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
)

// SourceType identifies where the base configuration document is loaded
// from, before the POLWATCH_ environment overlay is applied.
type SourceType string

const (
	SourceFile   SourceType = "file"
	SourceConsul SourceType = "consul"
	SourceEtcd   SourceType = "etcd"
)

// ParseSourceType converts a string (as found in a CLI flag or an env var)
// into a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "":
		return SourceFile, nil
	case "consul":
		return SourceConsul, nil
	case "etcd":
		return SourceEtcd, nil
	default:
		return "", fmt.Errorf("invalid config source: %s (valid: file, consul, etcd)", s)
	}
}

// LoaderOptions parameterizes one Load call.
type LoaderOptions struct {
	// Type selects the base document source. Default: SourceFile.
	Type SourceType
	// Path is a file path (SourceFile) or a key path (SourceConsul,
	// SourceEtcd).
	Path string
	// Endpoints lists remote addresses for SourceConsul/SourceEtcd.
	Endpoints []string
	// EnvPrefix is the environment-variable prefix applied as the final
	// override layer. Default: "POLWATCH_".
	EnvPrefix string
}

// Load resolves a Config from layered sources: compiled defaults, an
// optional base document (file/consul/etcd), then environment variables
// under EnvPrefix, each overriding the last. The result is defaulted and
// validated before being returned.
func Load(opts LoaderOptions) (*Config, error) {
	if opts.Type == "" {
		opts.Type = SourceFile
	}
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "POLWATCH_"
	}

	k := koanf.New(".")

	if opts.Path != "" {
		provider, parser, err := buildProvider(opts)
		if err != nil {
			return nil, err
		}
		if err := k.Load(provider, parser); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", opts.Type, err)
		}
	}

	envProvider := env.ProviderWithValue(opts.EnvPrefix, ".", func(key, value string) (string, interface{}) {
		trimmed := strings.TrimPrefix(key, opts.EnvPrefix)
		path := strings.ToLower(strings.ReplaceAll(trimmed, "_", "."))
		return path, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	cfg := &Config{}
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "yaml",
			WeaklyTypedInput: true, // env values arrive as strings; let ints/bools convert
		},
	}
	if err := k.UnmarshalWithConf("", cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func buildProvider(opts LoaderOptions) (koanf.Provider, koanf.Parser, error) {
	switch opts.Type {
	case SourceFile:
		return file.Provider(opts.Path), yaml.Parser(), nil

	case SourceConsul:
		endpoint := "localhost:8500"
		if len(opts.Endpoints) > 0 {
			endpoint = opts.Endpoints[0]
		}
		consulCfg := api.DefaultConfig()
		consulCfg.Address = endpoint
		return consul.Provider(consul.Config{Cfg: consulCfg, Key: opts.Path}), yaml.Parser(), nil

	case SourceEtcd:
		endpoints := opts.Endpoints
		if len(endpoints) == 0 {
			endpoints = []string{"localhost:2379"}
		}
		return etcd.Provider(etcd.Config{
			Endpoints:   endpoints,
			DialTimeout: 5 * time.Second,
			Key:         opts.Path,
		}), yaml.Parser(), nil

	default:
		return nil, nil, fmt.Errorf("unsupported config source: %s", opts.Type)
	}
}
