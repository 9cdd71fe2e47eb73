package vertexfsm

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMaxChainDepth bounds the follow-up events one ProcessEvent call may dispatch
// when the configuration leaves MaxChainDepth unset.
const DefaultMaxChainDepth = 64

// StateMachineConfig tunes runtime policy. The zero value is usable.
type StateMachineConfig struct {
	// ThrowOnUnrecognizedEvent makes ProcessEvent return an UnrecognizedEventError
	// instead of silently ignoring events nothing handles.
	ThrowOnUnrecognizedEvent bool `json:"throwOnUnrecognizedEvent" yaml:"throwOnUnrecognizedEvent" env:"THROW_ON_UNRECOGNIZED_EVENT"`

	// MaxChainDepth caps the events dispatched by one ProcessEvent call,
	// the external event included. Zero means DefaultMaxChainDepth.
	MaxChainDepth int `json:"maxChainDepth,omitempty" yaml:"maxChainDepth,omitempty" env:"MAX_CHAIN_DEPTH"`

	// MaxParallelRegions caps concurrently running regions in a
	// ConcurrentStateMachine. Zero means no limit.
	MaxParallelRegions int `json:"maxParallelRegions,omitempty" yaml:"maxParallelRegions,omitempty" env:"MAX_PARALLEL_REGIONS"`
}

// EnvPrefix is prepended to the env tags of StateMachineConfig.
const EnvPrefix = "VERTEXFSM_"

// Validate rejects negative limits.
func (c StateMachineConfig) Validate() error {
	if c.MaxChainDepth < 0 {
		return configErrorf("maxChainDepth must be non-negative, got %d", c.MaxChainDepth)
	}
	if c.MaxParallelRegions < 0 {
		return configErrorf("maxParallelRegions must be non-negative, got %d", c.MaxParallelRegions)
	}
	return nil
}

func (c StateMachineConfig) chainDepth() int {
	if c.MaxChainDepth == 0 {
		return DefaultMaxChainDepth
	}
	return c.MaxChainDepth
}

// LoadConfig reads a YAML config file and then applies VERTEXFSM_* environment
// overrides. An empty path skips the file. A missing file is an error.
//
// Variables from dotenvFiles are applied as if they were set in the process
// environment, except that real environment variables take precedence.
func LoadConfig(path string, dotenvFiles ...string) (StateMachineConfig, error) {
	var cfg StateMachineConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return StateMachineConfig{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return StateMachineConfig{}, fmt.Errorf("yaml unmarshal %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if len(dotenvFiles) > 0 {
		environ, err := mergedEnvironment(dotenvFiles)
		if err != nil {
			return StateMachineConfig{}, err
		}
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return StateMachineConfig{}, errors.Join(ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return StateMachineConfig{}, err
	}
	return cfg, nil
}

func mergedEnvironment(dotenvFiles []string) (map[string]string, error) {
	environ, err := godotenv.Read(dotenvFiles...)
	if err != nil {
		return nil, fmt.Errorf("read dotenv: %w", err)
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return environ, nil
}

// MarshalConfig encodes c as YAML, in the format LoadConfig reads.
func (c StateMachineConfig) MarshalConfig() ([]byte, error) {
	return yaml.Marshal(c)
}
