package main

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "e2cat"
	appName      = "e2cat"

	// The device the original tool was built against; overridable via flag,
	// environment or config file.
	defaultDevice = "/dev/sdb1"
)

// Config holds startup configuration. Precedence, lowest to highest:
// defaults, YAML config file, environment, command-line flags.
type Config struct {
	Device string `envconfig:"E2CAT_DEVICE" yaml:"device"`
}

// LoadConfig reads the optional YAML config file and then applies
// environment overrides. An empty configFile falls back to the
// E2CAT_CONFIG_FILE environment variable; a missing file is not an error
// unless it was named explicitly.
func LoadConfig(configFile string) (*Config, error) {
	explicit := configFile != ""
	if configFile == "" {
		configFile = os.Getenv("E2CAT_CONFIG_FILE")
		explicit = configFile != ""
	}

	c := Config{Device: defaultDevice}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	return &c, nil
}
