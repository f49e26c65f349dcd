package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = "config.yaml"
	configPathEnv     = "CHATSENTRY_CONFIG"
)

// ResolvePath picks the configuration file: the explicit flag value first,
// then CHATSENTRY_CONFIG, then config.yaml in the working directory.
// An empty result means no file was found and defaults apply.
func ResolvePath(flagPath string) string {
	candidates := []string{flagPath, os.Getenv(configPathEnv), defaultConfigFile}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load builds the configuration from defaults, the YAML file at path (if any)
// and the environment. A .env file in the working directory is loaded first so
// that secrets such as the AI API key can live outside config.yaml.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	LoadFromEnv(cfg)
	return cfg, nil
}
