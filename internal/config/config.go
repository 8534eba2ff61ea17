package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	URL    string `yaml:"url"`
	Key    string `yaml:"key"`
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
}

// LoadConfig reads the yaml config at path. A .env file in the working
// directory and SUPABASE_* environment variables override file values,
// so deployments can keep credentials out of the config file.
func LoadConfig(path string) (*Config, error) {
	// a missing .env is fine, the config file may carry everything
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_KEY"); v != "" {
		cfg.Database.Key = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Database.Debug = debug
		}
	}

	return &cfg, nil
}
