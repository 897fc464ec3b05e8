package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Web       WebConfig
	Defaults  DefaultsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string // face embedding sidecar URL, defaults to http://localhost:8000
	Dim int    // embedding dimensionality, defaults to 512 (InsightFace); must match the faces.embedding column width
}

type WebConfig struct {
	APIToken string // static bearer token; empty disables auth (development)
}

// DefaultsConfig holds the tunable algorithm parameters shipped with the
// binary. Callers may override per request; these are the fallbacks.
type DefaultsConfig struct {
	Cluster ClusterDefaults `yaml:"cluster"`
	Match   MatchDefaults   `yaml:"match"`
}

type ClusterDefaults struct {
	Eps        float64 `yaml:"eps"`
	MinSamples int     `yaml:"min_samples"`
}

type MatchDefaults struct {
	Tolerance float64 `yaml:"tolerance"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var defaults DefaultsConfig
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// Embedded file, so this can only fail on a bad commit.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Web: WebConfig{
			APIToken: os.Getenv("API_TOKEN"),
		},
		Defaults: defaults,
	}
}
