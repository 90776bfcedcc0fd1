package config

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty or
// names the default file and it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Import.Workers <= 0 {
		cfg.Import.Workers = runtime.NumCPU()
	}
	if cfg.Import.ManifestCacheSize <= 0 {
		cfg.Import.ManifestCacheSize = 512
	}

	if strings.TrimSpace(cfg.Classpath.Env) == "" {
		cfg.Classpath.Env = "CLASSPATH"
	}

	if strings.TrimSpace(cfg.Snapshot.Path) == "" {
		cfg.Snapshot.Path = "archimport.db"
	}
	if cfg.Snapshot.BusyTimeout <= 0 {
		cfg.Snapshot.BusyTimeout = 5 * time.Second
	}

	if strings.TrimSpace(cfg.Neo4j.URI) == "" {
		cfg.Neo4j.URI = "neo4j://localhost:7687"
	}
	if strings.TrimSpace(cfg.Neo4j.User) == "" {
		cfg.Neo4j.User = "neo4j"
	}
	if strings.TrimSpace(cfg.Neo4j.Database) == "" {
		cfg.Neo4j.Database = "neo4j"
	}
	if cfg.Neo4j.BatchSize <= 0 {
		cfg.Neo4j.BatchSize = 1000
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MinInterval == 0 {
		cfg.Watch.MinInterval = 2 * time.Second
	}
}

func normalize(cfg *Config) {
	cfg.Classpath.Env = strings.TrimSpace(cfg.Classpath.Env)
	cfg.Classpath.Entries = trimAll(cfg.Classpath.Entries)
	cfg.Import.ExcludeLocations = trimAll(cfg.Import.ExcludeLocations)
	cfg.Watch.ExcludeDirs = trimAll(cfg.Watch.ExcludeDirs)
	cfg.Runtime.ModulesRoot = strings.TrimSpace(cfg.Runtime.ModulesRoot)
	cfg.Runtime.JavaHome = strings.TrimSpace(cfg.Runtime.JavaHome)
	cfg.Snapshot.Path = strings.TrimSpace(cfg.Snapshot.Path)
	cfg.Neo4j.URI = strings.TrimSpace(cfg.Neo4j.URI)
	cfg.Observability.MetricsAddr = strings.TrimSpace(cfg.Observability.MetricsAddr)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
