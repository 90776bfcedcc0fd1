package config

import (
	"time"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "archimport.toml"

type Config struct {
	Version       int           `toml:"version" validate:"gte=1,lte=1"`
	Import        Import        `toml:"import"`
	Classpath     Classpath     `toml:"classpath"`
	Runtime       Runtime       `toml:"runtime"`
	Snapshot      Snapshot      `toml:"snapshot"`
	Neo4j         Neo4j         `toml:"neo4j"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

// Import controls the import pipeline.
type Import struct {
	// Workers bounds concurrent decoding. 1 decodes sequentially.
	Workers int `toml:"workers" validate:"gte=1,lte=1024"`
	// Timeout wraps a whole import run. Zero disables it.
	Timeout               time.Duration `toml:"timeout" validate:"gte=0"`
	ExcludeTests          bool          `toml:"exclude_tests"`
	IncludeArchives       bool          `toml:"include_archives"`
	IncludeRuntimeModules bool          `toml:"include_runtime_modules"`
	// ExcludeLocations are globs matched against location URIs.
	ExcludeLocations  []string `toml:"exclude_locations"`
	ManifestCacheSize int      `toml:"manifest_cache_size" validate:"gte=1"`
}

// Classpath describes the ambient classpath.
type Classpath struct {
	Env     string   `toml:"env" validate:"required"`
	Entries []string `toml:"entries"`
}

// Runtime locates platform modules. ModulesRoot wins over JavaHome.
type Runtime struct {
	ModulesRoot string `toml:"modules_root"`
	JavaHome    string `toml:"java_home"`
}

type Snapshot struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout" validate:"gte=0"`
}

type Neo4j struct {
	Enabled   bool   `toml:"enabled"`
	URI       string `toml:"uri"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	Database  string `toml:"database"`
	BatchSize int    `toml:"batch_size" validate:"gte=1,lte=100000"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce" validate:"gte=0"`
	MinInterval time.Duration `toml:"min_interval" validate:"gte=0"`
	ExcludeDirs []string      `toml:"exclude_dirs"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
