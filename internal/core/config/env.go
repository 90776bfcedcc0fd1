package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: ARCHIMPORT_[SECTION]_[KEY] (e.g., ARCHIMPORT_IMPORT_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Import
	setEnvInt(&cfg.Import.Workers, "ARCHIMPORT_IMPORT_WORKERS")
	setEnvDuration(&cfg.Import.Timeout, "ARCHIMPORT_IMPORT_TIMEOUT")
	setEnvBool(&cfg.Import.ExcludeTests, "ARCHIMPORT_IMPORT_EXCLUDE_TESTS")
	setEnvBool(&cfg.Import.IncludeArchives, "ARCHIMPORT_IMPORT_INCLUDE_ARCHIVES")
	setEnvBool(&cfg.Import.IncludeRuntimeModules, "ARCHIMPORT_IMPORT_INCLUDE_RUNTIME_MODULES")
	setEnvList(&cfg.Import.ExcludeLocations, "ARCHIMPORT_IMPORT_EXCLUDE_LOCATIONS")

	// Classpath
	setEnvString(&cfg.Classpath.Env, "ARCHIMPORT_CLASSPATH_ENV")

	// Runtime
	setEnvString(&cfg.Runtime.ModulesRoot, "ARCHIMPORT_RUNTIME_MODULES_ROOT")
	setEnvString(&cfg.Runtime.JavaHome, "ARCHIMPORT_RUNTIME_JAVA_HOME")

	// Snapshot
	setEnvBool(&cfg.Snapshot.Enabled, "ARCHIMPORT_SNAPSHOT_ENABLED")
	setEnvString(&cfg.Snapshot.Path, "ARCHIMPORT_SNAPSHOT_PATH")

	// Neo4j
	setEnvBool(&cfg.Neo4j.Enabled, "ARCHIMPORT_NEO4J_ENABLED")
	setEnvString(&cfg.Neo4j.URI, "ARCHIMPORT_NEO4J_URI")
	setEnvString(&cfg.Neo4j.User, "ARCHIMPORT_NEO4J_USER")
	setEnvSecret(&cfg.Neo4j.Password, "ARCHIMPORT_NEO4J_PASSWORD")
	setEnvString(&cfg.Neo4j.Database, "ARCHIMPORT_NEO4J_DATABASE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "ARCHIMPORT_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "ARCHIMPORT_OBSERVABILITY_OTLP_ENDPOINT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "ARCHIMPORT_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.MinInterval, "ARCHIMPORT_WATCH_MIN_INTERVAL")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvSecret(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = trimAll(strings.Split(val, ","))
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
