package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"archimport/internal/core/config"
	"archimport/internal/core/importer"
	"archimport/internal/core/ports"
	"archimport/internal/data/graphexport"
	"archimport/internal/data/snapshot"
	"archimport/internal/engine/location"
	"archimport/internal/shared/observability"
	"archimport/internal/shared/util"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// runtime holds everything one command invocation needs. close releases it
// in reverse order of acquisition.
type runtime struct {
	opts       *cliOptions
	cfg        *config.Config
	configPath string
	paths      config.ResolvedPaths
	logger     *slog.Logger
	out        io.Writer

	importer atomic.Pointer[importer.ClassFileImporter]
	store    *snapshot.Store
	sinks    []ports.ResultSink
	server   *ObservabilityServer
	closers  []func(context.Context) error
}

func newRuntime(cmd *cobra.Command, opts *cliOptions) (*runtime, error) {
	ctx := cmd.Context()
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg)
	applyFlagOverrides(cmd, opts, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	rt := &runtime{opts: opts, cfg: cfg, logger: logger, out: cmd.OutOrStdout()}
	rt.configPath = resolveConfigPath(opts.configPath)
	if rt.paths, err = config.ResolvePaths(cfg, baseDir(rt.configPath)); err != nil {
		return nil, err
	}

	if err := rt.setupObservability(ctx); err != nil {
		rt.close(ctx)
		return nil, err
	}
	if err := rt.setupSinks(ctx); err != nil {
		rt.close(ctx)
		return nil, err
	}
	imp, err := rt.newImporter(cfg)
	if err != nil {
		rt.close(ctx)
		return nil, err
	}
	rt.importer.Store(imp)
	return rt, nil
}

func applyFlagOverrides(cmd *cobra.Command, opts *cliOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Import.Workers = opts.workers
	}
	if flags.Changed("timeout") {
		cfg.Import.Timeout = opts.timeout
	}
	if flags.Changed("exclude-tests") {
		cfg.Import.ExcludeTests = opts.excludeTests
	}
	if flags.Changed("snapshot") {
		cfg.Snapshot.Enabled = opts.snapshot
	}
	if flags.Changed("neo4j") {
		cfg.Neo4j.Enabled = opts.neo4j
	}
	if flags.Changed("metrics-addr") {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
}

// resolveConfigPath returns the config file in effect, or "" when the
// defaults are used.
func resolveConfigPath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	if _, err := os.Stat(config.DefaultFile); err == nil {
		return config.DefaultFile
	}
	return ""
}

func baseDir(configPath string) string {
	if configPath != "" {
		return filepath.Dir(configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	root, err := config.DetectProjectRoot([]string{cwd})
	if err != nil {
		return cwd
	}
	return root
}

func (rt *runtime) setupObservability(ctx context.Context) error {
	shutdown, err := observability.SetupTracing(ctx, rt.cfg.Observability.OTLPEndpoint, versionString)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, shutdown)

	if rt.cfg.Observability.MetricsAddr != "" {
		rt.server = NewObservabilityServer(rt.cfg.Observability.MetricsAddr, rt.health)
		if err := rt.server.Start(ctx); err != nil {
			return err
		}
		rt.closers = append(rt.closers, rt.server.Stop)
	}
	return nil
}

func (rt *runtime) setupSinks(ctx context.Context) error {
	if rt.cfg.Snapshot.Enabled {
		store, err := snapshot.Open(rt.paths.SnapshotPath, rt.cfg.Snapshot.BusyTimeout)
		if err != nil {
			if snapshot.IsCorruptError(err) {
				rt.logger.Error("snapshot database looks corrupt", "path", rt.paths.SnapshotPath)
			}
			return err
		}
		rt.store = store
		rt.sinks = append(rt.sinks, store)
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
	}
	if rt.cfg.Neo4j.Enabled {
		exporter, err := graphexport.Connect(ctx, rt.cfg.Neo4j, rt.logger)
		if err != nil {
			return err
		}
		rt.sinks = append(rt.sinks, exporter)
		rt.closers = append(rt.closers, exporter.Close)
	}
	return nil
}

func (rt *runtime) newImporter(cfg *config.Config) (*importer.ClassFileImporter, error) {
	opts := []importer.Option{
		importer.WithLogger(rt.logger),
		importer.WithSinks(rt.sinks...),
		importer.WithRuntimeModules(location.DiscoverRuntimeModules(rt.paths.ModulesRoot, rt.paths.JavaHome)),
	}
	if len(rt.paths.ClasspathEntries) > 0 {
		opts = append(opts, importer.WithClasspath(location.Classpath{Entries: rt.paths.ClasspathEntries}))
	}
	return importer.New(cfg, opts...)
}

// reload rebuilds the importer from a changed configuration. Sinks and
// observability keep their original settings.
func (rt *runtime) reload(cfg *config.Config) {
	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		rt.logger.Warn("ignoring invalid configuration change", "error", err)
		return
	}
	imp, err := rt.newImporter(cfg)
	if err != nil {
		rt.logger.Warn("ignoring configuration change", "error", err)
		return
	}
	rt.importer.Store(imp)
	rt.logger.Info("configuration reloaded", "path", rt.configPath)
}

func (rt *runtime) current() *importer.ClassFileImporter { return rt.importer.Load() }

// finish renders and optionally reports a result.
func (rt *runtime) finish(res *importer.Result) error {
	fmt.Fprint(rt.out, renderSummary(res))
	return rt.record(res)
}

// record logs memory use and writes the JSON run report when requested.
func (rt *runtime) record(res *importer.Result) error {
	rt.logger.Debug("memory after import", "heap_mb", util.HeapAllocMB())
	if rt.opts.report != "" {
		if err := util.WriteJSONWithDirs(rt.opts.report, newRunReport(res)); err != nil {
			return fmt.Errorf("write report %s: %w", rt.opts.report, err)
		}
	}
	return nil
}

func (rt *runtime) health(ctx context.Context) HealthStatus {
	status := HealthStatus{Status: "up", Version: versionString}
	if rt.store == nil {
		return status
	}
	run, ok, err := rt.store.LatestRun(ctx)
	switch {
	case err != nil:
		status.Status = "degraded"
		status.Error = err.Error()
	case ok:
		status.LastRun = run.ID
		status.LastRunAt = run.Started
	}
	return status
}

func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.logger.Warn("shutdown step failed", "error", err)
		}
	}
	rt.closers = nil
}

// withRuntime wraps a command body with runtime setup and teardown.
func withRuntime(opts *cliOptions, body func(cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd, opts)
		if err != nil {
			return err
		}
		defer rt.close(context.WithoutCancel(cmd.Context()))
		return body(cmd, rt, args)
	}
}
