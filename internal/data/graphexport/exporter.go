// Package graphexport mirrors import results into Neo4j so the class graph
// can be explored with Cypher.
package graphexport

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"archimport/internal/core/config"
	"archimport/internal/core/ports"
	"archimport/internal/engine/graph"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const defaultBatchSize = 1000

var _ ports.GraphExporter = (*Exporter)(nil)

// Runner executes one Cypher statement.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
	Close(ctx context.Context) error
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	_, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

func (r *driverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Exporter loads class graphs into Neo4j using batched UNWIND statements.
// Nodes are merged by name; nodes not touched by the latest run are removed.
type Exporter struct {
	runner    Runner
	batchSize int
	logger    *slog.Logger
}

// Connect opens a driver for cfg and verifies that the server is reachable.
func Connect(ctx context.Context, cfg config.Neo4j, logger *slog.Logger) (*Exporter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j at %s is not reachable: %w", cfg.URI, err)
	}
	return New(&driverRunner{driver: driver, database: cfg.Database}, cfg.BatchSize, logger), nil
}

// New wraps an existing runner. A batch size of zero or less uses 1000.
func New(runner Runner, batchSize int, logger *slog.Logger) *Exporter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{runner: runner, batchSize: batchSize, logger: logger}
}

func (e *Exporter) Name() string { return "neo4j" }

func (e *Exporter) Close(ctx context.Context) error {
	return e.runner.Close(ctx)
}

// Consume exports classes, stubs, packages and their relationships, then
// drops whatever an earlier run left behind.
func (e *Exporter) Consume(ctx context.Context, run ports.RunInfo, classes *graph.Classes) error {
	if classes == nil {
		return nil
	}
	if err := e.createIndexes(ctx); err != nil {
		return err
	}

	rows := collectRows(run.ID, classes)
	steps := []struct {
		label  string
		cypher string
		batch  []map[string]any
	}{
		{"packages", mergePackages, rows.packages},
		{"package nesting", mergePackageNesting, rows.nesting},
		{"classes", mergeClasses, rows.classes},
		{"stale edges", clearOutgoingEdges, rows.classes},
		{"extends edges", mergeExtends, rows.extends},
		{"implements edges", mergeImplements, rows.implements},
		{"dependency edges", mergeDependencies, rows.dependencies},
	}
	for _, step := range steps {
		e.logger.Debug("exporting to neo4j", "run_id", run.ID, "kind", step.label, "rows", len(step.batch))
		if err := e.runBatched(ctx, step.cypher, step.batch); err != nil {
			return fmt.Errorf("export %s: %w", step.label, err)
		}
	}

	for _, q := range pruneStale {
		if err := e.runner.Run(ctx, q, map[string]any{"run": run.ID}); err != nil {
			return fmt.Errorf("prune stale nodes: %w", err)
		}
	}
	e.logger.Info("exported class graph to neo4j", "run_id", run.ID,
		"classes", len(rows.classes), "packages", len(rows.packages))
	return nil
}

func (e *Exporter) createIndexes(ctx context.Context) error {
	for _, q := range indexes {
		if err := e.runner.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	}
	return nil
}

func (e *Exporter) runBatched(ctx context.Context, cypher string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+e.batchSize, len(rows))
		if err := e.runner.Run(ctx, cypher, map[string]any{"batch": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

type exportRows struct {
	packages     []map[string]any
	nesting      []map[string]any
	classes      []map[string]any
	extends      []map[string]any
	implements   []map[string]any
	dependencies []map[string]any
}

func collectRows(runID string, classes *graph.Classes) exportRows {
	var rows exportRows

	for _, pkg := range classes.DefaultPackage().AllSubpackages() {
		rows.packages = append(rows.packages, map[string]any{"name": pkg.Name(), "run": runID})
		if parent := pkg.Parent(); parent != nil && !parent.IsDefault() {
			rows.nesting = append(rows.nesting, map[string]any{"parent": parent.Name(), "child": pkg.Name()})
		}
	}

	classes.Each(func(c *graph.Class) bool {
		rows.classes = append(rows.classes, map[string]any{
			"name":        c.Name(),
			"simple_name": c.SimpleName(),
			"package":     c.PackageName(),
			"stub":        false,
			"interface":   c.IsInterface(),
			"modifiers":   int64(c.Modifiers()),
			"uri":         c.Source().URI(),
			"source_file": c.SourceFile(),
			"run":         runID,
		})
		if super, ok := c.Superclass(); ok {
			rows.extends = append(rows.extends, map[string]any{"from": c.Name(), "to": super.Name()})
		}
		for _, iface := range c.Interfaces() {
			rows.implements = append(rows.implements, map[string]any{"from": c.Name(), "to": iface.Name()})
		}
		for _, dep := range c.DirectDependencies() {
			rows.dependencies = append(rows.dependencies, map[string]any{"from": c.Name(), "to": dep.Name()})
		}
		return true
	})

	stubs := classes.Stubs()
	sort.Strings(stubs)
	for _, name := range stubs {
		stub, ok := classes.Lookup(name)
		if !ok {
			continue
		}
		rows.classes = append(rows.classes, map[string]any{
			"name":        stub.Name(),
			"simple_name": stub.SimpleName(),
			"package":     stub.PackageName(),
			"stub":        true,
			"interface":   false,
			"modifiers":   int64(0),
			"uri":         "",
			"source_file": "",
			"run":         runID,
		})
	}
	return rows
}
