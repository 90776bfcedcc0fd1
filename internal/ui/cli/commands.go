package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"archimport/internal/core/config"
	domainerrors "archimport/internal/core/errors"
	"archimport/internal/core/importer"
	"archimport/internal/core/watcher"
	"archimport/internal/data/snapshot"
	"archimport/internal/engine/importopt"
	"archimport/internal/shared/util"
	"archimport/internal/ui/report"

	"github.com/spf13/cobra"
)

func newImportCommand(opts *cliOptions, jars bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import class directories, class files and archives",
		Long: "Import class directories, single class files and archives. Archives are\n" +
			"followed through their manifest Class-Path. Missing paths are reported as\n" +
			"issues; the import fails only when none of the paths can be read.",
	}
	if jars {
		cmd.Use = "jar <archive>..."
		cmd.Short = "Import archives and the archives their manifests reference"
		cmd.Long = ""
	}
	cmd.RunE = withRuntime(opts, func(cmd *cobra.Command, rt *runtime, args []string) error {
		if err := requireArgs(cmd, args); err != nil {
			return err
		}
		var (
			res *importer.Result
			err error
		)
		if jars {
			res, err = rt.current().ImportJars(cmd.Context(), args...)
		} else {
			res, err = rt.current().ImportPaths(cmd.Context(), args...)
		}
		if err != nil {
			return err
		}
		return rt.finish(res)
	})
	return cmd
}

func newClasspathCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classpath",
		Short: "Import the ambient classpath and the runtime modules",
		Long: "Import the configured or $CLASSPATH classpath together with the platform\n" +
			"runtime modules. By default archives and runtime modules are skipped;\n" +
			"the flags below replace that default.",
		Args: cobra.NoArgs,
	}
	cmd.RunE = withRuntime(opts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
		importOpts, override, err := classpathOptions(cmd, opts, rt.cfg)
		if err != nil {
			return err
		}
		var res *importer.Result
		if override {
			res, err = rt.current().ImportClasspathWith(cmd.Context(), importOpts)
		} else {
			res, err = rt.current().ImportClasspath(cmd.Context())
		}
		if err != nil {
			return err
		}
		return rt.finish(res)
	})

	flags := cmd.Flags()
	flags.BoolVar(&opts.includeArchives, "include-archives", false, "Include classes from jar and zip archives")
	flags.BoolVar(&opts.includeRuntime, "include-runtime", false, "Include runtime module classes")
	flags.StringSliceVar(&opts.onlyModules, "only-module", nil, "Restrict runtime modules to these names (implies --include-runtime)")
	flags.StringSliceVar(&opts.includeGlobs, "include", nil, "Only import locations whose URI matches one of these globs")
	return cmd
}

// classpathOptions reports override=false when no classpath flag was given
// so that the configured ambient defaults apply. With any flag set the
// returned options replace those defaults, even when they filter nothing.
func classpathOptions(cmd *cobra.Command, opts *cliOptions, cfg *config.Config) (importopt.Options, bool, error) {
	flags := cmd.Flags()
	if !flags.Changed("include-archives") && !flags.Changed("include-runtime") &&
		!flags.Changed("only-module") && !flags.Changed("include") {
		return importopt.Options{}, false, nil
	}

	var out importopt.Options
	if !opts.includeArchives && !cfg.Import.IncludeArchives {
		out = out.With(importopt.DoNotIncludeJars)
	}
	switch {
	case len(opts.onlyModules) > 0:
		out = out.With(importopt.OnlyModules(opts.onlyModules...))
	case !opts.includeRuntime && !cfg.Import.IncludeRuntimeModules:
		out = out.With(importopt.DoNotIncludeRuntimeModules)
	}
	if len(opts.includeGlobs) > 0 {
		include, err := importopt.IncludePatterns(opts.includeGlobs...)
		if err != nil {
			return importopt.Options{}, false, domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid --include pattern")
		}
		out = out.With(include)
	}
	return out, true, nil
}

func newPackagesCommand(opts *cliOptions) *cobra.Command {
	var of bool
	cmd := &cobra.Command{
		Use:   "packages <package>...",
		Short: "Import packages and their subpackages from the classpath",
	}
	cmd.RunE = withRuntime(opts, func(cmd *cobra.Command, rt *runtime, args []string) error {
		if err := requireArgs(cmd, args); err != nil {
			return err
		}
		var (
			res *importer.Result
			err error
		)
		if of {
			res, err = rt.current().ImportPackagesOf(cmd.Context(), args...)
		} else {
			res, err = rt.current().ImportPackages(cmd.Context(), args...)
		}
		if err != nil {
			return err
		}
		fmt.Fprint(rt.out, renderPackages(res))
		return rt.finish(res)
	})
	cmd.Flags().BoolVar(&of, "of", false, "Treat arguments as class names and import their packages")
	return cmd
}

func newClassesCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes <class>...",
		Short: "Import single classes by fully qualified name",
	}
	cmd.RunE = withRuntime(opts, func(cmd *cobra.Command, rt *runtime, args []string) error {
		if err := requireArgs(cmd, args); err != nil {
			return err
		}
		res, err := rt.current().ImportClasses(cmd.Context(), args...)
		if err != nil {
			return err
		}
		fmt.Fprint(rt.out, renderClasses(res, true))
		return rt.finish(res)
	})
	return cmd
}

func newWatchCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <path>...",
		Short: "Import paths and re-import them whenever class files change",
	}
	cmd.RunE = withRuntime(opts, func(cmd *cobra.Command, rt *runtime, args []string) error {
		if err := requireArgs(cmd, args); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if opts.ui {
			return runWatchUI(ctx, rt, args)
		}
		return runWatch(ctx, rt, args)
	})
	cmd.Flags().BoolVar(&opts.ui, "ui", false, "Show a live dashboard of classes, packages, cycles and issues")
	return cmd
}

func runWatch(ctx context.Context, rt *runtime, roots []string) error {
	reimport := func(ctx context.Context, _ []string) error {
		res, err := rt.current().ImportPaths(ctx, roots...)
		if err != nil {
			return err
		}
		return rt.finish(res)
	}
	if err := reimport(ctx, nil); err != nil {
		return err
	}
	return rt.watch(ctx, roots, reimport)
}

// watch reloads the configuration file on change and re-imports roots on
// class file changes until ctx is done.
func (rt *runtime) watch(ctx context.Context, roots []string, reimport watcher.ReimportFunc) error {
	if rt.configPath != "" {
		cw := config.NewWatcher(rt.configPath, rt.reload)
		if err := cw.Start(ctx); err != nil {
			rt.logger.Warn("configuration reload disabled", "error", err)
		} else {
			defer cw.Stop()
		}
	}

	session := watcher.NewSession(watcher.SessionConfig{
		Debounce:    rt.cfg.Watch.Debounce,
		MinInterval: rt.cfg.Watch.MinInterval,
		ExcludeDirs: rt.cfg.Watch.ExcludeDirs,
	}, reimport, rt.logger)
	return session.Run(ctx, roots)
}

func newDiagramCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagram <path>...",
		Short: "Render the package dependencies of imported paths",
		Long: "Import paths and render their package dependencies as Graphviz DOT or a\n" +
			"Mermaid flowchart, or list class dependencies as TSV. Package cycles are\n" +
			"highlighted.",
	}
	cmd.RunE = withRuntime(opts, func(cmd *cobra.Command, rt *runtime, args []string) error {
		if err := requireArgs(cmd, args); err != nil {
			return err
		}
		if opts.inject != "" && opts.format != "mermaid" {
			return domainerrors.New(domainerrors.CodeValidationError, "--inject requires --format mermaid")
		}
		res, err := rt.current().ImportPaths(cmd.Context(), args...)
		if err != nil {
			return err
		}

		pg := res.PackageDependencies()
		cycles := pg.DetectCycles()
		if len(cycles) > 0 {
			rt.logger.Warn("package cycles detected", "count", len(cycles))
		}

		var out string
		switch opts.format {
		case "dot":
			out, err = report.NewDOTGenerator(pg).Generate(cycles)
		case "mermaid":
			out, err = report.NewMermaidGenerator(pg).Generate(cycles)
		case "tsv":
			out, err = report.NewTSVGenerator(res.Classes).Generate()
		default:
			return domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf("unknown diagram format %q", opts.format))
		}
		if err != nil {
			return err
		}

		switch {
		case opts.inject != "":
			return report.InjectSection(opts.inject, opts.marker, report.Section{Graph: pg, Cycles: cycles, Diagram: out})
		case opts.output != "":
			return util.WriteFileWithDirs(opts.output, []byte(out), 0o644)
		default:
			fmt.Fprint(rt.out, out)
			return nil
		}
	})

	flags := cmd.Flags()
	flags.StringVar(&opts.format, "format", "mermaid", "Output format: dot, mermaid or tsv")
	flags.StringVarP(&opts.output, "output", "o", "", "Write to this file instead of stdout")
	flags.StringVar(&opts.inject, "inject", "", "Replace the marked block of this markdown file")
	flags.StringVar(&opts.marker, "marker", "dependencies", "Marker name used with --inject")
	return cmd
}

func newRunsCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List import runs stored in the snapshot database",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withRuntime(opts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
		store := rt.store
		if store == nil {
			opened, err := snapshot.Open(rt.paths.SnapshotPath, rt.cfg.Snapshot.BusyTimeout)
			if err != nil {
				return err
			}
			defer opened.Close()
			store = opened
		}
		runs, err := store.Runs(cmd.Context(), opts.limit)
		if err != nil {
			return err
		}
		fmt.Fprint(rt.out, renderRuns(runs))
		return nil
	})
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum number of runs to list (0 lists all)")
	return cmd
}
