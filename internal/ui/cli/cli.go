// Package cli implements the archimport command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	domainerrors "archimport/internal/core/errors"

	"github.com/spf13/cobra"
)

const versionString = "0.3.0"

type cliOptions struct {
	configPath   string
	verbose      bool
	workers      int
	timeout      time.Duration
	excludeTests bool
	snapshot     bool
	neo4j        bool
	metricsAddr  string
	report       string

	// classpath
	includeArchives bool
	includeRuntime  bool
	onlyModules     []string
	includeGlobs    []string

	// diagram
	format string
	output string
	inject string
	marker string

	// runs
	limit int

	// watch
	ui bool
}

// Run executes the command line and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("error: ")+err.Error())
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	code, ok := domainerrors.CodeOf(err)
	switch {
	case !ok:
		return 1
	case code == domainerrors.CodeValidationError:
		return 2
	case code == domainerrors.CodeTimeout:
		return 3
	default:
		return 1
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "archimport",
		Short:         "Import compiled Java classes into a queryable class graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config file (default ./archimport.toml when present)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.IntVar(&opts.workers, "workers", 0, "Decode workers (overrides import.workers)")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Abort an import after this duration (overrides import.timeout)")
	pf.BoolVar(&opts.excludeTests, "exclude-tests", false, "Skip classes from test output locations")
	pf.BoolVar(&opts.snapshot, "snapshot", false, "Store results in the snapshot database")
	pf.BoolVar(&opts.neo4j, "neo4j", false, "Export results to Neo4j")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.StringVar(&opts.report, "report", "", "Write a JSON run report to this path")

	root.AddCommand(
		newImportCommand(opts, false),
		newImportCommand(opts, true),
		newClasspathCommand(opts),
		newPackagesCommand(opts),
		newClassesCommand(opts),
		newWatchCommand(opts),
		newDiagramCommand(opts),
		newRunsCommand(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version and exit",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "archimport v%s\n", versionString)
			},
		},
	)
	return root
}

var errNoArgs = errors.New("at least one argument is required")

func requireArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return domainerrors.Wrap(errNoArgs, domainerrors.CodeValidationError, cmd.Name())
	}
	return nil
}
