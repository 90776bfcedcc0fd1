// # internal/ui/cli/summary.go
package cli

import (
	"fmt"
	"strings"
	"time"

	domainerrors "archimport/internal/core/errors"
	"archimport/internal/core/importer"
	"archimport/internal/data/snapshot"
	"archimport/internal/engine/graph"
	"archimport/internal/shared/util"

	"github.com/charmbracelet/lipgloss"
)

const maxListedIssues = 10

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func renderSummary(res *importer.Result) string {
	var b strings.Builder
	run := res.Run
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("import "+run.Mode), statusStyle.Render(run.ID))
	fmt.Fprintf(&b, "  locations: %d (excluded %d)\n", run.Locations, run.Excluded)

	kinds := make(map[string]int)
	res.Each(func(c *graph.Class) bool {
		kinds[string(c.Source().Kind())]++
		return true
	})
	for _, kind := range util.SortedStringKeys(kinds) {
		fmt.Fprintf(&b, "  %-10s %d\n", kind+":", kinds[kind])
	}

	fmt.Fprintf(&b, "  %s %d classes, %d stubs in %s\n",
		successStyle.Render("done"), res.Len(), len(res.Stubs()), run.Duration.Round(time.Millisecond))

	issues := res.Issues()
	if len(issues) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "  %s\n", warnStyle.Render(fmt.Sprintf("%d issues", len(issues))))
	for i, issue := range issues {
		if i == maxListedIssues {
			fmt.Fprintf(&b, "    ... %d more\n", len(issues)-maxListedIssues)
			break
		}
		fmt.Fprintf(&b, "    %s\n", issue)
	}
	return b.String()
}

func renderPackages(res *importer.Result) string {
	var b strings.Builder
	for _, pkg := range res.DefaultPackage().AllSubpackages() {
		fmt.Fprintf(&b, "%s%s (%d)\n", strings.Repeat("  ", strings.Count(pkg.Name(), ".")), pkg.RelativeName(), len(pkg.Classes()))
	}
	return b.String()
}

func renderClasses(res *importer.Result, withStubs bool) string {
	var b strings.Builder
	res.Each(func(c *graph.Class) bool {
		line := c.Name()
		if super := c.SuperclassName(); super != "" && super != "java.lang.Object" {
			line += " extends " + super
		}
		fmt.Fprintln(&b, line)
		return true
	})
	if withStubs {
		for _, name := range res.Stubs() {
			fmt.Fprintln(&b, statusStyle.Render(name+" (stub)"))
		}
	}
	return b.String()
}

func renderRuns(runs []snapshot.RunSummary) string {
	if len(runs) == 0 {
		return statusStyle.Render("no stored runs") + "\n"
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%s  %-9s %s  classes=%d stubs=%d issues=%d  %s\n",
			r.ID, r.Mode, r.Started.Format(time.RFC3339), r.Classes, r.Stubs, r.Issues, r.Duration.Round(time.Millisecond))
	}
	return b.String()
}

type issueReport struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type runReport struct {
	RunID      string        `json:"run_id"`
	Mode       string        `json:"mode"`
	Roots      []string      `json:"roots"`
	Started    time.Time     `json:"started"`
	DurationMS int64         `json:"duration_ms"`
	Locations  int           `json:"locations"`
	Excluded   int           `json:"excluded"`
	Classes    []string      `json:"classes"`
	Stubs      []string      `json:"stubs"`
	Issues     []issueReport `json:"issues"`
}

func newRunReport(res *importer.Result) runReport {
	report := runReport{
		RunID:      res.Run.ID,
		Mode:       res.Run.Mode,
		Roots:      res.Run.Roots,
		Started:    res.Run.Started,
		DurationMS: res.Run.Duration.Milliseconds(),
		Locations:  res.Run.Locations,
		Excluded:   res.Run.Excluded,
		Classes:    res.Names(),
		Stubs:      res.Stubs(),
		Issues:     make([]issueReport, 0),
	}
	for _, issue := range res.Issues() {
		code, _ := domainerrors.CodeOf(issue)
		report.Issues = append(report.Issues, issueReport{Code: string(code), Message: issue.Error()})
	}
	return report
}
