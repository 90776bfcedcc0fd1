// Package report renders import results as diagrams and tables.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domainerrors "archimport/internal/core/errors"
	"archimport/internal/engine/graph"
)

// Section is the generated part of a markdown document: a one-line package
// summary, the Mermaid diagram and the list of package cycles.
type Section struct {
	Graph   *graph.PackageGraph
	Cycles  [][]string
	Diagram string
}

// Render returns the section body placed between the markers.
func (s Section) Render() string {
	var b strings.Builder
	if s.Graph != nil {
		edges := 0
		for _, targets := range s.Graph.Edges {
			edges += len(targets)
		}
		fmt.Fprintf(&b, "_%d packages, %d external, %d dependencies, %d cycles_\n\n",
			len(s.Graph.Internal), len(s.Graph.External), edges, len(s.Cycles))
	}
	if s.Diagram != "" {
		b.WriteString(Fenced("mermaid", s.Diagram))
		b.WriteString("\n")
	}
	if len(s.Cycles) > 0 {
		b.WriteString("\nPackage cycles:\n\n")
		for _, cycle := range s.Cycles {
			fmt.Fprintf(&b, "- %s → %s\n", strings.Join(packageLabels(cycle), " → "), packageLabel(cycle[0]))
		}
	}
	return b.String()
}

// Fenced wraps a diagram in a markdown code fence tagged with lang.
func Fenced(lang, diagram string) string {
	return "```" + lang + "\n" + strings.TrimRight(diagram, "\r\n") + "\n```"
}

func packageLabels(pkgs []string) []string {
	out := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		out[i] = packageLabel(pkg)
	}
	return out
}

// markers names the comment pair delimiting one generated section.
type markers struct {
	name, start, end string
}

func newMarkers(name string) (markers, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return markers{}, domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf("invalid markdown marker %q", name))
	}
	return markers{
		name:  name,
		start: "<!-- archimport:" + name + ":start -->",
		end:   "<!-- archimport:" + name + ":end -->",
	}, nil
}

// replace swaps the text between the markers for body. Each marker must
// occur exactly once, start before end.
func (m markers) replace(content, body string) (string, error) {
	before, rest, ok := strings.Cut(content, m.start)
	if !ok || strings.Contains(rest, m.start) {
		return "", m.invalid("start marker must appear exactly once")
	}
	_, after, ok := strings.Cut(rest, m.end)
	if !ok || strings.Contains(after, m.end) || strings.Contains(before, m.end) {
		return "", m.invalid("end marker must appear exactly once after the start marker")
	}

	nl := "\n"
	if strings.Contains(content, "\r\n") {
		nl = "\r\n"
		body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", nl)
	}
	body = strings.TrimRight(body, "\r\n")
	return before + m.start + nl + body + nl + m.end + after, nil
}

func (m markers) invalid(msg string) error {
	return domainerrors.AddContext(
		domainerrors.New(domainerrors.CodeValidationError, msg),
		"marker", m.name)
}

// ReplaceMarked replaces the text between <!-- archimport:NAME:start -->
// and <!-- archimport:NAME:end --> with body.
func ReplaceMarked(content, name, body string) (string, error) {
	m, err := newMarkers(name)
	if err != nil {
		return "", err
	}
	return m.replace(content, body)
}

// InjectSection renders s into the marked block of the markdown file at
// path. The file keeps its mode and is replaced through a rename.
func InjectSection(path, name string, s Section) error {
	info, err := os.Stat(path)
	if err != nil {
		return domainerrors.NotFound(path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	next, err := ReplaceMarked(string(content), name, s.Render())
	if err != nil {
		return domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("inject into %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(next); err != nil {
		tmp.Close()
		return fmt.Errorf("inject into %s: %w", path, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("inject into %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("inject into %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
