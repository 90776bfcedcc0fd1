package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"archimport/internal/core/config"
	"archimport/internal/core/importer"
	"archimport/internal/engine/classfile/classfiletest"
	"archimport/internal/engine/location"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// importCyclicWorkspace imports com.acme and com.acme.api, which depend on
// each other.
func importCyclicWorkspace(t *testing.T) *importer.Result {
	t.Helper()
	ws := newWorkspace(t, "")
	writeClassFile(t, ws.classes, "com.acme.api.Handler", classfiletest.New("com.acme.api.Handler").References("com.acme.Port"))
	writeClassFile(t, ws.classes, "com.acme.Util", classfiletest.New("com.acme.Util").References("com.acme.api.Handler"))

	imp, err := importer.New(config.DefaultConfig(),
		importer.WithClasspath(location.Classpath{}),
		importer.WithRuntimeModules(location.RuntimeModules{}))
	if err != nil {
		t.Fatalf("new importer: %v", err)
	}
	res, err := imp.ImportPaths(context.Background(), ws.classes)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return res
}

func itemDescriptions(items []list.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(listItem).Description())
	}
	return out
}

func TestNewWatchUpdate(t *testing.T) {
	res := importCyclicWorkspace(t)
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	u := newWatchUpdate(res, nil, at)

	if u.runID != res.Run.ID || u.classes != 4 || u.stubs != 1 {
		t.Fatalf("unexpected counts: %+v", u)
	}
	if len(u.packages) != 2 || u.packages[0].name != "com.acme" || u.packages[1].name != "com.acme.api" {
		t.Fatalf("unexpected packages: %+v", u.packages)
	}
	if u.packages[0].classes != 3 || u.packages[0].deps != 2 || u.packages[1].deps != 2 {
		t.Fatalf("unexpected package rows: %+v", u.packages)
	}
	if len(u.cycles) != 1 || strings.Join(u.cycles[0], ",") != "com.acme,com.acme.api" {
		t.Fatalf("unexpected cycles: %v", u.cycles)
	}

	failed := newWatchUpdate(nil, errors.New("boom"), at)
	if failed.err == nil || failed.runID != "" || failed.classes != 0 {
		t.Fatalf("unexpected failed update: %+v", failed)
	}
}

func TestWatchModel_ShowsEachImport(t *testing.T) {
	var m tea.Model = newWatchModel([]string{"target/classes"})
	if view := m.View(); !strings.Contains(view, "waiting for the first import") || !strings.Contains(view, "target/classes") {
		t.Fatalf("unexpected initial view:\n%s", view)
	}

	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.Update(newWatchUpdate(importCyclicWorkspace(t), nil, time.Now()))
	wm := m.(watchModel)

	issues := itemDescriptions(wm.issueList.Items())
	if len(issues) != 1 || issues[0] != "com.acme -> com.acme.api -> com.acme" {
		t.Fatalf("unexpected issue items: %v", issues)
	}
	packages := itemDescriptions(wm.packageList.Items())
	if len(packages) != 2 || packages[0] != "classes=3 depends_on=2" {
		t.Fatalf("unexpected package items: %v", packages)
	}
	view := wm.View()
	for _, want := range []string{"4 classes", "1 stubs", "2 packages", "import #1", "1 cycles", "0 issues"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = m.Update(newWatchUpdate(nil, errors.New("boom"), time.Now()))
	wm = m.(watchModel)
	view = wm.View()
	if !strings.Contains(view, "import failed: boom") || !strings.Contains(view, "4 classes") || !strings.Contains(view, "import #2") {
		t.Fatalf("expected the failure next to the last good import:\n%s", view)
	}
	if len(wm.issueList.Items()) != 1 {
		t.Fatalf("expected issue items to be kept, got %d", len(wm.issueList.Items()))
	}
}

func TestWatchModel_Keys(t *testing.T) {
	var m tea.Model = newWatchModel(nil)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(watchModel).panel != panelPackages {
		t.Fatal("expected tab to switch to the package panel")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.(watchModel).panel != panelIssues {
		t.Fatal("expected tab to switch back to the issue panel")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected q to quit")
	}
}
