package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"archimport/internal/core/importer"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type watchPanel int

const (
	panelIssues watchPanel = iota
	panelPackages
)

type listItem struct {
	title, desc string
}

func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.title + " " + i.desc }

type packageRow struct {
	name    string
	classes int
	deps    int
}

// watchUpdate is the dashboard state after one import.
type watchUpdate struct {
	runID    string
	at       time.Time
	duration time.Duration
	classes  int
	stubs    int
	packages []packageRow
	cycles   [][]string
	issues   []string
	err      error
}

func newWatchUpdate(res *importer.Result, err error, at time.Time) watchUpdate {
	u := watchUpdate{at: at, err: err}
	if res == nil {
		return u
	}
	u.runID = res.Run.ID
	u.duration = res.Run.Duration
	u.classes = res.Len()
	u.stubs = len(res.Stubs())

	pg := res.PackageDependencies()
	u.cycles = pg.DetectCycles()
	for _, name := range pg.Internal {
		row := packageRow{name: name, deps: len(pg.Targets(name))}
		pkg := res.DefaultPackage()
		if name != "" {
			pkg, _ = res.GetPackage(name)
		}
		if pkg != nil {
			row.classes = len(pkg.Classes())
		}
		u.packages = append(u.packages, row)
	}
	for _, issue := range res.Issues() {
		u.issues = append(u.issues, issue.Error())
	}
	return u
}

type watchModel struct {
	roots       []string
	issueList   list.Model
	packageList list.Model
	panel       watchPanel
	last        watchUpdate
	imports     int
}

func newWatchModel(roots []string) watchModel {
	issueList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	issueList.Title = "Cycles and issues"
	issueList.SetShowStatusBar(false)
	issueList.SetFilteringEnabled(true)

	packageList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	packageList.Title = "Packages"
	packageList.SetShowStatusBar(false)
	packageList.SetFilteringEnabled(true)

	return watchModel{roots: roots, issueList: issueList, packageList: packageList}
}

func (m watchModel) Init() tea.Cmd { return nil }

func (m watchModel) active() *list.Model {
	if m.panel == panelPackages {
		return &m.packageList
	}
	return &m.issueList
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.active().FilterState() != list.Filtering {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "tab":
				if m.panel == panelIssues {
					m.panel = panelPackages
				} else {
					m.panel = panelIssues
				}
				return m, nil
			}
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.issueList.SetSize(msg.Width-h, height)
		m.packageList.SetSize(msg.Width-h, height)
		return m, nil
	case watchUpdate:
		m.imports++
		if msg.err != nil && msg.runID == "" {
			// Keep the last good graph on screen.
			m.last.err = msg.err
			m.last.at = msg.at
			return m, nil
		}
		m.last = msg
		cmds := []tea.Cmd{
			m.issueList.SetItems(issueItems(msg)),
			m.packageList.SetItems(packageItems(msg)),
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	if m.panel == panelPackages {
		m.packageList, cmd = m.packageList.Update(msg)
	} else {
		m.issueList, cmd = m.issueList.Update(msg)
	}
	return m, cmd
}

func issueItems(u watchUpdate) []list.Item {
	items := make([]list.Item, 0, len(u.cycles)+len(u.issues))
	for _, cycle := range u.cycles {
		labels := make([]string, 0, len(cycle)+1)
		for _, pkg := range cycle {
			labels = append(labels, packageDisplayName(pkg))
		}
		labels = append(labels, packageDisplayName(cycle[0]))
		items = append(items, listItem{title: "Package cycle", desc: strings.Join(labels, " -> ")})
	}
	for _, issue := range u.issues {
		items = append(items, listItem{title: "Import issue", desc: issue})
	}
	return items
}

func packageItems(u watchUpdate) []list.Item {
	items := make([]list.Item, 0, len(u.packages))
	for _, row := range u.packages {
		items = append(items, listItem{
			title: packageDisplayName(row.name),
			desc:  fmt.Sprintf("classes=%d depends_on=%d", row.classes, row.deps),
		})
	}
	return items
}

func packageDisplayName(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}

func (m watchModel) View() string {
	u := m.last
	status := "waiting for the first import"
	if m.imports > 0 {
		status = fmt.Sprintf("Last import: %s (%s) | %d classes | %d stubs | %d packages | import #%d",
			u.at.Format("15:04:05"), u.duration.Round(time.Millisecond), u.classes, u.stubs, len(u.packages), m.imports)
	}

	var summary string
	switch {
	case u.err != nil:
		summary = errorStyle.Render("import failed: " + u.err.Error())
	case m.imports == 0:
		summary = ""
	case len(u.cycles) == 0 && len(u.issues) == 0:
		summary = successStyle.Render("no cycles, no issues")
	default:
		summary = fmt.Sprintf("%s | %s",
			errorStyle.Render(fmt.Sprintf("%d cycles", len(u.cycles))),
			warnStyle.Render(fmt.Sprintf("%d issues", len(u.issues))))
	}

	header := titleStyle.Render("archimport watch") + " " + statusStyle.Render(strings.Join(m.roots, ", "))
	help := statusStyle.Render("Keys: tab panel | / filter | q quit")
	body := m.issueList.View()
	if m.panel == panelPackages {
		body = m.packageList.View()
	}
	return docStyle.Render(header + "\n" + statusStyle.Render(status) + "\n" + summary + "\n" + help + "\n\n" + body)
}

// runWatchUI runs the watch session behind a live dashboard. Quitting the
// dashboard ends the session.
func runWatchUI(ctx context.Context, rt *runtime, roots []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newWatchModel(roots), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(rt.out))
	reimport := func(ctx context.Context, _ []string) error {
		res, err := rt.current().ImportPaths(ctx, roots...)
		if err == nil {
			err = rt.record(res)
		}
		p.Send(newWatchUpdate(res, err, time.Now()))
		return err
	}

	sessionErr := make(chan error, 1)
	go func() {
		_ = reimport(ctx, nil)
		err := rt.watch(ctx, roots, reimport)
		if err != nil {
			p.Quit()
		}
		sessionErr <- err
	}()

	_, err := p.Run()
	cancel()
	if serr := <-sessionErr; serr != nil {
		return serr
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
