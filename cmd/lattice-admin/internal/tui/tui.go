// Package tui implements the read-only endpoint browser lattice-admin's
// "tui" subcommand opens: a list of discovered endpoints on the left, the
// selected endpoint's guard chain and merged declaration on the right.
package tui

import (
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lattice-http/lattice/core/pkg/dsl"
)

var (
	listPaneStyle = lipgloss.NewStyle().
			Width(40).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			Padding(0, 1)

	detailPaneStyle = lipgloss.NewStyle().Padding(0, 2)

	detailTitleStyle = lipgloss.NewStyle().Bold(true)
)

type endpointItem struct {
	ep *dsl.Endpoint
}

func (i endpointItem) Title() string       { return i.ep.Method + " " + i.ep.URLPath }
func (i endpointItem) Description() string { return fmt.Sprintf("tag=%s guards=%d", i.ep.Tag, len(i.ep.Guards)) }
func (i endpointItem) FilterValue() string { return i.ep.URLPath }

// Model is the bubbletea model for the endpoint browser.
type Model struct {
	list list.Model
	err  error
}

// Run loads dslRoot's endpoints and runs the browser until the user quits.
func Run(dslRoot string) error {
	endpoints, err := dsl.NewLoader(log.Default()).Load(dslRoot)
	if err != nil {
		return fmt.Errorf("load dsl root %q: %w", dslRoot, err)
	}

	items := make([]list.Item, 0, len(endpoints.Endpoints))
	for _, ep := range endpoints.Endpoints {
		items = append(items, endpointItem{ep: ep})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = fmt.Sprintf("lattice endpoints (%s)", dslRoot)

	m := Model{list: l}
	_, err = tea.NewProgram(m).Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		listPaneStyle = listPaneStyle.Height(msg.Height - 2)
		m.list.SetSize(listPaneStyle.GetWidth(), msg.Height-2)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	detail := "(no endpoint selected)"
	if it, ok := m.list.SelectedItem().(endpointItem); ok {
		detail = renderDetail(it.ep)
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		listPaneStyle.Render(m.list.View()),
		detailPaneStyle.Render(detail),
	)
}

func renderDetail(ep *dsl.Endpoint) string {
	var b strings.Builder
	fmt.Fprintln(&b, detailTitleStyle.Render(ep.Method+" "+ep.URLPath))
	fmt.Fprintf(&b, "tag: %s\n\n", ep.Tag)

	fmt.Fprintln(&b, detailTitleStyle.Render("guard chain (outermost first)"))
	if len(ep.Guards) == 0 {
		fmt.Fprintln(&b, "  (none)")
	}
	for i := range ep.Guards {
		fmt.Fprintf(&b, "  %d. guard\n", i+1)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, detailTitleStyle.Render("merged declaration"))
	decl := strings.TrimSpace(ep.MergedDeclaration)
	if decl == "" {
		decl = "(empty)"
	}
	fmt.Fprintln(&b, decl)
	return b.String()
}
