package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-sarnet/pkg/coherence"
	"github.com/dd0wney/cluso-sarnet/pkg/config"
	"github.com/dd0wney/cluso-sarnet/pkg/logging"
	"github.com/dd0wney/cluso-sarnet/pkg/network"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginLeft(2)

	droppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Dropped key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Dropped: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "toggle dropped only"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Dropped, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Dropped, k.Quit}}
}

type pairRow struct {
	pair      string
	bperp     float64
	coherence float64
	hasCoh    bool
	dropped   bool
}

type model struct {
	source      string
	net         *network.Model
	rows        []pairRow
	pairTable   table.Model
	help        help.Model
	keys        keyMap
	droppedOnly bool
	width       int
}

func buildRows(net *network.Model) []pairRow {
	dateIdx := make(map[string]int, len(net.Dates))
	for i, d := range net.Dates {
		dateIdx[d] = i
	}
	droppedSet := make(map[string]struct{}, len(net.DroppedPairs))
	for _, p := range net.DroppedPairs {
		droppedSet[p] = struct{}{}
	}

	rows := make([]pairRow, 0, len(net.Pairs))
	for i, p := range net.Pairs {
		row := pairRow{pair: p}
		if m, s, err := network.SplitPair(p); err == nil {
			mi, mok := dateIdx[m]
			si, sok := dateIdx[s]
			if mok && sok {
				row.bperp = net.Pbase[si] - net.Pbase[mi]
			}
		}
		if net.Coherence.Present() {
			row.coherence = net.Coherence.At(i)
			row.hasCoh = true
		}
		_, row.dropped = droppedSet[p]
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].pair < rows[j].pair })
	return rows
}

func initialModel(source string, net *network.Model) model {
	columns := []table.Column{
		{Title: "Pair", Width: 20},
		{Title: "Bperp (m)", Width: 12},
		{Title: "Coherence", Width: 10},
		{Title: "State", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(16),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	m := model{
		source:    source,
		net:       net,
		rows:      buildRows(net),
		pairTable: t,
		help:      help.New(),
		keys:      keys,
	}
	m.refreshTable()
	return m
}

func (m *model) refreshTable() {
	rows := make([]table.Row, 0, len(m.rows))
	for _, r := range m.rows {
		if m.droppedOnly && !r.dropped {
			continue
		}
		coh := "-"
		if r.hasCoh {
			coh = fmt.Sprintf("%.3f", r.coherence)
		}
		state := "kept"
		if r.dropped {
			state = "dropped"
		}
		rows = append(rows, table.Row{r.pair, fmt.Sprintf("%.1f", r.bperp), coh, state})
	}
	m.pairTable.SetRows(rows)
	m.pairTable.GotoTop()
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Dropped):
			m.droppedOnly = !m.droppedOnly
			m.refreshTable()
		}
	}

	var cmd tea.Cmd
	m.pairTable, cmd = m.pairTable.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Interferogram Network: " + m.source))
	b.WriteString("\n\n")

	stats := fmt.Sprintf("Acquisitions: %d\nPairs: %d kept / %d total",
		len(m.net.Dates), len(m.net.KeptPairs), len(m.net.Pairs))
	if n := len(m.net.DroppedPairs); n > 0 {
		stats += droppedStyle.Render(fmt.Sprintf("\nDropped: %d pairs, %d dates", n, len(m.net.DroppedDates)))
	}
	if m.net.Coherence.Present() {
		stats += "\nCoherence: present"
	} else {
		stats += "\nCoherence: absent"
	}
	b.WriteString(statsBoxStyle.Render(stats))
	b.WriteString("\n\n")

	if m.droppedOnly {
		b.WriteString(droppedStyle.Render("  showing dropped pairs only"))
		b.WriteString("\n")
	}
	b.WriteString(m.pairTable.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func main() {
	baselineList := flag.String("b", "bl_list.txt", "baseline list for flat sources")
	flag.Parse()

	source := flag.Arg(0)
	if source == "" {
		fmt.Fprintln(os.Stderr, "Usage: sarnet-tui [flags] <ifgramStack.stk | pairList.txt>")
		os.Exit(2)
	}

	log := logging.NewJSONLogger(os.Stderr, logging.ErrorLevel)
	cfg := config.Default()
	cfg.Network.BaselineList = *baselineList
	cfg.ClearMissingMask()

	src, stk, err := network.OpenSource(source, cfg.Network.BaselineList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", source, err)
		os.Exit(1)
	}
	if stk != nil {
		defer stk.Close()
	}

	resolver := &network.Resolver{Log: log}
	if stk != nil {
		resolver.Averager = coherence.NewSpatialAverager(stk, log)
	}
	net, err := resolver.Load(src, network.LoadOptions{
		MaskPath:         cfg.Network.MaskFile,
		CoherenceDataset: cfg.Network.CoherenceDataset,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve network: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(source, net), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI failed: %v\n", err)
		os.Exit(1)
	}
}
