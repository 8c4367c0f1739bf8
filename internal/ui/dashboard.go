package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/coinfun/internal/logger"
	"github.com/rovshanmuradov/coinfun/internal/settlement"
	"github.com/rovshanmuradov/coinfun/internal/ui/state"
	"github.com/rovshanmuradov/coinfun/internal/ui/style"
)

// CurveSource lists committed curves.
type CurveSource interface {
	Curves() ([]settlement.CurveView, error)
}

// LogSource returns buffered log entries, oldest first.
type LogSource interface {
	GetRecentLogs(limit int) []logger.LogEntry
}

type pane int

const (
	paneCurves pane = iota
	paneTrades
)

// Options tune the dashboard.
type Options struct {
	Refresh  time.Duration
	Trades   int
	LogLines int
}

// snapshotMsg carries a refresh result.
type snapshotMsg struct {
	curves []settlement.CurveView
	logs   []logger.LogEntry
	err    error
}

// Model is the bubbletea model of the dashboard: curves on top, the live
// trade feed below and an optional log pane.
type Model struct {
	curves CurveSource
	logs   LogSource
	feed   *Feed
	cache  *state.TradeCache
	opts   Options

	keys     KeyMap
	help     help.Model
	table    table.Model
	focus    pane
	showLogs bool

	views     []settlement.CurveView
	logLines  []logger.LogEntry
	refreshed time.Time
	err       error
	width     int
	height    int
}

// NewModel builds the dashboard. logs and feed may be nil.
func NewModel(curves CurveSource, logs LogSource, feed *Feed, cache *state.TradeCache, opts Options) *Model {
	if opts.Refresh <= 0 {
		opts.Refresh = time.Second
	}
	if opts.Trades <= 0 {
		opts.Trades = 10
	}
	if opts.LogLines <= 0 {
		opts.LogLines = 8
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Mint", Width: 13},
			{Title: "Phase", Width: 9},
			{Title: "Price", Width: 12},
			{Title: "Progress", Width: 9},
			{Title: "Real SOL", Width: 10},
			{Title: "Buys/Sells", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	return &Model{
		curves:   curves,
		logs:     logs,
		feed:     feed,
		cache:    cache,
		opts:     opts,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		table:    t,
		focus:    paneCurves,
		showLogs: logs != nil,
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refresh(), tick(m.opts.Refresh)}
	if m.feed != nil {
		cmds = append(cmds, m.feed.Listen())
	}
	return tea.Batch(cmds...)
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		views, err := m.curves.Curves()
		var logs []logger.LogEntry
		if m.logs != nil {
			logs = m.logs.GetRecentLogs(m.opts.LogLines)
		}
		return snapshotMsg{curves: views, logs: logs, err: err}
	}
}

func (m *Model) listen() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return m.feed.Listen()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		if h := msg.Height/2 - 4; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.toggleFocus()
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refresh()
		case key.Matches(msg, m.keys.Logs):
			m.showLogs = !m.showLogs && m.logs != nil
			return m, nil
		}
		if m.focus == paneCurves {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		return m, nil

	case TickMsg:
		return m, tea.Batch(m.refresh(), tick(m.opts.Refresh))

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.views = msg.curves
			m.table.SetRows(m.rows())
		}
		m.logLines = msg.logs
		m.refreshed = time.Now()
		return m, nil

	case TradeMsg:
		m.cache.AddTrade(msg.Event)
		return m, tea.Batch(m.refresh(), m.listen())

	case AssetMsg:
		return m, tea.Batch(m.refresh(), m.listen())

	case GraduationMsg:
		m.cache.MarkGraduated(msg.Event.Mint.String())
		return m, tea.Batch(m.refresh(), m.listen())

	case ErrorMsg:
		m.err = msg.Error
		return m, nil
	}
	return m, nil
}

func (m *Model) toggleFocus() {
	if m.focus == paneCurves {
		m.focus = paneTrades
		m.table.Blur()
		return
	}
	m.focus = paneCurves
	m.table.Focus()
}

func (m *Model) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.views))
	for _, v := range m.views {
		mint := v.State.Mint.String()
		activity := "-"
		if st, ok := m.cache.Stats(mint); ok {
			activity = fmt.Sprintf("%d/%d", st.Buys, st.Sells)
		}
		rows = append(rows, table.Row{
			shortAddress(mint),
			v.Phase.String(),
			fmt.Sprintf("%.4g", v.SpotPrice),
			fmt.Sprintf("%.1f%%", v.Progress*100),
			formatSOL(v.State.RealNativeReserves),
			activity,
		})
	}
	return rows
}

// SelectedMint returns the mint under the cursor, if any.
func (m *Model) SelectedMint() (solana.PublicKey, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.views) {
		return solana.PublicKey{}, false
	}
	return m.views[i].State.Mint, true
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(style.TitleStyle.Render("coinfun"))
	if !m.refreshed.IsZero() {
		b.WriteString(style.MutedStyle.Render(fmt.Sprintf("  %d curves · updated %s", len(m.views), m.refreshed.Format("15:04:05"))))
	}
	b.WriteString("\n")

	b.WriteString(m.panel(paneCurves, "Curves", m.table.View()))
	b.WriteString("\n")
	b.WriteString(m.panel(paneTrades, "Trades", m.tradesView()))
	b.WriteString("\n")

	if m.showLogs {
		b.WriteString(style.PanelStyle.Render(style.PanelTitleStyle.Render("Logs") + "\n" + m.logsView()))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(style.ErrorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) panel(p pane, title, body string) string {
	s := style.PanelStyle
	if m.focus == p {
		s = style.ActivePanelStyle
	}
	if m.width > 4 {
		s = s.Width(m.width - 4)
	}
	return s.Render(lipgloss.JoinVertical(lipgloss.Left, style.PanelTitleStyle.Render(title), body))
}

func (m *Model) tradesView() string {
	trades := m.cache.Recent(m.opts.Trades)
	if len(trades) == 0 {
		return style.MutedStyle.Render("no trades yet")
	}
	lines := make([]string, 0, len(trades))
	for _, t := range trades {
		side := style.SideStyle(t.Side).Render(fmt.Sprintf("%-4s", t.Side))
		lines = append(lines, fmt.Sprintf("%s %s %s  %s SOL  %d tokens  by %s",
			style.MutedStyle.Render(t.EventTime.Format("15:04:05")),
			side,
			shortAddress(t.Mint.String()),
			formatSOL(t.NativeAmount),
			t.TokenAmount,
			shortAddress(t.Trader.String())))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) logsView() string {
	if len(m.logLines) == 0 {
		return style.MutedStyle.Render("no log entries")
	}
	lines := make([]string, 0, len(m.logLines))
	for _, e := range m.logLines {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			style.MutedStyle.Render(e.Timestamp.Format("15:04:05")),
			style.LevelStyle(e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level))),
			e.Message))
	}
	return strings.Join(lines, "\n")
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

func formatSOL(lamports uint64) string {
	return fmt.Sprintf("%.4f", float64(lamports)/float64(solana.LAMPORTS_PER_SOL))
}
