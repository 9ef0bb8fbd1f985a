package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"holdco/internal/game"
	"holdco/internal/round"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorGood    = lipgloss.Color("#10B981")
	colorBad     = lipgloss.Color("#EF4444")
	colorWarn    = lipgloss.Color("#F59E0B")
	colorMuted   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorPrimary).Padding(0, 2)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#374151")).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	goodStyle  = lipgloss.NewStyle().Foreground(colorGood)
	badStyle   = lipgloss.NewStyle().Foreground(colorBad)
	warnStyle  = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
)

func newWatchCmd(defaultRounds int) *cobra.Command {
	var seed int64
	var rounds int
	var scenario string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Step through a game round by round in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			state, err := startingState(simulateOptions{seed: seed, rounds: rounds, scenario: scenario})
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newWatchModel(state), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "game seed (random when unset)")
	cmd.Flags().IntVar(&rounds, "rounds", defaultRounds, "rounds to play")
	cmd.Flags().StringVar(&scenario, "scenario", "", "scenario JSON file to start from")
	return cmd
}

type watchModel struct {
	state   game.GameState
	rng     game.RNG
	last    *round.Result
	table   table.Model
	message string
}

func newWatchModel(s game.GameState) watchModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Business", Width: 24},
			{Title: "Sector", Width: 16},
			{Title: "Revenue", Width: 10},
			{Title: "Margin", Width: 8},
			{Title: "EBITDA", Width: 10},
			{Title: "Q", Width: 3},
			{Title: "Exit", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true).Foreground(colorPrimary)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(colorPrimary)
	t.SetStyles(styles)

	m := watchModel{state: s, rng: game.NewRNG(s.Seed), table: t}
	m.refreshRows()
	return m
}

func (m *watchModel) refreshRows() {
	rows := make([]table.Row, 0, len(m.state.Businesses))
	for _, b := range m.state.ActiveBusinesses() {
		v := game.CalculateExitValuation(b, m.state.Round, m.state.LastEventType,
			game.PortfolioContextFor(b, m.state.Businesses), m.state.IntegratedPlatforms)
		rows = append(rows, table.Row{
			truncate(b.Name, 24),
			truncate(b.SectorID, 16),
			game.FormatMoney(b.Revenue),
			game.FormatPercent(b.EbitdaMargin),
			game.FormatMoney(b.Ebitda),
			strconv.Itoa(b.QualityRating),
			game.FormatMoney(v.ExitPrice),
		})
	}
	m.table.SetRows(rows)
}

func (m watchModel) Init() tea.Cmd {
	return nil
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "n", " ", "enter":
		m.advance()
		return m, nil
	case "1", "2":
		m.choose(int(key.String()[0] - '1'))
		return m, nil
	case "i":
		m.improve()
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *watchModel) advance() {
	switch {
	case round.Over(m.state):
		m.message = "Game over. Press q to quit."
		return
	case m.state.PendingChoice():
		m.message = "A decision is pending: press 1 or 2."
		return
	}
	res, err := round.Advance(m.state, m.rng)
	if err != nil {
		m.message = err.Error()
		return
	}
	m.state = res.State
	m.last = &res
	m.message = ""
	m.refreshRows()
}

func (m *watchModel) choose(i int) {
	if !m.state.PendingChoice() {
		return
	}
	choices := m.state.CurrentEvent.Choices
	if i < 0 || i >= len(choices) {
		return
	}
	next, err := round.ResolveChoice(m.state, choices[i].Action, m.rng)
	if err != nil {
		m.message = err.Error()
		return
	}
	m.state = next
	m.message = "Chose: " + choices[i].Label
	m.refreshRows()
}

// improve buys the first improvement the selected business does not have yet.
func (m *watchModel) improve() {
	active := m.state.ActiveBusinesses()
	i := m.table.Cursor()
	if i < 0 || i >= len(active) {
		return
	}
	b := active[i]
	for _, spec := range game.ImprovementCatalog {
		if game.HasImprovement(b, spec.Type) {
			continue
		}
		next, err := round.ApplyImprovement(m.state, b.ID, spec.Type)
		if err != nil {
			m.message = err.Error()
			return
		}
		m.state = next
		m.message = fmt.Sprintf("%s: %s for %s", b.Name, spec.Name, game.FormatMoney(game.ImprovementCost(spec, b)))
		m.refreshRows()
		return
	}
	m.message = b.Name + " has every improvement"
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("HOLDCO  seed %d  round %d/%d", m.state.Seed, m.state.Round, m.state.EffectiveMaxRounds())))
	b.WriteString("\n\n")

	metrics := game.CalculateMetrics(m.state)
	stats := fmt.Sprintf("Cash %s   Equity %s   MOIC %s   Leverage %.2fx   Score %s",
		game.FormatMoney(m.state.Cash),
		game.FormatMoney(metrics.EquityValue),
		game.FormatMultiple(metrics.Moic),
		metrics.NetDebtToEbitda,
		game.FormatMoney(game.FinalScore(metrics, m.state.TotalDistributions)),
	)
	b.WriteString(boxStyle.Render(stats + "\n" + distressLabel(metrics.DistressLevel)))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.table.View()))
	b.WriteString("\n")

	if m.last != nil {
		ev := m.last.Event
		if m.state.CurrentEvent != nil {
			ev = *m.state.CurrentEvent
		}
		lines := []string{warnStyle.Render(ev.Title), ev.Description}
		if ev.Effect != "" {
			lines = append(lines, helpStyle.Render(ev.Effect))
		}
		if m.state.PendingChoice() {
			for i, c := range ev.Choices {
				lines = append(lines, fmt.Sprintf("[%d] %s: %s", i+1, c.Label, c.Description))
			}
		}
		net := m.last.CashFlow.Net
		flow := goodStyle.Render("+" + game.FormatMoney(net))
		if net < 0 {
			flow = badStyle.Render(game.FormatMoney(net))
		}
		lines = append(lines, "Cash flow "+flow)
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString(warnStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("n/space: next round   1/2: decide   i: improve selected   up/down: select   q: quit"))
	return b.String()
}

func distressLabel(d game.DistressLevel) string {
	switch d {
	case game.DistressComfortable:
		return goodStyle.Render(string(d))
	case game.DistressStressed:
		return warnStyle.Render(string(d))
	case game.DistressBreach:
		return badStyle.Render(string(d))
	default:
		return string(d)
	}
}
