package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	panelTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
)

var kindStyles = map[commlog.Kind]lipgloss.Style{
	commlog.KindChat:      lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")),
	commlog.KindTask:      lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
	commlog.KindSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	commlog.KindDecision:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
	commlog.KindThought:   lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")),
	commlog.KindPhase:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
	commlog.KindUserInput: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")),
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#444444"))
	s.Selected = s.Selected.
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#3A3F58"))
	return s
}

func (m *model) View() string {
	if !m.ready {
		return m.statusMsg
	}

	header := headerStyle.Render("VERSAAS · operations board") + "  " + connBadge(m.connected)

	leftW := maxInt(44, m.width/2-2)
	rightW := m.width - leftW - 4
	if rightW < 30 {
		rightW = 0
		leftW = maxInt(44, m.width-2)
	}

	left := boxStyle.Width(leftW).Render(
		panelTitle.Render(fmt.Sprintf("Projects (%d)", len(m.order))) + "\n" + m.table.View())
	var top string
	if rightW > 0 {
		right := boxStyle.Width(rightW).Render(m.renderDetail(rightW - 4))
		top = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	} else {
		top = left
	}

	feedTitle := "Feed"
	if m.onlySel {
		if id := m.selectedID(); id != "" {
			feedTitle = "Feed · " + id
		}
	}
	feed := boxStyle.Width(maxInt(24, m.width-2)).Render(
		panelTitle.Render(feedTitle) + "\n" + m.feedView.View())

	sections := []string{header, top, feed}
	if m.focus == focusInput {
		sections = append(sections, m.input.View())
	}
	sections = append(sections, footerStyle.Render(m.statusMsg+"\n"+m.hints()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *model) renderDetail(width int) string {
	p := m.selectedProject()
	if p == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			panelTitle.Render("No project selected"),
			mutedStyle.Render("create one with the admin CLI"))
	}

	lines := []string{panelTitle.Render(fmt.Sprintf("%s · %s", p.id, p.phaseName))}
	if p.hasTick {
		lines = append(lines,
			fmt.Sprintf("day %d · hour %d · tick %d", p.days, p.simHours, p.tick),
			fmt.Sprintf("revenue  %s", moneyMinor(p.finance.RevenueMinor)),
			fmt.Sprintf("burn     %s", moneyMinor(p.finance.BurnMinor)),
			fmt.Sprintf("reserves %s", moneyMinor(p.finance.ReservesMinor)),
			fmt.Sprintf("runway   %s", runwayLabel(p.finance.RunwayDays)),
		)
		lines = append(lines, agentSummary(p))
	} else {
		lines = append(lines, mutedStyle.Render("waiting for the first tick"))
	}
	if p.paused {
		lines = append(lines, mutedStyle.Render("paused · space resumes"))
	}
	if p.stalled {
		lines = append(lines, warnStyle.Render("⚠ stalled · phase window exceeded"))
	}
	if p.quarantined {
		lines = append(lines, errStyle.Render("⚠ quarantined · read-only"))
	}
	return lipgloss.NewStyle().Width(maxInt(20, width)).Render(strings.Join(lines, "\n"))
}

// agentSummary folds the latest agent deltas into one head count plus a short
// list of who is working on what.
func agentSummary(p *project) string {
	var working, idle, offline, blocked int
	var busy []string
	for _, a := range p.agents {
		switch a.Status {
		case "working":
			working++
			if len(busy) < 4 {
				busy = append(busy, fmt.Sprintf("  %s · %s", a.ID, a.CurrentTaskID))
			}
		case "blocked":
			blocked++
		case "offline":
			offline++
		default:
			idle++
		}
	}
	head := fmt.Sprintf("agents   %d working · %d idle · %d offline", working, idle, offline)
	if blocked > 0 {
		head += fmt.Sprintf(" · %d blocked", blocked)
	}
	if len(busy) == 0 {
		return head
	}
	if working > len(busy) {
		busy = append(busy, mutedStyle.Render(fmt.Sprintf("  +%d more", working-len(busy))))
	}
	return head + "\n" + strings.Join(busy, "\n")
}

func (m *model) hints() string {
	switch m.focus {
	case focusInput:
		return hintStyle.Render("enter=send  esc=cancel")
	case focusFeed:
		return hintStyle.Render("↑/↓=scroll  tab=projects  f=filter  q=quit")
	default:
		return hintStyle.Render("↑/↓=select  tab=feed  o=owner note  space=pause/resume  t=tick  s=snapshot  f=filter  q=quit")
	}
}

func connBadge(connected bool) string {
	if connected {
		return okStyle.Render("● live")
	}
	return errStyle.Render("○ offline")
}

// renderRecord formats one communication record as a single feed line. When
// more than one project streams in, the line is prefixed with its project id.
func renderRecord(projectID string, r commlog.Record, multi bool) string {
	head := mutedStyle.Render(simClock(r.SimHours))
	if multi {
		head = mutedStyle.Render(projectID) + " " + head
	}
	src := r.From
	if r.To != "" && r.To != commlog.ChannelInternal {
		src += "→" + r.To
	}
	style, ok := kindStyles[r.Kind]
	if !ok {
		style = kindStyles[commlog.KindChat]
	}
	return head + " " + src + " " + style.Render(r.Text)
}

func simClock(simHours int64) string {
	return fmt.Sprintf("d%02d %02d:00", simHours/24, simHours%24)
}

func moneyMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	whole := strconv.FormatInt(minor/100, 10)
	var grouped []byte
	for i := 0; i < len(whole); i++ {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}
	return fmt.Sprintf("%s$%s.%02d", sign, grouped, minor%100)
}

func moneyCompact(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	d := float64(minor) / 100
	switch {
	case d >= 1_000_000:
		return fmt.Sprintf("%s$%.1fM", sign, d/1_000_000)
	case d >= 10_000:
		return fmt.Sprintf("%s$%.0fk", sign, d/1_000)
	default:
		return fmt.Sprintf("%s$%.0f", sign, d)
	}
}

func runwayLabel(days int64) string {
	if days == protocol.RunwayInfinite {
		return "∞"
	}
	return fmt.Sprintf("%dd", days)
}
