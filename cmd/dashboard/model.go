package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
)

// maxFeedLines bounds the in-memory communication feed.
const maxFeedLines = 500

type focusArea int

const (
	focusProjects focusArea = iota
	focusFeed
	focusInput
)

// project is the dashboard's view of one company run, folded from the
// WELCOME summary and every TICK that follows.
type project struct {
	id          string
	phase       int
	phaseName   string
	tick        uint64
	simHours    int64
	days        int64
	stalled     bool
	quarantined bool
	paused      bool
	hasTick     bool
	agents      []protocol.AgentDelta
	finance     protocol.FinanceSnapshot
}

func (p *project) stateLabel() string {
	switch {
	case p.quarantined:
		return "quarantined"
	case p.paused:
		return "paused"
	case p.stalled:
		return "stalled"
	default:
		return "running"
	}
}

type feedLine struct {
	project string
	text    string
}

type model struct {
	addr   string
	client string
	follow string // non-empty narrows the HELLO subscription to one project

	feed      *eventFeed
	connected bool
	statusMsg string

	projects map[string]*project
	order    []string

	lines   []feedLine
	onlySel bool

	table    table.Model
	feedView viewport.Model
	input    textinput.Model

	focus  focusArea
	width  int
	height int
	ready  bool
}

func newModel(addr, follow, clientName string) *model {
	cols := []table.Column{
		{Title: "PROJECT", Width: 10},
		{Title: "PHASE", Width: 18},
		{Title: "DAY", Width: 4},
		{Title: "RESERVES", Width: 10},
		{Title: "RUNWAY", Width: 7},
		{Title: "STATE", Width: 11},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	t.SetStyles(tableStyles())

	in := textinput.New()
	in.Placeholder = "owner note for the team"
	in.CharLimit = 280
	in.Prompt = "> "

	return &model{
		addr:      addr,
		client:    clientName,
		follow:    follow,
		projects:  map[string]*project{},
		table:     t,
		feedView:  viewport.New(80, 10),
		input:     in,
		statusMsg: "connecting to " + addr,
	}
}

func (m *model) Init() tea.Cmd {
	return dial(m.addr, m.client, m.follow)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.refreshFeed()
		return m, nil

	case connectedMsg:
		if m.feed != nil {
			m.feed.close()
		}
		m.feed = msg.feed
		m.connected = true
		for _, ref := range msg.welcome.Projects {
			p := m.upsert(ref.ID)
			p.phase, p.phaseName = ref.Phase, ref.PhaseName
			p.paused = ref.Paused
			p.quarantined = ref.Quarantined
		}
		m.rebuildRows()
		m.statusMsg = fmt.Sprintf("connected · %d project(s)", len(m.order))
		return m, m.feed.next()

	case tickMsg:
		ev := protocol.TickEvent(msg)
		p := m.upsert(ev.ProjectID)
		p.phase, p.phaseName = ev.Phase, ev.PhaseName
		p.tick, p.simHours, p.days = ev.Tick, ev.SimHours, ev.DaysElapsed
		p.stalled, p.quarantined = ev.Stalled, ev.Quarantined
		p.agents = ev.Agents
		p.finance = ev.Finance
		p.hasTick = true
		multi := len(m.order) > 1
		for _, r := range ev.Records {
			m.lines = append(m.lines, feedLine{
				project: ev.ProjectID,
				text:    renderRecord(ev.ProjectID, r, multi),
			})
		}
		if over := len(m.lines) - maxFeedLines; over > 0 {
			m.lines = m.lines[over:]
		}
		m.rebuildRows()
		m.refreshFeed()
		if m.feed == nil {
			return m, nil
		}
		return m, m.feed.next()

	case serverErrMsg:
		m.statusMsg = fmt.Sprintf("server error %s: %s", msg.Code, msg.Message)
		if m.feed == nil {
			return m, nil
		}
		return m, m.feed.next()

	case disconnectedMsg:
		if m.feed != nil {
			m.feed.close()
			m.feed = nil
		}
		if !m.connected && msg.err == nil {
			// Stale notification from a feed already torn down.
			return m, nil
		}
		m.connected = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("connection lost (%v) · retrying", msg.err)
		} else {
			m.statusMsg = "connection lost · retrying"
		}
		return m, scheduleReconnect()

	case reconnectMsg:
		if m.connected {
			return m, nil
		}
		m.statusMsg = "reconnecting to " + m.addr
		return m, dial(m.addr, m.client, m.follow)

	case adminResultMsg:
		m.applyAdminResult(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *model) applyAdminResult(msg adminResultMsg) {
	if msg.err != nil {
		m.statusMsg = fmt.Sprintf("%s %s failed: %v", msg.verb, msg.project, msg.err)
		return
	}
	switch msg.verb {
	case "pause":
		if p, ok := m.projects[msg.project]; ok {
			p.paused = true
		}
		m.statusMsg = msg.project + " paused"
	case "resume":
		if p, ok := m.projects[msg.project]; ok {
			p.paused = false
		}
		m.statusMsg = msg.project + " resumed"
	case "snapshot":
		if msg.detail != "" {
			m.statusMsg = "snapshot written: " + msg.detail
		} else {
			m.statusMsg = msg.project + " snapshotted"
		}
	case "owner_request":
		m.statusMsg = "owner note delivered to " + msg.project
	default:
		m.statusMsg = fmt.Sprintf("%s %s ok", msg.verb, msg.project)
	}
	m.rebuildRows()
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		if m.feed != nil {
			m.feed.close()
		}
		return m, tea.Quit
	}

	if m.focus == focusInput {
		switch key {
		case "esc":
			m.input.Blur()
			m.input.SetValue("")
			m.focus = focusProjects
			m.statusMsg = "owner note cancelled"
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			id := m.selectedID()
			m.input.Blur()
			m.input.SetValue("")
			m.focus = focusProjects
			if text == "" || id == "" {
				return m, nil
			}
			m.statusMsg = "sending owner note to " + id
			return m, adminPost(m.addr, id, "owner_request", map[string]any{"text": text})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		if m.feed != nil {
			m.feed.close()
		}
		return m, tea.Quit
	case "tab":
		if m.focus == focusProjects {
			m.focus = focusFeed
		} else {
			m.focus = focusProjects
		}
		return m, nil
	case "esc":
		m.focus = focusProjects
		return m, nil
	case "o":
		if id := m.selectedID(); id != "" {
			m.focus = focusInput
			m.statusMsg = "owner note for " + id
			return m, m.input.Focus()
		}
		m.statusMsg = "no project selected"
		return m, nil
	case " ":
		if m.focus != focusProjects {
			break
		}
		id := m.selectedID()
		if id == "" {
			return m, nil
		}
		verb := "pause"
		if p, ok := m.projects[id]; ok && p.paused {
			verb = "resume"
		}
		m.statusMsg = verb + " " + id
		return m, adminPost(m.addr, id, verb, nil)
	case "t":
		if id := m.selectedID(); id != "" && m.focus == focusProjects {
			return m, adminPost(m.addr, id, "tick", nil)
		}
	case "s":
		if id := m.selectedID(); id != "" && m.focus == focusProjects {
			m.statusMsg = "snapshotting " + id
			return m, adminPost(m.addr, id, "snapshot", nil)
		}
	case "f":
		m.onlySel = !m.onlySel
		if m.onlySel {
			m.statusMsg = "feed filtered to the selected project"
		} else {
			m.statusMsg = "feed shows all projects"
		}
		m.refreshFeed()
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusProjects:
		before := m.table.Cursor()
		m.table, cmd = m.table.Update(msg)
		if m.onlySel && m.table.Cursor() != before {
			m.refreshFeed()
		}
	case focusFeed:
		m.feedView, cmd = m.feedView.Update(msg)
	}
	return m, cmd
}

func (m *model) upsert(id string) *project {
	if p, ok := m.projects[id]; ok {
		return p
	}
	p := &project{id: id}
	m.projects[id] = p
	m.order = append(m.order, id)
	sort.Strings(m.order)
	return p
}

func (m *model) selectedID() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func (m *model) selectedProject() *project {
	return m.projects[m.selectedID()]
}

func (m *model) rebuildRows() {
	rows := make([]table.Row, 0, len(m.order))
	for _, id := range m.order {
		p := m.projects[id]
		phase := fmt.Sprintf("%d %s", p.phase, p.phaseName)
		day, reserves, runway := "-", "-", "-"
		if p.hasTick {
			day = fmt.Sprintf("%d", p.days)
			reserves = moneyCompact(p.finance.ReservesMinor)
			runway = runwayLabel(p.finance.RunwayDays)
		}
		rows = append(rows, table.Row{id, phase, day, reserves, runway, p.stateLabel()})
	}
	m.table.SetRows(rows)
}

func (m *model) refreshFeed() {
	stick := m.feedView.AtBottom()
	sel := m.selectedID()
	var b strings.Builder
	for _, l := range m.lines {
		if m.onlySel && sel != "" && l.project != sel {
			continue
		}
		b.WriteString(l.text)
		b.WriteByte('\n')
	}
	m.feedView.SetContent(b.String())
	if stick {
		m.feedView.GotoBottom()
	}
}

func (m *model) layout() {
	topH := 12
	if m.height < 24 {
		topH = m.height / 2
	}
	m.table.SetHeight(maxInt(3, topH-4))
	m.table.SetWidth(maxInt(40, m.width/2-2))

	feedH := m.height - topH - 6
	if feedH < 3 {
		feedH = 3
	}
	m.feedView.Width = maxInt(20, m.width-4)
	m.feedView.Height = feedH
	m.input.Width = maxInt(20, m.width-8)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
