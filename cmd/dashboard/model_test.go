package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
)

func testModel() *model {
	m := newModel("localhost:8080", "", "test")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func tick(id string, n uint64) protocol.TickEvent {
	return protocol.TickEvent{
		Type:        protocol.TypeTick,
		ProjectID:   id,
		Tick:        n,
		SimHours:    int64(n),
		DaysElapsed: int64(n / 24),
		Phase:       1,
		PhaseName:   "ideation",
		Finance:     protocol.FinanceSnapshot{ReservesMinor: 50_000_000_00, RunwayDays: 199},
	}
}

func TestUpsertKeepsSortedOrder(t *testing.T) {
	m := testModel()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		m.upsert(id)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, id := range want {
		if m.order[i] != id {
			t.Fatalf("order[%d] = %q, want %q", i, m.order[i], id)
		}
	}
	if m.upsert("alpha") != m.projects["alpha"] {
		t.Fatalf("upsert of an existing id must return the same project")
	}
	if len(m.order) != 3 {
		t.Fatalf("re-upsert grew order to %d entries", len(m.order))
	}
}

func TestTickFoldsProjectState(t *testing.T) {
	m := testModel()
	ev := tick("proj-1", 9)
	ev.Stalled = true
	ev.Agents = []protocol.AgentDelta{{ID: "ENG-001", Status: "working", CurrentTaskID: "t-1"}}
	ev.Records = []commlog.Record{{
		Seq: 1, From: "CEO-001", To: "#internal",
		Kind: commlog.KindPhase, Text: "kickoff", SimHours: 9,
	}}

	_, cmd := m.Update(tickMsg(ev))
	if cmd != nil {
		t.Fatalf("tick without a live feed must not schedule a command")
	}

	p := m.projects["proj-1"]
	if p == nil {
		t.Fatalf("tick did not create the project")
	}
	if !p.hasTick || p.tick != 9 || p.phaseName != "ideation" || !p.stalled {
		t.Fatalf("folded state = %+v", *p)
	}
	if p.stateLabel() != "stalled" {
		t.Fatalf("stateLabel = %q, want stalled", p.stateLabel())
	}
	if len(m.lines) != 1 || !strings.Contains(m.lines[0].text, "kickoff") {
		t.Fatalf("feed lines = %+v", m.lines)
	}
	row := m.table.SelectedRow()
	if len(row) == 0 || row[0] != "proj-1" {
		t.Fatalf("selected row = %v", row)
	}
	if row[3] != "$50.0M" {
		t.Fatalf("reserves cell = %q", row[3])
	}
}

func TestFeedRingDropsOldest(t *testing.T) {
	m := testModel()
	for i := 0; i < maxFeedLines+40; i++ {
		ev := tick("proj-1", uint64(i))
		ev.Records = []commlog.Record{{Seq: uint64(i), From: "x", Kind: commlog.KindChat, Text: "line"}}
		m.Update(tickMsg(ev))
	}
	if len(m.lines) != maxFeedLines {
		t.Fatalf("feed holds %d lines, want %d", len(m.lines), maxFeedLines)
	}
}

func TestStateLabelPrecedence(t *testing.T) {
	p := &project{quarantined: true, paused: true, stalled: true}
	if got := p.stateLabel(); got != "quarantined" {
		t.Fatalf("stateLabel = %q, want quarantined", got)
	}
	p.quarantined = false
	if got := p.stateLabel(); got != "paused" {
		t.Fatalf("stateLabel = %q, want paused", got)
	}
	p.paused = false
	if got := p.stateLabel(); got != "stalled" {
		t.Fatalf("stateLabel = %q, want stalled", got)
	}
	p.stalled = false
	if got := p.stateLabel(); got != "running" {
		t.Fatalf("stateLabel = %q, want running", got)
	}
}

func TestRenderRecordMultiProjectPrefix(t *testing.T) {
	r := commlog.Record{From: "UX-001", To: "ENG-002", Kind: commlog.KindChat, Text: "ready for review", SimHours: 26}
	line := renderRecord("proj-2", r, true)
	for _, want := range []string{"proj-2", "d01 02:00", "UX-001→ENG-002", "ready for review"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}

	single := renderRecord("proj-2", commlog.Record{From: "system", To: "#internal", Kind: commlog.KindSystem, Text: "hired"}, false)
	if strings.Contains(single, "proj-2") {
		t.Fatalf("single-project line %q should not carry the project id", single)
	}
	if strings.Contains(single, "→") {
		t.Fatalf("broadcast line %q should not render a recipient", single)
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := []struct {
		minor int64
		exact string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{-10050, "-$100.50"},
		{123456789, "$1,234,567.89"},
	}
	for _, c := range cases {
		if got := moneyMinor(c.minor); got != c.exact {
			t.Fatalf("moneyMinor(%d) = %q, want %q", c.minor, got, c.exact)
		}
	}

	compact := []struct {
		minor int64
		want  string
	}{
		{0, "$0"},
		{12345, "$123"},
		{45_000_000, "$450k"},
		{100_000_000, "$1.0M"},
		{-25_000_000, "-$250k"},
	}
	for _, c := range compact {
		if got := moneyCompact(c.minor); got != c.want {
			t.Fatalf("moneyCompact(%d) = %q, want %q", c.minor, got, c.want)
		}
	}
}

func TestRunwayLabel(t *testing.T) {
	if got := runwayLabel(protocol.RunwayInfinite); got != "∞" {
		t.Fatalf("infinite runway = %q", got)
	}
	if got := runwayLabel(42); got != "42d" {
		t.Fatalf("runway = %q, want 42d", got)
	}
}

func TestApplyAdminResult(t *testing.T) {
	m := testModel()
	m.Update(tickMsg(tick("proj-1", 1)))

	m.applyAdminResult(adminResultMsg{verb: "pause", project: "proj-1"})
	if !m.projects["proj-1"].paused {
		t.Fatalf("pause result did not mark the project paused")
	}
	m.applyAdminResult(adminResultMsg{verb: "resume", project: "proj-1"})
	if m.projects["proj-1"].paused {
		t.Fatalf("resume result did not clear the paused flag")
	}

	m.applyAdminResult(adminResultMsg{verb: "snapshot", project: "proj-1", detail: "/tmp/snap.bin.zst"})
	if !strings.Contains(m.statusMsg, "/tmp/snap.bin.zst") {
		t.Fatalf("snapshot status = %q", m.statusMsg)
	}

	m.applyAdminResult(adminResultMsg{verb: "tick", project: "proj-1", err: errors.New("E_PAUSED: paused")})
	if !strings.Contains(m.statusMsg, "failed") {
		t.Fatalf("error status = %q", m.statusMsg)
	}
}

func TestDisconnectSchedulesReconnect(t *testing.T) {
	m := testModel()
	m.connected = true

	_, cmd := m.Update(disconnectedMsg{err: errors.New("boom")})
	if m.connected {
		t.Fatalf("still marked connected after a disconnect")
	}
	if cmd == nil {
		t.Fatalf("disconnect must schedule a reconnect timer")
	}
	if !strings.Contains(m.statusMsg, "retrying") {
		t.Fatalf("status = %q", m.statusMsg)
	}

	// A stale notification from a feed that was already torn down is ignored.
	_, cmd = m.Update(disconnectedMsg{})
	if cmd != nil {
		t.Fatalf("stale disconnect scheduled a second reconnect")
	}

	_, cmd = m.Update(reconnectMsg{})
	if cmd == nil {
		t.Fatalf("reconnect tick while offline must redial")
	}
	m.connected = true
	_, cmd = m.Update(reconnectMsg{})
	if cmd != nil {
		t.Fatalf("reconnect tick while connected must be a no-op")
	}
}

func TestKeyHandling(t *testing.T) {
	m := testModel()

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})
	if m.focus == focusInput {
		t.Fatalf("owner note opened with no project selected")
	}
	if !strings.Contains(m.statusMsg, "no project") {
		t.Fatalf("status = %q", m.statusMsg)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusFeed {
		t.Fatalf("tab did not move focus to the feed")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusProjects {
		t.Fatalf("tab did not move focus back")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if !m.onlySel {
		t.Fatalf("f did not enable the selected-project filter")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if m.onlySel {
		t.Fatalf("f did not disable the filter")
	}
}

func TestFeedFilterFollowsSelection(t *testing.T) {
	m := testModel()
	for _, id := range []string{"aa", "bb"} {
		ev := tick(id, 1)
		ev.Records = []commlog.Record{{From: "x", Kind: commlog.KindChat, Text: "from-" + id}}
		m.Update(tickMsg(ev))
	}

	m.onlySel = true
	m.refreshFeed()
	// Row 0 is "aa"; only its lines survive the filter.
	for _, l := range m.lines {
		if l.project == "aa" && !strings.Contains(l.text, "from-aa") {
			t.Fatalf("line for aa = %q", l.text)
		}
	}
	if got := m.selectedID(); got != "aa" {
		t.Fatalf("selected id = %q, want aa", got)
	}
}
