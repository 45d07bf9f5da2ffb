package company

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/clock"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
)

type Config struct {
	ProjectID string
	SeedIdea  string
	Seed      int64

	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	// Now is the wall-clock source; nil means time.Now. Tests inject a fake.
	Now func() time.Time

	// Optional collaborators (all may be nil).
	Narrator     Narrator
	TickLogger   TickLogger
	RecordLogger RecordLogger
	SnapshotSink chan<- snapshot.SnapshotV1
	Events       chan<- protocol.TickEvent
	Logger       *log.Logger
}

// Narrator decorates simulation moments with prose. Calls run off the loop
// goroutine with a timeout; failures are logged and swallowed.
type Narrator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TickLogger receives one entry per completed tick.
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// RecordLogger receives every appended communication record.
type RecordLogger interface {
	WriteRecord(projectID string, rec commlog.Record) error
}

type TickLogEntry struct {
	ProjectID   string `json:"project_id"`
	Tick        uint64 `json:"tick"`
	SimHours    int64  `json:"sim_hours"`
	Phase       int    `json:"phase"`
	Records     int    `json:"records"`
	Completions int    `json:"completions"`
	Digest      string `json:"digest"`
}

// Company is a single-threaded authoritative simulation of one project.
// All state must be accessed only from the company loop goroutine; tests
// may instead drive StepHours directly from one goroutine.
type Company struct {
	cfg  Config
	tun  tuning.Tuning
	cats *catalogs.Catalogs
	clk  *clock.Clock
	now  func() time.Time

	threadNS uuid.UUID

	tickSeq  uint64
	simHours int64

	phase           int
	phaseStartHours int64
	stalled         bool
	paused          bool
	quarantined     bool
	quarantineNote  string

	agents     map[string]*Agent
	agentOrder []string // sorted role ids, assignment and delta order

	tasks     map[string]*Task
	taskOrder []string // creation order
	nextTask  uint64

	chain          *commlog.Chain
	completedByTag map[string]int

	fin      finances
	satisf   int
	quality  int
	zones    map[string][2]int // department -> zone center
	deskByID map[string][2]int

	// Per-step scratch, reset each step call.
	stepRecords     []commlog.Record
	stepCompletions int
	transitioned    bool

	pendingNarr []narrativeResult

	lastSnapshotHours int64

	tickReq   chan tickRequest
	ownerReq  chan ownerRequest
	ctrlReq   chan ctrlRequest
	snapReq   chan snapRequest
	statusReq chan statusRequest
	narrIn    chan narrativeResult
	stop      chan struct{}
	done      chan struct{}

	logger *log.Logger
}

type tickRequest struct {
	resp chan tickReply
}

type tickReply struct {
	ev  protocol.TickEvent
	err error
}

type ownerRequest struct {
	text string
	resp chan error
}

type ctrlKind int

const (
	ctrlPause ctrlKind = iota
	ctrlResume
)

type ctrlRequest struct {
	kind ctrlKind
	resp chan error
}

type snapRequest struct {
	resp chan snapshot.SnapshotV1
}

type statusRequest struct {
	resp chan Status
}

type narrativeResult struct {
	from     string
	threadID string
	text     string
}

// newShell builds the loop plumbing and empty state shared by New and
// NewFromSnapshot.
func newShell(cfg Config) *Company {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	c := &Company{
		cfg:            cfg,
		tun:            cfg.Tuning,
		cats:           cfg.Catalogs,
		now:            cfg.Now,
		clk:            clock.New(cfg.Tuning.Clock.SimHoursPerRealSecond, cfg.Now),
		threadNS:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("versaas://project/"+cfg.ProjectID)),
		agents:         map[string]*Agent{},
		tasks:          map[string]*Task{},
		chain:          commlog.NewChain(),
		completedByTag: map[string]int{},
		satisf:         50,
		quality:        70,
		tickReq:        make(chan tickRequest),
		ownerReq:       make(chan ownerRequest),
		ctrlReq:        make(chan ctrlRequest),
		snapReq:        make(chan snapRequest),
		statusReq:      make(chan statusRequest),
		narrIn:         make(chan narrativeResult, 16),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		logger:         cfg.Logger,
	}
	c.fin = newFinances(cfg.Tuning.Finance)
	c.buildOffice()
	return c
}

// New builds a fresh project at phase 0 with the full agent roster and the
// idea-intake backlog seeded. The communication log opens with the project
// registration and the owner's idea.
func New(cfg Config) *Company {
	c := newShell(cfg)
	for _, role := range c.cats.Roster.Roles {
		a := newAgent(role, c.deskByID[role.ID])
		c.agents[a.ID] = a
		c.agentOrder = append(c.agentOrder, a.ID)
	}
	c.seedPhaseBacklog(0)

	c.appendRecord("system", commlog.ChannelInternal, commlog.KindSystem,
		"Project "+cfg.ProjectID+" registered; roster of "+strconv.Itoa(len(c.agentOrder))+" on the clock.",
		c.threadID("system/registration"))
	if cfg.SeedIdea != "" {
		c.appendRecord("owner", "CEO-001", commlog.KindUserInput, cfg.SeedIdea,
			c.threadID("owner/seed"))
		c.appendRecord("CEO-001", commlog.ChannelInternal, commlog.KindDecision,
			"Owner idea accepted. Idea intake starts now.",
			c.threadID("owner/seed"))
	}
	c.stepRecords = nil
	return c
}

// Run drives the company until ctx is canceled or Stop is called. A ticker
// converts wall time into simulated hours; every request type is serialized
// through this loop.
func (c *Company) Run(ctx context.Context) error {
	defer close(c.done)

	interval := time.Duration(c.tun.Clock.TickIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case <-ticker.C:
			if c.paused || c.quarantined {
				c.clk.Rebase()
				continue
			}
			if hours := c.clk.Advance(); hours > 0 {
				ev := c.step(hours)
				c.emit(ev)
			}
		case req := <-c.tickReq:
			req.resp <- c.handleTick()
		case req := <-c.ownerReq:
			req.resp <- c.handleOwnerRequest(req.text)
		case req := <-c.ctrlReq:
			req.resp <- c.handleCtrl(req.kind)
		case req := <-c.snapReq:
			req.resp <- c.ExportSnapshot()
		case req := <-c.statusReq:
			req.resp <- c.buildStatus()
		case res := <-c.narrIn:
			c.pendingNarr = append(c.pendingNarr, res)
		}
	}
}

// Stop asks the loop to exit. Safe to call once; Done unblocks after the
// in-flight tick finishes.
func (c *Company) Stop() { close(c.stop) }

// Done is closed when the loop has fully exited.
func (c *Company) Done() <-chan struct{} { return c.done }

func (c *Company) handleTick() tickReply {
	if c.quarantined {
		return tickReply{err: &protocol.InvariantViolation{
			ProjectID: c.cfg.ProjectID,
			Reason:    c.quarantineNote,
		}}
	}
	if c.paused {
		// Paused projects do not step; report current state unchanged.
		return tickReply{ev: c.buildTickEvent(nil)}
	}
	hours := c.clk.Advance()
	if hours == 0 {
		return tickReply{ev: c.buildTickEvent(nil)}
	}
	ev := c.step(hours)
	c.emit(ev)
	return tickReply{ev: ev}
}

func (c *Company) handleCtrl(kind ctrlKind) error {
	switch kind {
	case ctrlPause:
		c.paused = true
	case ctrlResume:
		c.paused = false
		c.clk.Rebase()
	}
	return nil
}

func (c *Company) emit(ev protocol.TickEvent) {
	if c.cfg.Events == nil {
		return
	}
	select {
	case c.cfg.Events <- ev:
	default:
		// Subscriber fan-out is behind; drop rather than stall the loop.
	}
}

// TickNow advances the clock and steps the simulation once, returning the
// tick event. With zero elapsed simulated time the state is unchanged and no
// records are appended.
func (c *Company) TickNow(ctx context.Context) (protocol.TickEvent, error) {
	req := tickRequest{resp: make(chan tickReply, 1)}
	select {
	case c.tickReq <- req:
	case <-c.done:
		return protocol.TickEvent{}, &protocol.NotFoundError{Kind: "project", ID: c.cfg.ProjectID}
	case <-ctx.Done():
		return protocol.TickEvent{}, ctx.Err()
	}
	select {
	case r := <-req.resp:
		return r.ev, r.err
	case <-ctx.Done():
		return protocol.TickEvent{}, ctx.Err()
	}
}

func (c *Company) Pause(ctx context.Context) error  { return c.ctrl(ctx, ctrlPause) }
func (c *Company) Resume(ctx context.Context) error { return c.ctrl(ctx, ctrlResume) }

func (c *Company) ctrl(ctx context.Context, kind ctrlKind) error {
	req := ctrlRequest{kind: kind, resp: make(chan error, 1)}
	select {
	case c.ctrlReq <- req:
	case <-c.done:
		return &protocol.NotFoundError{Kind: "project", ID: c.cfg.ProjectID}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a consistent snapshot taken inside the loop.
func (c *Company) Snapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	req := snapRequest{resp: make(chan snapshot.SnapshotV1, 1)}
	select {
	case c.snapReq <- req:
	case <-c.done:
		return snapshot.SnapshotV1{}, &protocol.NotFoundError{Kind: "project", ID: c.cfg.ProjectID}
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
	select {
	case snap := <-req.resp:
		return snap, nil
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
}

// Status reports phase, gate progress, finances and metrics.
func (c *Company) Status(ctx context.Context) (Status, error) {
	req := statusRequest{resp: make(chan Status, 1)}
	select {
	case c.statusReq <- req:
	case <-c.done:
		return Status{}, &protocol.NotFoundError{Kind: "project", ID: c.cfg.ProjectID}
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	select {
	case st := <-req.resp:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// OwnerRequest routes owner text through the CEO into the communication log,
// raising an urgent task when the text asks for work.
func (c *Company) OwnerRequest(ctx context.Context, text string) error {
	req := ownerRequest{text: text, resp: make(chan error, 1)}
	select {
	case c.ownerReq <- req:
	case <-c.done:
		return &protocol.NotFoundError{Kind: "project", ID: c.cfg.ProjectID}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finalize appends the project's closing record and exports the terminal
// snapshot. It blocks until the loop has exited; after that no other
// goroutine owns the state. Quarantined projects stay read-only, so they get
// the snapshot but not the record.
func (c *Company) Finalize(note string) snapshot.SnapshotV1 {
	<-c.done
	if !c.quarantined {
		c.appendRecord("system", commlog.ChannelInternal, commlog.KindSystem, note,
			c.threadID("system/shutdown"))
		c.stepRecords = nil
	}
	return c.ExportSnapshot()
}

// ProjectID returns the immutable project identifier.
func (c *Company) ProjectID() string { return c.cfg.ProjectID }

func (c *Company) threadID(name string) string {
	return uuid.NewSHA1(c.threadNS, []byte(name)).String()
}
