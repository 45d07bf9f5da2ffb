// Package multiproject owns the set of live company simulations. One
// Manager maps project ids to their loop goroutines, routes every operation
// to the owning loop, lands autosnapshots on disk as they arrive, and
// persists its own registry to a JSON state file so a restart can pick the
// same projects back up.
package multiproject

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blackrab369/Versaas-ai/internal/persistence/archive"
	persistlog "github.com/blackrab369/Versaas-ai/internal/persistence/log"
	"github.com/blackrab369/Versaas-ai/internal/persistence/mirror"
	"github.com/blackrab369/Versaas-ai/internal/persistence/snapshot"
	"github.com/blackrab369/Versaas-ai/internal/persistence/store"
	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/catalogs"
	"github.com/blackrab369/Versaas-ai/internal/sim/commlog"
	"github.com/blackrab369/Versaas-ai/internal/sim/company"
	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
)

const (
	stateVersion = 1

	statusRunning     = "running"
	statusPaused      = "paused"
	statusQuarantined = "quarantined"
	statusTerminated  = "terminated"
)

// Config wires the manager's collaborators. Store, Logs, Narrator and Events
// are all optional; a nil collaborator simply drops that concern.
type Config struct {
	Catalogs *catalogs.Catalogs
	Tuning   tuning.Tuning

	// DataDir is the root for snapshot files; StateFile holds the registry.
	DataDir   string
	StateFile string

	Narrator company.Narrator
	Store    *store.SQLiteStore
	Logs     *persistlog.ProjectLogs
	Mirror   *mirror.Mirror
	Events   chan<- protocol.TickEvent

	Logger *log.Logger
	Now    func() time.Time
}

type runtime struct {
	c      *company.Company
	cancel context.CancelFunc
}

// registryEntry is what the manager remembers about a project across
// restarts. Terminated ids stay registered forever so Create can refuse
// them.
type registryEntry struct {
	Status           string `json:"status"`
	Seed             int64  `json:"seed"`
	SeedIdea         string `json:"seed_idea,omitempty"`
	CreatedAtMillis  int64  `json:"created_at_millis,omitempty"`
	LastSnapshotPath string `json:"last_snapshot_path,omitempty"`
	LastSnapshotTick uint64 `json:"last_snapshot_tick,omitempty"`
}

type persistedState struct {
	Version  int                      `json:"version"`
	Projects map[string]registryEntry `json:"projects"`
}

type Manager struct {
	mu sync.RWMutex

	cfg    Config
	logger *log.Logger
	now    func() time.Time

	runtimes map[string]*runtime
	registry map[string]registryEntry

	snapCh   chan snapshot.SnapshotV1
	snapStop chan struct{}
	snapWG   sync.WaitGroup

	persistDebounce time.Duration
	persistCh       chan struct{}
	persistFlush    chan chan struct{}
	persistStop     chan struct{}
	persistWG       sync.WaitGroup
	closeOnce       sync.Once
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Catalogs == nil {
		return nil, fmt.Errorf("nil catalogs")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	m := &Manager{
		cfg:             cfg,
		logger:          cfg.Logger,
		now:             cfg.Now,
		runtimes:        map[string]*runtime{},
		registry:        map[string]registryEntry{},
		snapCh:          make(chan snapshot.SnapshotV1, 8),
		snapStop:        make(chan struct{}),
		persistDebounce: 200 * time.Millisecond,
		persistCh:       make(chan struct{}, 1),
		persistFlush:    make(chan chan struct{}, 8),
		persistStop:     make(chan struct{}),
	}
	m.loadState()
	m.persistWG.Add(1)
	go m.persistLoop()
	m.snapWG.Add(1)
	go m.snapshotLoop()
	return m, nil
}

// Create registers a fresh project at phase 0 and starts its loop. Any id
// the registry has ever seen, including terminated ones, is refused with a
// DuplicateError.
func (m *Manager) Create(ctx context.Context, projectID, seedIdea string, seed int64) (protocol.ProjectRef, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return protocol.ProjectRef{}, fmt.Errorf("empty project id")
	}
	if seed == 0 {
		seed = deriveSeed(projectID)
	}

	m.mu.Lock()
	if _, ok := m.runtimes[projectID]; ok {
		m.mu.Unlock()
		return protocol.ProjectRef{}, &protocol.DuplicateError{ID: projectID}
	}
	if _, ok := m.registry[projectID]; ok {
		m.mu.Unlock()
		return protocol.ProjectRef{}, &protocol.DuplicateError{ID: projectID}
	}
	c := company.New(m.companyConfig(projectID, seedIdea, seed))
	runCtx, cancel := context.WithCancel(context.Background())
	m.runtimes[projectID] = &runtime{c: c, cancel: cancel}
	m.registry[projectID] = registryEntry{
		Status:          statusRunning,
		Seed:            seed,
		SeedIdea:        seedIdea,
		CreatedAtMillis: m.now().UnixMilli(),
	}
	m.schedulePersistLocked()
	m.mu.Unlock()

	go func() { _ = c.Run(runCtx) }()

	if m.cfg.Store != nil {
		if err := m.cfg.Store.CreateProject(ctx, projectID, seed, seedIdea, statusRunning); err != nil {
			m.logger.Printf("[manager] index create %s: %v", projectID, err)
		}
	}
	m.logger.Printf("[manager] project %s created (seed %d)", projectID, seed)
	return protocol.ProjectRef{ID: projectID, Phase: 0, PhaseName: company.PhaseName(0)}, nil
}

// Tick advances one project explicitly and returns its tick event. Unknown
// and terminated ids get a NotFoundError; quarantined projects surface an
// InvariantViolation from the loop.
func (m *Manager) Tick(ctx context.Context, projectID string) (protocol.TickEvent, error) {
	rt := m.runtime(projectID)
	if rt == nil {
		return protocol.TickEvent{}, &protocol.NotFoundError{Kind: "project", ID: projectID}
	}
	return rt.c.TickNow(ctx)
}

func (m *Manager) Pause(ctx context.Context, projectID string) error {
	return m.setPaused(ctx, projectID, true)
}

func (m *Manager) Resume(ctx context.Context, projectID string) error {
	return m.setPaused(ctx, projectID, false)
}

func (m *Manager) setPaused(ctx context.Context, projectID string, paused bool) error {
	rt := m.runtime(projectID)
	if rt == nil {
		return &protocol.NotFoundError{Kind: "project", ID: projectID}
	}
	var err error
	status := statusRunning
	if paused {
		err = rt.c.Pause(ctx)
		status = statusPaused
	} else {
		err = rt.c.Resume(ctx)
	}
	if err != nil {
		return err
	}
	m.setRegistryStatus(projectID, status)
	if m.cfg.Store != nil {
		if serr := m.cfg.Store.SetProjectStatus(ctx, projectID, status); serr != nil {
			m.logger.Printf("[manager] index status %s: %v", projectID, serr)
		}
	}
	return nil
}

// Terminate stops the loop, waits for any in-flight tick, closes the books
// with a final record, writes the terminal snapshot synchronously, and
// releases the runtime. The id stays registered and can never be reused.
func (m *Manager) Terminate(ctx context.Context, projectID string) error {
	m.mu.Lock()
	rt, ok := m.runtimes[projectID]
	if !ok {
		m.mu.Unlock()
		return &protocol.NotFoundError{Kind: "project", ID: projectID}
	}
	delete(m.runtimes, projectID)
	m.mu.Unlock()

	rt.c.Stop()
	rt.cancel()
	<-rt.c.Done()

	snap := rt.c.Finalize("Project terminated by operator; books closed.")
	path := m.snapshotPath(projectID, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		m.logger.Printf("[manager] final snapshot %s: %v", projectID, err)
		path = ""
	} else {
		if m.cfg.Store != nil {
			m.cfg.Store.RecordSnapshot(path, snap)
		}
		m.cfg.Mirror.Enqueue(path)
		if archived, err := archive.ArchiveTerminated(m.cfg.DataDir, path, snap); err != nil {
			m.logger.Printf("[manager] archive %s: %v", projectID, err)
		} else {
			m.cfg.Mirror.Enqueue(archived)
			m.logger.Printf("[manager] project %s archived: %s", projectID, archived)
		}
	}
	if m.cfg.Logs != nil {
		if err := m.cfg.Logs.CloseProject(projectID); err != nil {
			m.logger.Printf("[manager] close logs %s: %v", projectID, err)
		}
	}
	if m.cfg.Store != nil {
		if err := m.cfg.Store.SetProjectStatus(ctx, projectID, statusTerminated); err != nil {
			m.logger.Printf("[manager] index status %s: %v", projectID, err)
		}
	}

	m.mu.Lock()
	ent := m.registry[projectID]
	ent.Status = statusTerminated
	if path != "" {
		ent.LastSnapshotPath = path
		ent.LastSnapshotTick = snap.Header.Tick
	}
	m.registry[projectID] = ent
	m.schedulePersistLocked()
	m.mu.Unlock()

	m.logger.Printf("[manager] project %s terminated at tick %d", projectID, snap.Header.Tick)
	return nil
}

// Snapshot takes a consistent snapshot inside the loop and writes it to
// disk, returning the file path.
func (m *Manager) Snapshot(ctx context.Context, projectID string) (string, snapshot.SnapshotV1, error) {
	rt := m.runtime(projectID)
	if rt == nil {
		return "", snapshot.SnapshotV1{}, &protocol.NotFoundError{Kind: "project", ID: projectID}
	}
	snap, err := rt.c.Snapshot(ctx)
	if err != nil {
		return "", snapshot.SnapshotV1{}, err
	}
	path := m.snapshotPath(projectID, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", snap, fmt.Errorf("write snapshot: %w", err)
	}
	if m.cfg.Store != nil {
		m.cfg.Store.RecordSnapshot(path, snap)
	}
	m.cfg.Mirror.Enqueue(path)
	m.noteSnapshot(projectID, path, snap.Header.Tick)
	return path, snap, nil
}

// Restore rehydrates a project from a snapshot and starts its loop. The
// chain is re-verified during hydration; a project that fails verification
// comes up quarantined and read-only. A live id is refused; a terminated id
// may be brought back, since a restore continues the archived history
// instead of forking it the way Create would.
func (m *Manager) Restore(ctx context.Context, snap snapshot.SnapshotV1) (protocol.ProjectRef, error) {
	projectID := strings.TrimSpace(snap.Header.ProjectID)
	if projectID == "" {
		return protocol.ProjectRef{}, fmt.Errorf("snapshot missing project id")
	}

	m.mu.Lock()
	if _, ok := m.runtimes[projectID]; ok {
		m.mu.Unlock()
		return protocol.ProjectRef{}, &protocol.DuplicateError{ID: projectID}
	}
	c := company.NewFromSnapshot(m.companyConfig(projectID, snap.SeedIdea, snap.Seed), snap)
	runCtx, cancel := context.WithCancel(context.Background())
	m.runtimes[projectID] = &runtime{c: c, cancel: cancel}
	ent := m.registry[projectID]
	ent.Seed = snap.Seed
	ent.SeedIdea = snap.SeedIdea
	if ent.CreatedAtMillis == 0 {
		ent.CreatedAtMillis = m.now().UnixMilli()
	}
	ent.Status = statusRunning
	if snap.Paused {
		ent.Status = statusPaused
	}
	m.registry[projectID] = ent
	m.schedulePersistLocked()
	m.mu.Unlock()

	go func() { _ = c.Run(runCtx) }()

	if m.cfg.Store != nil {
		if err := m.cfg.Store.CreateProject(ctx, projectID, snap.Seed, snap.SeedIdea, ent.Status); err != nil {
			m.logger.Printf("[manager] index create %s: %v", projectID, err)
		}
	}

	st, err := c.Status(ctx)
	if err != nil {
		return protocol.ProjectRef{ID: projectID, Phase: snap.Phase, PhaseName: company.PhaseName(snap.Phase)}, nil
	}
	if st.Quarantined {
		m.logger.Printf("[manager] project %s restored quarantined: %s", projectID, st.QuarantineNote)
		if m.cfg.Store != nil {
			if serr := m.cfg.Store.SetProjectStatus(ctx, projectID, statusQuarantined); serr != nil {
				m.logger.Printf("[manager] index status %s: %v", projectID, serr)
			}
		}
	}
	return protocol.ProjectRef{
		ID:          projectID,
		Phase:       st.Phase,
		PhaseName:   st.PhaseName,
		Paused:      st.Paused,
		Quarantined: st.Quarantined,
	}, nil
}

// RestoreFile reads a snapshot file and restores from it.
func (m *Manager) RestoreFile(ctx context.Context, path string) (protocol.ProjectRef, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return protocol.ProjectRef{}, fmt.Errorf("read snapshot: %w", err)
	}
	return m.Restore(ctx, snap)
}

// Status reports one project's full queryable state.
func (m *Manager) Status(ctx context.Context, projectID string) (company.Status, error) {
	rt := m.runtime(projectID)
	if rt == nil {
		return company.Status{}, &protocol.NotFoundError{Kind: "project", ID: projectID}
	}
	return rt.c.Status(ctx)
}

// SubmitOwnerRequest routes owner text into the project through the CEO.
func (m *Manager) SubmitOwnerRequest(ctx context.Context, projectID, text string) error {
	rt := m.runtime(projectID)
	if rt == nil {
		return &protocol.NotFoundError{Kind: "project", ID: projectID}
	}
	return rt.c.OwnerRequest(ctx, text)
}

// ProjectState is one row of the manager-wide summary.
type ProjectState struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Phase       int    `json:"phase"`
	PhaseName   string `json:"phase_name"`
	Tick        uint64 `json:"tick"`
	SimHours    int64  `json:"sim_hours"`
	DaysElapsed int64  `json:"days_elapsed"`
	Stalled     bool   `json:"stalled,omitempty"`
	Quarantined bool   `json:"quarantined,omitempty"`
}

// State is the admin summary across every registered project, terminated
// ones included.
type State struct {
	Projects    []ProjectState `json:"projects"`
	Running     int            `json:"running"`
	Paused      int            `json:"paused"`
	Quarantined int            `json:"quarantined"`
	Terminated  int            `json:"terminated"`
}

func (m *Manager) State(ctx context.Context) State {
	m.mu.RLock()
	ids := make([]string, 0, len(m.registry))
	entries := make(map[string]registryEntry, len(m.registry))
	rts := make(map[string]*runtime, len(m.runtimes))
	for id, ent := range m.registry {
		ids = append(ids, id)
		entries[id] = ent
	}
	for id, rt := range m.runtimes {
		rts[id] = rt
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	var out State
	for _, id := range ids {
		ps := ProjectState{ID: id, Status: entries[id].Status}
		if rt, ok := rts[id]; ok {
			if st, err := rt.c.Status(ctx); err == nil {
				ps.Phase = st.Phase
				ps.PhaseName = st.PhaseName
				ps.Tick = st.Tick
				ps.SimHours = st.SimHours
				ps.DaysElapsed = st.DaysElapsed
				ps.Stalled = st.Stalled
				switch {
				case st.Quarantined:
					ps.Status = statusQuarantined
					ps.Quarantined = true
				case st.Paused:
					ps.Status = statusPaused
				default:
					ps.Status = statusRunning
				}
			}
		}
		switch ps.Status {
		case statusRunning:
			out.Running++
		case statusPaused:
			out.Paused++
		case statusQuarantined:
			out.Quarantined++
		case statusTerminated:
			out.Terminated++
		}
		out.Projects = append(out.Projects, ps)
	}
	return out
}

// Refs summarizes the live projects for client welcome messages.
func (m *Manager) Refs(ctx context.Context) []protocol.ProjectRef {
	m.mu.RLock()
	ids := make([]string, 0, len(m.runtimes))
	rts := make(map[string]*runtime, len(m.runtimes))
	for id, rt := range m.runtimes {
		ids = append(ids, id)
		rts[id] = rt
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	refs := make([]protocol.ProjectRef, 0, len(ids))
	for _, id := range ids {
		st, err := rts[id].c.Status(ctx)
		if err != nil {
			continue
		}
		refs = append(refs, protocol.ProjectRef{
			ID:          id,
			Phase:       st.Phase,
			PhaseName:   st.PhaseName,
			Paused:      st.Paused,
			Quarantined: st.Quarantined,
		})
	}
	return refs
}

// Recover restarts every registered non-terminated project from its most
// recent snapshot. Projects with no snapshot on disk are logged and left
// unstarted; their registry entries survive for a later manual restore.
func (m *Manager) Recover(ctx context.Context) int {
	m.mu.RLock()
	ids := make([]string, 0, len(m.registry))
	entries := make(map[string]registryEntry, len(m.registry))
	for id, ent := range m.registry {
		if ent.Status == statusTerminated {
			continue
		}
		ids = append(ids, id)
		entries[id] = ent
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	n := 0
	for _, id := range ids {
		if m.runtime(id) != nil {
			continue
		}
		path := entries[id].LastSnapshotPath
		if path == "" && m.cfg.Store != nil {
			if ref, ok, err := m.cfg.Store.LatestSnapshot(ctx, id); err == nil && ok {
				path = ref.Path
			}
		}
		if path == "" {
			m.logger.Printf("[manager] recover %s: no snapshot on disk", id)
			continue
		}
		if _, err := m.RestoreFile(ctx, path); err != nil {
			m.logger.Printf("[manager] recover %s: %v", id, err)
			continue
		}
		n++
	}
	return n
}

// Close stops every runtime and flushes the registry. Statuses are left as
// they are so a later Recover restarts the same projects.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		rts := make([]*runtime, 0, len(m.runtimes))
		for id, rt := range m.runtimes {
			rts = append(rts, rt)
			delete(m.runtimes, id)
		}
		m.mu.Unlock()
		for _, rt := range rts {
			rt.c.Stop()
			rt.cancel()
		}
		for _, rt := range rts {
			<-rt.c.Done()
		}
		close(m.snapStop)
		m.snapWG.Wait()
		close(m.persistStop)
		m.persistWG.Wait()
	})
}

func (m *Manager) runtime(projectID string) *runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtimes[projectID]
}

func (m *Manager) companyConfig(projectID, seedIdea string, seed int64) company.Config {
	cfg := company.Config{
		ProjectID:    projectID,
		SeedIdea:     seedIdea,
		Seed:         seed,
		Tuning:       m.cfg.Tuning,
		Catalogs:     m.cfg.Catalogs,
		Now:          m.now,
		Narrator:     m.cfg.Narrator,
		SnapshotSink: m.snapCh,
		Events:       m.cfg.Events,
		Logger:       m.logger,
	}
	if m.cfg.Logs != nil || m.cfg.Store != nil {
		sinks := teeSinks{logs: m.cfg.Logs, store: m.cfg.Store}
		cfg.TickLogger = sinks
		cfg.RecordLogger = sinks
	}
	return cfg
}

func (m *Manager) snapshotPath(projectID string, tick uint64) string {
	return filepath.Join(m.cfg.DataDir, "snapshots", projectID, fmt.Sprintf("snap-%08d.zst", tick))
}

func (m *Manager) noteSnapshot(projectID, path string, tick uint64) {
	m.mu.Lock()
	if ent, ok := m.registry[projectID]; ok {
		ent.LastSnapshotPath = path
		ent.LastSnapshotTick = tick
		m.registry[projectID] = ent
		m.schedulePersistLocked()
	}
	m.mu.Unlock()
}

func (m *Manager) setRegistryStatus(projectID, status string) {
	m.mu.Lock()
	ent := m.registry[projectID]
	ent.Status = status
	m.registry[projectID] = ent
	m.schedulePersistLocked()
	m.mu.Unlock()
}

// snapshotLoop consumes the autosnapshot channel the companies push into.
// Shutdown drains what already arrived before returning.
func (m *Manager) snapshotLoop() {
	defer m.snapWG.Done()
	for {
		select {
		case <-m.snapStop:
			for {
				select {
				case snap := <-m.snapCh:
					m.saveAuto(snap)
				default:
					return
				}
			}
		case snap := <-m.snapCh:
			m.saveAuto(snap)
		}
	}
}

func (m *Manager) saveAuto(snap snapshot.SnapshotV1) {
	projectID := snap.Header.ProjectID
	path := m.snapshotPath(projectID, snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		m.logger.Printf("[manager] snapshot %s: %v", projectID, err)
		return
	}
	if m.cfg.Store != nil {
		m.cfg.Store.RecordSnapshot(path, snap)
	}
	m.cfg.Mirror.Enqueue(path)
	m.noteSnapshot(projectID, path, snap.Header.Tick)
}

// teeSinks fans company log traffic to the JSONL logs and the SQLite index.
// The JSONL side is the durable source of truth, so its errors propagate;
// index writes are best-effort enqueues.
type teeSinks struct {
	logs  *persistlog.ProjectLogs
	store *store.SQLiteStore
}

func (t teeSinks) WriteRecord(projectID string, rec commlog.Record) error {
	if t.store != nil {
		_ = t.store.WriteRecord(projectID, rec)
	}
	if t.logs != nil {
		return t.logs.WriteRecord(projectID, rec)
	}
	return nil
}

func (t teeSinks) WriteTick(entry company.TickLogEntry) error {
	if t.store != nil {
		_ = t.store.WriteTick(entry)
	}
	if t.logs != nil {
		return t.logs.WriteTick(entry)
	}
	return nil
}

// deriveSeed folds a project id into a positive seed when the caller does
// not supply one.
func deriveSeed(projectID string) int64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(projectID); i++ {
		h ^= uint64(projectID[i])
		h *= 1099511628211
	}
	return int64(h & 0x7fffffffffffffff)
}

func (m *Manager) loadState() {
	if strings.TrimSpace(m.cfg.StateFile) == "" {
		return
	}
	b, err := os.ReadFile(m.cfg.StateFile)
	if err != nil {
		return
	}
	var st persistedState
	if err := json.Unmarshal(b, &st); err != nil {
		m.logger.Printf("[manager] state file unreadable: %v", err)
		return
	}
	for id, ent := range st.Projects {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if ent.Status == "" {
			ent.Status = statusRunning
		}
		m.registry[id] = ent
	}
}

func (m *Manager) schedulePersistLocked() {
	if m.cfg.StateFile == "" || m.persistCh == nil {
		return
	}
	select {
	case m.persistCh <- struct{}{}:
	default:
	}
}

func (m *Manager) persistLoop() {
	defer m.persistWG.Done()
	var timer *time.Timer
	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
	}
	for {
		var timerCh <-chan time.Time
		if timer != nil {
			timerCh = timer.C
		}
		select {
		case <-m.persistStop:
			stopTimer()
			m.persistNow()
			return
		case <-m.persistCh:
			if timer == nil {
				timer = time.NewTimer(m.persistDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(m.persistDebounce)
			}
		case ack := <-m.persistFlush:
			stopTimer()
			m.persistNow()
			if ack != nil {
				close(ack)
			}
		case <-timerCh:
			stopTimer()
			m.persistNow()
		}
	}
}

// FlushState forces a synchronous registry write, bypassing the debounce.
func (m *Manager) FlushState(ctx context.Context) error {
	if m.cfg.StateFile == "" || m.persistFlush == nil {
		return nil
	}
	ack := make(chan struct{})
	select {
	case m.persistFlush <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) persistNow() {
	m.mu.RLock()
	st := persistedState{Version: stateVersion, Projects: map[string]registryEntry{}}
	for id, ent := range m.registry {
		if id == "" {
			continue
		}
		st.Projects[id] = ent
	}
	m.mu.RUnlock()
	m.writeState(st)
}

func (m *Manager) writeState(st persistedState) {
	if m.cfg.StateFile == "" {
		return
	}
	b, _ := json.MarshalIndent(st, "", "  ")
	_ = os.MkdirAll(filepath.Dir(m.cfg.StateFile), 0o755)
	tmp := m.cfg.StateFile + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, m.cfg.StateFile)
}
