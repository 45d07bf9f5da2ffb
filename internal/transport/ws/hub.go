// Package ws streams completed-tick events to websocket subscribers. A
// client subscribes with a HELLO naming the projects it wants (empty means
// all), gets a WELCOME listing the live projects, then receives TICK events
// in per-project tick order.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
)

// Hub fans tick events out to every subscribed client. Companies push into
// one shared channel; the hub marshals each event once and offers it to
// each matching client without blocking on slow ones. A dropped event keeps
// per-project order intact for what does arrive, since delivery stays a
// subsequence of the emit order.
type Hub struct {
	logger *log.Logger

	mu      sync.RWMutex
	clients map[uint64]*client

	clientCount  atomic.Int64
	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
}

type client struct {
	out      chan []byte
	projects map[string]bool // nil means all projects
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{logger: logger, clients: map[uint64]*client{}}
}

// Run consumes the shared event channel until ctx ends or the channel is
// closed.
func (h *Hub) Run(ctx context.Context, events <-chan protocol.TickEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(ev)
		}
	}
}

// Broadcast delivers one event to every client whose filter matches.
func (h *Hub) Broadcast(ev protocol.TickEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.logger.Printf("[ws] marshal tick: %v", err)
		return
	}
	h.eventsTotal.Add(1)
	h.mu.RLock()
	for _, c := range h.clients {
		if c.projects != nil && !c.projects[ev.ProjectID] {
			continue
		}
		select {
		case c.out <- b:
		default:
			h.droppedTotal.Add(1)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) add(id uint64, out chan []byte, projects []string) {
	c := &client{out: out, projects: filterSet(projects)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.clientCount.Add(1)
}

func (h *Hub) setFilter(id uint64, projects []string) {
	h.mu.Lock()
	if c, ok := h.clients[id]; ok {
		c.projects = filterSet(projects)
	}
	h.mu.Unlock()
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	_, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		h.clientCount.Add(-1)
	}
}

func filterSet(projects []string) map[string]bool {
	if len(projects) == 0 {
		return nil
	}
	set := make(map[string]bool, len(projects))
	for _, p := range projects {
		set[p] = true
	}
	return set
}

// Clients reports the connected-client count.
func (h *Hub) Clients() int64 { return h.clientCount.Load() }

// Events reports how many tick events have been broadcast.
func (h *Hub) Events() uint64 { return h.eventsTotal.Load() }

// Dropped counts per-client deliveries skipped because a queue was full.
func (h *Hub) Dropped() uint64 { return h.droppedTotal.Load() }
