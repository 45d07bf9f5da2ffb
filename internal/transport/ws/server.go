package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
)

// ProjectLister supplies the project summaries sent in a WELCOME.
type ProjectLister interface {
	Refs(ctx context.Context) []protocol.ProjectRef
}

type Server struct {
	hub      *Hub
	projects ProjectLister
	log      *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(hub *Hub, projects ProjectLister, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		hub:      hub,
		projects: projects,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		hello, ok := s.handshake(conn)
		if !ok {
			return
		}

		maxQ := hello.Capabilities.MaxQueue
		if maxQ <= 0 {
			maxQ = 64
		}
		if maxQ > 1024 {
			maxQ = 1024
		}
		out := make(chan []byte, maxQ)

		// The WELCOME rides the same queue the writer drains, so it reaches
		// the client before any broadcast and the writer stays the only
		// goroutine touching the connection.
		wb, err := s.welcomeBytes()
		if err != nil {
			s.log.Printf("[ws] welcome: %v", err)
			return
		}
		out <- wb

		id := s.nextID.Add(1)
		s.hub.add(id, out, hello.Projects)
		defer s.hub.remove(id)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop. A client may send HELLO again to change its project
		// filter; it also serves as the keepalive against the read deadline.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeHello {
				continue
			}
			var update protocol.HelloMsg
			if err := json.Unmarshal(msg, &update); err != nil {
				continue
			}
			if update.ProtocolVersion != protocol.Version {
				continue
			}
			s.hub.setFilter(id, update.Projects)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) (protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return hello, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return hello, false
	}
	return hello, true
}

func (s *Server) welcomeBytes() ([]byte, error) {
	refCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var refs []protocol.ProjectRef
	if s.projects != nil {
		refs = s.projects.Refs(refCtx)
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ServerTimeMs:    time.Now().UnixMilli(),
		Projects:        refs,
	}
	return json.Marshal(welcome)
}
