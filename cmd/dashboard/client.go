package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/blackrab369/Versaas-ai/internal/protocol"
)

// Messages delivered into the update loop.
type connectedMsg struct {
	welcome protocol.WelcomeMsg
	feed    *eventFeed
}

type tickMsg protocol.TickEvent

type serverErrMsg protocol.ErrorMsg

type disconnectedMsg struct{ err error }

type reconnectMsg struct{}

type adminResultMsg struct {
	verb    string
	project string
	detail  string
	err     error
}

// eventFeed owns one websocket connection. A reader goroutine decodes frames
// into out; a second goroutine re-sends the HELLO as keepalive so the server's
// read deadline never fires. The model drains out one command at a time.
type eventFeed struct {
	conn *websocket.Conn
	out  chan tea.Msg
	done chan struct{}
}

// dial connects, performs the HELLO/WELCOME handshake and hands back a live
// feed. Runs off the update loop; everything it returns is a single tea.Msg.
func dial(addr, clientName, project string) tea.Cmd {
	return func() tea.Msg {
		url := "ws://" + addr + "/v1/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return disconnectedMsg{err: err}
		}

		hello := protocol.HelloMsg{
			Type:            protocol.TypeHello,
			ProtocolVersion: protocol.Version,
			ClientName:      clientName,
		}
		hello.Capabilities.MaxQueue = 256
		if project != "" {
			hello.Projects = []string{project}
		}
		if err := conn.WriteJSON(hello); err != nil {
			conn.Close()
			return disconnectedMsg{err: err}
		}

		// The WELCOME is always the first frame on the wire.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return disconnectedMsg{err: err}
		}
		var welcome protocol.WelcomeMsg
		if err := json.Unmarshal(raw, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
			conn.Close()
			return disconnectedMsg{err: fmt.Errorf("expected WELCOME, got %q", welcome.Type)}
		}
		_ = conn.SetReadDeadline(time.Time{})

		f := &eventFeed{
			conn: conn,
			out:  make(chan tea.Msg, 256),
			done: make(chan struct{}),
		}
		go f.pump()
		go f.keepalive(hello)
		return connectedMsg{welcome: welcome, feed: f}
	}
}

func (f *eventFeed) pump() {
	defer close(f.out)
	for {
		_, raw, err := f.conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeTick:
			var ev protocol.TickEvent
			if err := json.Unmarshal(raw, &ev); err == nil {
				f.out <- tickMsg(ev)
			}
		case protocol.TypeError:
			var em protocol.ErrorMsg
			if err := json.Unmarshal(raw, &em); err == nil {
				f.out <- serverErrMsg(em)
			}
		}
	}
}

func (f *eventFeed) keepalive(hello protocol.HelloMsg) {
	t := time.NewTicker(25 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-t.C:
			if err := f.conn.WriteJSON(hello); err != nil {
				return
			}
		}
	}
}

// next blocks until the feed yields a message. Re-armed after every receipt.
func (f *eventFeed) next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-f.out
		if !ok {
			return disconnectedMsg{}
		}
		return msg
	}
}

func (f *eventFeed) close() {
	select {
	case <-f.done:
	default:
		close(f.done)
	}
	_ = f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	_ = f.conn.Close()
}

func scheduleReconnect() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg { return reconnectMsg{} })
}

// adminPost hits the loopback admin API for lifecycle verbs and owner input.
func adminPost(addr, projectID, verb string, body any) tea.Cmd {
	return func() tea.Msg {
		res := adminResultMsg{verb: verb, project: projectID}
		url := "http://" + addr + "/admin/v1/projects/" + projectID + "/" + verb

		var rd io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				res.err = err
				return res
			}
			rd = bytes.NewReader(b)
		}
		req, err := http.NewRequest(http.MethodPost, url, rd)
		if err != nil {
			res.err = err
			return res
		}
		req.Header.Set("Content-Type", "application/json")
		cl := &http.Client{Timeout: 10 * time.Second}
		resp, err := cl.Do(req)
		if err != nil {
			res.err = err
			return res
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)

		if resp.StatusCode/100 != 2 {
			var em struct {
				Code  string `json:"code"`
				Error string `json:"error"`
			}
			if json.Unmarshal(raw, &em) == nil && em.Code != "" {
				res.err = fmt.Errorf("%s: %s", em.Code, em.Error)
			} else {
				res.err = fmt.Errorf("http %d", resp.StatusCode)
			}
			return res
		}

		var ok struct {
			Path string `json:"path"`
		}
		if json.Unmarshal(raw, &ok) == nil {
			res.detail = ok.Path
		}
		return res
	}
}
