package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blackrab369/Versaas-ai/internal/persistence/mirror"
	"github.com/blackrab369/Versaas-ai/internal/persistence/store"
	"github.com/blackrab369/Versaas-ai/internal/protocol"
	"github.com/blackrab369/Versaas-ai/internal/sim/multiproject"
	"github.com/blackrab369/Versaas-ai/internal/transport/ws"
)

func buildServerMux(mgr *multiproject.Manager, hub *ws.Hub, idx *store.SQLiteStore, mir *mirror.Mirror, logger *log.Logger, enableAdmin, enablePprof bool) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})

	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		st := mgr.State(r.Context())
		fmt.Fprintf(rw, "versaas_projects{status=%q} %d\n", "running", st.Running)
		fmt.Fprintf(rw, "versaas_projects{status=%q} %d\n", "paused", st.Paused)
		fmt.Fprintf(rw, "versaas_projects{status=%q} %d\n", "quarantined", st.Quarantined)
		fmt.Fprintf(rw, "versaas_projects{status=%q} %d\n", "terminated", st.Terminated)
		for _, p := range st.Projects {
			if p.Status == "terminated" {
				continue
			}
			fmt.Fprintf(rw, "versaas_project_tick{project=%q} %d\n", p.ID, p.Tick)
			fmt.Fprintf(rw, "versaas_project_sim_hours{project=%q} %d\n", p.ID, p.SimHours)
			fmt.Fprintf(rw, "versaas_project_phase{project=%q} %d\n", p.ID, p.Phase)
			stalled := 0
			if p.Stalled {
				stalled = 1
			}
			fmt.Fprintf(rw, "versaas_project_stalled{project=%q} %d\n", p.ID, stalled)
		}
		fmt.Fprintf(rw, "versaas_ws_clients %d\n", hub.Clients())
		fmt.Fprintf(rw, "versaas_ws_events_total %d\n", hub.Events())
		fmt.Fprintf(rw, "versaas_ws_dropped_total %d\n", hub.Dropped())
		writeMirrorMetrics(rw, mir)
	})

	if enableAdmin {
		registerAdminHandlers(mux, mgr, idx, logger)
	}

	if enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	mux.HandleFunc("/v1/ws", ws.NewServer(hub, mgr, logger).Handler())

	return mux
}

// Admin endpoints are loopback-only; operators reach them through the admin
// CLI or an ssh tunnel.
func registerAdminHandlers(mux *http.ServeMux, mgr *multiproject.Manager, idx *store.SQLiteStore, logger *log.Logger) {
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(rw, http.StatusOK, mgr.State(r.Context()))
	})

	mux.HandleFunc("/admin/v1/projects", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(rw, http.StatusOK, mgr.State(r.Context()))
		case http.MethodPost:
			var body struct {
				ProjectID string `json:"project_id"`
				SeedIdea  string `json:"seed_idea"`
				Seed      int64  `json:"seed"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(rw, "bad json body", http.StatusBadRequest)
				return
			}
			if strings.TrimSpace(body.ProjectID) == "" {
				http.Error(rw, "missing project_id", http.StatusBadRequest)
				return
			}
			ctx2, cancel2 := context5s(r)
			defer cancel2()
			ref, err := mgr.Create(ctx2, body.ProjectID, body.SeedIdea, body.Seed)
			if err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": ref})
		default:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/admin/v1/projects/", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/admin/v1/projects/")
		parts := strings.Split(strings.Trim(path, "/"), "/")
		projectID := parts[0]
		if projectID == "" {
			http.NotFound(rw, r)
			return
		}

		ctx2, cancel2 := context5s(r)
		defer cancel2()

		if len(parts) == 1 {
			if r.Method != http.MethodGet {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			st, err := mgr.Status(ctx2, projectID)
			if err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, st)
			return
		}
		if len(parts) != 2 {
			http.NotFound(rw, r)
			return
		}

		verb := parts[1]
		if verb == "records" {
			if r.Method != http.MethodGet {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if idx == nil {
				http.Error(rw, "index db disabled", http.StatusServiceUnavailable)
				return
			}
			offset := queryInt(r, "offset", 0)
			limit := queryInt(r, "limit", 100)
			if limit > 1000 {
				limit = 1000
			}
			recs, err := idx.PageRecords(ctx2, projectID, offset, limit)
			if err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": projectID, "records": recs})
			return
		}

		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch verb {
		case "tick":
			ev, err := mgr.Tick(ctx2, projectID)
			if err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "event": ev})
		case "pause":
			if err := mgr.Pause(ctx2, projectID); err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": projectID, "status": "paused"})
		case "resume":
			if err := mgr.Resume(ctx2, projectID); err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": projectID, "status": "running"})
		case "terminate":
			if err := mgr.Terminate(ctx2, projectID); err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": projectID, "status": "terminated"})
		case "snapshot":
			path, snap, err := mgr.Snapshot(ctx2, projectID)
			if err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": projectID, "path": path, "tick": snap.Header.Tick})
		case "owner_request":
			var body struct {
				Text string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(rw, "bad json body", http.StatusBadRequest)
				return
			}
			if strings.TrimSpace(body.Text) == "" {
				http.Error(rw, "missing text", http.StatusBadRequest)
				return
			}
			if err := mgr.SubmitOwnerRequest(ctx2, projectID, body.Text); err != nil {
				writeAdminError(rw, err)
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": projectID})
		default:
			http.NotFound(rw, r)
		}
	})

	mux.HandleFunc("/admin/v1/restore", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(rw, "bad json body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Path) == "" {
			http.Error(rw, "missing path", http.StatusBadRequest)
			return
		}
		ctx2, cancel2 := context5s(r)
		defer cancel2()
		ref, err := mgr.RestoreFile(ctx2, body.Path)
		if err != nil {
			writeAdminError(rw, err)
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "project": ref})
	})
}

func context5s(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// writeAdminError maps the engine error taxonomy onto http statuses while
// keeping the wire code in the body.
func writeAdminError(rw http.ResponseWriter, err error) {
	code := protocol.CodeFor(err)
	writeJSON(rw, httpStatusFor(code), map[string]any{"ok": false, "code": code, "error": err.Error()})
}

func httpStatusFor(code string) int {
	switch code {
	case protocol.ErrCodeBadRequest:
		return http.StatusBadRequest
	case protocol.ErrCodeNotFound:
		return http.StatusNotFound
	case protocol.ErrCodeDuplicate, protocol.ErrCodeInvariant:
		return http.StatusConflict
	case protocol.ErrCodeCollaborator:
		return http.StatusBadGateway
	case protocol.ErrCodeBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func writeMirrorMetrics(rw http.ResponseWriter, mir *mirror.Mirror) {
	if mir == nil {
		return
	}
	s := mir.Stats()
	fmt.Fprintf(rw, "versaas_mirror_queue_depth %d\n", s.QueueDepth)
	fmt.Fprintf(rw, "versaas_mirror_queue_capacity %d\n", s.QueueCapacity)
	fmt.Fprintf(rw, "versaas_mirror_enqueued_total %d\n", s.EnqueuedTotal)
	fmt.Fprintf(rw, "versaas_mirror_saturated_total %d\n", s.SaturatedTotal)
	fmt.Fprintf(rw, "versaas_mirror_dropped_total %d\n", s.DroppedTotal)
	fmt.Fprintf(rw, "versaas_mirror_uploads_total %d\n", s.UploadsTotal)
	fmt.Fprintf(rw, "versaas_mirror_upload_fail_total %d\n", s.UploadFailTotal)
	fmt.Fprintf(rw, "versaas_mirror_last_success_unix %d\n", s.LastSuccessUnix)
	fmt.Fprintf(rw, "versaas_mirror_last_error_unix %d\n", s.LastErrorUnix)
}
