package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/blackrab369/Versaas-ai/internal/sim/multiproject"
)

func doGet(baseURL, path string) ([]byte, int) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return b, resp.StatusCode
}

func doPost(baseURL, path string, body any) ([]byte, int) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintln(os.Stderr, "marshal:", err)
			os.Exit(1)
		}
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(http.MethodPost, u, rd)
	req.Header.Set("Content-Type", "application/json")
	cl := &http.Client{Timeout: 30 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return b, resp.StatusCode
}

func printAndExit(b []byte, status int) {
	fmt.Println(string(bytes.TrimSpace(b)))
	if status/100 != 2 {
		os.Exit(1)
	}
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	asJSON := fs.Bool("json", false, "print raw json instead of a table")
	_ = fs.Parse(args)

	b, status := doGet(*baseURL, "/admin/v1/state")
	if *asJSON || status/100 != 2 {
		printAndExit(b, status)
		return
	}
	var st multiproject.State
	if err := json.Unmarshal(b, &st); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"PROJECT", "STATUS", "PHASE", "TICK", "SIM HOURS", "DAYS", "FLAGS"})
	for _, p := range st.Projects {
		flags := ""
		if p.Stalled {
			flags = "stalled"
		}
		if p.Quarantined {
			if flags != "" {
				flags += ","
			}
			flags += "quarantined"
		}
		phase := fmt.Sprintf("%d %s", p.Phase, p.PhaseName)
		if p.PhaseName == "" {
			phase = "-"
		}
		t.AppendRow(table.Row{p.ID, p.Status, phase, p.Tick, p.SimHours, p.DaysElapsed, flags})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("run %d / pause %d / quar %d / term %d",
		st.Running, st.Paused, st.Quarantined, st.Terminated), "", "", "", "", ""})
	t.Render()
}

func createCmd(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	project := fs.String("project", "", "project id (required)")
	idea := fs.String("idea", "", "seed idea")
	seed := fs.Int64("seed", 0, "rng seed (0 derives one from the id)")
	_ = fs.Parse(args)
	if strings.TrimSpace(*project) == "" {
		fmt.Fprintln(os.Stderr, "missing -project")
		os.Exit(2)
	}
	b, status := doPost(*baseURL, "/admin/v1/projects", map[string]any{
		"project_id": *project, "seed_idea": *idea, "seed": *seed,
	})
	printAndExit(b, status)
}

func statusCmd(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	project := fs.String("project", "", "project id (required)")
	_ = fs.Parse(args)
	if strings.TrimSpace(*project) == "" {
		fmt.Fprintln(os.Stderr, "missing -project")
		os.Exit(2)
	}
	b, status := doGet(*baseURL, "/admin/v1/projects/"+*project)
	printAndExit(b, status)
}

func verbCmd(verb string, args []string) {
	fs := flag.NewFlagSet(verb, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	project := fs.String("project", "", "project id (required)")
	_ = fs.Parse(args)
	if strings.TrimSpace(*project) == "" {
		fmt.Fprintln(os.Stderr, "missing -project")
		os.Exit(2)
	}
	b, status := doPost(*baseURL, "/admin/v1/projects/"+*project+"/"+verb, nil)
	printAndExit(b, status)
}

func ownerCmd(args []string) {
	fs := flag.NewFlagSet("owner", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	project := fs.String("project", "", "project id (required)")
	text := fs.String("text", "", "owner request text (required)")
	_ = fs.Parse(args)
	if strings.TrimSpace(*project) == "" || strings.TrimSpace(*text) == "" {
		fmt.Fprintln(os.Stderr, "missing -project or -text")
		os.Exit(2)
	}
	b, status := doPost(*baseURL, "/admin/v1/projects/"+*project+"/owner_request", map[string]any{"text": *text})
	printAndExit(b, status)
}

func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	path := fs.String("path", "", "snapshot file path on the server host (required)")
	_ = fs.Parse(args)
	if strings.TrimSpace(*path) == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}
	b, status := doPost(*baseURL, "/admin/v1/restore", map[string]any{"path": *path})
	printAndExit(b, status)
}

func recordsCmd(args []string) {
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	project := fs.String("project", "", "project id (required)")
	offset := fs.Int("offset", 0, "starting sequence offset")
	limit := fs.Int("limit", 100, "max records")
	_ = fs.Parse(args)
	if strings.TrimSpace(*project) == "" {
		fmt.Fprintln(os.Stderr, "missing -project")
		os.Exit(2)
	}
	b, status := doGet(*baseURL, fmt.Sprintf("/admin/v1/projects/%s/records?offset=%d&limit=%d", *project, *offset, *limit))
	printAndExit(b, status)
}
