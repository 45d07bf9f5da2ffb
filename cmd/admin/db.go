package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/versaas.sqlite)")
	project := fs.String("project", "", "project id filter")
	limit := fs.Int("limit", 20, "result limit")
	thread := fs.String("thread", "", "thread_id filter (records)")
	kind := fs.String("kind", "", "kind filter (records)")
	_ = fs.Parse(args)

	q := "projects"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "versaas.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "projects":
		rows, err := db.Query(`SELECT project_id,seed,seed_idea,status,created_at,updated_at FROM projects ORDER BY project_id LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ProjectID string `json:"project_id"`
				Seed      int64  `json:"seed"`
				SeedIdea  string `json:"seed_idea"`
				Status    string `json:"status"`
				CreatedAt string `json:"created_at"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.ProjectID, &r.Seed, &r.SeedIdea, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "records":
		if strings.TrimSpace(*project) == "" {
			fmt.Fprintln(os.Stderr, "missing -project")
			os.Exit(2)
		}
		query := `SELECT seq,from_id,to_id,kind,text,sim_hours,ts_millis,thread_id,hash FROM records WHERE project_id=?`
		qargs := []any{strings.TrimSpace(*project)}
		if strings.TrimSpace(*thread) != "" {
			query += ` AND thread_id=?`
			qargs = append(qargs, strings.TrimSpace(*thread))
		}
		if strings.TrimSpace(*kind) != "" {
			query += ` AND kind=?`
			qargs = append(qargs, strings.TrimSpace(*kind))
		}
		query += ` ORDER BY seq DESC LIMIT ?`
		qargs = append(qargs, *limit)
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Seq      int64  `json:"seq"`
				From     string `json:"from"`
				To       string `json:"to"`
				Kind     string `json:"kind"`
				Text     string `json:"text"`
				SimHours int64  `json:"sim_hours"`
				TsMillis int64  `json:"ts_millis"`
				ThreadID string `json:"thread_id"`
				Hash     string `json:"hash"`
			}
			if err := rows.Scan(&r.Seq, &r.From, &r.To, &r.Kind, &r.Text, &r.SimHours, &r.TsMillis, &r.ThreadID, &r.Hash); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "ticks":
		if strings.TrimSpace(*project) == "" {
			fmt.Fprintln(os.Stderr, "missing -project")
			os.Exit(2)
		}
		rows, err := db.Query(`SELECT tick,sim_hours,phase,records,completions,digest FROM ticks WHERE project_id=? ORDER BY tick DESC LIMIT ?`, strings.TrimSpace(*project), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick        int64  `json:"tick"`
				SimHours    int64  `json:"sim_hours"`
				Phase       int    `json:"phase"`
				Records     int    `json:"records"`
				Completions int    `json:"completions"`
				Digest      string `json:"digest"`
			}
			if err := rows.Scan(&r.Tick, &r.SimHours, &r.Phase, &r.Records, &r.Completions, &r.Digest); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "snapshots":
		query := `SELECT project_id,tick,sim_hours,phase,path,agents,tasks,records FROM snapshots`
		qargs := []any{}
		if strings.TrimSpace(*project) != "" {
			query += ` WHERE project_id=?`
			qargs = append(qargs, strings.TrimSpace(*project))
		}
		query += ` ORDER BY tick DESC LIMIT ?`
		qargs = append(qargs, *limit)
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ProjectID string `json:"project_id"`
				Tick      int64  `json:"tick"`
				SimHours  int64  `json:"sim_hours"`
				Phase     int    `json:"phase"`
				Path      string `json:"path"`
				Agents    int    `json:"agents"`
				Tasks     int    `json:"tasks"`
				Records   int    `json:"records"`
			}
			if err := rows.Scan(&r.ProjectID, &r.Tick, &r.SimHours, &r.Phase, &r.Path, &r.Agents, &r.Tasks, &r.Records); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data|-db PATH] [-project ID] [-limit N] projects|records|ticks|snapshots")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
