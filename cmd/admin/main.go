package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "state":
			stateCmd(os.Args[2:])
			return
		case "create":
			createCmd(os.Args[2:])
			return
		case "status":
			statusCmd(os.Args[2:])
			return
		case "tick", "pause", "resume", "terminate", "snapshot":
			verbCmd(os.Args[1], os.Args[2:])
			return
		case "owner":
			ownerCmd(os.Args[2:])
			return
		case "restore":
			restoreCmd(os.Args[2:])
			return
		case "records":
			recordsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "help", "-h", "--help":
			usage(os.Stdout)
			return
		}
		fmt.Fprintln(os.Stderr, "unknown command:", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
	stateCmd(nil)
}

func usage(w *os.File) {
	fmt.Fprintln(w, `usage: admin <command> [flags]

commands:
  state                       project summary table (default)
  create -project ID -idea S  register and start a project
  status -project ID          full status of one project
  tick -project ID            force one tick now
  pause -project ID           hold the clock
  resume -project ID          release the clock
  terminate -project ID       close the books and archive
  snapshot -project ID        write a snapshot now
  restore -path FILE          bring a project back from a snapshot file
  owner -project ID -text S   submit an owner request
  records -project ID         page the communication log (via index db)
  db [query]                  query the sqlite index directly

run 'admin <command> -h' for flags; commands other than db talk to the
server's loopback admin api (-url, default http://127.0.0.1:8080).`)
}
