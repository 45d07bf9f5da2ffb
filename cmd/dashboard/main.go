package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	project := flag.String("project", "", "follow a single project id (default: all)")
	name := flag.String("name", "versaas-dashboard", "client name sent in the handshake")
	flag.Parse()

	p := tea.NewProgram(newModel(*addr, *project, *name), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}
