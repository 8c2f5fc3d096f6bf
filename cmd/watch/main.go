package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: watch <project-id>")
		os.Exit(1)
	}

	if os.Getenv("SAJTMASKIN_TOKEN") == "" {
		fmt.Fprintln(os.Stderr, "SAJTMASKIN_TOKEN must be set")
		os.Exit(1)
	}

	model := NewModel(os.Args[1])
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("error running watch: %v\n", err)
		os.Exit(1)
	}
}
