package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/sajtmaskin/server/internal/progress"
)

const maxVisibleEvents = 20

type state int

const (
	stateConnecting state = iota
	stateStreaming
	stateDone
	stateFailed
)

type (
	ConnectedMsg    struct{}
	ConnectErrorMsg struct{ err error }
	FeedClosedMsg   struct{ err error }
	FeedEventMsg    struct{ message progress.Message }
)

type eventLine struct {
	kind string
	text string
}

type Model struct {
	client *FeedClient
	state  state

	spinner spinner.Model
	events  []eventLine
	final   string
	err     error

	width  int
	height int
}

func NewModel(projectID string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &Model{
		client:  NewFeedClient(projectID),
		state:   stateConnecting,
		spinner: sp,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.client.ConnectCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.client.Close()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ConnectedMsg:
		m.state = stateStreaming
		return m, m.client.NextMessageCmd()

	case ConnectErrorMsg:
		m.state = stateFailed
		m.err = msg.err
		return m, nil

	case FeedClosedMsg:
		if m.state == stateStreaming {
			m.state = stateFailed
			m.err = fmt.Errorf("feed closed: %w", msg.err)
		}
		return m, nil

	case FeedEventMsg:
		return m.handleEvent(msg.message)
	}

	return m, nil
}

func (m *Model) handleEvent(msg progress.Message) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case progress.TypeThinking:
		var payload progress.ThinkingPayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			m.appendEvent("thinking", payload.Text)
		}

	case progress.TypeProgress:
		var payload progress.ProgressPayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			m.appendEvent("progress", payload.Step)
		}

	case progress.TypeComplete:
		var payload progress.CompletePayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			m.state = stateDone
			m.final = formatCompletion(payload)
		}
		m.client.Close()
		return m, nil

	case progress.TypeError:
		var payload progress.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			m.state = stateFailed
			m.err = fmt.Errorf("%s: %s", payload.Error, payload.Message)
		}
		m.client.Close()
		return m, nil

	case progress.TypeServerShutdown:
		m.state = stateFailed
		m.err = fmt.Errorf("server shut down")
		m.client.Close()
		return m, nil
	}

	return m, m.client.NextMessageCmd()
}

func (m *Model) appendEvent(kind, text string) {
	m.events = append(m.events, eventLine{kind: kind, text: text})

	if len(m.events) > maxVisibleEvents {
		m.events = m.events[len(m.events)-maxVisibleEvents:]
	}
}

func formatCompletion(payload progress.CompletePayload) string {
	var b strings.Builder

	if payload.Applied {
		b.WriteString("generation complete, site updated")
	} else if payload.Message != "" {
		b.WriteString(payload.Message)
	} else {
		b.WriteString("generation complete")
	}

	if payload.Reconciled {
		b.WriteString(" (recovered from interrupted stream)")
	}

	if payload.DemoURL != "" {
		b.WriteString("\n  " + payload.DemoURL)
	}

	return b.String()
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("sajtmaskin watch"))
	b.WriteString("\n\n")

	switch m.state {
	case stateConnecting:
		b.WriteString(fmt.Sprintf("  %s connecting to progress feed...\n", m.spinner.View()))

	case stateStreaming:
		b.WriteString(fmt.Sprintf("  %s generating\n\n", m.spinner.View()))
		b.WriteString(m.eventsView())

	case stateDone:
		b.WriteString(m.eventsView())
		b.WriteString("\n" + successStyle.Render("  "+m.final) + "\n")

	case stateFailed:
		b.WriteString(m.eventsView())
		b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("  error: %v", m.err)) + "\n")
	}

	b.WriteString(helpStyle.Render("\n  q to quit\n"))

	return b.String()
}

func (m *Model) eventsView() string {
	var b strings.Builder

	for _, ev := range m.events {
		switch ev.kind {
		case "thinking":
			b.WriteString(thinkingStyle.Render("  · "+truncate(ev.text, m.width-6)) + "\n")
		case "progress":
			b.WriteString(progressStyle.Render("  ▸ "+truncate(ev.text, m.width-6)) + "\n")
		}
	}

	return b.String()
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}

	return s[:max-3] + "..."
}
