package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"codeberg.org/sajtmaskin/server/internal/progress"
)

const pongWait = 60 * time.Second

// FeedClient follows one project's progress feed over websocket.
type FeedClient struct {
	endpoint  string
	token     string
	projectID string
	conn      *websocket.Conn
}

func NewFeedClient(projectID string) *FeedClient {
	endpoint := os.Getenv("SAJTMASKIN_WS_ENDPOINT")
	if endpoint == "" {
		endpoint = "ws://localhost:8080/api/v1/ws/progress"
	}

	return &FeedClient{
		endpoint:  endpoint,
		token:     os.Getenv("SAJTMASKIN_TOKEN"),
		projectID: projectID,
	}
}

func (c *FeedClient) Connect() error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}

	q := u.Query()
	q.Set("project_id", c.projectID)
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // pong handler
		return nil
	})

	c.conn = conn
	return nil
}

func (c *FeedClient) Close() {
	if c.conn != nil {
		c.conn.Close() //nolint:errcheck,gosec // best-effort cleanup
		c.conn = nil
	}
}

// returns a tea.Cmd that connects to the feed
func (c *FeedClient) ConnectCmd() tea.Cmd {
	return func() tea.Msg {
		if err := c.Connect(); err != nil {
			return ConnectErrorMsg{err: err}
		}

		return ConnectedMsg{}
	}
}

// returns a tea.Cmd that blocks on the next feed message
func (c *FeedClient) NextMessageCmd() tea.Cmd {
	return func() tea.Msg {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // read deadline

		var msg progress.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return FeedClosedMsg{err: err}
		}

		return FeedEventMsg{message: msg}
	}
}
