// Package progress fans generation progress out to websocket watchers. Each
// project has its own feed; the coordinator publishes thinking and step
// events into it while a generation runs, and a terminal complete or error
// message when it finishes.
package progress

import (
	"sync"
	"time"

	"codeberg.org/sajtmaskin/server/internal/logger"
	"codeberg.org/sajtmaskin/server/internal/v0"
)

type Hub struct {
	mu sync.RWMutex

	// projectID -> watcherID -> watcher
	projects map[string]map[string]*Watcher

	// per-feed ordering counters
	sequences map[string]uint64

	Register   chan *Watcher
	Unregister chan *Watcher

	running  bool
	shutdown chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		projects:   make(map[string]map[string]*Watcher),
		sequences:  make(map[string]uint64),
		Register:   make(chan *Watcher),
		Unregister: make(chan *Watcher),
		shutdown:   make(chan struct{}),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	h.running = true
	defer func() {
		h.running = false
	}()

	for {
		select {
		case watcher := <-h.Register:
			h.registerWatcher(watcher)

		case watcher := <-h.Unregister:
			h.unregisterWatcher(watcher)

		case <-h.shutdown:
			h.closeAllConnections()
			return
		}
	}
}

func (h *Hub) registerWatcher(watcher *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.projects[watcher.ProjectID] == nil {
		h.projects[watcher.ProjectID] = make(map[string]*Watcher)
	}

	h.projects[watcher.ProjectID][watcher.ID] = watcher

	logger.Info("watcher registered",
		"watcher_id", watcher.ID,
		"project_id", watcher.ProjectID,
	)
}

func (h *Hub) unregisterWatcher(watcher *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	projectWatchers, exists := h.projects[watcher.ProjectID]
	if !exists {
		return
	}

	if _, exists := projectWatchers[watcher.ID]; !exists {
		return
	}

	delete(projectWatchers, watcher.ID)
	watcher.Close()

	logger.Info("watcher unregistered",
		"watcher_id", watcher.ID,
		"project_id", watcher.ProjectID,
	)

	if len(projectWatchers) == 0 {
		delete(h.projects, watcher.ProjectID)
		delete(h.sequences, watcher.ProjectID)
	}
}

// CanAcceptWatcher checks the per-project connection limit.
func (h *Hub) CanAcceptWatcher(projectID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projects[projectID]) < maxWatchersPerProject
}

// Publish sends a message to every watcher of a project. Publishing to a
// project with no watchers is a no-op.
func (h *Hub) Publish(projectID string, msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	projectWatchers, exists := h.projects[projectID]
	if !exists {
		return
	}

	h.sequences[projectID]++
	msg.Sequence = h.sequences[projectID]

	for watcherID, watcher := range projectWatchers {
		if err := watcher.Send(msg); err != nil {
			logger.ErrorErr(err, "failed to send message to watcher",
				"watcher_id", watcherID,
				"project_id", projectID,
			)
		}
	}
}

// Callbacks returns stream callbacks that publish a running generation's
// events onto the project's feed.
func (h *Hub) Callbacks(projectID string) v0.StreamCallbacks {
	return v0.StreamCallbacks{
		OnThinking: func(text string) {
			msg, err := NewMessage(TypeThinking, projectID, ThinkingPayload{Text: text})
			if err != nil {
				return
			}
			h.Publish(projectID, msg)
		},
		OnProgress: func(step string) {
			msg, err := NewMessage(TypeProgress, projectID, ProgressPayload{Step: step})
			if err != nil {
				return
			}
			h.Publish(projectID, msg)
		},
	}
}

// Complete publishes the terminal message for a finished generation.
func (h *Hub) Complete(projectID string, result *v0.Result) {
	msg, err := NewMessage(TypeComplete, projectID, CompletePayload{
		Success:    result.Success,
		DemoURL:    result.DemoURL,
		ChatID:     result.ChatID,
		Reconciled: result.Reconciled,
		Applied:    result.Applied,
		Message:    result.Message,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to create complete message", "project_id", projectID)
		return
	}

	h.Publish(projectID, msg)
}

// Fail publishes the terminal message for a failed generation.
func (h *Hub) Fail(projectID, code, message string) {
	msg, err := NewMessage(TypeError, projectID, ErrorPayload{Error: code, Message: message})
	if err != nil {
		logger.ErrorErr(err, "failed to create error message", "project_id", projectID)
		return
	}

	h.Publish(projectID, msg)
}

func (h *Hub) WatcherCount(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projects[projectID])
}

func (h *Hub) Shutdown() {
	if h.running {
		close(h.shutdown)
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()

	logger.Info("notifying watchers of server shutdown")

	for projectID, projectWatchers := range h.projects {
		shutdownMsg, err := NewMessage(TypeServerShutdown, projectID, ServerShutdownPayload{
			Reason: "server is shutting down for maintenance",
		})
		if err != nil {
			continue
		}

		for _, watcher := range projectWatchers {
			if err := watcher.Send(shutdownMsg); err != nil {
				logger.ErrorErr(err, "failed to send shutdown notification",
					"watcher_id", watcher.ID,
					"project_id", projectID,
				)
			}
		}
	}

	h.mu.Unlock()

	// give watchers time to receive the shutdown message
	time.Sleep(500 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, projectWatchers := range h.projects {
		for _, watcher := range projectWatchers {
			watcher.Close()
		}
	}

	h.projects = make(map[string]map[string]*Watcher)
	h.sequences = make(map[string]uint64)
}
