package console

import (
	"sync"
	"time"
)

type workspace struct {
	users    *UsersView
	contents *ContentsView
	lastUsed time.Time
}

// Workspaces keeps the views of each console session.
type Workspaces struct {
	mu    sync.Mutex
	views map[string]*workspace
	now   func() time.Time
}

func NewWorkspaces() *Workspaces {
	return &Workspaces{views: make(map[string]*workspace), now: time.Now}
}

func (w *Workspaces) touch(sessionID string) *workspace {
	ws, ok := w.views[sessionID]
	if !ok {
		ws = &workspace{}
		w.views[sessionID] = ws
	}
	ws.lastUsed = w.now()
	return ws
}

// Users returns the session's users view, creating it with newView on first use.
func (w *Workspaces) Users(sessionID string, newView func() *UsersView) *UsersView {
	w.mu.Lock()
	defer w.mu.Unlock()

	ws := w.touch(sessionID)
	if ws.users == nil {
		ws.users = newView()
	}
	return ws.users
}

// Contents returns the session's contents view, creating it with newView on first use.
func (w *Workspaces) Contents(sessionID string, newView func() *ContentsView) *ContentsView {
	w.mu.Lock()
	defer w.mu.Unlock()

	ws := w.touch(sessionID)
	if ws.contents == nil {
		ws.contents = newView()
	}
	return ws.contents
}

func (w *Workspaces) Drop(sessionID string) {
	w.mu.Lock()
	delete(w.views, sessionID)
	w.mu.Unlock()
}

// Evict drops workspaces idle for longer than maxIdle and reports how many went.
func (w *Workspaces) Evict(maxIdle time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-maxIdle)
	removed := 0
	for id, ws := range w.views {
		if ws.lastUsed.Before(cutoff) {
			delete(w.views, id)
			removed++
		}
	}
	return removed
}

func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.views)
}
