package session

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

// PauseState reports whether tracking is currently paused
type PauseState interface {
	Paused() bool
}

// Sink receives finalized activities. Deliver must not block.
type Sink interface {
	Deliver(activity models.Activity)
}

// page is the identity of a tab whose session was flushed while the tab stayed open
type page struct {
	url   string
	title string
}

// Manager tracks one open session per browser tab and turns closed
// sessions into finalized activities
type Manager struct {
	mu        sync.Mutex
	sessions  map[int]*models.Session
	dormant   map[int]page
	activeTab int
	hasActive bool
	pause     PauseState
	sink      Sink
}

// NewManager creates a new session manager
func NewManager(pause PauseState, sink Sink) *Manager {
	return &Manager{
		sessions:  make(map[int]*models.Session),
		dormant:   make(map[int]page),
		activeTab: models.NoTab,
		pause:     pause,
		sink:      sink,
	}
}

// OnSignal handles a (url, title) report for a tab
func (m *Manager) OnSignal(tabID int, url, title string, now time.Time) {
	if tabID < 0 || url == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pause.Paused() {
		return
	}

	current, exists := m.sessions[tabID]
	if exists && current.URL == url {
		return
	}
	if exists {
		m.finalize(current, now)
	}

	m.open(tabID, url, title, now)
}

// OnTabActivated moves the active context to tabID, flushing the previously
// active tab's session
func (m *Manager) OnTabActivated(tabID int, now time.Time) {
	if tabID < 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasActive && m.activeTab != tabID {
		m.deactivate(m.activeTab, now)
	}
	m.activeTab = tabID
	m.hasActive = true

	if m.pause.Paused() {
		return
	}
	if _, open := m.sessions[tabID]; open {
		return
	}
	if p, ok := m.dormant[tabID]; ok {
		m.open(tabID, p.url, p.title, now)
	}
}

// OnTabRemoved finalizes and forgets the tab's session
func (m *Manager) OnTabRemoved(tabID int, now time.Time) {
	if tabID < 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.sessions[tabID]; exists {
		m.finalize(current, now)
		delete(m.sessions, tabID)
	}
	delete(m.dormant, tabID)

	if m.hasActive && m.activeTab == tabID {
		m.activeTab = models.NoTab
		m.hasActive = false
	}
}

// OnFocusLost flushes the active tab's session. The tab stays known, so
// activating it again starts a new session.
func (m *Manager) OnFocusLost(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasActive {
		return
	}
	m.deactivate(m.activeTab, now)
	m.activeTab = models.NoTab
	m.hasActive = false
}

// FlushAll finalizes every open session at now. Used when tracking pauses.
func (m *Manager) FlushAll(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tabs := make([]int, 0, len(m.sessions))
	for tabID := range m.sessions {
		tabs = append(tabs, tabID)
	}
	sort.Ints(tabs)

	for _, tabID := range tabs {
		m.deactivate(tabID, now)
	}
	if len(tabs) > 0 {
		log.Printf("⏸  Flushed %d open session(s)", len(tabs))
	}
}

// Session returns a copy of the open session for tabID
func (m *Manager) Session(tabID int) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[tabID]
	if !ok {
		return models.Session{}, false
	}
	return *current, true
}

// OpenSessions returns the number of open sessions
func (m *Manager) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ActiveTab returns the tab currently holding the active context
func (m *Manager) ActiveTab() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeTab, m.hasActive
}

// deactivate finalizes tabID's session and remembers its page. Caller holds mu.
func (m *Manager) deactivate(tabID int, now time.Time) {
	current, exists := m.sessions[tabID]
	if !exists {
		return
	}
	m.finalize(current, now)
	delete(m.sessions, tabID)
	m.dormant[tabID] = page{url: current.URL, title: current.Title}
}

// open starts a session. Caller holds mu.
func (m *Manager) open(tabID int, url, title string, now time.Time) {
	m.sessions[tabID] = &models.Session{
		TabID:     tabID,
		URL:       url,
		Title:     title,
		StartTime: now,
	}
	delete(m.dormant, tabID)
}

// finalize hands the closed session to the sink. The activity is a value
// snapshot, so later changes to the map never reach an in-flight delivery.
func (m *Manager) finalize(current *models.Session, now time.Time) {
	activity := current.Finalize(now)
	if m.sink != nil {
		m.sink.Deliver(activity)
	}
}
