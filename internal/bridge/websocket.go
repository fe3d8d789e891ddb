package bridge

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shehryarbajwa/tabtrace/internal/origin"
	"github.com/shehryarbajwa/tabtrace/internal/ratelimit"
	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

const eventQueueSize = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return origin.Allowed(r.Header.Get("Origin"))
	},
}

// Tracker is the set of handlers browser events are dispatched to
type Tracker interface {
	OnSignal(tabID int, url, title string, now time.Time)
	OnTabActivated(tabID int, now time.Time)
	OnTabRemoved(tabID int, now time.Time)
	OnFocusLost(now time.Time)
}

type envelope struct {
	event models.BrowserEvent
	at    time.Time
}

// Server accepts extension connections and feeds their events, in arrival
// order, to a single dispatcher goroutine
type Server struct {
	tracker  Tracker
	throttle *ratelimit.Limiter
	lastURL  map[int]string
	events   chan envelope
	done     chan struct{}
	now      func() time.Time
}

// NewServer creates a bridge. Repeated signals for the same page in a tab are
// limited to one per signalInterval; zero disables the throttle.
func NewServer(tracker Tracker, signalInterval time.Duration) *Server {
	return &Server{
		tracker:  tracker,
		throttle: ratelimit.NewIntervalLimiter(signalInterval, 1),
		lastURL:  make(map[int]string),
		events:   make(chan envelope, eventQueueSize),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Run dispatches queued events until ctx is canceled
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-s.events:
			s.Dispatch(env.event, env.at)
		}
	}
}

// Enqueue stamps an event with its arrival time and queues it for dispatch.
// It returns false once the dispatcher has stopped.
func (s *Server) Enqueue(event models.BrowserEvent) bool {
	env := envelope{event: event, at: s.now()}
	select {
	case s.events <- env:
		return true
	case <-s.done:
		return false
	}
}

// Dispatch applies one event to the tracker. It is not safe for concurrent
// use; Run is its only caller outside tests.
func (s *Server) Dispatch(event models.BrowserEvent, at time.Time) {
	tabID := event.Tab()

	switch event.Action {
	case models.ActionPageInfo:
		if tabID == models.NoTab {
			return
		}
		if !s.allowSignal(tabID, event.URL, at) {
			return
		}
		s.tracker.OnSignal(tabID, event.URL, event.Title, at)

	case models.ActionTabActivated:
		s.activate(tabID, event, at)

	case models.ActionTabRemoved:
		if tabID == models.NoTab {
			return
		}
		s.tracker.OnTabRemoved(tabID, at)
		s.throttle.Forget(strconv.Itoa(tabID))
		delete(s.lastURL, tabID)

	case models.ActionFocusChanged:
		if event.WindowID == nil {
			return
		}
		if event.FocusLost() {
			s.tracker.OnFocusLost(at)
			return
		}
		s.activate(tabID, event, at)

	default:
		log.Printf("⚠️ Ignoring unknown browser event action %q", event.Action)
	}
}

func (s *Server) activate(tabID int, event models.BrowserEvent, at time.Time) {
	if tabID == models.NoTab {
		return
	}
	s.tracker.OnTabActivated(tabID, at)
	if event.URL != "" {
		s.lastURL[tabID] = event.URL
		s.tracker.OnSignal(tabID, event.URL, event.Title, at)
	}
}

// allowSignal lets a page change through immediately and throttles repeats
func (s *Server) allowSignal(tabID int, url string, at time.Time) bool {
	key := strconv.Itoa(tabID)
	if s.lastURL[tabID] != url {
		s.lastURL[tabID] = url
		s.throttle.Forget(key)
		s.throttle.AllowAt(key, at)
		return true
	}
	return s.throttle.AllowAt(key, at)
}

// HandleConnection upgrades the request and reads browser events until the
// extension disconnects
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("✅ Extension connected from %s", r.RemoteAddr)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event models.BrowserEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("⚠️ Dropping malformed browser event: %v", err)
			continue
		}
		if !s.Enqueue(event) {
			break
		}
	}

	log.Printf("Extension disconnected from %s", r.RemoteAddr)
}
