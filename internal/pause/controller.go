package pause

import (
	"context"
	"log"
	"sync"
	"time"
)

// PausedKey is the persisted key holding the paused flag
const PausedKey = "paused"

// KV is the persisted key-value storage behind the controller
type KV interface {
	Bool(ctx context.Context, key string) (value bool, found bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
}

// Status is what the popup asks for
type Status struct {
	Tracking bool `json:"tracking"`
}

// Option configures a Controller
type Option func(*Controller)

// WithClock overrides the time source passed to pause hooks
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller owns the process-wide paused flag
type Controller struct {
	// transition serializes set: flag change, persist and hooks
	transition sync.Mutex

	mu      sync.RWMutex
	paused  bool
	store   KV
	now     func() time.Time
	onPause []func(time.Time)
}

// NewController loads the persisted flag. A storage failure is logged and
// the controller starts unpaused.
func NewController(ctx context.Context, store KV, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if store != nil {
		paused, found, err := store.Bool(ctx, PausedKey)
		switch {
		case err != nil:
			log.Printf("⚠️ Could not read paused flag, defaulting to tracking: %v", err)
		case found:
			c.paused = paused
		}
	}

	return c
}

// OnPause registers a hook run each time tracking transitions to paused
func (c *Controller) OnPause(hook func(at time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPause = append(c.onPause, hook)
}

// Pause stops tracking
func (c *Controller) Pause(ctx context.Context) Status {
	return c.set(ctx, true)
}

// Resume restarts tracking
func (c *Controller) Resume(ctx context.Context) Status {
	return c.set(ctx, false)
}

// Paused reports whether tracking is paused
func (c *Controller) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Status returns the current tracking status
func (c *Controller) Status() Status {
	return Status{Tracking: !c.Paused()}
}

func (c *Controller) set(ctx context.Context, paused bool) Status {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	changed := c.paused != paused
	c.paused = paused
	hooks := append([]func(time.Time){}, c.onPause...)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SetBool(ctx, PausedKey, paused); err != nil {
			log.Printf("⚠️ Could not persist paused=%t: %v", paused, err)
		}
	}

	if changed {
		if paused {
			log.Println("⏸  Tracking paused")
			at := c.now()
			for _, hook := range hooks {
				hook(at)
			}
		} else {
			log.Println("▶️  Tracking resumed")
		}
	}

	return Status{Tracking: !paused}
}
