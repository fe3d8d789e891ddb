package submitter

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

const (
	defaultMaxInFlight = 8
	defaultTimeout     = 10 * time.Second
)

// Poster delivers one activity to the store
type Poster interface {
	CreateActivity(ctx context.Context, activity models.Activity) error
}

// Result is the outcome of one delivery. Err is nil on success.
type Result struct {
	Activity models.Activity
	Err      error
}

// Option configures a Submitter
type Option func(*Submitter)

// WithMaxInFlight bounds concurrent deliveries
func WithMaxInFlight(n int64) Option {
	return func(s *Submitter) {
		if n > 0 {
			s.maxInFlight = n
		}
	}
}

// WithTimeout bounds each delivery
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithResultHandler receives every delivery outcome
func WithResultHandler(fn func(Result)) Option {
	return func(s *Submitter) {
		s.onResult = fn
	}
}

// Submitter delivers finalized activities at most once. Failed deliveries
// are logged and dropped; nothing is retried or queued.
type Submitter struct {
	poster      Poster
	sem         *semaphore.Weighted
	maxInFlight int64
	timeout     time.Duration
	onResult    func(Result)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a submitter posting through poster
func New(poster Poster, opts ...Option) *Submitter {
	s := &Submitter{
		poster:      poster,
		maxInFlight: defaultMaxInFlight,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sem = semaphore.NewWeighted(s.maxInFlight)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Deliver starts an asynchronous delivery and returns immediately
func (s *Submitter) Deliver(activity models.Activity) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.report(Result{Activity: activity, Err: s.submit(activity)})
	}()
}

// Wait blocks until every started delivery has finished
func (s *Submitter) Wait() {
	s.wg.Wait()
}

// Close cancels pending deliveries and waits for them to return
func (s *Submitter) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Submitter) submit(activity models.Activity) error {
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	return s.poster.CreateActivity(ctx, activity)
}

func (s *Submitter) report(result Result) {
	if result.Err != nil {
		var statusErr *StatusError
		if errors.As(result.Err, &statusErr) {
			log.Printf("❌ Failed to submit activity %s: status %d, body %q", result.Activity.URL, statusErr.StatusCode, statusErr.Body)
		} else {
			log.Printf("❌ Failed to submit activity %s: %v", result.Activity.URL, result.Err)
		}
	} else {
		log.Printf("✓ Submitted activity %s (%ds)", result.Activity.URL, result.Activity.Duration)
	}

	if s.onResult != nil {
		s.onResult(result)
	}
}
