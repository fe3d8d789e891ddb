package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

type recordingSink struct {
	mu         sync.Mutex
	activities []models.Activity
}

func (s *recordingSink) Deliver(activity models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, activity)
}

func (s *recordingSink) all() []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Activity(nil), s.activities...)
}

type pauseFlag struct {
	paused atomic.Bool
}

func (p *pauseFlag) Paused() bool { return p.paused.Load() }

func at(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func newTestManager() (*Manager, *recordingSink, *pauseFlag) {
	sink := &recordingSink{}
	flag := &pauseFlag{}
	return NewManager(flag, sink), sink, flag
}

func TestSignalChangeEmitsActivity(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnSignal(1, "https://a.com", "A", at(0))
	manager.OnSignal(1, "https://a.com", "A", at(1000))
	manager.OnSignal(1, "https://b.com", "B", at(5000))

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.com", got[0].URL)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, at(0), got[0].StartTime.Time)
	assert.Equal(t, at(5000), got[0].EndTime.Time)
	assert.Equal(t, 5, got[0].Duration)

	current, ok := manager.Session(1)
	require.True(t, ok)
	assert.Equal(t, "https://b.com", current.URL)
	assert.Equal(t, at(5000), current.StartTime)
}

func TestRepeatedSignalKeepsSingleSession(t *testing.T) {
	manager, sink, _ := newTestManager()

	for i := int64(0); i < 20; i++ {
		manager.OnSignal(7, "https://same.example", "Same", at(i*250))
	}

	assert.Empty(t, sink.all())
	assert.Equal(t, 1, manager.OpenSessions())

	current, ok := manager.Session(7)
	require.True(t, ok)
	assert.Equal(t, at(0), current.StartTime)
}

func TestDurationRounding(t *testing.T) {
	testCases := []struct {
		name  string
		endMS int64
		want  int
	}{
		{name: "zero", endMS: 0, want: 0},
		{name: "below half", endMS: 1499, want: 1},
		{name: "half rounds up", endMS: 1500, want: 2},
		{name: "whole", endMS: 60000, want: 60},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			manager, sink, _ := newTestManager()
			manager.OnSignal(1, "https://a.com", "A", at(0))
			manager.OnTabRemoved(1, at(tc.endMS))

			got := sink.all()
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0].Duration)
		})
	}
}

func TestPausedSignalsAreIgnored(t *testing.T) {
	manager, sink, flag := newTestManager()
	flag.paused.Store(true)

	manager.OnSignal(2, "https://x.com", "X", at(0))

	assert.Zero(t, manager.OpenSessions())
	assert.Empty(t, sink.all())

	flag.paused.Store(false)
	manager.OnSignal(2, "https://x.com", "X", at(100))
	assert.Equal(t, 1, manager.OpenSessions())
}

func TestTabRemovedFinalizesSession(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnSignal(3, "https://c.com", "C", at(1000))
	manager.OnTabRemoved(3, at(4000))

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, at(4000), got[0].EndTime.Time)
	assert.Equal(t, 3, got[0].Duration)
	assert.Zero(t, manager.OpenSessions())

	// A second removal is a no-op
	manager.OnTabRemoved(3, at(5000))
	assert.Len(t, sink.all(), 1)
}

func TestTabRemovedWithoutSessionIsNoop(t *testing.T) {
	manager, sink, _ := newTestManager()

	assert.NotPanics(t, func() { manager.OnTabRemoved(3, at(0)) })
	assert.Empty(t, sink.all())
}

func TestMalformedSignalIsNoop(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnSignal(models.NoTab, "https://a.com", "A", at(0))
	manager.OnSignal(4, "", "Empty", at(0))

	assert.Zero(t, manager.OpenSessions())
	assert.Empty(t, sink.all())
}

func TestSignalBeforeActivationOpensSession(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnSignal(9, "https://early.example", "Early", at(0))
	manager.OnTabActivated(9, at(10))

	assert.Empty(t, sink.all())
	current, ok := manager.Session(9)
	require.True(t, ok)
	assert.Equal(t, at(0), current.StartTime)
}

func TestActivationFlushesPreviousTab(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnTabActivated(1, at(0))
	manager.OnSignal(1, "https://a.com", "A", at(0))
	manager.OnTabActivated(2, at(3000))

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.com", got[0].URL)
	assert.Equal(t, 3, got[0].Duration)

	_, open := manager.Session(1)
	assert.False(t, open)

	active, ok := manager.ActiveTab()
	require.True(t, ok)
	assert.Equal(t, 2, active)
}

func TestReactivationStartsNewSession(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnTabActivated(1, at(0))
	manager.OnSignal(1, "https://a.com", "A", at(0))
	manager.OnTabActivated(2, at(2000))
	manager.OnTabActivated(1, at(9000))

	require.Len(t, sink.all(), 1)

	current, ok := manager.Session(1)
	require.True(t, ok)
	assert.Equal(t, "https://a.com", current.URL)
	assert.Equal(t, at(9000), current.StartTime)
}

func TestActivatingSameTabIsNoop(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnTabActivated(1, at(0))
	manager.OnSignal(1, "https://a.com", "A", at(0))
	manager.OnTabActivated(1, at(500))

	assert.Empty(t, sink.all())
	current, ok := manager.Session(1)
	require.True(t, ok)
	assert.Equal(t, at(0), current.StartTime)
}

func TestFocusLostAndRegained(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnTabActivated(5, at(0))
	manager.OnSignal(5, "https://focus.example", "Focus", at(0))
	manager.OnFocusLost(at(8000))

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].Duration)
	assert.Zero(t, manager.OpenSessions())

	_, hasActive := manager.ActiveTab()
	assert.False(t, hasActive)

	manager.OnTabActivated(5, at(20000))
	current, ok := manager.Session(5)
	require.True(t, ok)
	assert.Equal(t, at(20000), current.StartTime)
}

func TestFocusLostWithoutActiveTabIsNoop(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnSignal(1, "https://a.com", "A", at(0))
	manager.OnFocusLost(at(1000))

	assert.Empty(t, sink.all())
	assert.Equal(t, 1, manager.OpenSessions())
}

func TestTabRemovedForgetsDormantPage(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnTabActivated(1, at(0))
	manager.OnSignal(1, "https://a.com", "A", at(0))
	manager.OnTabActivated(2, at(1000))
	manager.OnTabRemoved(1, at(2000))
	manager.OnTabActivated(1, at(3000))

	assert.Len(t, sink.all(), 1)
	_, open := manager.Session(1)
	assert.False(t, open)
}

func TestFlushAllFinalizesEverySession(t *testing.T) {
	manager, sink, flag := newTestManager()

	manager.OnSignal(2, "https://b.com", "B", at(0))
	manager.OnSignal(1, "https://a.com", "A", at(0))
	flag.paused.Store(true)
	manager.FlushAll(at(6000))

	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.com", got[0].URL)
	assert.Equal(t, "https://b.com", got[1].URL)
	for _, activity := range got {
		assert.Equal(t, at(6000), activity.EndTime.Time)
	}
	assert.Zero(t, manager.OpenSessions())

	// Paused: activation does not reopen dormant pages
	manager.OnTabActivated(1, at(7000))
	assert.Zero(t, manager.OpenSessions())

	flag.paused.Store(false)
	manager.OnTabActivated(2, at(8000))
	assert.Equal(t, 1, manager.OpenSessions())
}

func TestClockSkewClampsToZero(t *testing.T) {
	manager, sink, _ := newTestManager()

	manager.OnSignal(1, "https://a.com", "A", at(10000))
	manager.OnSignal(1, "https://b.com", "B", at(4000))

	got := sink.all()
	require.Len(t, got, 1)
	assert.Zero(t, got[0].Duration)
	assert.Equal(t, got[0].StartTime.Time, got[0].EndTime.Time)
}
