package submitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

func sampleActivity() models.Activity {
	return models.NewActivity("https://a.com", "A", time.UnixMilli(0), time.UnixMilli(5000))
}

type resultLog struct {
	mu      sync.Mutex
	results []Result
}

func (r *resultLog) add(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *resultLog) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func TestClientCreateActivityPostsJSON(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/activity", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Activity saved successfully"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client())
	activity := sampleActivity()
	activity.ID = "should-not-be-sent"

	require.NoError(t, client.CreateActivity(context.Background(), activity))
	assert.Equal(t, "https://a.com", got["url"])
	assert.Equal(t, "A", got["title"])
	assert.Equal(t, "1970-01-01T00:00:00.000Z", got["startTime"])
	assert.Equal(t, "1970-01-01T00:00:05.000Z", got["endTime"])
	assert.EqualValues(t, 5, got["duration"])
	assert.NotContains(t, got, "_id")
}

func TestClientCreateActivityStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, nil).CreateActivity(context.Background(), sampleActivity())
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, `{"error":"boom"}`, statusErr.Body)
}

func TestClientListActivities(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/activities", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"x1","url":"https://a.com","title":"A","startTime":"2026-01-01T00:00:00.000Z","endTime":"2026-01-01T00:01:00.000Z","duration":60}]`))
	}))
	defer server.Close()

	activities, err := NewClient(server.URL, nil).ListActivities(context.Background())
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "x1", activities[0].ID)
	assert.Equal(t, 60, activities[0].Duration)
}

func TestSubmitterReportsSuccess(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	results := &resultLog{}
	sub := New(NewClient(server.URL, server.Client()), WithResultHandler(results.add))
	sub.Deliver(sampleActivity())
	sub.Wait()

	got := results.all()
	require.Len(t, got, 1)
	assert.NoError(t, got[0].Err)
	assert.Equal(t, "https://a.com", got[0].Activity.URL)
	assert.EqualValues(t, 1, hits.Load())
}

func TestSubmitterDoesNotRetryFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	results := &resultLog{}
	sub := New(NewClient(server.URL, server.Client()), WithResultHandler(results.add))
	sub.Deliver(sampleActivity())
	sub.Wait()

	got := results.all()
	require.Len(t, got, 1)
	var statusErr *StatusError
	require.ErrorAs(t, got[0].Err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.EqualValues(t, 1, hits.Load())
}

func TestSubmitterNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	results := &resultLog{}
	sub := New(NewClient(url, nil), WithResultHandler(results.add), WithTimeout(time.Second))
	sub.Deliver(sampleActivity())
	sub.Wait()

	got := results.all()
	require.Len(t, got, 1)
	assert.Error(t, got[0].Err)
}

type blockingPoster struct {
	active  atomic.Int32
	peak    atomic.Int32
	release chan struct{}
}

func (b *blockingPoster) CreateActivity(ctx context.Context, _ models.Activity) error {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSubmitterBoundsInFlight(t *testing.T) {
	t.Parallel()

	poster := &blockingPoster{release: make(chan struct{})}
	sub := New(poster, WithMaxInFlight(2))

	for i := 0; i < 6; i++ {
		sub.Deliver(sampleActivity())
	}

	require.Eventually(t, func() bool { return poster.active.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(poster.release)
	sub.Wait()

	assert.EqualValues(t, 2, poster.peak.Load())
}

func TestSubmitterCloseCancelsPending(t *testing.T) {
	t.Parallel()

	poster := &blockingPoster{release: make(chan struct{})}
	results := &resultLog{}
	sub := New(poster, WithMaxInFlight(1), WithResultHandler(results.add))

	sub.Deliver(sampleActivity())
	sub.Deliver(sampleActivity())
	require.Eventually(t, func() bool { return poster.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	sub.Close()

	got := results.all()
	require.Len(t, got, 2)
	for _, result := range got {
		assert.True(t, errors.Is(result.Err, context.Canceled))
	}
}
