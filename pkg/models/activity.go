package models

import (
	"math"
	"time"
)

// Activity is an immutable, finalized record of one completed browsing session
type Activity struct {
	ID        string    `json:"_id,omitempty"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	StartTime Timestamp `json:"startTime"`
	EndTime   Timestamp `json:"endTime"`
	Duration  int       `json:"duration"` // seconds
}

// NewActivity builds a finalized activity and derives its duration.
// An end before the start (clock skew) is clamped to the start, so the
// duration is never negative.
func NewActivity(url, title string, start, end time.Time) Activity {
	if end.Before(start) {
		end = start
	}
	return Activity{
		URL:       url,
		Title:     title,
		StartTime: NewTimestamp(start),
		EndTime:   NewTimestamp(end),
		Duration:  DurationSeconds(start, end),
	}
}

// DurationSeconds returns round((end-start)/1000) over millisecond timestamps
func DurationSeconds(start, end time.Time) int {
	ms := end.UnixMilli() - start.UnixMilli()
	if ms < 0 {
		return 0
	}
	return int(math.Round(float64(ms) / 1000))
}

// CreateActivityRequest is the payload for POST /api/activity.
// Duration is any JSON number of seconds; nil means derive it from the times.
type CreateActivityRequest struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	StartTime Timestamp `json:"startTime"`
	EndTime   Timestamp `json:"endTime"`
	Duration  *float64  `json:"duration,omitempty"`
}

// Activity converts the request into a storable activity. A fractional
// duration is rounded to whole seconds and an end before the start is
// clamped to the start.
func (r CreateActivityRequest) Activity() Activity {
	a := Activity{
		URL:       r.URL,
		Title:     r.Title,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
	if !a.StartTime.IsZero() && !a.EndTime.IsZero() && a.EndTime.Before(a.StartTime.Time) {
		a.EndTime = a.StartTime
	}
	if r.Duration != nil {
		a.Duration = int(math.Round(math.Max(*r.Duration, 0)))
	} else {
		a.Duration = DurationSeconds(a.StartTime.Time, a.EndTime.Time)
	}
	return a
}

// MessageResponse is the success body returned by the store
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the failure body returned by the store
type ErrorResponse struct {
	Error string `json:"error"`
}
