package models

import "time"

// NoTab is the tab id browsers use for "not a tab"
const NoTab = -1

// NoWindow is the window id reported when no browser window has focus
const NoWindow = -1

// Session is an open, in-progress observation of one page in one tab
type Session struct {
	TabID     int       `json:"tabId"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
}

// Finalize closes the session at end and returns the resulting activity
func (s Session) Finalize(end time.Time) Activity {
	return NewActivity(s.URL, s.Title, s.StartTime, end)
}

// TrackingStatus is what the popup shows
type TrackingStatus struct {
	Tracking     bool `json:"tracking"`
	OpenSessions int  `json:"openSessions"`
}
