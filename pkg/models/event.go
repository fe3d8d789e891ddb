package models

// EventAction identifies the kind of browser event sent by the extension
type EventAction string

const (
	ActionPageInfo     EventAction = "pageInfo"
	ActionTabActivated EventAction = "tabActivated"
	ActionTabRemoved   EventAction = "tabRemoved"
	ActionFocusChanged EventAction = "focusChanged"
)

// BrowserEvent is one frame on the extension bridge.
// TabID and WindowID are pointers so a missing field is distinguishable from 0.
type BrowserEvent struct {
	Action   EventAction `json:"action"`
	TabID    *int        `json:"tabId,omitempty"`
	WindowID *int        `json:"windowId,omitempty"`
	URL      string      `json:"url,omitempty"`
	Title    string      `json:"title,omitempty"`
}

// Tab returns the event's tab id, or NoTab when absent
func (e BrowserEvent) Tab() int {
	if e.TabID == nil {
		return NoTab
	}
	return *e.TabID
}

// FocusLost reports whether the event says no browser window has focus.
// A missing window id is not a focus loss.
func (e BrowserEvent) FocusLost() bool {
	return e.WindowID != nil && *e.WindowID == NoWindow
}
