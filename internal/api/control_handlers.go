package api

import (
	"context"
	"net/http"

	"github.com/shehryarbajwa/tabtrace/internal/pause"
	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

// PauseController is the pause surface the popup drives
type PauseController interface {
	Pause(ctx context.Context) pause.Status
	Resume(ctx context.Context) pause.Status
	Status() pause.Status
}

// SessionCounter reports how many sessions the tracker holds open
type SessionCounter interface {
	OpenSessions() int
}

// ControlHandler serves the tracker agent's control API
type ControlHandler struct {
	pause    PauseController
	sessions SessionCounter
}

// NewControlHandler creates a new control HTTP handler
func NewControlHandler(pause PauseController, sessions SessionCounter) *ControlHandler {
	return &ControlHandler{
		pause:    pause,
		sessions: sessions,
	}
}

// Pause handles POST /api/pause
func (h *ControlHandler) Pause(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pause.Pause(r.Context()))
}

// Resume handles POST /api/resume
func (h *ControlHandler) Resume(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pause.Resume(r.Context()))
}

// Status handles GET /api/status
func (h *ControlHandler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.TrackingStatus{
		Tracking:     h.pause.Status().Tracking,
		OpenSessions: h.sessions.OpenSessions(),
	})
}
