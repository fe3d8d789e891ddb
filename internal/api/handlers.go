package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/shehryarbajwa/tabtrace/internal/store"
	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

// ActivityStore is the persistence the store handlers need
type ActivityStore interface {
	InsertActivity(ctx context.Context, activity models.Activity) (models.Activity, error)
	InsertActivities(ctx context.Context, activities []models.Activity) ([]models.Activity, error)
	ListActivities(ctx context.Context, limit int) ([]models.Activity, error)
	CountActivities(ctx context.Context) (int, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Handler holds dependencies for the activity store HTTP handlers
type Handler struct {
	store ActivityStore
	now   func() time.Time
}

// NewHandler creates a new HTTP handler
func NewHandler(activityStore ActivityStore) *Handler {
	return &Handler{
		store: activityStore,
		now:   time.Now,
	}
}

// CreateActivity handles POST /api/activity
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req models.CreateActivityRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	log.Printf("📥 Incoming activity: url=%q title=%q start=%s end=%s", req.URL, req.Title, req.StartTime.Format(time.RFC3339), req.EndTime.Format(time.RFC3339))

	activity := req.Activity()
	if err := store.Validate(activity); err != nil {
		log.Println("⚠️ Missing required fields in /api/activity request")
		writeError(w, http.StatusBadRequest, "Missing required fields: url/startTime/endTime")
		return
	}

	if _, err := h.store.InsertActivity(r.Context(), activity); err != nil {
		if errors.Is(err, store.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, "Missing required fields: url/startTime/endTime")
			return
		}
		log.Printf("❌ Error saving activity: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, models.MessageResponse{Message: "Activity saved successfully"})
}

// ListActivities handles GET /api/activities
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.store.ListActivities(r.Context(), 0)
	if err != nil {
		log.Printf("❌ Error fetching activities: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("📊 Fetched %d activities", len(activities))
	writeJSON(w, http.StatusOK, activities)
}

type sampleActivity struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
}

// CheckStore handles GET /api/check-store
func (h *Handler) CheckStore(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		log.Printf("❌ Store check failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "Error",
			"error":  err.Error(),
		})
		return
	}

	samples := make([]sampleActivity, 0, len(stats.Sample))
	for _, a := range stats.Sample {
		samples = append(samples, sampleActivity{ID: a.ID, URL: a.URL, Title: a.Title, Duration: a.Duration})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "Connected",
		"database":         stats.Path,
		"collections":      stats.Tables,
		"totalActivities":  stats.Total,
		"sampleActivities": samples,
	})
}

// Debug handles /api/debug and echoes what the server received
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	var body any
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			body = nil
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"method": r.Method,
		"origin": nullable(r.Header.Get("Origin")),
		"headers": map[string]any{
			"content-type": nullable(r.Header.Get("Content-Type")),
			"referer":      nullable(r.Header.Get("Referer")),
			"user-agent":   nullable(r.Header.Get("User-Agent")),
		},
		"body": body,
	})
}

// SeedTestData handles POST /api/test-data
func (h *Handler) SeedTestData(w http.ResponseWriter, r *http.Request) {
	added, err := h.store.InsertActivities(r.Context(), store.DemoActivities(h.now()))
	if err != nil {
		log.Printf("❌ Error adding test data: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total, err := h.store.CountActivities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("🧪 Added %d test activities (total %d)", len(added), total)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Test data added successfully",
		"added":   len(added),
		"total":   total,
	})
}

// Healthz handles GET /healthz
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
