package web

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chatsentry/chatsentry/internal/config"
	"github.com/chatsentry/chatsentry/internal/daemon"
	"github.com/chatsentry/chatsentry/internal/models"
	"github.com/chatsentry/chatsentry/internal/reporter"
	"github.com/chatsentry/chatsentry/internal/sentry"
	"github.com/chatsentry/chatsentry/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const defaultLimit = 100

// Repository is the read side of the judgment store used by the API
type Repository interface {
	reporter.Source
	GetJudgment(id uint) (*models.Judgment, error)
	GetLatestJudgment() (*models.Judgment, error)
}

// StatusProvider exposes the live monitor state
type StatusProvider interface {
	Stats() sentry.Stats
}

type Handler struct {
	config   *config.Config
	repo     Repository
	reporter *reporter.Reporter
	status   StatusProvider
	log      zerolog.Logger
	now      func() time.Time
}

// NewHandler creates the API handler. status may be nil when no monitor runs
// in this process.
func NewHandler(cfg *config.Config, repo Repository, status StatusProvider, log zerolog.Logger) *Handler {
	return &Handler{
		config:   cfg,
		repo:     repo,
		reporter: reporter.New(repo),
		status:   status,
		log:      log,
		now:      time.Now,
	}
}

func (h *Handler) SetupRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/judgments", h.handleJudgments)
		r.Get("/judgments/latest", h.handleLatestJudgment)
		r.Get("/judgments/{id}", h.handleJudgment)
		r.Get("/report", h.handleReport)
		r.Get("/status", h.handleStatus)
	})

	r.Get("/health", h.handleHealth)
	r.Get("/", h.handleIndex)
}

func (h *Handler) handleJudgments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	since := h.now().Add(-24 * time.Hour)
	if periodType := query.Get("period"); periodType != "" {
		period, err := reporter.GetPeriod(periodType, h.now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		since = period.Start
	}

	limit := defaultLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = l
	}

	onlyPositive := query.Get("positive") == "true"

	judgments, err := h.repo.ListJudgments(since, onlyPositive, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch judgments")
		http.Error(w, fmt.Sprintf("Failed to fetch judgments: %v", err), http.StatusInternalServerError)
		return
	}
	if judgments == nil {
		judgments = []*models.Judgment{}
	}

	if r.Header.Get("HX-Request") == "true" {
		h.respondJudgmentsHTML(w, judgments)
		return
	}

	respondJSON(w, h.log, judgments)
}

func (h *Handler) handleLatestJudgment(w http.ResponseWriter, r *http.Request) {
	judgment, err := h.repo.GetLatestJudgment()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch latest judgment: %v", err), http.StatusInternalServerError)
		return
	}

	if judgment == nil {
		http.Error(w, "No judgments found", http.StatusNotFound)
		return
	}

	respondJSON(w, h.log, judgment)
}

func (h *Handler) handleJudgment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid judgment id", http.StatusBadRequest)
		return
	}

	judgment, err := h.repo.GetJudgment(uint(id))
	if err == gorm.ErrRecordNotFound {
		http.Error(w, "Judgment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch judgment: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, h.log, judgment)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	if _, err := reporter.GetPeriod(periodType, h.now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, h.log, report)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"window_title":   h.config.App.WindowTitle,
		"details_title":  h.config.App.DetailsWindowTitle,
		"poll_interval":  h.config.App.PollingInterval.String(),
		"debounce":       h.config.Thresholds.DebounceInterval.String(),
		"threshold":      h.config.Thresholds.ChangeDetection,
		"database_path":  h.config.Paths.Database,
		"judgments_path": h.config.Paths.Judgments,
	}

	if h.status != nil {
		status["monitor"] = h.status.Stats()
	}

	if info, err := daemon.Inspect(os.Getpid()); err == nil {
		status["process"] = info
	}

	if latest, _ := h.repo.GetLatestJudgment(); latest != nil {
		status["latest_judgment"] = map[string]interface{}{
			"timestamp": latest.Timestamp,
			"positive":  latest.Positive,
			"age":       utils.FormatAge(latest.Timestamp, h.now()),
		}
	}

	respondJSON(w, h.log, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.log, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *Handler) respondJudgmentsHTML(w http.ResponseWriter, judgments []*models.Judgment) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if len(judgments) == 0 {
		w.Write([]byte(`<div class="loading">No judgments yet</div>`))
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	now := h.now()
	for _, j := range judgments {
		verdict := "no"
		if j.Positive {
			verdict = "yes"
		}
		fmt.Fprintf(&b, `
		<div class="item verdict-%s">
			<span class="text">%s</span>
			<span class="age">%s</span>
		</div>`, verdict, html.EscapeString(j.Text), utils.FormatAge(j.Timestamp, now))
	}
	b.WriteString(`</div>`)

	w.Write([]byte(b.String()))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>chatsentry</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; padding: 20px; color: #333; }
        h1 { margin-bottom: 20px; }
        .box { background: white; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); padding: 24px; margin-bottom: 20px; }
        .item { display: flex; justify-content: space-between; padding: 10px 8px; border-bottom: 1px solid #eee; }
        .verdict-yes { border-left: 4px solid #27ae60; }
        .verdict-no { border-left: 4px solid #bdc3c7; }
        .age { color: #7f8c8d; font-size: 0.9rem; white-space: nowrap; margin-left: 12px; }
        .loading { color: #7f8c8d; font-style: italic; }
    </style>
</head>
<body>
    <h1>chatsentry</h1>
    <div class="box">
        <h2>Positive judgments</h2>
        <div hx-get="/api/judgments?positive=true&limit=20" hx-trigger="load, every 15s" hx-swap="innerHTML">
            <div class="loading">Loading...</div>
        </div>
    </div>
    <div class="box">
        <h2>All judgments (24h)</h2>
        <div hx-get="/api/judgments?limit=50" hx-trigger="load, every 15s" hx-swap="innerHTML">
            <div class="loading">Loading...</div>
        </div>
    </div>
</body>
</html>`

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func respondJSON(w http.ResponseWriter, log zerolog.Logger, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding JSON")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
