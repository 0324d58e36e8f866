// Package api exposes the core over a localhost REST surface for the
// desktop shell. One analysis runs at a time; progress is polled.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"ZakatSentinel/internal/app"
	"ZakatSentinel/internal/calendar"
	"ZakatSentinel/internal/collector"
	"ZakatSentinel/internal/config"
	"ZakatSentinel/internal/ledger"
	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/scheduler"
	"ZakatSentinel/internal/securefile"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Server carries the shared state behind the REST handlers.
type Server struct {
	factory *app.Factory
	sched   *scheduler.Scheduler // nil when running without the daemon

	mu          sync.Mutex
	running     bool
	progress    progressState
	lastVerdict *model.Verdict
}

type progressState struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Done    bool   `json:"done"`
	Error   string `json:"error,omitempty"`
}

// NewServer creates the API server. sched may be nil.
func NewServer(factory *app.Factory, sched *scheduler.Scheduler) *Server {
	return &Server{factory: factory, sched: sched}
}

// Router builds the chi router with cors and request logging.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Get("/api/analyze/progress", s.handleProgress)
	r.Get("/api/analyze/result", s.handleResult)
	r.Get("/api/history", s.handleHistory)
	r.Post("/api/mark-paid", s.handleMarkPaid)
	r.Get("/api/nisab", s.handleNisab)
	r.Put("/api/settings/year-progress", s.handleYearProgress)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := map[string]interface{}{
		"analysis_running": s.running,
	}
	if s.lastVerdict != nil {
		resp["last_verdict"] = s.lastVerdict
	}
	if s.sched != nil {
		resp["next_run"] = s.sched.NextRun()
		if last := s.sched.LastRun(); last != nil {
			resp["last_run"] = last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	MasterPassword string `json:"master_password"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MasterPassword == "" {
		writeError(w, http.StatusBadRequest, "master_password is required")
		return
	}

	runner, err := s.factory.Runner([]byte(req.MasterPassword))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "an analysis is already running")
		return
	}
	runID := uuid.NewString()
	s.running = true
	s.progress = progressState{RunID: runID, Stage: "starting"}
	s.mu.Unlock()

	go s.runAnalysis(runID, runner)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) runAnalysis(runID string, runner *app.Runner) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	verdict, err := runner.RunAnalysis(ctx, func(source, stage string, percent int) {
		s.mu.Lock()
		s.progress.Stage = stage
		if source != "" {
			s.progress.Stage = source + ": " + stage
		}
		s.progress.Percent = percent
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.progress.Done = true
	s.progress.Percent = 100
	if err != nil {
		s.progress.Error = friendlyError(err)
		log.Error().Str("run_id", runID).Err(err).Msg("analysis run failed")
		return
	}
	s.progress.Stage = "complete"
	s.lastVerdict = &verdict
	if s.sched != nil {
		s.sched.MarkRun(time.Now())
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.progress)
}

func (s *Server) handleResult(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastVerdict == nil {
		writeError(w, http.StatusNotFound, "no completed analysis yet")
		return
	}
	writeJSON(w, http.StatusOK, s.lastVerdict)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	password := r.URL.Query().Get("master_password")
	if password == "" {
		writeError(w, http.StatusBadRequest, "master_password is required")
		return
	}
	runner, err := s.factory.Runner([]byte(password))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	records, err := runner.History()
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": records,
		"count":   len(records),
	})
}

type markPaidRequest struct {
	MasterPassword string `json:"master_password"`
	Date           string `json:"date,omitempty"`
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MasterPassword == "" {
		writeError(w, http.StatusBadRequest, "master_password is required")
		return
	}
	runner, err := s.factory.Runner([]byte(req.MasterPassword))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if err := runner.RecordPayment(req.Date); err != nil {
		if errors.Is(err, calendar.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, "invalid date, expected DD.MM.YYYY")
			return
		}
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "payment recorded"})
}

func (s *Server) handleNisab(w http.ResponseWriter, r *http.Request) {
	res := s.factory.Resolver.Resolve(r.Context())
	writeJSON(w, http.StatusOK, res)
}

type yearProgressRequest struct {
	MasterPassword   string `json:"master_password"`
	Enabled          bool   `json:"enabled"`
	MonthsAboveNisab int    `json:"months_above_nisab"`
	AsOfHijriDate    string `json:"as_of_hijri_date,omitempty"`
}

func (s *Server) handleYearProgress(w http.ResponseWriter, r *http.Request) {
	var req yearProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MasterPassword == "" {
		writeError(w, http.StatusBadRequest, "master_password is required")
		return
	}
	password := []byte(req.MasterPassword)
	profile, err := config.LoadProfile(s.factory.Cfg.ProfilePath(), password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	profile.YearProgress = &model.YearProgressOverride{
		Enabled:          req.Enabled,
		MonthsAboveNisab: req.MonthsAboveNisab,
		AsOfHijriDate:    req.AsOfHijriDate,
	}
	if err := config.SaveProfile(s.factory.Cfg.ProfilePath(), password, profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "year progress updated"})
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, securefile.ErrDecryptFailed):
		writeError(w, http.StatusUnauthorized, "wrong master password")
	case errors.Is(err, ledger.ErrCorrupted):
		writeError(w, http.StatusInternalServerError, "stored history is corrupted")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func friendlyError(err error) string {
	switch {
	case errors.Is(err, collector.ErrNoData):
		return "no bank statements could be retrieved from any source"
	case errors.Is(err, securefile.ErrDecryptFailed):
		return "wrong master password"
	case errors.Is(err, ledger.ErrCorrupted):
		return "stored history is corrupted"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
