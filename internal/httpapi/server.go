package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/siteprobe/internal/domain"
	apimw "github.com/hamed0406/siteprobe/internal/httpapi/middleware"
	"github.com/hamed0406/siteprobe/internal/input"
	"github.com/hamed0406/siteprobe/internal/notify"
	"github.com/hamed0406/siteprobe/internal/report"
	"github.com/hamed0406/siteprobe/internal/repo"
)

const DefaultMaxDomains = 10_000

// Runner executes one status run, streaming each result into sink.
type Runner interface {
	Run(ctx context.Context, domains []string, sink repo.ResultSink) ([]domain.ProbeResult, error)
}

type RunnerFunc func(ctx context.Context, domains []string, sink repo.ResultSink) ([]domain.ProbeResult, error)

func (f RunnerFunc) Run(ctx context.Context, domains []string, sink repo.ResultSink) ([]domain.ProbeResult, error) {
	return f(ctx, domains, sink)
}

type Server struct {
	Logger     *zap.Logger
	Runs       repo.RunStore
	Runner     Runner
	Notifier   notify.Notifier
	MaxDomains int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer(l *zap.Logger, runs repo.RunStore, runner Runner, n notify.Notifier) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Logger:     l,
		Runs:       runs,
		Runner:     runner,
		Notifier:   n,
		MaxDomains: DefaultMaxDomains,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)

	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst), apimw.RequireAny(keys))
		r.Get("/api/runs", s.handleListRuns)
		r.Get("/api/runs/{id}", s.handleGetRun)
		r.Get("/api/runs/{id}/results.csv", s.handleResultsCSV)
	})
	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(adminRPM, adminBurst), apimw.RequireAdmin(keys))
		r.Post("/api/runs", s.handleStartRun)
	})
	return r
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() { s.wg.Wait() }

// Close cancels background runs and waits for them to record their results.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

type startPayload struct {
	Domains []string `json:"domains"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var p startPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	domains := make([]string, 0, len(p.Domains))
	for _, d := range p.Domains {
		if d = input.Normalize(d); d != "" {
			domains = append(domains, d)
		}
	}
	if len(domains) == 0 {
		writeError(w, http.StatusBadRequest, "no domains")
		return
	}
	if s.MaxDomains > 0 && len(domains) > s.MaxDomains {
		writeError(w, http.StatusRequestEntityTooLarge, "too many domains")
		return
	}

	run := &domain.Run{Variant: domain.VariantStatus, Total: len(domains)}
	if err := s.Runs.CreateRun(r.Context(), run); err != nil {
		s.Logger.Error("run_create_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create run")
		return
	}
	s.Logger.Info("run_accepted", zap.String("run_id", string(run.ID)), zap.Int("domains", run.Total))

	s.wg.Add(1)
	go s.execute(run.ID, domains)

	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) execute(id domain.RunID, domains []string) {
	defer s.wg.Done()
	start := time.Now()
	sink := repo.RunSink{Store: s.Runs, RunID: id}

	results, err := s.Runner.Run(s.ctx, domains, sink)
	status := domain.RunFinished
	if err != nil {
		status = domain.RunFailed
		s.Logger.Warn("run_error", zap.String("run_id", string(id)), zap.Error(err))
	}
	// record the outcome even when the server is shutting down
	ctx := context.WithoutCancel(s.ctx)
	if err := s.Runs.FinishRun(ctx, id, status, time.Now().UTC()); err != nil {
		s.Logger.Error("run_finish_error", zap.String("run_id", string(id)), zap.Error(err))
	}
	elapsed := time.Since(start)
	s.Logger.Info("run_completed",
		zap.String("run_id", string(id)),
		zap.String("status", string(status)),
		zap.Stringer("summary", report.Summarize(results)),
		zap.Duration("elapsed", elapsed),
	)
	if err := notify.SendRun(ctx, s.Notifier, domain.VariantStatus, results, elapsed); err != nil {
		s.Logger.Warn("notify_error", zap.String("run_id", string(id)), zap.Error(err))
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Runs.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	if runs == nil {
		runs = []*domain.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type summaryView struct {
	Total   int            `json:"total"`
	Healthy int            `json:"healthy"`
	Counts  map[string]int `json:"counts"`
}

type runView struct {
	Run     *domain.Run          `json:"run"`
	Summary summaryView          `json:"summary"`
	Results []domain.ProbeResult `json:"results"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, results, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	sum := report.Summarize(results)
	sv := summaryView{Total: sum.Total, Healthy: sum.Healthy, Counts: map[string]int{}}
	for _, cc := range sum.Counts() {
		sv.Counts[cc.Class.String()] = cc.Count
	}
	if results == nil {
		results = []domain.ProbeResult{}
	}
	writeJSON(w, http.StatusOK, runView{Run: run, Summary: sv, Results: results})
}

func (s *Server) handleResultsCSV(w http.ResponseWriter, r *http.Request) {
	run, results, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+string(run.ID)+`.csv"`)
	if err := (report.CSVWriter{}).Write(w, run.Variant, results); err != nil {
		s.Logger.Warn("csv_write_error", zap.String("run_id", string(run.ID)), zap.Error(err))
	}
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*domain.Run, []domain.ProbeResult, bool) {
	id := domain.RunID(chi.URLParam(r, "id"))
	run, err := s.Runs.GetRun(r.Context(), id)
	if errors.Is(err, repo.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup error")
		return nil, nil, false
	}
	results, err := s.Runs.Results(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "results error")
		return nil, nil, false
	}
	return run, results, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
