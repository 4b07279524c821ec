package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"rrtimeline/internal/chart"
	"rrtimeline/internal/logutil"
	"rrtimeline/internal/models"
	"rrtimeline/internal/results"
	"rrtimeline/internal/storage"
)

//go:embed static/*
var embeddedStatic embed.FS

const maxBodyBytes = 1 << 20

// Server wraps HTTP serving of API, live socket and static assets.
type Server struct {
	httpServer   *http.Server
	store        *storage.ProcessStore
	view         *results.Component
	staticFS     fs.FS
	pushInterval time.Duration
	logger       *zap.Logger
}

// New creates a configured HTTP server around a mounted results view.
func New(addr string, store *storage.ProcessStore, view *results.Component, pushInterval time.Duration, logger *zap.Logger) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}
	if pushInterval <= 0 {
		pushInterval = livePushInterval
	}

	s := &Server{
		store:        store,
		view:         view,
		staticFS:     staticFS,
		pushInterval: pushInterval,
		logger:       logutil.OrNop(logger).Named("server"),
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.routes()}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	fileServer := http.FileServer(http.FS(s.staticFS))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(s.staticFS, "index.html")
		if err != nil {
			http.Error(w, "index missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Route("/api", func(r chi.Router) {
		r.Get("/processes", s.handleListProcesses)
		r.Put("/processes", s.handleReplaceProcesses)
		r.Post("/processes", s.handleUpsertProcess)
		r.Delete("/processes/{process}", s.handleDeleteProcess)
		r.Get("/intervals", s.handleIntervals)
		r.Get("/stats", s.handleStats)
		r.Get("/chart.svg", s.handleChartSVG)
	})
	r.Get("/ws", s.handleLiveWS)
	return r
}

func (s *Server) handleListProcesses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.store.Snapshot()))
}

func (s *Server) handleReplaceProcesses(w http.ResponseWriter, r *http.Request) {
	var entries []models.ProcessEntry
	if err := decodeJSON(w, r, &entries); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Process) == "" {
			writeError(w, http.StatusBadRequest, "every entry needs a process name")
			return
		}
	}
	if err := s.store.Replace(entries); err != nil {
		s.logger.Error("replace processes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store processes")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.store.Snapshot()))
}

func (s *Server) handleUpsertProcess(w http.ResponseWriter, r *http.Request) {
	var entry models.ProcessEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(entry.Process) == "" {
		writeError(w, http.StatusBadRequest, "process name is required")
		return
	}
	if err := s.store.Upsert(entry); err != nil {
		s.logger.Error("upsert process", zap.String("process", entry.Process), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store process")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteProcess(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "process")
	ok, err := s.store.Remove(name)
	if err != nil {
		s.logger.Error("remove process", zap.String("process", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not remove process")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "process not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIntervals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, chart.Flatten(s.store.Snapshot()))
}

type statsDisplay struct {
	AverageWaitingTime    string `json:"average_waiting_time"`
	AverageTurnaroundTime string `json:"average_turnaround_time"`
}

type statsResponse struct {
	models.Stats
	Display statsDisplay `json:"display"`
}

func newStatsResponse(stats models.Stats) statsResponse {
	return statsResponse{
		Stats: stats,
		Display: statsDisplay{
			AverageWaitingTime:    humanize.FtoaWithDigits(stats.AverageWaitingTime, 2) + " units",
			AverageTurnaroundTime: humanize.FtoaWithDigits(stats.AverageTurnaroundTime, 2) + " units",
		},
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStatsResponse(s.view.Stats()))
}

func (s *Server) handleChartSVG(w http.ResponseWriter, _ *http.Request) {
	svg := s.view.Chart().SVG()
	if svg == "" {
		writeError(w, http.StatusServiceUnavailable, "chart is not mounted")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(svg))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func nonNil(entries []models.ProcessEntry) []models.ProcessEntry {
	if entries == nil {
		return []models.ProcessEntry{}
	}
	return entries
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
