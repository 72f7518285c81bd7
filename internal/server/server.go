// Package server provides the HTTP launch surface for export jobs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/comfforts/logger"
	"github.com/gorilla/mux"

	be "github.com/hankgalt/batch-export"
	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	defaultListLimit    = 20
	internalServerError = "Internal server error"
)

// Launcher runs a job to completion.
type Launcher interface {
	Launch(ctx context.Context, params map[string]string, listeners ...be.ChunkListener) (*domain.JobExecution, error)
}

// ExecutionStore looks up recorded job executions.
type ExecutionStore interface {
	GetJobExecution(ctx context.Context, id string) (*domain.JobExecution, error)
	ListJobExecutions(ctx context.Context, jobName string, limit int) ([]*domain.JobExecution, error)
}

// LaunchRequest is the body of a job launch.
type LaunchRequest struct {
	Parameters map[string]string `json:"parameters"`
}

type errorResponse struct {
	Error     string              `json:"error"`
	Execution *domain.JobExecution `json:"execution,omitempty"`
}

// Server routes launch and lookup requests to the registered jobs.
type Server struct {
	jobs   map[string]Launcher
	store  ExecutionStore
	logger *slog.Logger
}

// New creates a server for the named jobs. Without a store, lookups return 404.
func New(l *slog.Logger, store ExecutionStore, jobs map[string]Launcher) *Server {
	if l == nil {
		l = logger.GetSlogLogger()
	}
	return &Server{
		jobs:   jobs,
		store:  store,
		logger: l,
	}
}

// Routes builds the router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.HandleFunc("/healthz", s.Health).Methods("GET")
	r.HandleFunc("/jobs/{job}/executions", s.LaunchJob).Methods("POST")
	r.HandleFunc("/jobs/{job}/executions", s.ListExecutions).Methods("GET")
	r.HandleFunc("/executions/{id}", s.GetExecution).Methods("GET")

	return r
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return logger.WithLogger(context.WithoutCancel(ctx), s.logger)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LaunchJob runs the job synchronously and returns its execution.
func (s *Server) LaunchJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["job"]
	job, ok := s.jobs[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: be.ERR_UNKNOWN_JOB + ": " + name})
		return
	}

	var req LaunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := logger.WithLogger(r.Context(), s.logger)
	exec, err := job.Launch(ctx, req.Parameters)
	if err != nil {
		status := http.StatusInternalServerError
		if be.IsInvalidParameters(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), Execution: exec})
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// ListExecutions returns the most recent executions of a job, newest first.
func (s *Server) ListExecutions(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["job"]
	if _, ok := s.jobs[name]; !ok || s.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: be.ERR_UNKNOWN_JOB + ": " + name})
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit: " + v})
			return
		}
		limit = n
	}

	execs, err := s.store.ListJobExecutions(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("error listing job executions", "job", name, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: internalServerError})
		return
	}
	writeJSON(w, http.StatusOK, execs)
}

// GetExecution returns a recorded execution.
func (s *Server) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: domain.ERR_EXECUTION_NOT_FOUND})
		return
	}

	exec, err := s.store.GetJobExecution(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("error fetching job execution", "execution-id", id, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: internalServerError})
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request completed", "method", r.Method, "uri", r.RequestURI, "duration_ms", time.Since(start).Milliseconds())
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic serving request", "method", r.Method, "uri", r.RequestURI, "panic", err)
				http.Error(w, internalServerError, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
