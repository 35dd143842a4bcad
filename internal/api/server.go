package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"slopreel/internal/assets"
	"slopreel/internal/gate"
	"slopreel/internal/logging"
	"slopreel/internal/orchestrator"
)

// Backend is the run state the API exposes. *orchestrator.Orchestrator
// satisfies it.
type Backend interface {
	Assets() []assets.Asset
	Progress() assets.Overview
	Load(typ assets.Type) orchestrator.Load
	Readiness(action gate.Action) gate.Verdict
	Timing(assetID string) (assets.AudioTiming, bool)
	RetryAsset(ctx context.Context, assetID string) error
}

// Config configures the listener.
type Config struct {
	Bind  string
	Token string
	RunID string
}

// Server serves read-mostly progress endpoints for one run.
type Server struct {
	cfg     Config
	backend Backend
	logger  *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	retries sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New builds a server. Call Start to listen.
func New(cfg Config, backend Backend, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "api-server"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/progress", s.auth(s.handleProgress))
	mux.HandleFunc("GET /api/assets", s.auth(s.handleAssets))
	mux.HandleFunc("GET /api/assets/{id}/timing", s.auth(s.handleTiming))
	mux.HandleFunc("POST /api/assets/{id}/retry", s.auth(s.handleRetry))
	mux.HandleFunc("GET /api/readiness", s.auth(s.handleReadiness))
	return mux
}

// Start listens on the configured address and serves until ctx ends or Stop
// is called.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Bind)
	if bind == "" {
		return errors.New("api listen: bind address required")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_serve_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that "+bind+" is not used by another process"),
			)
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, cancels retries started through the API and
// waits for them to settle.
func (s *Server) Stop() {
	s.cancel()
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	s.retries.Wait()
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	overview := s.backend.Progress()
	resp := ProgressResponse{
		RunID: s.cfg.RunID,
		Image: s.typeProgress(overview, assets.TypeImage),
		Audio: s.typeProgress(overview, assets.TypeAudio),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) typeProgress(overview assets.Overview, typ assets.Type) TypeProgress {
	out := fromProgress(overview.For(typ))
	load := s.backend.Load(typ)
	out.Running = load.Running
	out.Queued = load.Pending
	out.MaxWorkers = load.MaxConcurrent
	return out
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	typeFilter := strings.ToLower(strings.TrimSpace(query.Get("type")))
	statusFilter := make(map[string]struct{})
	for _, value := range query["status"] {
		for part := range strings.SplitSeq(value, ",") {
			if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
				statusFilter[trimmed] = struct{}{}
			}
		}
	}

	items := make([]Asset, 0)
	for _, a := range s.backend.Assets() {
		if typeFilter != "" && string(a.Type) != typeFilter {
			continue
		}
		if len(statusFilter) > 0 {
			if _, ok := statusFilter[string(a.Status)]; !ok {
				continue
			}
		}
		_, hasTiming := s.backend.Timing(a.ID)
		items = append(items, FromAsset(a, hasTiming))
	}
	s.writeJSON(w, http.StatusOK, AssetListResponse{Items: items})
}

func (s *Server) handleTiming(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	timing, ok := s.backend.Timing(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "timing not found")
		return
	}
	s.writeJSON(w, http.StatusOK, timing)
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	proceed, _ := strconv.ParseBool(r.URL.Query().Get("proceed"))
	s.writeJSON(w, http.StatusOK, s.backend.Readiness(gate.ParseAction(proceed)))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	asset, ok := s.find(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if asset.Status == assets.StatusGenerating {
		s.writeJSON(w, http.StatusConflict, RetryResponse{AssetID: id, Status: string(asset.Status)})
		return
	}
	// Stop cancels before taking mu, so an Add made under mu precedes its Wait.
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		s.writeError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	s.retries.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.retries.Done()
		if err := s.backend.RetryAsset(s.ctx, id); err != nil {
			logging.WarnWithContext(s.logger, "api retry failed", "api_retry_failed",
				logging.String(logging.FieldAssetID, id),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the asset error and retry again"),
			)
		}
	}()
	s.writeJSON(w, http.StatusAccepted, RetryResponse{AssetID: id, Accepted: true, Status: string(asset.Status)})
}

func (s *Server) find(id string) (assets.Asset, bool) {
	for _, a := range s.backend.Assets() {
		if a.ID == id {
			return a, true
		}
	}
	return assets.Asset{}, false
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
