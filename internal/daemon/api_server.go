package daemon

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
	"time"

	"gamedeck/internal/config"
	"gamedeck/internal/events"
	"gamedeck/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// DirectInstallRequest is the body of POST /api/install/direct.
type DirectInstallRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Daemon.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.Daemon.APIToken)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", requireToken(token, s.handleStatus))
	mux.HandleFunc("/api/library", requireToken(token, s.handleLibrary))
	mux.HandleFunc("/api/library/rescan", requireToken(token, s.handleRescan))
	mux.HandleFunc("/api/catalog/search", requireToken(token, s.handleCatalogSearch))
	mux.HandleFunc("/api/catalog/details", requireToken(token, s.handleCatalogDetails))
	mux.HandleFunc("/api/install/direct", requireToken(token, s.handleDirectInstall))
	mux.HandleFunc("/api/install/batch", requireToken(token, s.handleBatchInstall))
	mux.HandleFunc("/api/events", requireToken(token, s.handleEvents))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	// Request contexts end with the daemon so long-lived streams let
	// Shutdown finish.
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Library(r.URL.Query().Get("q")))
}

func (s *apiServer) handleRescan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	extendDeadline(w)
	s.writeJSON(w, http.StatusOK, s.daemon.Rescan(r.Context()))
}

func (s *apiServer) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": s.daemon.SearchCatalog(r.Context(), query)})
}

func (s *apiServer) handleCatalogDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	detailURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if detailURL == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter url is required")
		return
	}
	details, ok := s.daemon.CatalogDetails(r.Context(), detailURL)
	if !ok {
		s.writeError(w, http.StatusBadGateway, "catalog details unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

func (s *apiServer) handleDirectInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req DirectInstallRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "url and name are required")
		return
	}
	extendDeadline(w)
	s.writeJSON(w, http.StatusOK, s.daemon.DirectInstall(r.Context(), req.URL, req.Name))
}

func (s *apiServer) handleBatchInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	extendDeadline(w)
	s.writeJSON(w, http.StatusOK, s.daemon.BatchInstall(r.Context()))
}

// handleEvents streams bus events as newline-delimited JSON. Buffered events
// newer than ?since= are replayed first.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	bus := s.daemon.Bus()
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)
	ch, cancel := bus.Subscribe()
	defer cancel()

	extendDeadline(w)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	write := func(evt events.Event) bool {
		if err := enc.Encode(evt); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	last := since
	for _, evt := range bus.Recent(since) {
		if !write(evt) {
			return
		}
		last = evt.Sequence
	}
	if !write(events.Event{Kind: "hello", Sequence: last, At: time.Now().UTC()}) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Sequence <= last {
				continue
			}
			if !write(evt) {
				return
			}
			last = evt.Sequence
		}
	}
}

// extendDeadline lifts the server write timeout for long-running handlers.
func extendDeadline(w http.ResponseWriter) {
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
