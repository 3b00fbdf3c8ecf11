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

	"streamwatch/internal/api"
	"streamwatch/internal/config"
	"streamwatch/internal/logging"
	"streamwatch/internal/logs"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	logFile string

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:    bind,
		logger:  logger,
		daemon:  d,
		logFile: cfg.LogFile(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handleDashboard)
	mux.Handle("/screenshots/", http.StripPrefix("/screenshots/",
		http.FileServer(http.Dir(cfg.Paths.ScreenshotsDir))))
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/detections", srv.handleDetections)
	mux.HandleFunc("/api/logs", srv.handleLogs)
	mux.HandleFunc("/healthz", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
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

// addr returns the bound address once the listener is up.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleDashboard renders the dashboard from the live store so the page is
// always current, independent of the file written for offline viewing.
func (s *apiServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.daemon.reporter.Render(w, s.daemon.store.Records()); err != nil {
		s.log().Error("dashboard render failed", logging.Error(err))
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		RecordCount:  status.RecordCount,
		LastCycle:    api.FromCycleResult(status.LastCycle),
		LastCycleAt:  status.LastCycleAt,
		LastError:    status.LastError,
		NextCheckAt:  status.NextCheckAt,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleDetections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	login := strings.ToLower(strings.TrimSpace(query.Get("streamer")))
	detectedOnly := query.Get("detected") == "1" || strings.EqualFold(query.Get("detected"), "true")
	limit, _ := strconv.Atoi(query.Get("limit"))

	detections := api.FromRecords(s.daemon.store.Records())
	filtered := make([]api.Detection, 0, len(detections))
	for _, detection := range detections {
		if login != "" && detection.StreamerLogin != login {
			continue
		}
		if detectedOnly && !detection.LogoDetected {
			continue
		}
		filtered = append(filtered, detection)
		if limit > 0 && len(filtered) >= limit {
			break
		}
	}
	s.writeJSON(w, http.StatusOK, api.DetectionsResponse{Detections: filtered})
}

// handleLogs serves lines from the daemon log file. With tail=1 (or no
// since param) it returns the last limit lines; otherwise it resumes from
// the since byte offset. follow=1 holds the request open briefly waiting
// for new lines, which keeps a polling client quiet.
func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	opts := logs.TailOptions{Offset: -1, Limit: limit}
	if since := query.Get("since"); since != "" && query.Get("tail") != "1" {
		offset, err := strconv.ParseInt(since, 10, 64)
		if err != nil || offset < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid since offset")
			return
		}
		opts.Offset = offset
	}
	if query.Get("follow") == "1" {
		opts.Follow = true
		// Stay under the server write timeout.
		opts.Wait = 25 * time.Second
	}

	result, err := logs.Tail(r.Context(), s.logFile, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		s.log().Error("log tail failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to read log file")
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogTailResponse{Lines: result.Lines, Offset: result.Offset})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
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
		return logging.WithComponent(s.logger, "api-server")
	}
	return logging.NewNop()
}
