package daemon

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"kiosk/internal/api"
	"kiosk/internal/config"
	"kiosk/internal/logging"
	"kiosk/internal/render"
	"kiosk/internal/services"
	"kiosk/internal/session"
)

//go:embed web/index.html
var displayPage []byte

const (
	// longPollWindow keeps follow requests inside the server write timeout.
	longPollWindow = 25 * time.Second
	defaultQRSize  = 256
	maxQRSize      = 1024
)

type apiServer struct {
	bind     string
	token    string
	mediaDir string
	logger   *slog.Logger
	daemon   *Daemon

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
		bind:     bind,
		token:    strings.TrimSpace(cfg.Paths.APIToken),
		mediaDir: strings.TrimSpace(cfg.Paths.MediaDir),
		logger:   logger,
		daemon:   d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// routes builds the handler tree. The display page and the endpoints it
// polls stay open so a screen in kiosk mode needs no credentials.
func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDisplay)
	mux.HandleFunc("/api/player", s.handlePlayer)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/qr", s.handleQR)
	mux.HandleFunc("/api/status", authMiddleware(s.token, s.handleStatus))
	mux.HandleFunc("/api/reload", authMiddleware(s.token, s.handleReload))
	mux.HandleFunc("/api/history", authMiddleware(s.token, s.handleHistory))
	mux.HandleFunc("/api/logs", authMiddleware(s.token, s.handleLogs))
	mux.HandleFunc("/api/", s.handleNotFound)
	if s.mediaDir != "" {
		mux.Handle(render.MediaPrefix, http.StripPrefix(render.MediaPrefix, http.FileServer(http.Dir(s.mediaDir))))
	}
	return s.logRequests(mux)
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

	s.log().Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
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

// addr reports the bound listener address, which differs from bind when
// the configured port is 0.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleDisplay(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		s.handleNotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(displayPage)
}

func (s *apiServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.log().Warn("route not found",
		logging.String(logging.FieldEventType, "route_not_found"),
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
	)
	s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "not found", Path: r.URL.Path})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).API())
}

func (s *apiServer) handlePlayer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Sessions().State())
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	wait := queryFlag(query.Get("wait"))

	ctx := r.Context()
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, longPollWindow)
		defer cancel()
	}
	events, next, err := s.daemon.Sessions().Events(ctx, since, limit, wait)
	if err != nil && !isContextDone(err) {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.PlayerEventsResponse{Events: events, Next: next})
}

func (s *apiServer) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var report api.RenderReport
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&report); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid render report: "+err.Error())
		return
	}
	if report.Activation == 0 {
		s.writeError(w, http.StatusBadRequest, "activation is required")
		return
	}
	accepted, err := s.daemon.Sessions().ReportRender(report.Activation, report.Status, report.Detail)
	switch {
	case errors.Is(err, session.ErrNotRunning):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log().Debug("render report received",
		logging.Uint64(logging.FieldActivation, report.Activation),
		logging.String("status", report.Status),
		logging.Bool("accepted", accepted),
	)
	s.writeJSON(w, http.StatusOK, api.RenderReportResponse{Accepted: accepted})
}

func (s *apiServer) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, err := s.daemon.Reload(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNotRunning) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ReloadResponse{SessionID: id})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp, err := s.daemon.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > maxQRSize {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("size must be between 64 and %d", maxQRSize))
			return
		}
		size = parsed
	}
	png, err := qrcode.Encode(s.daemon.cfg.DisplayURL(), qrcode.Medium, size)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hub := s.daemon.LogStream()
	archive := s.daemon.LogArchive()
	if hub == nil && archive == nil {
		s.writeJSON(w, http.StatusOK, api.LogStreamResponse{Events: nil, Next: 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := queryFlag(query.Get("follow"))
	tail := queryFlag(query.Get("tail"))
	filter := logFilterFromQuery(query.Get)

	var (
		events []logging.LogEvent
		next   uint64
	)

	// Cursors older than the hub's window are served from the archive.
	if archive != nil && since > 0 && (hub == nil || since+1 < hub.FirstSequence()) {
		archived, cursor, err := archive.ReadSince(since, limit)
		if err != nil {
			s.log().Warn("log archive read failed", logging.Error(err))
		} else if len(archived) > 0 {
			events, next = archived, cursor
		}
	}
	if len(events) == 0 && hub != nil {
		if tail && since == 0 && !follow {
			raw, cursor := hub.Tail(limit)
			events, next = logging.EventsFromEntries(raw), cursor
		} else {
			ctx := r.Context()
			if follow {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, longPollWindow)
				defer cancel()
			}
			raw, cursor, err := hub.Fetch(ctx, since, limit, follow)
			if err != nil && !isContextDone(err) {
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			events, next = logging.EventsFromEntries(raw), cursor
		}
	}

	s.writeJSON(w, http.StatusOK, api.LogStreamResponse{
		Events: filter.apply(api.FromLogEvents(events)),
		Next:   next,
	})
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
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}

func queryFlag(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}

func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *apiServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := services.WithRequestID(r.Context(), requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		logging.WithContext(ctx, s.log()).Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}
