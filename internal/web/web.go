package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"countdown/internal/battery"
	"countdown/internal/config"
	"countdown/internal/holiday"
	appLog "countdown/internal/log"
	"countdown/internal/pipeline"
	"countdown/internal/store"
)

// Server exposes the countdown API, the holiday editor endpoints and the
// embedded viewer.
type Server struct {
	cfg     *config.Config
	svc     *pipeline.Service
	battery battery.Reader
	mux     *http.ServeMux
}

// embeddedStatic holds the viewer page and its assets.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server. br may be nil when no battery is fitted.
func NewServer(cfg *config.Config, svc *pipeline.Service, br battery.Reader) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		battery: br,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Countdown", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the HTTP server on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/countdown", s.handleCountdown)
	s.mux.HandleFunc("/api/holidays", s.handleHolidays)
	s.mux.HandleFunc("/api/holidays/clear", s.handleClearHolidays)
	s.mux.HandleFunc("/api/themes", s.handleThemes)
	s.mux.HandleFunc("/api/battery", s.handleBattery)
	s.mux.HandleFunc("/preview.png", s.handlePreview)

	// Everything else is the embedded viewer.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCountdown returns the current frame.
//
// GET /api/countdown?today=YYYY-MM-DD&preview=<theme>&daypart=<daypart>
//   - today:   simulate another date (malformed values are ignored)
//   - preview: force a theme key
//   - daypart: force morning|midday|evening|night (noon is accepted)
func (s *Server) handleCountdown(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	ov := pipeline.Overrides{
		Today:   q.Get("today"),
		Theme:   q.Get("preview"),
		Daypart: q.Get("daypart"),
	}
	writeJSON(w, http.StatusOK, s.svc.Evaluate(ov))
}

// holidaysResponse is the JSON shape for /api/holidays.
type holidaysResponse struct {
	// Configured lists document and feed holidays.
	Configured []holiday.Entry `json:"configured"`
	// User lists the editable holidays in stored order.
	User []store.Holiday `json:"user"`
	// Effective is the merged set used for counting, ordered by date.
	Effective []holiday.Entry `json:"effective"`
}

func (s *Server) holidays() (holidaysResponse, bool) {
	snap := s.svc.Snapshot()
	if snap == nil {
		return holidaysResponse{}, false
	}
	resp := holidaysResponse{
		Configured: snap.Configured,
		User:       snap.User,
		Effective:  snap.Registry.Entries(),
	}
	if resp.Configured == nil {
		resp.Configured = []holiday.Entry{}
	}
	if resp.User == nil {
		resp.User = []store.Holiday{}
	}
	if resp.Effective == nil {
		resp.Effective = []holiday.Entry{}
	}
	return resp, true
}

func (s *Server) writeHolidays(w http.ResponseWriter, status int) {
	resp, ok := s.holidays()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}
	writeJSON(w, status, resp)
}

// handleHolidays lists, adds and removes user holidays.
//
//	GET    /api/holidays
//	POST   /api/holidays            {"date":"YYYY-MM-DD","label":"..."}
//	DELETE /api/holidays?date=YYYY-MM-DD&label=...
func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeHolidays(w, http.StatusOK)

	case http.MethodPost:
		var h store.Holiday
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
		if err := dec.Decode(&h); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.svc.AddHoliday(r.Context(), h); err != nil {
			s.writeEditError(w, err)
			return
		}
		s.writeHolidays(w, http.StatusCreated)

	case http.MethodDelete:
		q := r.URL.Query()
		date := q.Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "date is required")
			return
		}
		if err := s.svc.RemoveHoliday(r.Context(), date, q.Get("label")); err != nil {
			s.writeEditError(w, err)
			return
		}
		s.writeHolidays(w, http.StatusOK)

	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleClearHolidays(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	if err := s.svc.ClearHolidays(r.Context()); err != nil {
		s.writeEditError(w, err)
		return
	}
	s.writeHolidays(w, http.StatusOK)
}

func (s *Server) writeEditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidHoliday):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
	default:
		appLog.Error("holiday update failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save holidays")
	}
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	snap := s.svc.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration not loaded")
		return
	}
	writeJSON(w, http.StatusOK, snap.Themes)
}

// handleBattery exposes the UPS battery level for the viewer.
func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	if s.battery == nil {
		writeError(w, http.StatusNotFound, "battery disabled")
		return
	}
	status, err := s.battery.Read(r.Context())
	if err != nil {
		appLog.Error("battery read failed", err)
		writeError(w, http.StatusInternalServerError, "failed to read battery")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handlePreview serves the last captured PNG from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Capture.Enabled {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.cfg.Capture.Output)
}

// staticFileServer serves the embedded viewer from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "viewer not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		// Unknown API paths are 404s, never HTML.
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
