// Package server exposes the portal engine over HTTP for the dashboard:
// login sessions, check runs, the latest results, the monthly report, and
// the DTC screener. The engine itself knows nothing about HTTP; this layer
// owns status codes, the single-run slot, and result caching.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/nulljosh/claimcheck/internal/dtc"
	"github.com/nulljosh/claimcheck/internal/logger"
	"github.com/nulljosh/claimcheck/internal/portal"
	"github.com/nulljosh/claimcheck/internal/version"
)

// Runner is the portal engine as the façade sees it.
type Runner interface {
	Check(ctx context.Context, creds portal.Credentials) *portal.AggregateResult
	SubmitReport(ctx context.Context, creds portal.Credentials, opts portal.ReportOptions) *portal.SubmissionResult
}

// Config holds the HTTP façade settings.
type Config struct {
	Addr       string        `mapstructure:"addr"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	JSONLogs   bool          `mapstructure:"json_logs"`
}

func DefaultConfig() Config {
	return Config{
		Addr:       ":3000",
		SessionTTL: 30 * time.Minute,
	}
}

type Server struct {
	cfg      Config
	runner   Runner
	results  *ResultStore
	sessions *sessionStore
	slot     *runSlot
	router   chi.Router
}

func New(cfg Config, runner Runner, results *ResultStore) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		results:  results,
		sessions: newSessionStore(cfg.SessionTTL),
		slot:     newRunSlot(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(httplog.NewLogger("claimcheck", httplog.Options{
		JSON:    cfg.JSONLogs,
		Concise: true,
	})))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/check", s.handleCheck)
		r.Post("/report", s.handleReport)
		r.Get("/status", s.handleStatus)
		r.Get("/latest", s.handleLatest)
		r.Post("/dtc/screen", s.handleDTCScreen)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token := s.sessions.Create(portal.Credentials{Username: req.Username, Password: req.Password})
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.sessions.Delete(token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.authed(w, r)
	if !ok {
		return
	}
	if !s.slot.TryAcquire() {
		writeError(w, http.StatusTooManyRequests, "check already in progress")
		return
	}
	defer s.slot.Release()

	res := s.runner.Check(r.Context(), creds)
	s.results.Put(res)

	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.authed(w, r)
	if !ok {
		return
	}

	var req struct {
		Submit bool   `json:"submit"`
		SIN    string `json:"sin"`
		Phone  string `json:"phone"`
		PIN    string `json:"pin"`
	}
	// An empty body is a dry run with the portal's own field values.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Submit && req.PIN == "" {
		writeError(w, http.StatusBadRequest, "submitting requires a confirmation pin")
		return
	}

	if !s.slot.TryAcquire() {
		writeError(w, http.StatusTooManyRequests, "another run is already in progress")
		return
	}
	defer s.slot.Release()

	sub := s.runner.SubmitReport(r.Context(), creds, portal.ReportOptions{
		DryRun: !req.Submit,
		SIN:    req.SIN,
		Phone:  req.Phone,
		PIN:    req.PIN,
	})

	code := http.StatusOK
	if !sub.Success {
		code = http.StatusBadGateway
	}
	writeJSON(w, code, sub)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"busy":      s.slot.Busy(),
		"lastCheck": nil,
		"age":       s.results.Age(),
	}
	if last := s.results.Latest(); last != nil {
		status["lastCheck"] = last.Timestamp
		status["lastSuccess"] = last.Success
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	res := s.results.Latest()
	if r.URL.Query().Get("good") == "1" {
		res = s.results.LatestGood()
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "no results yet")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDTCScreen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers *dtc.Answers `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Answers == nil {
		writeError(w, http.StatusBadRequest, "missing or invalid answers")
		return
	}
	writeJSON(w, http.StatusOK, dtc.Screen(*req.Answers))
}

// authed resolves the request's session, writing the error response itself
// when there is none.
func (s *Server) authed(w http.ResponseWriter, r *http.Request) (portal.Credentials, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return portal.Credentials{}, false
	}
	creds, ok := s.sessions.Get(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "session expired, log in again")
		return portal.Credentials{}, false
	}
	return creds, true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
