// Package http is the server-rendered web surface: expense entry,
// summary widgets, statistics and the record list, with htmx partial
// refreshes driven by change notifications.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"jizhang/internal/core"
	"jizhang/internal/events"
	"jizhang/internal/storage"
	appweb "jizhang/web"
)

// ExpensePublisher pushes a change event onto the cross-process
// notification channel. Nil-safe at call sites: the server runs
// without a broker, losing only cross-instance refresh.
type ExpensePublisher interface {
	PublishExpenseChanged(ctx context.Context, id, userID int64) error
}

type Server struct {
	http.Server
	templates *template.Template
	repo      *storage.Repository
	publisher ExpensePublisher
	hub       *events.Hub

	rateLimiter     *rateLimiter
	secureCookie    bool
	sessionDuration time.Duration

	shutdownOnce sync.Once
}

// Options carries the server wiring that is not a hard dependency.
type Options struct {
	SecureCookie    bool
	SessionDuration time.Duration
	Publisher       ExpensePublisher
}

var templateFuncs = template.FuncMap{
	"yuan": core.FormatYuan,
	"add":  func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
	"periodLabel": func(p core.Period) string {
		switch p {
		case core.PeriodWeek:
			return "本周"
		case core.PeriodMonth:
			return "本月"
		case core.PeriodYear:
			return "本年"
		default:
			return "今天"
		}
	},
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. hub may not be nil; publisher may.
func NewServer(addr string, repo *storage.Repository, hub *events.Hub, opts Options) *Server {
	mux := http.NewServeMux()

	if opts.SessionDuration <= 0 {
		opts.SessionDuration = 30 * 24 * time.Hour
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:            repo,
		publisher:       opts.Publisher,
		hub:             hub,
		rateLimiter:     newRateLimiter(),
		secureCookie:    opts.SecureCookie,
		sessionDuration: opts.SessionDuration,
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /login", s.withSecurityHeaders(s.handleLoginForm))
	mux.HandleFunc("POST /login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("GET /signup", s.withSecurityHeaders(s.handleSignupForm))
	mux.HandleFunc("POST /signup", s.withSecurityHeaders(s.handleSignup))
	mux.HandleFunc("POST /logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.requireAuth(s.handleIndex)))
	mux.HandleFunc("POST /expenses", s.withSecurityHeaders(s.requireAuth(s.handleCreateExpense)))
	mux.HandleFunc("GET /ui/summary", s.withSecurityHeaders(s.requireAuth(s.handleSummary)))
	mux.HandleFunc("GET /ui/recent", s.withSecurityHeaders(s.requireAuth(s.handleRecent)))
	mux.HandleFunc("GET /stats", s.withSecurityHeaders(s.requireAuth(s.handleStats)))
	mux.HandleFunc("GET /ui/stats", s.withSecurityHeaders(s.requireAuth(s.handleStatsPartial)))
	mux.HandleFunc("GET /events", s.requireAuth(s.handleEvents))

	return s
}

// Shutdown stops the HTTP server and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := clientAddress(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutations only; partial refreshes stay cheap
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com https://cdn.jsdelivr.net 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps the wrapped writer usable for streaming responses.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.CountExpenses(r.Context(), 0, core.PeriodDay.Resolve(today())); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func today() core.Date {
	now := time.Now()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
	}
}
