package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"fundtracker/internal/auth"
	"fundtracker/internal/core"
	applog "fundtracker/internal/log"
	"fundtracker/internal/middleware/ratelimit"
	"fundtracker/internal/middleware/security"
	"fundtracker/internal/middleware/trace"
	"fundtracker/internal/services"
	appweb "fundtracker/web"
)

const (
	defaultRequestTimeout = 7 * time.Second
	staticMaxAge          = 86400
)

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	CurrencyLabel  string
	RequestTimeout time.Duration
	// RateLimit is the number of mutating requests per minute per client.
	RateLimit     int
	SecureCookies bool
	SessionTTL    time.Duration
	Logger        *applog.Logger
	// Now is the clock used for default dates and report timestamps.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.LedgerService
	auth      *auth.Authenticator
	sessions  *auth.Sessions
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *applog.Logger
	opts      Options
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around the ledger service.
func NewServer(addr string, svc *services.LedgerService, authn *auth.Authenticator, sessions *auth.Sessions, opts Options) (*Server, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates: tmpl,
		ledger:    svc,
		auth:      authn,
		sessions:  sessions,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		detector:  security.NewDetector(opts.Logger.WithComponent(applog.ComponentSecurity).Slog()),
		tracer:    trace.NewMiddleware(),
		logger:    opts.Logger.WithComponent(applog.ComponentHTTP),
		opts:      opts,
		started:   opts.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"money": func(m core.Money, label string) string { return core.FormatMoney(m, label) },
		"join":  strings.Join,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.Handle("POST /logout", s.requireSession(http.HandlerFunc(s.handleLogout)))

	page := func(h http.HandlerFunc) http.Handler { return s.requireSession(security.NoStore(h)) }
	api := func(h http.HandlerFunc) http.Handler { return s.requireAPISession(security.NoStore(h)) }

	mux.Handle("GET /{$}", page(s.handleIndex))
	mux.Handle("GET /ui/summary", page(s.handleSummaryPartial))
	mux.Handle("GET /ui/transactions", page(s.handleTransactionsPartial))
	mux.Handle("POST /transactions", page(s.handleCreateTransaction))
	mux.Handle("POST /transactions/update", page(s.handleUpdateTransaction))
	mux.Handle("POST /transactions/delete", page(s.handleDeleteTransaction))

	mux.Handle("GET /reports/summary.pdf", page(s.handleSummaryPDF))
	mux.Handle("GET /reports/usage.png", page(s.handleUsageChart))
	mux.Handle("GET /reports/share.png", page(s.handleShareChart))
	mux.Handle("GET /reports/transactions.csv", page(s.handleTransactionsCSV))

	mux.Handle("GET /api/transactions", api(s.handleAPIListTransactions))
	mux.Handle("POST /api/transactions", api(s.handleAPICreateTransaction))
	mux.Handle("PUT /api/transactions/{seq}", api(s.handleAPIUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{seq}", api(s.handleAPIDeleteTransaction))
	mux.Handle("GET /api/summary", api(s.handleAPISummary))

	mux.Handle("GET /metrics", api(s.handleMetrics))

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)

	var h http.Handler = mux
	h = limited(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(s.headersConfig()).Middleware(h)
	h = applog.Middleware(s.logger, trace.RequestIDFromRequest, s.detector.ExtractClientIP)(h)
	h = s.tracer.Middleware(h)
	return h
}

func (s *Server) headersConfig() security.HeadersConfig {
	cfg := security.DefaultHeadersConfig()
	if !s.opts.SecureCookies {
		cfg.HSTSMaxAge = 0
	}
	return cfg
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	err := core.NewError(core.KindValidation, "too many requests, try again in a minute", nil)
	if isAPI(r) {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, APIError{Kind: core.KindOf(err), Message: core.MessageOf(err)})
		return
	}
	ErrorResponse(http.StatusTooManyRequests, core.MessageOf(err)).
		Header("Retry-After", "60").
		TriggerErrorNotification(core.MessageOf(err)).
		Write(w)
}

// requestContext bounds backend calls made while serving r.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.LogError(r.Context(), applog.FromContext(r.Context()), "template render failed", err,
			applog.ComponentTemplate, applog.OpRender, applog.LogFields{"template": name})
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	loaded := s.ledger.LastLoad()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"version":      s.ledger.Version(),
		"transactions": len(s.ledger.Transactions()),
		"dropped":      loaded.Dropped,
		"initialized":  loaded.Initialized,
	})
}

// Shutdown stops the rate limiter sweeper and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
