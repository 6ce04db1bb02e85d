package adapthttp

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"bpmnstudio/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/unrolled/secure"
)

// Pinger is a dependency the health endpoint checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	// WebDir holds the editor client. Empty disables static serving.
	WebDir string
	// CORSOrigins lists allowed origins; "*" allows any. Empty disables CORS headers.
	CORSOrigins []string
	// LoginRate limits login attempts per client IP ("10-M" = 10/min). Empty disables.
	LoginRate string
	// Development relaxes the security header middleware.
	Development bool
	// Metrics exposes /metrics.
	Metrics bool
	// OIDC enables single sign-on. Nil disables it.
	OIDC *OIDCConfig
	// Checks are pinged by /api/health, keyed by name.
	Checks map[string]Pinger
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth     *app.AuthService
	diagrams *app.DiagramService
	log      zerolog.Logger
	opts     Options
	validate *validator.Validate

	loginLimit func(http.Handler) http.Handler
	legacyGet  map[string]http.Handler
	legacyPost map[string]http.Handler
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, diagrams *app.DiagramService, log zerolog.Logger, opts Options) (*Server, error) {
	s := &Server{
		auth:       auth,
		diagrams:   diagrams,
		log:        log.With().Str("component", "http").Logger(),
		opts:       opts,
		validate:   validator.New(),
		loginLimit: noopMiddleware,
	}
	s.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})

	if opts.LoginRate != "" {
		rate, err := limiter.NewRateFromFormatted(opts.LoginRate)
		if err != nil {
			return nil, fmt.Errorf("login rate limit %q: %w", opts.LoginRate, err)
		}
		instance := limiter.New(memory.NewStore(), rate)
		s.loginLimit = stdlib.NewMiddleware(instance, stdlib.WithLimitReachedHandler(s.limitReached)).Handler
	}

	s.legacyGet = map[string]http.Handler{
		"list_diagrams":    s.requireAuth(http.HandlerFunc(s.handleListDiagrams)),
		"get_diagram":      s.requireAuth(http.HandlerFunc(s.handleGetDiagram)),
		"get_account_info": s.requireAuth(http.HandlerFunc(s.handleAccountInfo)),
		"get_2fa_setup":    s.requireAuth(http.HandlerFunc(s.handleTwoFactorSetup)),
	}
	s.legacyPost = map[string]http.Handler{
		"login":          s.loginLimit(http.HandlerFunc(s.handleLogin)),
		"logout":         http.HandlerFunc(s.handleLogout),
		"verify_token":   http.HandlerFunc(s.handleVerify),
		"update_account": s.requireAuth(http.HandlerFunc(s.handleUpdateAccount)),
		"save_diagram":   s.requireAuth(http.HandlerFunc(s.handleSaveDiagram)),
		"rename_diagram": s.requireAuth(http.HandlerFunc(s.handleRenameDiagram)),
		"delete_diagram": s.requireAuth(http.HandlerFunc(s.handleDeleteDiagram)),
	}
	return s, nil
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(prometheusMiddleware)
	r.Use(secure.New(secureOptions(s.opts.Development)).Handler)
	r.Use(cors(s.opts.CORSOrigins))

	if s.opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(withNoCache, s.withParams)

		r.Get("/health", s.handleHealth)

		r.With(s.loginLimit).Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Post("/auth/verify", s.handleVerify)
		r.Get("/auth/sso/login", s.handleSSOLogin)
		r.Get("/auth/sso/callback", s.handleSSOCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/account", s.handleAccountInfo)
			r.Post("/account", s.handleUpdateAccount)
			r.Get("/account/2fa", s.handleTwoFactorSetup)

			r.Get("/diagrams", s.handleListDiagrams)
			r.Post("/diagrams", s.handleSaveDiagram)
			r.Get("/diagrams/{id}", s.handleGetDiagram)
			r.Delete("/diagrams/{id}", s.handleDeleteDiagram)
			r.Post("/diagrams/{id}/rename", s.handleRenameDiagram)
			r.Post("/diagrams/{id}/delete", s.handleDeleteDiagram)
		})
	})

	r.With(withNoCache, s.withParams).HandleFunc("/api.php", s.handleLegacy)

	if s.opts.WebDir != "" {
		r.Handle("/*", spaFromDisk(s.opts.WebDir))
	}
	return r
}

func secureOptions(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:      isDevelopment,
		ContentTypeNosniff: true,
		FrameDeny:          true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}
}
