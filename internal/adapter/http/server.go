package adapthttp

import (
	"net/http"

	"github.com/brunod-e/daily-diet-api/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options tunes the HTTP adapter.
type Options struct {
	CookieSecure bool
	CORSOrigins  []string
	// SignupRate is the sustained POST /users rate per client IP, per second.
	SignupRate  float64
	SignupBurst int
	// TrustProxy honors X-Forwarded-For and X-Real-IP as the client address.
	// Leave it off unless a reverse proxy overwrites those headers.
	TrustProxy bool
	// PostLoginRedirect is where a completed SSO sign-in is sent. When empty
	// the callback answers with the signed-in user as JSON.
	PostLoginRedirect string
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	users   *app.UserService
	meals   *app.MealService
	metrics *app.MetricsService
	oidc    *OIDCConfig
	opts    Options
	signup  *rateLimiter
	log     zerolog.Logger
}

// New creates a Server wired to the given application services. oidc may be
// nil when SSO is not configured.
func New(us *app.UserService, ms *app.MealService, mt *app.MetricsService, oidc *OIDCConfig, opts Options) *Server {
	if opts.SignupRate <= 0 {
		opts.SignupRate = 1
	}
	if opts.SignupBurst <= 0 {
		opts.SignupBurst = 5
	}
	if oidc == nil {
		oidc = &OIDCConfig{}
	}
	return &Server{
		users:   us,
		meals:   ms,
		metrics: mt,
		oidc:    oidc,
		opts:    opts,
		signup:  newRateLimiter(opts.SignupRate, opts.SignupBurst),
		log:     log.Logger,
	}
}

// WithLogger replaces the request logger.
func (s *Server) WithLogger(l zerolog.Logger) *Server {
	s.log = l
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(withNoCache)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Get("/sso/login", s.handleSSOLogin)
		r.Get("/sso/callback", s.handleSSOCallback)
	})

	r.Route("/users", func(r chi.Router) {
		r.With(s.signup.middleware).Post("/", s.handleCreateUser)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.handleMe)
			r.Post("/logout", s.handleLogout)
		})
	})

	r.Route("/meals", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/", s.handleCreateMeal)
		r.Get("/", s.handleListMeals)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/{mealID}", s.handleGetMeal)
		r.Put("/{mealID}", s.handleUpdateMeal)
		r.Delete("/{mealID}", s.handleDeleteMeal)
	})

	return r
}
