package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterOptions tunes cross-cutting HTTP behaviour.
type RouterOptions struct {
	AllowedOrigins []string
}

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(httprate.Limit(100, time.Minute))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/verify-otp", a.handleVerifyOTP)
		r.Post("/login", a.handleLogin)
	})

	r.Route("/pixel", func(r chi.Router) {
		// Image fetches come from anonymous mail clients, no auth.
		r.Get("/track/{token}", a.handleTrackingImage)
		r.Get("/invisible/{token}.jpg", a.handleTrackingImage)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/create", a.handleCreatePixel)
			r.Get("/stats", a.handlePixelStats)
			r.Get("/analytics", a.handleAnalytics)
			r.Delete("/{id}", a.handleDeletePixel)
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.Use(a.requireAuth)
		r.Get("/", a.handleListCategories)
		r.Post("/", a.handleCreateCategory)
		r.Get("/stats", a.handleCategoryStats)
		r.Put("/{id}", a.handleRenameCategory)
		r.Delete("/{id}", a.handleDeleteCategory)
	})

	return r
}
