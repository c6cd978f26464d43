package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpmw "github.com/cwrk-planet/presence-relay/internal/transport/http/middleware"
)

type RouterConfig struct {
	StaticDir      string
	AllowedOrigins []string
}

func NewRouter(h *Handler, verifier httpmw.TokenVerifier, ws http.HandlerFunc, metrics http.Handler, cfg RouterConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(httpmw.WithRequestLogger)
	r.Use(httpmw.RequestLogger)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// WS endpoint
	r.Get("/ws", ws)

	// диагностика
	gate := httpmw.HealthAuth(verifier, http.HandlerFunc(h.Login))
	r.With(gate).Get("/health", h.Dashboard)
	r.With(gate).Get("/health/api", h.HealthAPI)
	r.Post("/health/login", h.DoLogin)
	r.Post("/health/logout", h.Logout)

	r.Get("/healthz", h.Liveness)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	// всё остальное - клиентская сборка
	spa := newSPAHandler(cfg.StaticDir)
	r.NotFound(spa.ServeHTTP)

	return r
}
