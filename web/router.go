package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"chatline/auth"
)

// RouterConfig carries the edge settings the router assembles from.
type RouterConfig struct {
	AllowedOrigins    []string
	AuthRatePerMinute int
	APIRatePerMinute  int
	UploadsDir        string
}

// NewRouter assembles the full HTTP surface.
func NewRouter(
	log *slog.Logger,
	authHandler *AuthHandler,
	messageHandler *MessageHandler,
	userHandler *UserHandler,
	systemHandler *SystemHandler,
	wsHandler *WSHandler,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		// Liveness stays unauthenticated and unthrottled
		r.Get("/health", systemHandler.Health)

		r.Route("/auth", func(r chi.Router) {
			// Strict limit: registration and login are brute-force targets
			strict := httprate.LimitByIP(cfg.AuthRatePerMinute, time.Minute)
			r.With(strict).Post("/register", authHandler.Register)
			r.With(strict).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(cfg.APIRatePerMinute, time.Minute))
			r.Use(auth.Middleware)

			r.Get("/stats", systemHandler.Stats)
			r.Get("/users", userHandler.List)
			r.Get("/conversations", messageHandler.Conversations)

			r.Route("/messages", func(r chi.Router) {
				r.Post("/send/{userID}", messageHandler.Send)
				r.Get("/search", messageHandler.Search)
				r.Get("/{userID}", messageHandler.History)
			})
		})
	})

	// Authenticated live stream; auth rides the session cookie because
	// browsers cannot set headers on the upgrade request.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/ws", wsHandler.Serve)
	})

	// Static retrieval of stored attachments, no directory listings
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
	r.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", r.RemoteAddr)
		})
	}
}
