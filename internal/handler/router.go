/*
Package handler provides the HTTP handlers and routing setup for the collaboration server.

This file defines the main Router, applying middleware like logging, metrics, CORS and
per-IP upgrade rate limiting before delegating requests to the admin API and the WebSocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"collabhub/internal/configs"
	"collabhub/internal/pkg/auth/jwt"
	"collabhub/internal/pkg/limiter"
	"collabhub/internal/pkg/logx"
	"collabhub/internal/pkg/resp"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	upgradeLimiter := limiter.NewIPRateLimiter(rate.Limit(deps.Config.UpgradeRate), deps.Config.UpgradeBurst, 0)
	upgradeLimiter.OnReject = func(ip string) {
		deps.Metrics.UpgradeRejected()
		logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
	}

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			// Non-browser clients send no Origin and are not subject to CORS.
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			deps.Metrics.UpgradeRejected()
			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)
	r.Use(deps.Metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":    "ok",
			"service":   "collabhub",
			"accepting": deps.Manager.Accepting(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/stats", HandleStats(deps))
		api.Get("/rooms/{roomId}", HandleRoomSnapshot(deps))
	})

	r.Group(func(ws chi.Router) {
		ws.Use(upgradeLimiter.Middleware)
		if deps.Config.AuthMode == configs.AuthModeJWT {
			ws.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))
		}
		ws.Get("/ws", HandleWebSocket(deps, wsUpgrader))
	})

	return r
}
