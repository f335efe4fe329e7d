/*
Package handler provides the HTTP handlers and routing setup for the Plaza relay.

This file defines the main Router, applying logging, CORS and recovery middleware before
delegating requests to the API handlers and the WebSocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/samber/lo"

	"plaza/internal/pkg/auth/jwt"
	"plaza/internal/pkg/logx"
	"plaza/internal/pkg/resp"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// Origins are checked against AllowedOrigins outside development, both for CORS and for the
// WebSocket upgrade.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := lo.SliceToMap(deps.Config.AllowedOrigins, func(origin string) (string, struct{}) {
		return origin, struct{}{}
	})

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

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

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":  "ok",
			"service": "Plaza Relay",
			"online":  deps.Hub.Registry().Len(),
		}
		resp.RespondSuccess(w, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Decoder))

		api.Get("/residents/online", HandleOnlineResidents(deps))
	})

	r.Get("/ws", HandleWebSocket(deps.Hub, wsUpgrader))

	return r
}
