package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kedai-pos/engine/internal/config"
	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/gateway"
	"github.com/kedai-pos/engine/internal/handler"
	"github.com/kedai-pos/engine/internal/lifecycle"
	mw "github.com/kedai-pos/engine/internal/middleware"
	"github.com/kedai-pos/engine/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, outlet scoping, and role-based middleware as needed.
func New(cfg *config.Config, store *gateway.PostgresStore, mgr *lifecycle.Manager, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(store, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/outlets/{oid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Outlet-scoped routes
		r.Route("/outlets/{oid}", func(r chi.Router) {
			r.Use(mw.RequireOutlet)

			// Catalog
			menuHandler := handler.NewMenuHandler(store)
			r.Route("/menu-items", menuHandler.RegisterRoutes)

			// Terminal cart and lifecycle
			cartHandler := handler.NewCartHandler(mgr, store)
			r.Route("/terminals/{tid}/cart", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleCashier))
				cartHandler.RegisterRoutes(r)
			})

			// Orders (kitchen + terminal views)
			orderHandler := handler.NewOrderHandler(store, mgr)
			r.Route("/orders", orderHandler.RegisterRoutes)
		})
	})

	return r
}
