package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/typica-pos/api/internal/config"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/forecast"
	"github.com/typica-pos/api/internal/handler"
	"github.com/typica-pos/api/internal/lockout"
	mw "github.com/typica-pos/api/internal/middleware"
	"github.com/typica-pos/api/internal/notify"
	"github.com/typica-pos/api/internal/service"
	"github.com/typica-pos/api/internal/throttle"
	"github.com/typica-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed. Order events
// go to events after each committed transition; limiter throttles logins.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, events notify.Publisher, limiter *throttle.Limiter) chi.Router {
	r := chi.NewRouter()
	loc := cfg.Location()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	policy := lockout.Policy{
		Threshold:  cfg.Lockout.Threshold,
		Duration:   cfg.Lockout.Duration,
		DailyLimit: cfg.Lockout.DailyLimit,
	}
	authService := service.NewAuthService(queries, policy, limiter, loc)
	authHandler := handler.NewAuthHandler(authService, queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Order boards authenticate with ?token= on the upgrade request
	r.Method(http.MethodGet, "/ws/orders", ws.NewHandler(hub, cfg.JWTSecret, cfg.CORSOrigins))

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, events, loc)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterSessionRoutes(r)

		configHandler := handler.NewConfigHandler(queries)
		configHandler.RegisterStateRoutes(r)

		// Products: the live menu for every role, management for admins
		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterMenuRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdministrador))
				productHandler.RegisterRoutes(r)
			})
		})

		// Orders: one subtree, each group gated by role
		orderHandler := handler.NewOrderHandler(orderService, queries, loc)
		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleMesero, enum.RoleAdministrador))
				orderHandler.RegisterRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleAdministrador))
				orderHandler.RegisterAdminRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleCocina, enum.RoleAdministrador))
				orderHandler.RegisterKitchenRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.RoleCajero, enum.RoleAdministrador))
				orderHandler.RegisterPaymentRoutes(r)
			})
			orderHandler.RegisterPrintRoutes(r)
		})

		// Kitchen board
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCocina, enum.RoleAdministrador))
			kitchenHandler := handler.NewKitchenHandler(orderService, queries)
			r.Route("/kitchen", kitchenHandler.RegisterRoutes)
		})

		// Cashier board
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCajero, enum.RoleAdministrador))
			cashierHandler := handler.NewCashierHandler(queries, loc)
			r.Route("/cashier", cashierHandler.RegisterRoutes)
		})

		// Administrador-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdministrador))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			categoryHandler := handler.NewCategoryHandler(queries)
			r.Route("/categories", categoryHandler.RegisterRoutes)

			comboHandler := handler.NewComboHandler(queries)
			r.Route("/combos", comboHandler.RegisterRoutes)

			r.Route("/config", configHandler.RegisterRoutes)

			reportsHandler := handler.NewReportsHandler(queries, cfg.Forecast.Output, loc)
			reportsHandler.RegisterRoutes(r)

			runner := forecast.NewRunner(cfg.Forecast.Command, cfg.Forecast.Output, cfg.Forecast.Timeout)
			forecastHandler := handler.NewForecastHandler(runner, queries, cfg.Forecast.Output, loc)
			forecastHandler.RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
