package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/health"
	"github.com/eraverse/sales-admin-service/internal/http/handler"
	"github.com/eraverse/sales-admin-service/internal/http/middleware"
	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/security"
)

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	SaleHandler    *handler.SaleHandler
	ProductHandler *handler.ProductHandler
	UserHandler    *handler.UserHandler
	SummaryHandler *handler.SummaryHandler
	BotHandler     *handler.BotHandler

	SessionAuth *middleware.SessionAuth
	JWTManager  *security.JWTManager

	CORSOrigins      []string
	APIRateLimitRPM  int
	AuthRateLimitRPM int
	BodyLimitBytes   int64

	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(dep.BodyLimitBytes))
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())

	authLimiter := middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).
		WithScope("auth").Middleware()

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	adminOnly := middleware.RequireRole(domain.RoleAdmin, domain.RoleOwner)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.With(dep.SessionAuth.Middleware).Get("/me", dep.AuthHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(dep.SessionAuth.Middleware)

			// Sales are the daily workflow: every role reads and writes.
			r.Route("/sales", func(r chi.Router) {
				r.Get("/", dep.SaleHandler.List)
				r.Post("/", dep.SaleHandler.Create)
				r.Post("/bulk", dep.SaleHandler.CreateBulk)
				r.With(adminOnly).Get("/export", dep.SaleHandler.ExportCSV)
				r.With(adminOnly).Post("/import", dep.SaleHandler.ImportCSV)
				r.Get("/{id}", dep.SaleHandler.Get)
				r.Put("/{id}", dep.SaleHandler.Update)
				r.Delete("/{id}", dep.SaleHandler.Delete)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/options", dep.ProductHandler.Options)
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Get("/", dep.ProductHandler.List)
					r.Post("/", dep.ProductHandler.Create)
					r.Put("/{id}", dep.ProductHandler.Update)
					r.Delete("/{id}", dep.ProductHandler.Delete)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", dep.UserHandler.List)
				r.Post("/", dep.UserHandler.Create)
				r.Delete("/{id}", dep.UserHandler.Delete)
			})

			r.With(adminOnly).Get("/summary", dep.SummaryHandler.Dashboard)
		})

		r.Route("/bot", func(r chi.Router) {
			r.With(authLimiter).Post("/token", dep.BotHandler.Token)
			r.With(middleware.BotAuth(dep.JWTManager)).Get("/summary", dep.SummaryHandler.Dashboard)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
