package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/darkarnold/task-manager-api/internal/api/handler"
	"github.com/darkarnold/task-manager-api/internal/api/metrics"
	"github.com/darkarnold/task-manager-api/internal/api/middleware"
	"github.com/darkarnold/task-manager-api/internal/core/domain"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

// Dependencies are the services and probes the HTTP layer delegates to.
type Dependencies struct {
	Tokens       ports.TokenVerifier
	Auth         ports.AuthService
	Tasks        ports.TaskService
	Resets       ports.PasswordResetService
	HealthChecks map[string]handler.HealthCheck
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(metrics.Middleware())

	authHandler := handler.NewAuthHandler(deps.Auth)
	passwordHandler := handler.NewPasswordHandler(deps.Resets)
	taskHandler := handler.NewTaskHandler(deps.Tasks)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks)

	requireAuth := middleware.Auth(deps.Tokens)
	creators := middleware.RBAC(domain.RoleAdmin, domain.RoleUser)

	v1 := e.Group("/api/v1")

	users := v1.Group("/users")
	users.POST("/register", authHandler.Register)
	users.POST("/login", authHandler.Login)
	users.GET("/me", authHandler.Me, requireAuth)
	users.PATCH("/me/password", authHandler.ChangePassword, requireAuth)

	auth := v1.Group("/auth")
	auth.POST("/forgot-password", passwordHandler.ForgotPassword)
	auth.PATCH("/reset-password/:token", passwordHandler.ResetPassword)

	tasks := v1.Group("/tasks", requireAuth)
	tasks.GET("", taskHandler.List)
	tasks.POST("", taskHandler.Create, creators)
	tasks.PATCH("/:id", taskHandler.Update)
	tasks.DELETE("/:id", taskHandler.Delete, creators)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			log.Info().
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
