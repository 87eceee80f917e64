package router

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"cycletracker/internal/config"
	"cycletracker/internal/handler"
	"cycletracker/internal/metrics"
	"cycletracker/internal/service"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Period *handler.PeriodHandler
}

// Register wires routes and middleware. m may be nil, which disables /metrics.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log zerolog.Logger,
	m *metrics.Metrics,
	authService service.AuthService,
	h Handlers,
) {
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler(e, log)

	e.Use(middleware.RequestID())
	if m != nil {
		e.Use(m.Middleware())
	}
	e.Use(requestLogger(log))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group(cfg.APIPrefix)

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout)

	// Secured routes
	secured := api.Group("", Authenticate(authService))

	secured.GET("/users/me", h.User.Me)
	secured.PATCH("/users/me", h.User.UpdateMe)
	secured.POST("/users/me/change-password", h.User.ChangePasswordMe)

	admin := secured.Group("/users", RequireAdmin)
	admin.POST("", h.User.Create)
	admin.GET("", h.User.List)
	admin.GET("/:id", h.User.Get)
	admin.PATCH("/:id", h.User.Update)
	admin.POST("/:id/change-password", h.User.ChangePassword)
	admin.DELETE("/:id", h.User.Delete)

	secured.POST("/periods", h.Period.Create)
	secured.GET("/periods", h.Period.List)
	secured.GET("/periods/recent", h.Period.Recent)
	secured.GET("/periods/intensity-counts", h.Period.IntensityCounts)
	secured.GET("/periods/:id", h.Period.Get)
	secured.PATCH("/periods/:id", h.Period.Update)
	secured.DELETE("/periods/:id", h.Period.Delete)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// errorHandler renders domain errors that escape handlers with the same
// body shape as handled ones and logs server faults.
func errorHandler(e *echo.Echo, log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			he = handler.RespondError(c, err).(*echo.HTTPError)
		}
		if he.Code >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("request failed")
		}
		e.DefaultHTTPErrorHandler(he, c)
	}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
