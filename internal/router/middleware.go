package router

import (
	"errors"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"cycletracker/internal/auth"
	apperrors "cycletracker/internal/errors"
	"cycletracker/internal/handler"
	"cycletracker/internal/service"
)

const identityErrKey = "identity_error"

// Authenticate resolves the bearer token of the request to a user and stores
// it under handler.UserContextKey. Credential problems of any kind produce the
// same 401; storage failures surface as 500.
func Authenticate(authService service.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:       handler.UserContextKey,
		TokenLookupFuncs: []middleware.ValuesExtractor{bearerExtractor},
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			user, err := authService.Authenticate(c.Request().Context(), token)
			if err != nil {
				if !errors.Is(err, apperrors.ErrUnauthenticated) {
					c.Set(identityErrKey, err)
				}
				return nil, err
			}
			return user, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if stored, ok := c.Get(identityErrKey).(error); ok {
				return handler.RespondError(c, stored)
			}
			return handler.RespondError(c, apperrors.ErrUnauthenticated)
		},
	})
}

func bearerExtractor(c echo.Context) ([]string, error) {
	token, err := auth.ExtractBearer(c.Request())
	if err != nil {
		return nil, err
	}
	return []string{token}, nil
}

// RequireAdmin rejects callers without the superuser flag.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := handler.CurrentUser(c)
		if user == nil {
			return handler.RespondError(c, apperrors.ErrUnauthenticated)
		}
		if !user.IsSuperuser {
			return handler.RespondError(c, apperrors.ErrForbidden)
		}
		return next(c)
	}
}
