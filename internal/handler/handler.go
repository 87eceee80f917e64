package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"cycletracker/internal/errors"
	"cycletracker/internal/model"
	"cycletracker/internal/repository"
)

// UserContextKey is where the authentication middleware stores the caller.
const UserContextKey = "user"

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// PageQuery holds the page and limit query parameters.
type PageQuery struct {
	Page  int `validate:"min=1"`
	Limit int `validate:"min=1,max=100"`
}

// CurrentUser returns the authenticated caller, or nil outside secured routes.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(UserContextKey).(*model.User)
	return user
}

// RespondError converts a domain error into an echo HTTP error carrying an
// ErrorResponse body. 401 responses advertise the Bearer scheme.
func RespondError(c echo.Context, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

func badRequest(message, code string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func invalidBody() error {
	return badRequest("invalid request body", "INVALID_BODY")
}

func validationFailed(err error) error {
	return badRequest(err.Error(), "VALIDATION_ERROR")
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid id", "INVALID_ID")
	}
	return id, nil
}

// bindPage reads page and limit from the query string. Missing values take
// the defaults; out of range values are rejected.
func bindPage(c echo.Context) (repository.Pagination, error) {
	q := PageQuery{Page: repository.DefaultPage, Limit: repository.DefaultLimit}
	if err := echo.QueryParamsBinder(c).
		Int("page", &q.Page).
		Int("limit", &q.Limit).
		BindError(); err != nil {
		return repository.Pagination{}, badRequest("page and limit must be integers", "INVALID_PAGINATION")
	}
	if err := c.Validate(&q); err != nil {
		return repository.Pagination{}, badRequest(err.Error(), "INVALID_PAGINATION")
	}
	return repository.Pagination{Page: q.Page, Limit: q.Limit}, nil
}
