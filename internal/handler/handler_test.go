package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycletracker/internal/errors"
	"cycletracker/internal/model"
	"cycletracker/internal/repository"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBindPage(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    repository.Pagination
		wantErr bool
	}{
		{name: "defaults", query: "", want: repository.Pagination{Page: 1, Limit: 10}},
		{name: "explicit", query: "?page=3&limit=25", want: repository.Pagination{Page: 3, Limit: 25}},
		{name: "max limit", query: "?limit=100", want: repository.Pagination{Page: 1, Limit: 100}},
		{name: "zero page", query: "?page=0", wantErr: true},
		{name: "zero limit", query: "?limit=0", wantErr: true},
		{name: "limit too large", query: "?limit=101", wantErr: true},
		{name: "not a number", query: "?page=two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext("/periods" + tt.query)
			got, err := bindPage(c)
			if tt.wantErr {
				var he *echo.HTTPError
				require.ErrorAs(t, err, &he)
				assert.Equal(t, http.StatusBadRequest, he.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantHeader string
	}{
		{name: "unauthenticated", err: errors.ErrUnauthenticated, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHENTICATED", wantHeader: "Bearer"},
		{name: "invalid credentials", err: errors.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS", wantHeader: "Bearer"},
		{name: "forbidden", err: errors.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "wrapped not found", err: fmt.Errorf("period: %w", errors.ErrNotFound), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "unknown", err: fmt.Errorf("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext("/")
			err := RespondError(c, tt.err)

			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tt.wantStatus, he.Code)
			body, ok := he.Message.(errors.ErrorResponse)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantHeader, rec.Header().Get(echo.HeaderWWWAuthenticate))
		})
	}
}

func TestCurrentUserAndParseID(t *testing.T) {
	c, _ := newContext("/")
	assert.Nil(t, CurrentUser(c))

	user := &model.User{ID: uuid.New()}
	c.Set(UserContextKey, user)
	assert.Same(t, user, CurrentUser(c))

	c.SetParamNames("id")
	c.SetParamValues(user.ID.String())
	id, err := parseID(c)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	c.SetParamValues("42")
	_, err = parseID(c)
	assert.Error(t, err)
}
