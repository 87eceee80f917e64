package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		cookie  string
		want    string
		wantErr bool
	}{
		{name: "header only", header: "Bearer header-token", want: "header-token"},
		{name: "lowercase scheme", header: "bearer header-token", want: "header-token"},
		{name: "cookie only", cookie: "Bearer cookie-token", want: "cookie-token"},
		{name: "header wins over cookie", header: "Bearer header-token", cookie: "Bearer cookie-token", want: "header-token"},
		{name: "basic header falls back to cookie", header: "Basic dXNlcjpwYXNz", cookie: "Bearer cookie-token", want: "cookie-token"},
		{name: "cookie without prefix", cookie: "cookie-token", wantErr: true},
		{name: "cookie with empty token", cookie: "Bearer ", wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: tt.cookie})
			}

			token, err := ExtractBearer(req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoCredentials)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestCutBearer(t *testing.T) {
	token, ok := CutBearer(FormatBearer("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = CutBearer("bearer abc")
	assert.False(t, ok)
}
