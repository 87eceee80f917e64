package auth

import (
	"errors"
	"net/http"
	"strings"
)

const (
	// AccessCookieName holds "Bearer <access token>" for browser clients.
	AccessCookieName = "access_token"
	// RefreshCookieName holds "Bearer <refresh token>".
	RefreshCookieName = "refresh_token"

	bearerScheme = "Bearer"
)

// ErrNoCredentials is returned when a request carries no bearer token.
var ErrNoCredentials = errors.New("no bearer credentials")

// FormatBearer renders token as a "Bearer <token>" value.
func FormatBearer(token string) string {
	return bearerScheme + " " + token
}

// CutBearer strips the exact "Bearer " prefix used in cookies.
func CutBearer(value string) (string, bool) {
	token, ok := strings.CutPrefix(value, bearerScheme+" ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// BearerFromHeader returns the token of an Authorization header using the
// Bearer scheme. The scheme name is matched case-insensitively.
func BearerFromHeader(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerFromCookie returns the token carried by the access cookie.
func BearerFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(AccessCookieName)
	if err != nil {
		return "", false
	}
	return CutBearer(cookie.Value)
}

// ExtractBearer finds the request's token. A Bearer Authorization header wins;
// the access cookie is consulted only when no such header is present.
func ExtractBearer(r *http.Request) (string, error) {
	if token, ok := BearerFromHeader(r.Header.Get("Authorization")); ok {
		return token, nil
	}
	if token, ok := BearerFromCookie(r); ok {
		return token, nil
	}
	return "", ErrNoCredentials
}
