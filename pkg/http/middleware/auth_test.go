package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, admin bool) string {
	t.Helper()
	claims := authClaims{
		Email: subject + "@example.com",
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func doRequest(t *testing.T, mw []echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	var gotUser string
	handler := func(c echo.Context) error {
		gotUser = UserID(c)
		return c.NoContent(http.StatusOK)
	}
	e.GET("/t", handler, mw...)

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, gotUser
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	token := signToken(t, testSecret, "user-42", false)
	rec, user := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if user != "user-42" {
		t.Fatalf("user = %q, want user-42", user)
	}
}

func TestJWTAuthRejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signTokenWith(t, "other-secret")},
		{"expired", "Bearer " + signExpired(t)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func signTokenWith(t *testing.T, secret string) string {
	return signToken(t, secret, "u1", false)
}

func signExpired(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestRequireAdmin(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireAdmin()}

	rec, _ := doRequest(t, mw, "Bearer "+signToken(t, testSecret, "u1", false))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}

	rec, _ = doRequest(t, mw, "Bearer "+signToken(t, testSecret, "admin", true))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}
}
