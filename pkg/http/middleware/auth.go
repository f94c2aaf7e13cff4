package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// ContextUserID is the echo context key for the verified principal.
	ContextUserID = "user_id"
	// ContextEmail is the echo context key for the principal's email.
	ContextEmail = "email"
	// ContextAdmin is the echo context key for the admin flag.
	ContextAdmin = "admin"
)

type authClaims struct {
	Email string `json:"email"`
	Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// JWTAuth verifies the bearer token and stores the principal on the context.
// Requests without a valid token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &authClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return unauthorized(c, "token is invalid")
			}
			if claims.Subject == "" {
				return unauthorized(c, "token has no subject")
			}

			c.Set(ContextUserID, claims.Subject)
			c.Set(ContextEmail, claims.Email)
			c.Set(ContextAdmin, claims.Admin)
			return next(c)
		}
	}
}

// RequireAdmin rejects non-admin principals with 403. It must run after
// JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if admin, ok := c.Get(ContextAdmin).(bool); !ok || !admin {
				return c.JSON(http.StatusForbidden, map[string]interface{}{
					"status":  http.StatusForbidden,
					"message": http.StatusText(http.StatusForbidden),
					"data":    "admin role required",
				})
			}
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"status":  http.StatusUnauthorized,
		"message": http.StatusText(http.StatusUnauthorized),
		"data":    msg,
	})
}

// UserID returns the verified principal set by JWTAuth.
func UserID(c echo.Context) string {
	id, _ := c.Get(ContextUserID).(string)
	return id
}
