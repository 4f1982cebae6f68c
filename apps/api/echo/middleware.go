package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// rootCORSMiddleware opens the dispatch endpoint to any origin, error responses included.
func rootCORSMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if ctx.Request().URL.Path == "/" {
			h := ctx.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
		}
		return next(ctx)
	}
}

type authErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// bearerMiddleware only checks that a bearer token is present; the cron gateway in front verifies it.
func bearerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if !strings.HasPrefix(auth, "Bearer ") || token == "" {
			return ctx.JSON(http.StatusUnauthorized, authErr{
				Code:    http.StatusUnauthorized,
				Message: "Missing authorization header",
			})
		}
		return next(ctx)
	}
}
