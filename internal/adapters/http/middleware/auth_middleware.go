package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Mode string

const (
	ModeNone    Mode = "none"
	ModeAPIKey  Mode = "api_key"
	ModeCognito Mode = "cognito"
)

const (
	HeaderAPIKey = "X-API-Key"
	HeaderUserID = "X-User-ID"
	userIDKey    = "user_id"
)

func ParseAuthMode(raw string) (Mode, error) {
	switch mode := Mode(raw); mode {
	case "":
		return ModeNone, nil
	case ModeNone, ModeAPIKey, ModeCognito:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid auth mode %q", raw)
	}
}

type AuthConfig struct {
	Mode   Mode
	APIKey string
	// Cognito validates bearer tokens and sets the acting user.
	Cognito echo.MiddlewareFunc
}

// AuthMiddleware authenticates requests and stores the acting user id under
// "user_id" in the echo context. In none and api_key modes the acting user is
// taken from the X-User-ID header.
func AuthMiddleware(cfg AuthConfig) (echo.MiddlewareFunc, error) {
	switch cfg.Mode {
	case ModeNone:
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				setUserFromHeader(c)
				return next(c)
			}
		}, nil
	case ModeAPIKey:
		if cfg.APIKey == "" {
			return nil, errors.New("API_KEY is required when AUTH_MODE=api_key")
		}
		expected := []byte(cfg.APIKey)
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				got := []byte(c.Request().Header.Get(HeaderAPIKey))
				if subtle.ConstantTimeCompare(got, expected) != 1 {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
				}
				setUserFromHeader(c)
				return next(c)
			}
		}, nil
	case ModeCognito:
		if cfg.Cognito == nil {
			return nil, errors.New("cognito middleware is required when AUTH_MODE=cognito")
		}
		return cfg.Cognito, nil
	default:
		return nil, fmt.Errorf("invalid auth mode %q", cfg.Mode)
	}
}

func setUserFromHeader(c echo.Context) {
	if uid := c.Request().Header.Get(HeaderUserID); uid != "" {
		c.Set(userIDKey, uid)
	}
}
