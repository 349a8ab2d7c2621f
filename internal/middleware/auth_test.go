package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"management-web/internal/config"
	"management-web/internal/models"
	"management-web/internal/utils"
)

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(cfg), func(c *fiber.Ctx) error {
		id, role := CurrentUser(c)
		return c.JSON(fiber.Map{"id": id, "role": role})
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	app := newApp(cfg)
	user := models.User{ID: 9, Username: "lan", Role: models.RoleAdmin}

	access, err := utils.GenerateAccessToken(user, cfg.JWTSecret, time.Hour)
	require.NoError(t, err)
	refresh, err := utils.GenerateRefreshToken(user, cfg.JWTSecret, time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateAccessToken(user, cfg.JWTSecret, -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.GenerateAccessToken(user, "other", time.Hour)
	require.NoError(t, err)

	cases := map[string]int{
		"":                  fiber.StatusUnauthorized,
		"Token " + access:   fiber.StatusUnauthorized,
		"Bearer ":           fiber.StatusUnauthorized,
		"Bearer " + refresh: fiber.StatusUnauthorized,
		"Bearer " + expired: fiber.StatusUnauthorized,
		"Bearer " + foreign: fiber.StatusUnauthorized,
		"Bearer " + access:  fiber.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, header)
	}
}
