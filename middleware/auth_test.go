package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, "google|123", CanonicalKey("google", "123"))
	assert.Equal(t, "123", CanonicalKey("", "123"), "bare subject when provider is unknown")
}

func TestNormalizeClaimsGoogleIssuer(t *testing.T) {
	c := NormalizeClaims(map[string]interface{}{
		"sub":   "g-123",
		"iss":   "https://accounts.google.com",
		"email": "a@b.com",
		"name":  "Ava",
	})
	assert.Equal(t, "google", c.Provider)
	assert.Equal(t, "g-123", c.Subject)
	assert.Equal(t, "Ava", c.Username)
	assert.Equal(t, "a@b.com", c.Email)
}

func TestNormalizeClaimsExplicitProvider(t *testing.T) {
	c := NormalizeClaims(map[string]interface{}{
		"oauth_id": "fb-9",
		"provider": "Facebook",
	})
	assert.Equal(t, "facebook", c.Provider, "provider is lowercased")
	assert.Equal(t, "fb-9", c.Subject)
}

func TestNormalizeClaimsUserIDFallback(t *testing.T) {
	c := NormalizeClaims(map[string]interface{}{
		"user_id":            "u-1",
		"preferred_username": "pref",
	})
	assert.Equal(t, "u-1", c.Subject)
	assert.Equal(t, "pref", c.Username)
}

func TestNormalizeClaimsSubjectKeyPrecedence(t *testing.T) {
	c := NormalizeClaims(map[string]interface{}{
		"sub":      "primary",
		"oauth_id": "secondary",
	})
	assert.Equal(t, "primary", c.Subject)
}

func TestNormalizeClaimsSplitsPreCanonicalSubject(t *testing.T) {
	// Some gateways forward the already-prefixed storage key as the subject.
	c := NormalizeClaims(map[string]interface{}{"sub": "google|g-55"})
	assert.Equal(t, "google", c.Provider)
	assert.Equal(t, "g-55", c.Subject)

	// An explicit provider wins over the embedded prefix.
	c = NormalizeClaims(map[string]interface{}{"sub": "google|g-55", "provider": "apple"})
	assert.Equal(t, "apple", c.Provider)
	assert.Equal(t, "g-55", c.Subject)
}

func TestNormalizeClaimsUnknownIssuer(t *testing.T) {
	c := NormalizeClaims(map[string]interface{}{
		"sub": "x-1",
		"iss": "https://auth.example.com",
	})
	assert.Empty(t, c.Provider)
	assert.Equal(t, "x-1", c.Subject)
}

func newClaimsApp(resolve func(IdentityClaims) (string, error)) *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware(resolve))
	app.Get("/s/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalsUserID).(string))
	})
	app.Get("/public", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestUserContextRejectsAnonymousSecuredRoute(t *testing.T) {
	app := newClaimsApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/s/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUserContextAllowsAnonymousPublicRoute(t *testing.T) {
	app := newClaimsApp(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/public", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUserContextBuildsCanonicalKeyWithoutResolver(t *testing.T) {
	app := newClaimsApp(nil)

	req := httptest.NewRequest("GET", "/s/whoami", nil)
	req.Header.Set("X-User-ID", "g-1")
	req.Header.Set("X-User-Provider", "google")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "google|g-1", string(body[:n]))
}

func TestUserContextUsesResolverResult(t *testing.T) {
	var seen IdentityClaims
	app := newClaimsApp(func(c IdentityClaims) (string, error) {
		seen = c
		return "legacy-key", nil
	})

	req := httptest.NewRequest("GET", "/s/whoami", nil)
	req.Header.Set("X-User-Claims", `{"sub":"g-2","iss":"https://accounts.google.com","email":"x@y.z"}`)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "legacy-key", string(body[:n]))
	assert.Equal(t, "google", seen.Provider)
	assert.Equal(t, "g-2", seen.Subject)
	assert.Equal(t, "x@y.z", seen.Email)
}
