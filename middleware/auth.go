// middleware/auth.go
package middleware

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by UserContextMiddleware.
const (
	LocalsUserID = "user_id"
	LocalsClaims = "user_claims"
)

// IdentityClaims is the normalized shape of the heterogeneous OAuth claims
// the gateway forwards. Subject is the provider-scoped account id; Provider
// names the issuing identity provider.
type IdentityClaims struct {
	Provider string `json:"provider"`
	Subject  string `json:"subject"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// CanonicalKey builds the canonical storage key for a provider/subject pair.
// Rows created before this scheme are keyed by the bare subject; the user
// service preserves those legacy keys on lookup.
func CanonicalKey(provider, subject string) string {
	if provider == "" {
		return subject
	}
	return provider + "|" + subject
}

// NormalizeClaims maps the claim shapes the supported providers emit onto
// one IdentityClaims value. Providers disagree on where the account id
// lives (`sub`, `oauth_id`, `user_id`) and on whether the provider is named
// explicitly or only implied by the `iss` URL; both are handled here so the
// rest of the codebase only ever sees one shape.
func NormalizeClaims(raw map[string]interface{}) IdentityClaims {
	var c IdentityClaims

	for _, key := range []string{"sub", "oauth_id", "user_id"} {
		if v, ok := raw[key].(string); ok && v != "" {
			c.Subject = v
			break
		}
	}

	if v, ok := raw["provider"].(string); ok && v != "" {
		c.Provider = strings.ToLower(v)
	} else if iss, ok := raw["iss"].(string); ok {
		c.Provider = providerFromIssuer(iss)
	}

	// A subject that already carries a "provider|id" prefix was canonicalized
	// upstream; split it rather than double-prefixing.
	if idx := strings.Index(c.Subject, "|"); idx > 0 {
		if c.Provider == "" {
			c.Provider = c.Subject[:idx]
		}
		c.Subject = c.Subject[idx+1:]
	}

	for _, key := range []string{"username", "preferred_username", "name"} {
		if v, ok := raw[key].(string); ok && v != "" {
			c.Username = v
			break
		}
	}
	if v, ok := raw["email"].(string); ok {
		c.Email = v
	}

	return c
}

func providerFromIssuer(iss string) string {
	iss = strings.ToLower(iss)
	switch {
	case strings.Contains(iss, "accounts.google.com"):
		return "google"
	case strings.Contains(iss, "appleid.apple.com"):
		return "apple"
	case strings.Contains(iss, "facebook.com"):
		return "facebook"
	case strings.Contains(iss, "replit.com"):
		return "replit"
	default:
		return ""
	}
}

// UserContextMiddleware extracts the identity the gateway forwarded and
// attaches the storage user id + normalized claims to the request context.
// resolve maps claims onto the final storage key (legacy-aware); pass nil to
// fall back to the canonical key, e.g. in route tests.
func UserContextMiddleware(resolve func(IdentityClaims) (string, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := extractClaims(c)

		path := c.Path()
		isSecured := strings.HasPrefix(path, "/s/")
		if isSecured && claims.Subject == "" {
			log.Printf("❌ [USER_CTX] identity required but missing on secured route: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing identity: request must come through gateway with auth context",
			})
		}

		userID := CanonicalKey(claims.Provider, claims.Subject)
		if resolve != nil && claims.Subject != "" {
			resolved, err := resolve(claims)
			if err != nil {
				log.Printf("❌ [USER_CTX] failed to resolve user for subject %s: %v", claims.Subject, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to resolve user identity",
				})
			}
			userID = resolved
		}

		c.Locals(LocalsUserID, userID)
		c.Locals(LocalsClaims, claims)

		return c.Next()
	}
}

// extractClaims reads either the full claims JSON (X-User-Claims) or the
// minimal header form (X-User-ID plus optional X-User-Provider).
func extractClaims(c *fiber.Ctx) IdentityClaims {
	if rawHeader := c.Get("X-User-Claims"); rawHeader != "" {
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(rawHeader), &raw); err == nil {
			return NormalizeClaims(raw)
		}
		log.Printf("⚠️ [USER_CTX] unparseable X-User-Claims header on %s", c.Path())
	}

	return NormalizeClaims(map[string]interface{}{
		"sub":      c.Get("X-User-ID"),
		"provider": c.Get("X-User-Provider"),
		"username": c.Get("X-User-Name"),
		"email":    c.Get("X-User-Email"),
	})
}
