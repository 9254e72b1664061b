package auth

import (
	"net/url"
	"strings"
	"time"

	"lager-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

const (
	CookieName    = "lager_session"
	ctxSessionKey = "session"
)

// Session is the resolved caller identity handed to every handler.
type Session struct {
	UserID   uint
	Username string
}

func SessionFrom(c *fiber.Ctx) (Session, bool) {
	s, ok := c.Locals(ctxSessionKey).(Session)
	return s, ok
}

// MustSession is for handlers mounted behind RequireSession.
func MustSession(c *fiber.Ctx) Session {
	s, _ := SessionFrom(c)
	return s
}

// RequireSession accepts a Bearer token or the session cookie. Anonymous
// callers are sent to the login page with the original path in next.
func RequireSession(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c.Get("Authorization"))
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieName)
		}
		if tokenStr == "" {
			return redirectToLogin(c)
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			return redirectToLogin(c)
		}

		c.Locals(ctxSessionKey, Session{UserID: claims.UserID, Username: claims.Username})
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func redirectToLogin(c *fiber.Ctx) error {
	location := "/login/?next=" + url.QueryEscape(c.OriginalURL())
	c.Location(location)
	return c.Status(fiber.StatusSeeOther).JSON(fiber.Map{"redirect": location})
}

func setSessionCookie(c *fiber.Ctx, cfg *config.Config, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(tokenTTL),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
