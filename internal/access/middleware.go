package access

import (
	"errors"

	"lager-backend/internal/apperr"
	"lager-backend/internal/auth"
	"lager-backend/internal/httpx"
	"lager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	ctxLagerKey = "lager"
	ctxRoleKey  = "lager_role"
)

func LagerFrom(c *fiber.Ctx) models.Lager {
	l, _ := c.Locals(ctxLagerKey).(models.Lager)
	return l
}

func RoleFrom(c *fiber.Ctx) Role {
	r, _ := c.Locals(ctxRoleKey).(Role)
	return r
}

// RequireMember guards /lager/:id/... routes. Non-members are sent back to
// their warehouse list without learning anything about the warehouse.
func RequireMember(g *Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lagerID, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		return resolveMember(c, g, lagerID)
	}
}

// RequireArticleMember guards /artikel/:id/... routes through the article's warehouse.
func RequireArticleMember(g *Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		artikelID, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		lagerID, err := g.LagerOfArtikel(c.UserContext(), artikelID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return httpx.SeeOther(c, "/lager/", "")
			}
			return err
		}
		return resolveMember(c, g, lagerID)
	}
}

func resolveMember(c *fiber.Ctx, g *Guard, lagerID uint) error {
	s := auth.MustSession(c)
	l, role, err := g.Resolve(c.UserContext(), lagerID, s.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return httpx.SeeOther(c, "/lager/", "")
		}
		return err
	}
	if !role.AtLeast(RoleMember) {
		return httpx.SeeOther(c, "/lager/", "")
	}

	c.Locals(ctxLagerKey, l)
	c.Locals(ctxRoleKey, role)
	return c.Next()
}

// RequireOwner guards membership management. Anyone but the owner is sent
// to the warehouse detail page with a notice.
func RequireOwner(g *Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lagerID, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		s := auth.MustSession(c)
		l, role, err := g.Resolve(c.UserContext(), lagerID, s.UserID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return httpx.SeeOther(c, "/lager/", "")
			}
			return err
		}
		if role != RoleOwner {
			return httpx.SeeOther(c, httpx.LagerPath(l.ID), apperr.ErrNotAuthorized.Error())
		}

		c.Locals(ctxLagerKey, l)
		c.Locals(ctxRoleKey, role)
		return c.Next()
	}
}
