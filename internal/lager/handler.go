package lager

import (
	"errors"
	"strconv"
	"strings"

	"lager-backend/internal/access"
	"lager-backend/internal/apperr"
	"lager-backend/internal/auth"
	"lager-backend/internal/httpx"
	"lager-backend/internal/inventory"
	"lager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

type CreateLagerRequest struct {
	Name string `json:"name" form:"name"`
}

type GrantAccessRequest struct {
	UserID string `json:"user_id" form:"user_id"`
}

type LagerResponse struct {
	ID      uint         `json:"id"`
	Name    string       `json:"name"`
	Owner   UserResponse `json:"owner"`
	IsOwner bool         `json:"is_owner"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func toUserResponses(users []models.User) []UserResponse {
	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, UserResponse{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return resp
}

// GET /lager/
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := auth.MustSession(c)
		lagers, err := svc.ListFor(c.UserContext(), s.UserID)
		if err != nil {
			return err
		}

		resp := make([]LagerResponse, 0, len(lagers))
		for _, l := range lagers {
			resp = append(resp, LagerResponse{
				ID:      l.ID,
				Name:    l.Name,
				Owner:   UserResponse{ID: l.Owner.ID, Username: l.Owner.Username},
				IsOwner: l.OwnerID == s.UserID,
			})
		}
		return c.JSON(fiber.Map{"lager": resp})
	}
}

func CreateFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"form": "lager_create", "fields": []string{"name"}})
	}
}

// POST /lager/create/
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := auth.MustSession(c)

		var body CreateLagerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		l, err := svc.Create(c.UserContext(), s.UserID, body.Name)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidInput) {
				return httpx.Rerender(c, fiber.StatusUnprocessableEntity,
					fiber.Map{"form": "lager_create", "name": body.Name}, err.Error())
			}
			return err
		}

		return httpx.SeeOtherWith(c, "/lager/", "warehouse created", fiber.Map{
			"lager": fiber.Map{"id": l.ID, "name": l.Name},
		})
	}
}

// GET /lager/:id/ loads owner, members and stock summary concurrently.
func DetailHandler(svc *Service, catalog *inventory.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		role := access.RoleFrom(c)

		var (
			owner   models.User
			members []models.User
			summary inventory.Summary
		)
		g, ctx := errgroup.WithContext(c.UserContext())
		g.Go(func() error {
			var err error
			owner, err = svc.user(ctx, l.OwnerID)
			return err
		})
		g.Go(func() error {
			var err error
			members, err = svc.Members(ctx, l.ID)
			return err
		})
		g.Go(func() error {
			var err error
			summary, err = catalog.Summary(ctx, l.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"lager": LagerResponse{
				ID:      l.ID,
				Name:    l.Name,
				Owner:   UserResponse{ID: owner.ID, Username: owner.Username},
				IsOwner: role == access.RoleOwner,
			},
			"personen": toUserResponses(members),
			"summary":  summary,
		})
	}
}

// GET /lager/:id/grant_access/
func GrantAccessFormHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		s := auth.MustSession(c)

		users, err := svc.Candidates(c.UserContext(), l.ID, s.UserID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"lager": fiber.Map{"id": l.ID, "name": l.Name},
			"users": toUserResponses(users),
		})
	}
}

// POST /lager/:id/grant_access/
func GrantAccessHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		s := auth.MustSession(c)
		detail := httpx.LagerPath(l.ID)

		var body GrantAccessRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		targetID, err := strconv.ParseUint(strings.TrimSpace(body.UserID), 10, 64)
		if err != nil || targetID == 0 {
			return httpx.SeeOther(c, detail, apperr.ErrUserNotFound.Error())
		}

		res, err := svc.GrantAccess(c.UserContext(), l.ID, s.UserID, uint(targetID))
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotAuthorized), errors.Is(err, apperr.ErrUserNotFound):
			return httpx.SeeOther(c, detail, err.Error())
		default:
			return err
		}

		if res.AlreadyMember {
			return httpx.SeeOther(c, detail, res.User.Username+" is already a member")
		}
		return httpx.SeeOther(c, detail, res.User.Username+" now has access")
	}
}

// POST /lager/:id/remove_user/:userId/
func RemoveUserHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		s := auth.MustSession(c)
		detail := httpx.LagerPath(l.ID)

		targetID, err := httpx.ParamID(c, "userId")
		if err != nil {
			return err
		}

		res, err := svc.RevokeAccess(c.UserContext(), l.ID, s.UserID, targetID)
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrNotAuthorized),
			errors.Is(err, apperr.ErrUserNotFound),
			errors.Is(err, apperr.ErrCannotRevokeOwner):
			return httpx.SeeOther(c, detail, err.Error())
		default:
			return err
		}

		if !res.WasMember {
			return httpx.SeeOther(c, detail, res.User.Username+" was not a member")
		}
		return httpx.SeeOther(c, detail, res.User.Username+" removed")
	}
}
