package inventory

import (
	"errors"
	"strconv"
	"strings"

	"lager-backend/internal/access"
	"lager-backend/internal/apperr"
	"lager-backend/internal/auth"
	"lager-backend/internal/httpx"
	"lager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ArtikelResponse struct {
	ID        uint   `json:"id"`
	LagerID   uint   `json:"lager_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func toArtikelResponse(a models.Artikel) ArtikelResponse {
	return ArtikelResponse{
		ID:        a.ID,
		LagerID:   a.LagerID,
		Name:      a.Name,
		Quantity:  a.Quantity,
		Image:     ImageURL(a.Image),
		UpdatedAt: a.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func toArtikelResponses(items []models.Artikel) []ArtikelResponse {
	resp := make([]ArtikelResponse, 0, len(items))
	for _, a := range items {
		resp = append(resp, toArtikelResponse(a))
	}
	return resp
}

// Quantity is a string so a non-numeric value re-renders the form instead of
// failing the body parser.
type CreateArtikelRequest struct {
	Name     string `json:"name" form:"name"`
	Quantity string `json:"quantity" form:"quantity"`
}

type UpdateArtikelRequest struct {
	Name *string `json:"name" form:"name"`
}

// GET /lager/:id/artikel_management/
func ArtikelManagementHandler(catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		items, err := catalog.ListAll(c.UserContext(), l.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"lager":        fiber.Map{"id": l.ID, "name": l.Name},
			"artikel_list": toArtikelResponses(items),
		})
	}
}

func ArtikelCreateFormHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		return c.JSON(fiber.Map{
			"lager":  fiber.Map{"id": l.ID, "name": l.Name},
			"form":   "artikel_create",
			"fields": []string{"name", "quantity", "image"},
		})
	}
}

// POST /lager/:id/artikel_management/artikel_create/
func ArtikelCreateHandler(catalog *Catalog, images ImageStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		s := auth.MustSession(c)

		var body CreateArtikelRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		view := fiber.Map{
			"lager":    fiber.Map{"id": l.ID, "name": l.Name},
			"form":     "artikel_create",
			"name":     body.Name,
			"quantity": body.Quantity,
		}

		qty := 0
		if q := strings.TrimSpace(body.Quantity); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				return httpx.Rerender(c, fiber.StatusUnprocessableEntity, view, apperr.ErrInvalidQuantity.Error())
			}
			qty = n
		}

		var image string
		if fh := formImage(c); fh != nil {
			name, err := images.Save(c, fh)
			if err != nil {
				if errors.Is(err, apperr.ErrInvalidInput) {
					return httpx.Rerender(c, fiber.StatusUnprocessableEntity, view, err.Error())
				}
				return err
			}
			image = name
		}

		art, err := catalog.Create(c.UserContext(), CreateArticleInput{
			LagerID:  l.ID,
			UserID:   s.UserID,
			Name:     body.Name,
			Quantity: qty,
			Image:    image,
		})
		if err != nil {
			images.Remove(image)
			if isFormError(err) {
				return httpx.Rerender(c, fiber.StatusUnprocessableEntity, view, err.Error())
			}
			return err
		}

		return httpx.SeeOtherWith(c, httpx.LagerPath(l.ID), "article created", fiber.Map{
			"artikel": toArtikelResponse(art),
		})
	}
}

// GET /artikel/:id/edit/
func ArtikelEditFormHandler(catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		art, err := catalog.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return httpx.SeeOther(c, "/lager/", "")
			}
			return err
		}
		return c.JSON(fiber.Map{
			"form":    "artikel_edit",
			"fields":  []string{"name", "image"},
			"artikel": toArtikelResponse(art),
		})
	}
}

// POST /artikel/:id/edit/ updates name and image. Fields left out keep their value.
func ArtikelEditHandler(catalog *Catalog, images ImageStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		s := auth.MustSession(c)

		current, err := catalog.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return httpx.SeeOther(c, "/lager/", "")
			}
			return err
		}

		var body UpdateArtikelRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		view := fiber.Map{"form": "artikel_edit", "artikel_id": id}
		if body.Name != nil {
			view["name"] = *body.Name
		}

		in := UpdateArticleInput{Name: body.Name}
		if fh := formImage(c); fh != nil {
			name, err := images.Save(c, fh)
			if err != nil {
				if errors.Is(err, apperr.ErrInvalidInput) {
					return httpx.Rerender(c, fiber.StatusUnprocessableEntity, view, err.Error())
				}
				return err
			}
			in.Image = &name
		}

		art, err := catalog.Update(c.UserContext(), id, in, s.UserID)
		if err != nil {
			if in.Image != nil {
				images.Remove(*in.Image)
			}
			if errors.Is(err, apperr.ErrNotFound) {
				return httpx.SeeOther(c, "/lager/", "")
			}
			if isFormError(err) {
				return httpx.Rerender(c, fiber.StatusUnprocessableEntity, view, err.Error())
			}
			return err
		}
		if in.Image != nil && current.Image != "" && current.Image != art.Image {
			images.Remove(current.Image)
		}

		return httpx.SeeOtherWith(c, httpx.LagerPath(art.LagerID), "article updated", fiber.Map{
			"artikel": toArtikelResponse(art),
		})
	}
}

func isFormError(err error) bool {
	return errors.Is(err, apperr.ErrInvalidInput) ||
		errors.Is(err, apperr.ErrInvalidQuantity) ||
		errors.Is(err, apperr.ErrDuplicateArticle)
}
