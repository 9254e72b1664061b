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
	"github.com/google/uuid"
)

type TransactionRequest struct {
	Article         string `json:"article" form:"article"`
	TransactionType string `json:"transaction_type" form:"transaction_type"`
	Quantity        string `json:"quantity" form:"quantity"`
	RequestID       string `json:"request_id" form:"request_id"`
}

type LedgerEntryResponse struct {
	ID        uint                   `json:"id"`
	Reference string                 `json:"reference"`
	Type      models.TransactionType `json:"type"`
	Quantity  int                    `json:"quantity"`
	Signed    int                    `json:"signed"`
	UserID    *uint                  `json:"user_id"`
	CreatedAt string                 `json:"created_at"`
}

func transactionView(c *fiber.Ctx, catalog *Catalog, l models.Lager) (fiber.Map, error) {
	items, err := catalog.ListAll(c.UserContext(), l.ID)
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"lager":      fiber.Map{"id": l.ID, "name": l.Name},
		"form":       "transaction",
		"articles":   toArtikelResponses(items),
		"types":      []models.TransactionType{models.TransactionIn, models.TransactionOut},
		"request_id": uuid.NewString(),
	}, nil
}

// GET /lager/:id/transaction/
func TransactionFormHandler(catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := transactionView(c, catalog, access.LagerFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(view)
	}
}

// POST /lager/:id/transaction/ books a stock movement. Rejected movements
// re-render the form with the error so the user can retry from there.
func TransactionHandler(catalog *Catalog, ledger *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		s := auth.MustSession(c)

		var body TransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		rerender := func(status int, msg string) error {
			view, err := transactionView(c, catalog, l)
			if err != nil {
				return err
			}
			view["article"] = body.Article
			view["transaction_type"] = body.TransactionType
			view["quantity"] = body.Quantity
			return httpx.Rerender(c, status, view, msg)
		}

		artikelID, err := strconv.ParseUint(strings.TrimSpace(body.Article), 10, 64)
		if err != nil || artikelID == 0 {
			return rerender(fiber.StatusUnprocessableEntity, "choose an article")
		}
		qty, err := strconv.Atoi(strings.TrimSpace(body.Quantity))
		if err != nil {
			return rerender(fiber.StatusUnprocessableEntity, apperr.ErrInvalidQuantity.Error())
		}

		art, err := ledger.Apply(c.UserContext(), ApplyInput{
			LagerID:   l.ID,
			ArtikelID: uint(artikelID),
			UserID:    s.UserID,
			Type:      models.TransactionType(strings.TrimSpace(body.TransactionType)),
			Quantity:  qty,
			RequestID: strings.TrimSpace(body.RequestID),
		})
		switch {
		case err == nil:
		case errors.Is(err, apperr.ErrDuplicateRequest):
			return httpx.SeeOther(c, httpx.LagerPath(l.ID), err.Error())
		case errors.Is(err, apperr.ErrNotFound):
			return rerender(fiber.StatusUnprocessableEntity, "article not found in this warehouse")
		case errors.Is(err, apperr.ErrInsufficientStock),
			errors.Is(err, apperr.ErrInvalidQuantity),
			errors.Is(err, apperr.ErrInvalidTransactionType):
			return rerender(fiber.StatusUnprocessableEntity, err.Error())
		default:
			return err
		}

		return httpx.SeeOtherWith(c, httpx.LagerPath(l.ID), "transaction booked", fiber.Map{
			"artikel": toArtikelResponse(art),
		})
	}
}

// GET /lager/:id/artikel/:artikelId/ledger/
func ArtikelLedgerHandler(catalog *Catalog, ledger *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		artikelID, err := httpx.ParamID(c, "artikelId")
		if err != nil {
			return err
		}

		art, err := catalog.Get(c.UserContext(), artikelID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if err != nil || art.LagerID != l.ID {
			return httpx.SeeOther(c, httpx.LagerPath(l.ID), "article not found")
		}

		entries, err := ledger.Entries(c.UserContext(), art.ID)
		if err != nil {
			return err
		}
		check, err := ledger.Verify(c.UserContext(), art.ID)
		if err != nil {
			return err
		}

		resp := make([]LedgerEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, LedgerEntryResponse{
				ID:        e.ID,
				Reference: e.Reference,
				Type:      e.Type,
				Quantity:  e.Quantity,
				Signed:    e.Signed(),
				UserID:    e.UserID,
				CreatedAt: e.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(fiber.Map{
			"artikel": toArtikelResponse(art),
			"entries": resp,
			"balance": check,
		})
	}
}
