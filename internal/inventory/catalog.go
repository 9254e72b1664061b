package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lager-backend/internal/apperr"
	"lager-backend/internal/audit"
	"lager-backend/internal/models"

	"gorm.io/gorm"
)

type CreateArticleInput struct {
	LagerID  uint
	UserID   uint
	Name     string
	Quantity int // opening stock, booked through the ledger
	Image    string
}

// UpdateArticleInput: nil fields keep their value. Quantity only moves
// through the ledger.
type UpdateArticleInput struct {
	Name  *string
	Image *string
}

type Summary struct {
	Articles   int64 `json:"articles"`
	InStock    int64 `json:"in_stock"`
	TotalUnits int64 `json:"total_units"`
}

type Catalog struct {
	db     *gorm.DB
	ledger *Ledger
}

func NewCatalog(db *gorm.DB, ledger *Ledger) *Catalog {
	return &Catalog{db: db, ledger: ledger}
}

func (c *Catalog) Create(ctx context.Context, in CreateArticleInput) (models.Artikel, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return models.Artikel{}, err
	}
	if in.Quantity < 0 {
		return models.Artikel{}, apperr.ErrInvalidQuantity
	}

	var (
		art   models.Artikel
		entry models.StockTransaction
	)
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueName(tx, in.LagerID, name, 0); err != nil {
			return err
		}

		art = models.Artikel{LagerID: in.LagerID, Name: name, Image: in.Image}
		if err := tx.Create(&art).Error; err != nil {
			return fmt.Errorf("create artikel: %w", err)
		}

		if in.Quantity > 0 {
			var err error
			art, entry, err = book(tx, ApplyInput{
				LagerID:   in.LagerID,
				ArtikelID: art.ID,
				UserID:    in.UserID,
				Type:      models.TransactionIn,
				Quantity:  in.Quantity,
			})
			if err != nil {
				return err
			}
		}

		return audit.WriteLog(tx, audit.LogOptions{
			LagerID:     in.LagerID,
			UserID:      in.UserID,
			EntityType:  "artikel",
			EntityID:    art.ID,
			Action:      models.AuditActionCreate,
			Description: "article created: " + art.Name,
			After:       art,
		})
	})
	if err != nil {
		return models.Artikel{}, err
	}

	if entry.ID != 0 {
		c.ledger.publish(ctx, art, entry)
	}
	return art, nil
}

func (c *Catalog) Update(ctx context.Context, artikelID uint, in UpdateArticleInput, userID uint) (models.Artikel, error) {
	var art models.Artikel
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&art, artikelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return fmt.Errorf("load artikel: %w", err)
		}
		before := art

		updates := map[string]any{}
		if in.Name != nil {
			name, err := cleanName(*in.Name)
			if err != nil {
				return err
			}
			if name != art.Name {
				if err := ensureUniqueName(tx, art.LagerID, name, art.ID); err != nil {
					return err
				}
				updates["name"] = name
				art.Name = name
			}
		}
		if in.Image != nil && *in.Image != art.Image {
			updates["image"] = *in.Image
			art.Image = *in.Image
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&art).Updates(updates).Error; err != nil {
			return fmt.Errorf("update artikel: %w", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			LagerID:     art.LagerID,
			UserID:      userID,
			EntityType:  "artikel",
			EntityID:    art.ID,
			Action:      models.AuditActionUpdate,
			Description: "article updated: " + art.Name,
			Before:      before,
			After:       art,
		})
	})
	if err != nil {
		return models.Artikel{}, err
	}
	return art, nil
}

func (c *Catalog) Get(ctx context.Context, artikelID uint) (models.Artikel, error) {
	var art models.Artikel
	if err := c.db.WithContext(ctx).First(&art, artikelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Artikel{}, apperr.ErrNotFound
		}
		return models.Artikel{}, fmt.Errorf("load artikel: %w", err)
	}
	return art, nil
}

// ListAll is the management view: every article regardless of quantity.
func (c *Catalog) ListAll(ctx context.Context, lagerID uint) ([]models.Artikel, error) {
	items := make([]models.Artikel, 0)
	if err := c.db.WithContext(ctx).Where("lager_id = ?", lagerID).Order("name, id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list artikel: %w", err)
	}
	return items, nil
}

// ListInStock returns articles with quantity > 0. A non-empty term filters to
// names containing it, ignoring case.
func (c *Catalog) ListInStock(ctx context.Context, lagerID uint, term string) ([]models.Artikel, error) {
	q := c.db.WithContext(ctx).Where("lager_id = ? AND quantity > 0", lagerID)
	if term = strings.TrimSpace(term); term != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(term))+"%")
	}

	items := make([]models.Artikel, 0)
	if err := q.Order("name, id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list artikel in stock: %w", err)
	}
	return items, nil
}

func (c *Catalog) Summary(ctx context.Context, lagerID uint) (Summary, error) {
	var s Summary
	err := c.db.WithContext(ctx).Model(&models.Artikel{}).
		Select(`COUNT(*) AS articles,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN 1 ELSE 0 END), 0) AS in_stock,
			COALESCE(SUM(quantity), 0) AS total_units`).
		Where("lager_id = ?", lagerID).
		Scan(&s).Error
	if err != nil {
		return Summary{}, fmt.Errorf("summarize artikel: %w", err)
	}
	return s, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return "", fmt.Errorf("%w: name must be 1-100 characters", apperr.ErrInvalidInput)
	}
	return name, nil
}

// ensureUniqueName enforces the exact, case-sensitive name rule within a
// warehouse. exceptID skips the article being renamed.
func ensureUniqueName(tx *gorm.DB, lagerID uint, name string, exceptID uint) error {
	q := tx.Model(&models.Artikel{}).Where("lager_id = ? AND name = ?", lagerID, name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check artikel name: %w", err)
	}
	if n > 0 {
		return apperr.ErrDuplicateArticle
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
