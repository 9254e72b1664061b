package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lager-backend/internal/apperr"
	"lager-backend/internal/events"
	"lager-backend/internal/idempotency"
	"lager-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplyInput struct {
	LagerID   uint
	ArtikelID uint
	UserID    uint
	Type      models.TransactionType
	Quantity  int
	RequestID string // form token; empty skips the duplicate check
}

type BalanceCheck struct {
	ArtikelID  uint  `json:"artikel_id"`
	Stored     int   `json:"stored"`
	Recomputed int   `json:"recomputed"`
	Entries    int64 `json:"entries"`
	Consistent bool  `json:"consistent"`
}

// Ledger is the only writer of Artikel.Quantity. Every change is paired with
// one StockTransaction row in the same database transaction.
type Ledger struct {
	db        *gorm.DB
	guard     idempotency.Guard
	publisher events.Publisher
}

func NewLedger(db *gorm.DB, guard idempotency.Guard, publisher events.Publisher) *Ledger {
	if guard == nil {
		guard = idempotency.NewMemoryGuard(idempotency.DefaultTTL)
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Ledger{db: db, guard: guard, publisher: publisher}
}

func (l *Ledger) Apply(ctx context.Context, in ApplyInput) (models.Artikel, error) {
	if in.Quantity <= 0 {
		return models.Artikel{}, apperr.ErrInvalidQuantity
	}
	if !in.Type.Valid() {
		return models.Artikel{}, apperr.ErrInvalidTransactionType
	}

	if in.RequestID != "" {
		ok, err := l.guard.Claim(ctx, in.RequestID)
		if err != nil {
			return models.Artikel{}, err
		}
		if !ok {
			return models.Artikel{}, apperr.ErrDuplicateRequest
		}
	}

	var (
		art   models.Artikel
		entry models.StockTransaction
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		art, entry, err = book(tx, in)
		return err
	})
	if err != nil {
		if in.RequestID != "" {
			if rerr := l.guard.Release(context.WithoutCancel(ctx), in.RequestID); rerr != nil {
				log.Printf("ledger: release %s: %v", in.RequestID, rerr)
			}
		}
		return models.Artikel{}, err
	}

	l.publish(ctx, art, entry)
	return art, nil
}

// book moves the balance and appends the entry on tx. The out branch only
// matches rows that still hold enough stock, so two concurrent withdrawals
// cannot both pass the check.
func book(tx *gorm.DB, in ApplyInput) (models.Artikel, models.StockTransaction, error) {
	q := tx.Model(&models.Artikel{}).Where("id = ? AND lager_id = ?", in.ArtikelID, in.LagerID)

	var res *gorm.DB
	switch in.Type {
	case models.TransactionIn:
		res = q.Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", in.Quantity),
			"updated_at": time.Now(),
		})
	case models.TransactionOut:
		res = q.Where("quantity >= ?", in.Quantity).Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", in.Quantity),
			"updated_at": time.Now(),
		})
	default:
		return models.Artikel{}, models.StockTransaction{}, apperr.ErrInvalidTransactionType
	}
	if res.Error != nil {
		return models.Artikel{}, models.StockTransaction{}, fmt.Errorf("update balance: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var n int64
		err := tx.Model(&models.Artikel{}).
			Where("id = ? AND lager_id = ?", in.ArtikelID, in.LagerID).
			Count(&n).Error
		if err != nil {
			return models.Artikel{}, models.StockTransaction{}, fmt.Errorf("lookup artikel: %w", err)
		}
		if n == 0 {
			return models.Artikel{}, models.StockTransaction{}, apperr.ErrNotFound
		}
		return models.Artikel{}, models.StockTransaction{}, apperr.ErrInsufficientStock
	}

	entry := models.StockTransaction{
		Reference: uuid.NewString(),
		ArtikelID: in.ArtikelID,
		LagerID:   in.LagerID,
		Type:      in.Type,
		Quantity:  in.Quantity,
	}
	if in.UserID != 0 {
		uid := in.UserID
		entry.UserID = &uid
	}
	if err := tx.Omit("Artikel").Create(&entry).Error; err != nil {
		return models.Artikel{}, models.StockTransaction{}, fmt.Errorf("append ledger entry: %w", err)
	}

	var art models.Artikel
	if err := tx.First(&art, in.ArtikelID).Error; err != nil {
		return models.Artikel{}, models.StockTransaction{}, fmt.Errorf("reload artikel: %w", err)
	}
	return art, entry, nil
}

func (l *Ledger) publish(ctx context.Context, art models.Artikel, entry models.StockTransaction) {
	e := events.StockMoved{
		Reference:  entry.Reference,
		LagerID:    entry.LagerID,
		ArtikelID:  entry.ArtikelID,
		Type:       string(entry.Type),
		Quantity:   entry.Quantity,
		Balance:    art.Quantity,
		OccurredAt: entry.CreatedAt,
	}
	if entry.UserID != nil {
		e.UserID = *entry.UserID
	}
	if err := l.publisher.PublishStockMoved(ctx, e); err != nil {
		log.Printf("ledger: publish %s: %v", entry.Reference, err)
	}
}

// Entries returns the ledger of one article, oldest first.
func (l *Ledger) Entries(ctx context.Context, artikelID uint) ([]models.StockTransaction, error) {
	entries := make([]models.StockTransaction, 0)
	err := l.db.WithContext(ctx).
		Where("artikel_id = ?", artikelID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

// Recompute sums the signed ledger entries of one article.
func (l *Ledger) Recompute(ctx context.Context, artikelID uint) (int, error) {
	var row struct {
		Balance int64
	}
	err := l.db.WithContext(ctx).Model(&models.StockTransaction{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN quantity ELSE -quantity END), 0) AS balance", models.TransactionIn).
		Where("artikel_id = ?", artikelID).
		Scan(&row).Error
	if err != nil {
		return 0, fmt.Errorf("recompute balance: %w", err)
	}
	return int(row.Balance), nil
}

// Verify compares the stored quantity with the ledger sum.
func (l *Ledger) Verify(ctx context.Context, artikelID uint) (BalanceCheck, error) {
	var art models.Artikel
	if err := l.db.WithContext(ctx).First(&art, artikelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BalanceCheck{}, apperr.ErrNotFound
		}
		return BalanceCheck{}, fmt.Errorf("load artikel: %w", err)
	}

	sum, err := l.Recompute(ctx, artikelID)
	if err != nil {
		return BalanceCheck{}, err
	}

	var n int64
	if err := l.db.WithContext(ctx).Model(&models.StockTransaction{}).Where("artikel_id = ?", artikelID).Count(&n).Error; err != nil {
		return BalanceCheck{}, fmt.Errorf("count ledger entries: %w", err)
	}

	return BalanceCheck{
		ArtikelID:  artikelID,
		Stored:     art.Quantity,
		Recomputed: sum,
		Entries:    n,
		Consistent: art.Quantity == sum,
	}, nil
}
