package models

import "time"

type TransactionType string

const (
	TransactionIn  TransactionType = "in"
	TransactionOut TransactionType = "out"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIn || t == TransactionOut
}

// StockTransaction is one immutable ledger entry. LagerID is denormalized from
// the article for per-warehouse queries.
type StockTransaction struct {
	ID        uint            `gorm:"primaryKey"`
	Reference string          `gorm:"size:36;uniqueIndex;not null"`
	ArtikelID uint            `gorm:"index;not null"`
	Artikel   Artikel
	LagerID   uint            `gorm:"index;not null"`
	UserID    *uint
	Type      TransactionType `gorm:"size:3;not null;check:chk_stock_transaction_type,type IN ('in','out')"`
	Quantity  int             `gorm:"not null;check:chk_stock_transaction_quantity,quantity > 0"`
	CreatedAt time.Time       `gorm:"index"`
}

// Signed returns the balance delta of the entry.
func (t StockTransaction) Signed() int {
	if t.Type == TransactionOut {
		return -t.Quantity
	}
	return t.Quantity
}
