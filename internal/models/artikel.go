package models

import "time"

type Artikel struct {
	ID        uint   `gorm:"primaryKey"`
	LagerID   uint   `gorm:"index;not null"`
	Name      string `gorm:"size:100;not null;index"`
	Quantity  int    `gorm:"not null;default:0;check:chk_artikel_quantity,quantity >= 0"`
	Image     string `gorm:"size:255"` // relative to the article image directory
	CreatedAt time.Time
	UpdatedAt time.Time
}
