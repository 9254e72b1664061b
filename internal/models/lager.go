package models

import "time"

// Lager is a warehouse. OwnerID is set once at creation and never updated.
type Lager struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	OwnerID   uint   `gorm:"index;not null"`
	Owner     User
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LagerMember is one entry of a warehouse's member set. The owner gets a row
// when the warehouse is created.
type LagerMember struct {
	LagerID   uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	User      User
	CreatedAt time.Time
}

// LagerAccess records an explicit grant to a non-owner user.
type LagerAccess struct {
	ID          uint `gorm:"primaryKey"`
	LagerID     uint `gorm:"not null;uniqueIndex:idx_lager_access_pair"`
	UserID      uint `gorm:"not null;uniqueIndex:idx_lager_access_pair"`
	GrantedByID uint `gorm:"not null"`
	CreatedAt   time.Time
}
