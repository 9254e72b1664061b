// Package access answers the caller's relationship to a warehouse and
// enforces it on warehouse-scoped routes.
package access

import (
	"context"
	"errors"
	"fmt"

	"lager-backend/internal/apperr"
	"lager-backend/internal/models"

	"gorm.io/gorm"
)

type Role int

const (
	RoleNone Role = iota
	RoleMember
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleMember:
		return "member"
	default:
		return "none"
	}
}

// AtLeast reports whether r grants everything want grants. Owner implies member.
func (r Role) AtLeast(want Role) bool { return r >= want }

type Guard struct {
	db *gorm.DB
}

func NewGuard(db *gorm.DB) *Guard {
	return &Guard{db: db}
}

// Resolve loads the warehouse and the caller's role in it. The owner is
// decided by Lager.OwnerID; membership by a keyed lookup on lager_members.
func (g *Guard) Resolve(ctx context.Context, lagerID, userID uint) (models.Lager, Role, error) {
	var l models.Lager
	if err := g.db.WithContext(ctx).First(&l, lagerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Lager{}, RoleNone, apperr.ErrNotFound
		}
		return models.Lager{}, RoleNone, fmt.Errorf("load lager: %w", err)
	}

	if l.OwnerID == userID {
		return l, RoleOwner, nil
	}

	var n int64
	err := g.db.WithContext(ctx).Model(&models.LagerMember{}).
		Where("lager_id = ? AND user_id = ?", lagerID, userID).
		Count(&n).Error
	if err != nil {
		return models.Lager{}, RoleNone, fmt.Errorf("lookup membership: %w", err)
	}
	if n > 0 {
		return l, RoleMember, nil
	}
	return l, RoleNone, nil
}

// LagerOfArtikel returns the warehouse id an article belongs to.
func (g *Guard) LagerOfArtikel(ctx context.Context, artikelID uint) (uint, error) {
	var a models.Artikel
	err := g.db.WithContext(ctx).Select("id", "lager_id").First(&a, artikelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ErrNotFound
		}
		return 0, fmt.Errorf("load artikel: %w", err)
	}
	return a.LagerID, nil
}
