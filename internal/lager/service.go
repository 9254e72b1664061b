// Package lager is the warehouse registry: creation, listing and the
// owner-managed member set.
package lager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lager-backend/internal/apperr"
	"lager-backend/internal/audit"
	"lager-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GrantResult struct {
	User          models.User
	AlreadyMember bool
}

type RevokeResult struct {
	User      models.User
	WasMember bool
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create stores the warehouse and the owner's member row in one transaction.
func (s *Service) Create(ctx context.Context, ownerID uint, name string) (models.Lager, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return models.Lager{}, fmt.Errorf("%w: name must be 1-100 characters", apperr.ErrInvalidInput)
	}

	l := models.Lager{Name: name, OwnerID: ownerID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&l).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.LagerMember{LagerID: l.ID, UserID: ownerID}).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			LagerID:     l.ID,
			UserID:      ownerID,
			EntityType:  "lager",
			EntityID:    l.ID,
			Action:      models.AuditActionCreate,
			Description: "warehouse created: " + l.Name,
			After:       snapshot(l),
		})
	})
	if err != nil {
		return models.Lager{}, fmt.Errorf("create lager: %w", err)
	}
	return l, nil
}

// ListFor returns the warehouses the user is a member of, by name.
func (s *Service) ListFor(ctx context.Context, userID uint) ([]models.Lager, error) {
	lagers := make([]models.Lager, 0)
	err := s.db.WithContext(ctx).
		Joins("JOIN lager_members ON lager_members.lager_id = lagers.id").
		Where("lager_members.user_id = ?", userID).
		Preload("Owner").
		Order("lagers.name, lagers.id").
		Find(&lagers).Error
	if err != nil {
		return nil, fmt.Errorf("list lagers: %w", err)
	}
	return lagers, nil
}

func (s *Service) Members(ctx context.Context, lagerID uint) ([]models.User, error) {
	users := make([]models.User, 0)
	err := s.db.WithContext(ctx).
		Joins("JOIN lager_members ON lager_members.user_id = users.id").
		Where("lager_members.lager_id = ?", lagerID).
		Order("users.username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return users, nil
}

// Candidates lists the users the caller could still grant access to.
func (s *Service) Candidates(ctx context.Context, lagerID, callerID uint) ([]models.User, error) {
	members := s.db.Model(&models.LagerMember{}).Select("user_id").Where("lager_id = ?", lagerID)

	users := make([]models.User, 0)
	err := s.db.WithContext(ctx).
		Where("id <> ?", callerID).
		Where("id NOT IN (?)", members).
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return users, nil
}

func (s *Service) GrantAccess(ctx context.Context, lagerID, granterID, targetUserID uint) (GrantResult, error) {
	l, err := s.ownedLager(ctx, lagerID, granterID)
	if err != nil {
		return GrantResult{}, err
	}
	target, err := s.user(ctx, targetUserID)
	if err != nil {
		return GrantResult{}, err
	}

	res := GrantResult{User: target}
	if target.ID == l.OwnerID {
		res.AlreadyMember = true
		return res, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.LagerMember{LagerID: l.ID, UserID: target.ID})
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			res.AlreadyMember = true
			return nil
		}
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.LagerAccess{LagerID: l.ID, UserID: target.ID, GrantedByID: granterID}).Error
		if err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			LagerID:     l.ID,
			UserID:      granterID,
			EntityType:  "membership",
			EntityID:    target.ID,
			Action:      models.AuditActionGrant,
			Description: "access granted to " + target.Username,
		})
	})
	if err != nil {
		return GrantResult{}, fmt.Errorf("grant access: %w", err)
	}
	return res, nil
}

// RevokeAccess clears the member row and the grant row together. Revoking a
// user who is not a member changes nothing and reports WasMember false.
func (s *Service) RevokeAccess(ctx context.Context, lagerID, revokerID, targetUserID uint) (RevokeResult, error) {
	l, err := s.ownedLager(ctx, lagerID, revokerID)
	if err != nil {
		return RevokeResult{}, err
	}
	target, err := s.user(ctx, targetUserID)
	if err != nil {
		return RevokeResult{}, err
	}
	if target.ID == l.OwnerID {
		return RevokeResult{}, apperr.ErrCannotRevokeOwner
	}

	res := RevokeResult{User: target}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("lager_id = ? AND user_id = ?", l.ID, target.ID).Delete(&models.LagerMember{})
		if del.Error != nil {
			return del.Error
		}
		res.WasMember = del.RowsAffected > 0

		err := tx.Where("lager_id = ? AND user_id = ?", l.ID, target.ID).Delete(&models.LagerAccess{}).Error
		if err != nil {
			return err
		}
		if !res.WasMember {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			LagerID:     l.ID,
			UserID:      revokerID,
			EntityType:  "membership",
			EntityID:    target.ID,
			Action:      models.AuditActionRevoke,
			Description: "access revoked from " + target.Username,
		})
	})
	if err != nil {
		return RevokeResult{}, fmt.Errorf("revoke access: %w", err)
	}
	return res, nil
}

func (s *Service) ownedLager(ctx context.Context, lagerID, userID uint) (models.Lager, error) {
	var l models.Lager
	if err := s.db.WithContext(ctx).First(&l, lagerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Lager{}, apperr.ErrNotFound
		}
		return models.Lager{}, fmt.Errorf("load lager: %w", err)
	}
	if l.OwnerID != userID {
		return models.Lager{}, apperr.ErrNotAuthorized
	}
	return l, nil
}

func (s *Service) user(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, apperr.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

type lagerSnapshot struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	OwnerID uint   `json:"owner_id"`
}

func snapshot(l models.Lager) lagerSnapshot {
	return lagerSnapshot{ID: l.ID, Name: l.Name, OwnerID: l.OwnerID}
}
