package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"lager-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	LagerID     uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog appends an audit row using tx, so the row commits or rolls back
// with the change it describes.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	if opts.UserName == "" && opts.UserID != 0 {
		var u models.User
		if err := tx.Select("username").First(&u, opts.UserID).Error; err == nil {
			opts.UserName = u.Username
		}
	}

	entry := models.AuditLog{
		LagerID:     opts.LagerID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

type Filter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Limit      int
}

// List returns the newest entries of one warehouse first.
func List(ctx context.Context, db *gorm.DB, lagerID uint, f Filter) ([]models.AuditLog, error) {
	q := db.WithContext(ctx).Model(&models.AuditLog{}).Where("lager_id = ?", lagerID)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}

	logs := make([]models.AuditLog, 0)
	if err := q.Order("created_at DESC, id DESC").Limit(f.Limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
