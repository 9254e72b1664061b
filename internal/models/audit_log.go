package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionGrant  AuditAction = "grant"
	AuditActionRevoke AuditAction = "revoke"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	LagerID uint `gorm:"index;not null" json:"lager_id"`

	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:150" json:"user_name"` // denormalized

	// "lager", "artikel", "membership"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// JSON snapshots, "null" when absent
	BeforeData string `json:"before_data"`
	AfterData  string `json:"after_data"`
}
