package audit

import (
	"strconv"

	"lager-backend/internal/access"
	"lager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Before      string             `json:"before_data"`
	After       string             `json:"after_data"`
}

// GET /lager/:id/audit/?entity_type=artikel&entity_id=1&user_id=2
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)

		f := Filter{EntityType: c.Query("entity_type")}
		if v, err := strconv.ParseUint(c.Query("entity_id"), 10, 64); err == nil {
			f.EntityID = uint(v)
		}
		if v, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
			f.UserID = uint(v)
		}
		f.Limit = c.QueryInt("limit", 100)

		logs, err := List(c.UserContext(), db, l.ID, f)
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, e := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          e.ID,
				CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
				UserID:      e.UserID,
				UserName:    e.UserName,
				EntityType:  e.EntityType,
				EntityID:    e.EntityID,
				Action:      e.Action,
				Description: e.Description,
				Before:      e.BeforeData,
				After:       e.AfterData,
			})
		}

		return c.JSON(fiber.Map{"lager_id": l.ID, "entries": resp})
	}
}
