package inventory

import (
	"fmt"
	"strings"
	"time"

	"lager-backend/internal/access"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// GET /lager/:id/current_status/?q=bolt
func CurrentStatusHandler(catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)
		q := c.Query("q")

		items, err := catalog.ListInStock(c.UserContext(), l.ID, q)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"lager":    fiber.Map{"id": l.ID, "name": l.Name},
			"q":        q,
			"articles": toArtikelResponses(items),
		})
	}
}

// GET /lager/:id/current_status/export/?q=bolt streams the same list as xlsx.
func CurrentStatusExportHandler(catalog *Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := access.LagerFrom(c)

		items, err := catalog.ListInStock(c.UserContext(), l.ID, c.Query("q"))
		if err != nil {
			return err
		}

		f := excelize.NewFile()
		defer f.Close()

		const sheet = "Bestand"
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}

		header := []any{"ID", "Artikel", "Menge", "Zuletzt geändert"}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err == nil {
			_ = f.SetCellStyle(sheet, "A1", "D1", bold)
		}

		for i, a := range items {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			row := []any{a.ID, a.Name, a.Quantity, a.UpdatedAt.Format("2006-01-02 15:04")}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
		_ = f.SetColWidth(sheet, "B", "B", 40)
		_ = f.SetColWidth(sheet, "D", "D", 20)

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fmt.Errorf("render xlsx: %w", err)
		}

		name := fmt.Sprintf("lager-%d-%s.xlsx", l.ID, time.Now().Format("20060102"))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
		return c.Send(buf.Bytes())
	}
}
